// Command ttcnport checks port declarations, replays captured traffic through
// a port, and serves a monitor for the ports.
package main

import "github.com/sarchlab/ttcnport/ttcnport/cmd"

func main() {
	cmd.Execute()
}
