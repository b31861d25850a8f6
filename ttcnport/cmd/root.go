// Package cmd provides the command-line interface for ttcnport.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ttcnport/config"
	"github.com/sarchlab/ttcnport/port"
	"github.com/sarchlab/ttcnport/translation"
)

// NewRootCommand creates the ttcnport command with all its subcommands.
func NewRootCommand() *cobra.Command {
	var envFiles []string

	settings := &config.Settings{}

	rootCmd := &cobra.Command{
		Use:   "ttcnport",
		Short: "ttcnport works with the ports of a TTCN-3 test system.",
		Long: `ttcnport validates port declaration files, replays captured ` +
			`traffic through the translation pipeline of a port, and serves ` +
			`a monitor for the ports of a test system.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			s, err := config.LoadSettings(envFiles...)
			if err != nil {
				return err
			}

			*settings = s
			settings.Apply()

			return nil
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil,
		"Load settings from these .env files instead of ./.env")

	rootCmd.AddCommand(
		newCheckCommand(),
		newReplayCommand(settings),
		newMonitorCommand(settings),
		newTraceCommand(),
	)

	return rootCmd
}

// Execute runs the command line and exits. Registered exit handlers, such as
// the ones flushing traces, run before the process ends.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadDeclarations(path string) ([]port.Declaration, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return f.Declarations(translation.NewFuncRegistry())
}

func findDeclaration(decls []port.Declaration, name string) (port.Declaration, error) {
	if name == "" && len(decls) == 1 {
		return decls[0], nil
	}

	for _, d := range decls {
		if d.Name == name {
			return d, nil
		}
	}

	return port.Declaration{}, fmt.Errorf("port type %q not declared", name)
}

func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
