package cmd

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ttcnport/config"
	"github.com/sarchlab/ttcnport/monitoring"
	"github.com/sarchlab/ttcnport/port"
	"github.com/sarchlab/ttcnport/tracing"
)

type replayOptions struct {
	declFile string
	portType string
	typeTag  string
	input    string
	logging  bool
	monitor  bool
}

func newReplayCommand(settings *config.Settings) *cobra.Command {
	opts := replayOptions{}

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Feed captured traffic into a port.",
		Long: "`replay` builds a port from a declaration file, passes every " +
			"hex-encoded line of the input to the port as if the system had " +
			"sent it, and prints the messages that end up in the queue.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReplay(cmd, *settings, opts)
		},
	}

	replayCmd.Flags().StringVar(&opts.declFile, "decl", "", "Port declaration file")
	replayCmd.Flags().StringVar(&opts.portType, "port", "",
		"Port type to build, optional if the file declares one port type")
	replayCmd.Flags().StringVar(&opts.typeTag, "type", "octetstring",
		"Type of the incoming values")
	replayCmd.Flags().StringVar(&opts.input, "input", "-",
		"File with one hex-encoded chunk per line, - for stdin")
	replayCmd.Flags().BoolVar(&opts.logging, "log", false,
		"Log every decision of the port to stderr")
	replayCmd.Flags().BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitor and keep running after the replay")

	if err := replayCmd.MarkFlagRequired("decl"); err != nil {
		panic(err)
	}

	return replayCmd
}

func runReplay(
	cmd *cobra.Command,
	settings config.Settings,
	opts replayOptions,
) error {
	decls, err := loadDeclarations(opts.declFile)
	if err != nil {
		return err
	}

	decl, err := findDeclaration(decls, opts.portType)
	if err != nil {
		return err
	}

	chunks, err := readChunks(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	p := port.MakeBuilder().WithDeclaration(decl).Build("Replay")

	counter := tracing.NewCountingTracer()
	tracing.CollectTrace(p, counter)

	if opts.logging {
		p.AcceptHook(tracing.NewPortMsgLogger(log.New(os.Stderr, "", 0)))
	}

	if writer := settings.TraceWriter(); writer != nil {
		writer.Init()
		defer writer.Close()
		tracing.CollectTrace(p, writer)
	}

	var (
		m   *monitoring.Monitor
		bar *monitoring.ProgressBar
	)

	if opts.monitor {
		m = monitoring.NewMonitor().WithPortNumber(settings.MonitorPort)
		m.RegisterPort(p)
		bar = m.CreateProgressBar("Replay", uint64(len(chunks)))
		m.StartServer()
	} else {
		bar = &monitoring.ProgressBar{Name: "Replay", Total: uint64(len(chunks))}
	}

	p.Start()
	replayChunks(p, opts.typeTag, chunks, bar)
	drained := drainMessages(cmd.OutOrStdout(), p)

	fmt.Fprintf(cmd.OutOrStdout(), "chunks: %d, failed: %d, messages: %d\n",
		bar.Total, bar.Failed, drained)

	for _, c := range counter.Counts() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", c.Pos, c.Count)
	}

	if m != nil {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		<-ctx.Done()
	}

	return nil
}

func readChunks(stdin io.Reader, input string) ([][]byte, error) {
	r := stdin

	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r = f
	}

	return parseChunks(r)
}

// parseChunks reads one hex-encoded chunk per line. Blank lines and lines
// starting with # are skipped; spaces inside a line are ignored.
func parseChunks(r io.Reader) ([][]byte, error) {
	var chunks [][]byte

	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		chunk, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		chunks = append(chunks, chunk)
	}

	return chunks, scanner.Err()
}

func replayChunks(
	p *port.Port,
	typeTag string,
	chunks [][]byte,
	bar *monitoring.ProgressBar,
) {
	for i, chunk := range chunks {
		bar.IncrementInProgress(1)

		err := p.Incoming(typeTag, chunk, nil)
		if err != nil {
			warn("chunk %d: %v\n", i, err)
			bar.MoveInProgressToFailed(1)

			continue
		}

		bar.MoveInProgressToFinished(1)
	}
}

func drainMessages(out io.Writer, p *port.Port) int {
	n := 0

	for {
		env, ok := p.MessageQueue().Peek()
		if !ok {
			return n
		}

		res, err := p.Receive(port.ProbeOptions{})
		if err != nil || res != port.Matched {
			return n
		}

		fmt.Fprintf(out, "%s\t%s\t%s\n", env.ID, env.TypeTag, formatValue(env.Payload))
		n++
	}
}

func formatValue(v any) string {
	if b, ok := v.([]byte); ok {
		return hex.EncodeToString(b)
	}

	return fmt.Sprintf("%v", v)
}
