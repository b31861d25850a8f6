package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ttcnport/tracing"
)

func newTraceCommand() *cobra.Command {
	query := tracing.EventQuery{}

	traceCmd := &cobra.Command{
		Use:   "trace DB",
		Short: "Summarize a SQLite trace.",
		Long: "`trace` prints the number of events per hook position. With a " +
			"filter flag, it lists the matching events instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}

			reader := tracing.NewSQLiteTraceReader(args[0])
			reader.Init()
			defer reader.Close()

			out := cmd.OutOrStdout()

			if query == (tracing.EventQuery{}) {
				for _, c := range reader.CountByPos() {
					fmt.Fprintf(out, "%s\t%d\n", c.Pos, c.Count)
				}

				return nil
			}

			for _, e := range reader.ListEvents(query) {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Where, e.Pos, e.TypeTag, e.Sender, e.Detail)
			}

			return nil
		},
	}

	traceCmd.Flags().StringVar(&query.Where, "where", "", "Only events of this port or queue")
	traceCmd.Flags().StringVar(&query.Pos, "pos", "", "Only events at this hook position")
	traceCmd.Flags().StringVar(&query.TypeTag, "type", "", "Only events of this type")
	traceCmd.Flags().StringVar(&query.ID, "id", "", "Only events of this envelope")

	return traceCmd
}
