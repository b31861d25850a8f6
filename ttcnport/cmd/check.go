package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ttcnport/port"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate port declaration files.",
		Long: "`check` resolves the mapping functions of every port type in " +
			"the files, validates the declarations, and prints a summary.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0

			for _, path := range args {
				decls, err := loadDeclarations(path)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAIL\t%v\n", path, err)
					failed++

					continue
				}

				for _, d := range decls {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, summarize(d))
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s\tOK\n", path)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files have errors", failed, len(args))
			}

			return nil
		},
	}
}

func summarize(d port.Declaration) string {
	var flags []string
	if d.HasAddress {
		flags = append(flags, "address")
	}

	if d.Realtime {
		flags = append(flags, "realtime")
	}

	if d.Sliding {
		flags = append(flags, "sliding")
	}

	s := fmt.Sprintf("%s (%s) out rules: %d, in rules: %d, signatures: %d",
		d.Name, d.Category, len(d.Mapping.Out), len(d.Mapping.In),
		len(d.Procedures))

	if len(flags) > 0 {
		s += ", " + strings.Join(flags, " ")
	}

	return s
}
