package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ttcnport/component"
	"github.com/sarchlab/ttcnport/config"
	"github.com/sarchlab/ttcnport/monitoring"
	"github.com/sarchlab/ttcnport/port"
)

func newMonitorCommand(settings *config.Settings) *cobra.Command {
	var (
		declFile string
		open     bool
	)

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve a monitor for the declared ports.",
		Long: "`monitor` gives the main test component one started port per " +
			"declared port type and serves their state until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			decls, err := loadDeclarations(declFile)
			if err != nil {
				return err
			}

			registry := buildRegistry(decls)

			m := monitoring.NewMonitor().WithPortNumber(settings.MonitorPort)
			for _, p := range registry.Ports() {
				m.RegisterPort(p)
			}

			registry.MTC().Start()

			portNumber := m.StartServer()
			if open {
				url := fmt.Sprintf("http://localhost:%d", portNumber)
				if err := browser.OpenURL(url); err != nil {
					warn("cannot open %s: %v\n", url, err)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			<-ctx.Done()
			registry.TerminateAll()

			return nil
		},
	}

	monitorCmd.Flags().StringVar(&declFile, "decl", "", "Port declaration file")
	monitorCmd.Flags().BoolVar(&open, "open", false, "Open the monitor in a browser")

	if err := monitorCmd.MarkFlagRequired("decl"); err != nil {
		panic(err)
	}

	return monitorCmd
}

// buildRegistry creates a registry whose MTC owns one port per declaration,
// named after the port type.
func buildRegistry(decls []port.Declaration) *component.Registry {
	registry := component.NewRegistry()
	mtc := registry.MTC()

	for _, d := range decls {
		mtc.BuildPort(port.MakeBuilder().WithDeclaration(d), d.Name)
	}

	return registry
}
