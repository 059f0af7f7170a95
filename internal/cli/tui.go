package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/tui"
)

func (c *cli) newTUICmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse, select and settle purchases interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseStage(stage)
			if err != nil {
				return err
			}
			if c.metrics != nil {
				_, shutdown, err := serveMetrics(c.metricsAddr, c.metrics, c.app.Logger)
				if err != nil {
					return err
				}
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(ctx)
				}()
			}

			model := tui.New(cmd.Context(), c.app.Purchases, c.app.Tracker, s)
			program := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithInput(c.in),
				tea.WithOutput(c.out),
				tea.WithAltScreen(),
			)
			_, err = program.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&stage, "stage", string(models.StageUnsettled), "stage to start in")
	cmd.Flags().StringVar(&c.metricsAddr, "metrics-addr", "", "serve client metrics at this address, e.g. localhost:9464")
	return protected(cmd)
}
