package cli

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/selection"
)

func (c *cli) newBalancesCmd() *cobra.Command {
	var (
		stage     string
		selected  []string
		all       bool
		transfers bool
	)

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show who owes what over selected purchases",
		Long: `Show each person's outstanding amount (toPay - paid) summed over the
selected purchases of one stage. Everyone who appears in any purchase is
listed; people outside the selection show zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := models.ParseStage(stage)
			if err != nil {
				return err
			}
			if err := c.app.Purchases.FetchAll(cmd.Context(), ""); err != nil {
				return err
			}
			purchases := c.app.Purchases.Purchases()

			view := selection.New(s)
			if all {
				view.ToggleAll(purchases)
			}
			for _, id := range selected {
				p, ok := c.app.Purchases.Purchase(id)
				if !ok {
					return fmt.Errorf("unknown purchase %q", id)
				}
				if p.Stage != s {
					return fmt.Errorf("purchase %s is %s, not %s", id, p.Stage, s)
				}
				if !view.IsSelected(id) {
					view.Toggle(id)
				}
			}

			balances := view.Balances(purchases)
			if transfers {
				return render(c.out, c.format(), transferRows(calculator.SettleUp(balances)), transferHeader, transferRow.cells)
			}
			return render(c.out, c.format(), balanceRows(balances), balanceHeader, balanceRow.cells)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&stage, "stage", string(models.StageUnsettled), "stage whose purchases can be selected")
	flags.StringSliceVar(&selected, "select", nil, "IDs of purchases to include")
	flags.BoolVar(&all, "all", false, "include every purchase of the stage")
	flags.BoolVar(&transfers, "transfers", false, "show suggested payments instead of balances")
	return protected(cmd)
}

func (c *cli) newExportCmd() *cobra.Command {
	var stage, file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write purchases as CSV, one row per participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStageFlag(stage)
			if err != nil {
				return err
			}
			if err := c.app.Purchases.FetchAll(cmd.Context(), filter); err != nil {
				return err
			}
			rows := exportRows(c.app.Purchases.Purchases())

			if file == "" || file == "-" {
				return gocsv.Marshal(&rows, c.out)
			}
			f, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := gocsv.MarshalFile(&rows, f); err != nil {
				f.Close()
				return fmt.Errorf("write export: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "Exported %d rows to %s\n", len(rows), file)
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "only export purchases in this stage")
	cmd.Flags().StringVarP(&file, "file", "f", "", "output file (default: stdout)")
	return protected(cmd)
}

func (c *cli) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch people and purchases and summarize them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return c.app.People.FetchAll(ctx) })
			g.Go(func() error { return c.app.Purchases.FetchAll(ctx, "") })
			if err := g.Wait(); err != nil {
				return err
			}

			row := newSyncRow(c.app.People.People(), c.app.Purchases.Purchases())
			return render(c.out, c.format(), []syncRow{row}, syncHeader, syncRow.cells)
		},
	}
	return protected(cmd)
}
