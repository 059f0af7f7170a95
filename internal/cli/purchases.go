package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/ledger"
	"github.com/mmynk/warikan/internal/models"
)

func (c *cli) newPurchasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "purchases",
		Aliases: []string{"purchase", "p"},
		Short:   "Record purchases and move them between stages",
	}

	cmd.AddCommand(
		c.newPurchasesListCmd(),
		c.newPurchasesAddCmd(),
		c.newPurchasesEditCmd(),
		c.newStageCmd("settle", "Mark purchases settled", "Settled", func(l *ledger.Ledger) stageOps {
			return stageOps{l.Settle, l.SettleBulk}
		}),
		c.newStageCmd("archive", "Archive purchases", "Archived", func(l *ledger.Ledger) stageOps {
			return stageOps{l.Archive, l.ArchiveBulk}
		}),
		c.newStageCmd("repay", "Move settled purchases back to unsettled", "Reopened", func(l *ledger.Ledger) stageOps {
			return stageOps{l.Repay, l.RepayBulk}
		}),
		c.newPurchasesRmCmd(),
	)
	return protected(cmd)
}

func (c *cli) newPurchasesListCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List purchases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseStageFlag(stage)
			if err != nil {
				return err
			}
			if err := c.app.Purchases.FetchAll(cmd.Context(), filter); err != nil {
				return err
			}
			return c.printPurchases()
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "only list purchases in this stage (unsettled, settled, archived)")
	return cmd
}

func (c *cli) newPurchasesAddCmd() *cobra.Command {
	var (
		date, note   string
		participants []string
		total, payer string
		split        []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Record a new unsettled purchase",
		Example: `  warikan purchases add Groceries --participant a:Aki:60:100 --participant b:Ben:40:0
  warikan purchases add Taxi --total 30 --payer a --split a,b,c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var people []models.Participant
			var err error
			if len(participants) > 0 {
				people, err = parseParticipants(participants)
			} else {
				people, err = c.evenSplit(ctx, total, payer, split)
			}
			if err != nil {
				return err
			}

			if err := c.app.Purchases.Create(ctx, models.NewPurchase{
				Name:   args[0],
				Date:   date,
				Note:   note,
				People: people,
			}); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "Created purchase %q\n", args[0])
			return c.printPurchases()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&date, "date", time.Now().Format(time.DateOnly), "purchase date")
	flags.StringVar(&note, "note", "", "free-form note")
	flags.StringArrayVarP(&participants, "participant", "p", nil, "participant as id:name:toPay[:paid] (repeatable)")
	flags.StringVar(&total, "total", "", "total to split evenly")
	flags.StringVar(&payer, "payer", "", "ID of the person who paid the total")
	flags.StringSliceVar(&split, "split", nil, "IDs of the people sharing the total")
	cmd.MarkFlagsMutuallyExclusive("participant", "total")
	cmd.MarkFlagsRequiredTogether("total", "split")
	cmd.MarkFlagsOneRequired("participant", "total")
	return cmd
}

func (c *cli) newPurchasesEditCmd() *cobra.Command {
	var (
		name, date, note, stage string
		participants            []string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			var patch models.PurchasePatch
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("date") {
				patch.Date = &date
			}
			if flags.Changed("note") {
				patch.Note = &note
			}
			if flags.Changed("stage") {
				s, err := models.ParseStage(stage)
				if err != nil {
					return err
				}
				patch.Stage = &s
			}
			if flags.Changed("participant") {
				people, err := parseParticipants(participants)
				if err != nil {
					return err
				}
				patch.People = people
			}

			// Load the cache so stage changes are checked locally.
			if err := c.app.Purchases.FetchAll(ctx, ""); err != nil {
				return err
			}
			if err := c.app.Purchases.Edit(ctx, args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "Updated %s\n", args[0])
			return c.printPurchases()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "new name")
	flags.StringVar(&date, "date", "", "new date")
	flags.StringVar(&note, "note", "", "new note")
	flags.StringVar(&stage, "stage", "", "new stage")
	flags.StringArrayVarP(&participants, "participant", "p", nil, "replace participants, as id:name:toPay[:paid] (repeatable)")
	return cmd
}

// stageOps pairs the single and bulk ledger calls for one stage change.
type stageOps struct {
	single func(ctx context.Context, id string) error
	bulk   func(ctx context.Context, ids []string) (*ledger.BulkResult, error)
}

// newStageCmd builds a stage-change command. ops is resolved at run time,
// after PersistentPreRunE has built the ledger.
func (c *cli) newStageCmd(use, short, done string, ops func(*ledger.Ledger) stageOps) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Long:  short + ". One ID sends a single update; several are sent as one bulk update.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.app.Purchases.FetchAll(ctx, ""); err != nil {
				return err
			}

			o := ops(c.app.Purchases)
			if len(args) == 1 {
				if err := o.single(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.errOut, "%s %s\n", done, args[0])
				return nil
			}

			result, err := o.bulk(ctx, args)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
}

func (c *cli) newPurchasesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete purchases",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.app.Purchases.FetchAll(ctx, ""); err != nil {
				return err
			}

			if len(args) == 1 {
				if err := c.app.Purchases.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.errOut, "Deleted %s\n", args[0])
				return nil
			}

			result, err := c.app.Purchases.DeleteBulk(ctx, args)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
}

func (c *cli) printPurchases() error {
	return render(c.out, c.format(), purchaseRows(c.app.Purchases.Purchases()), purchaseHeader, purchaseRow.cells)
}

// printResult prints per-ID outcomes and fails unless all were applied.
func (c *cli) printResult(result *ledger.BulkResult) error {
	if err := render(c.out, c.format(), result.Items, resultHeader, resultCells); err != nil {
		return err
	}
	if !result.AllApplied() {
		return fmt.Errorf("%d of %d purchases not applied", len(result.Items)-len(result.Applied()), len(result.Items))
	}
	return nil
}

func parseStageFlag(s string) (models.Stage, error) {
	if s == "" {
		return "", nil
	}
	return models.ParseStage(s)
}

// parseParticipants parses id:name:toPay[:paid] values.
func parseParticipants(values []string) ([]models.Participant, error) {
	people := make([]models.Participant, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) != 3 && len(parts) != 4 {
			return nil, fmt.Errorf("invalid participant %q: want id:name:toPay[:paid]", v)
		}
		if parts[0] == "" {
			return nil, fmt.Errorf("invalid participant %q: empty id", v)
		}

		toPay, err := parseAmount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid participant %q: toPay: %w", v, err)
		}
		paid := decimal.Zero
		if len(parts) == 4 {
			if paid, err = parseAmount(parts[3]); err != nil {
				return nil, fmt.Errorf("invalid participant %q: paid: %w", v, err)
			}
		}

		people = append(people, models.Participant{
			Person: models.Person{ID: parts[0], Name: parts[1]},
			ToPay:  toPay,
			Paid:   paid,
		})
	}
	if err := models.ValidateParticipants(people); err != nil {
		return nil, err
	}
	return people, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("amount cannot be negative")
	}
	return d, nil
}

// evenSplit builds participants sharing total equally among ids, which must
// be known people.
func (c *cli) evenSplit(ctx context.Context, total, payer string, ids []string) ([]models.Participant, error) {
	amount, err := parseAmount(total)
	if err != nil {
		return nil, fmt.Errorf("invalid --total: %w", err)
	}
	if err := c.app.People.FetchAll(ctx); err != nil {
		return nil, err
	}

	people := make([]models.Person, 0, len(ids))
	for _, id := range ids {
		person, ok := c.app.People.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown person %q (see 'warikan people list')", id)
		}
		people = append(people, person)
	}
	return calculator.EvenSplit(amount, payer, people)
}
