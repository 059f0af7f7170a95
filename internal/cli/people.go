package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) newPeopleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "people",
		Aliases: []string{"person"},
		Short:   "Manage the people purchases are shared with",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List people",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.People.FetchAll(cmd.Context()); err != nil {
				return err
			}
			return c.printPeople()
		},
	}

	var id string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.People.Create(cmd.Context(), args[0], id); err != nil {
				return err
			}
			return c.printPeople()
		},
	}
	add.Flags().StringVar(&id, "id", "", "use this ID instead of a server-assigned one")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a person",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.People.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "Removed %s\n", args[0])
			return c.printPeople()
		},
	}

	cmd.AddCommand(list, add, rm)
	return protected(cmd)
}

func (c *cli) printPeople() error {
	return render(c.out, c.format(), personRows(c.app.People.People()), personHeader, personRow.cells)
}
