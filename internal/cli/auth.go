package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/warikan/internal/session"
)

func (c *cli) newSignUpCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := c.credentials(email)
			if err != nil {
				return err
			}
			route, err := c.app.Session.SignUp(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if route == session.RouteSignIn {
				fmt.Fprintf(c.errOut, "Account created for %s. Run 'warikan login' to sign in.\n", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted if empty)")
	return cmd
}

func (c *cli) newLoginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:     "login",
		Aliases: []string{"signin"},
		Short:   "Sign in and store the session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.Session.Guard(cmd.Context(), session.RouteSignIn) == session.RouteTop {
				fmt.Fprintf(c.errOut, "Already signed in as %s\n", c.app.Store.Email())
				return nil
			}
			email, password, err := c.credentials(email)
			if err != nil {
				return err
			}
			if err := c.app.Session.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(c.errOut, "Signed in as %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email (prompted if empty)")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Aliases: []string{"signout"},
		Short:   "Sign out and forget the stored session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.app.Session.SignOut(cmd.Context())
			fmt.Fprintln(c.errOut, "Signed out")
			return err
		},
	}
}

func (c *cli) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := c.app.Session.Status(cmd.Context())
			if err != nil {
				return err
			}
			return render(c.out, c.format(), []statusRow{newStatusRow(status)}, statusHeader, statusRow.cells)
		},
	}
}
