// Package cli implements the warikan command line.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmynk/warikan/internal/app"
	"github.com/mmynk/warikan/internal/config"
	"github.com/mmynk/warikan/internal/session"
	"github.com/mmynk/warikan/pkg/logging"
)

const annotationProtected = "warikan/protected"

type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	lines  *bufio.Reader

	configFile string
	appOpts    []app.Option

	// metricsAddr is set by commands that can export client metrics.
	metricsAddr string
	metrics     *prometheus.Registry

	app *app.App
}

// Option configures the command tree.
type Option func(*cli)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(c *cli) {
		c.in, c.out, c.errOut = in, out, errOut
	}
}

// WithAppOptions passes opts to app.New.
func WithAppOptions(opts ...app.Option) Option {
	return func(c *cli) { c.appOpts = append(c.appOpts, opts...) }
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the warikan command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	c := &cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}

	root := &cobra.Command{
		Use:   "warikan",
		Short: "Track shared purchases and who owes what",
		Long: `warikan records purchases shared by a group of people, shows
who owes what over any selection of them, and moves them through the
unsettled, settled and archived stages.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: search $HOME/.warikan, .warikan, .)")
	flags.String("api", "", "API base URL (api.base_url)")
	flags.StringP("output", "o", "", "output format: table, json, yaml, csv")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.newPeopleCmd(),
		c.newPurchasesCmd(),
		c.newBalancesCmd(),
		c.newExportCmd(),
		c.newSyncCmd(),
		c.newTUICmd(),
		c.newSignUpCmd(),
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newStatusCmd(),
	)
	return root
}

// setup loads configuration, builds the App and applies the session guard
// to protected commands.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Options{ConfigFile: c.configFile, Flags: cmd.Flags()})
	if err != nil {
		return err
	}
	logger := logging.Configure(c.errOut, cfg.LogLevel(), cfg.Log.Format)

	appOpts := c.appOpts
	if c.metricsAddr != "" {
		c.metrics = newMetricsRegistry()
		appOpts = append(appOpts[:len(appOpts):len(appOpts)], app.WithRegisterer(c.metrics))
	}
	c.app, err = app.New(cfg, logger, appOpts...)
	if err != nil {
		return err
	}

	if cmd.Annotations[annotationProtected] != "" {
		if err := c.app.Session.Require(cmd.Context()); err != nil {
			if errors.Is(err, session.ErrNotAuthenticated) {
				return fmt.Errorf("%w: run 'warikan login' first", err)
			}
			return err
		}
	}
	return nil
}

func (c *cli) format() string {
	return c.app.Config.Output.Format
}

// protected marks cmd and its subcommands as requiring a session.
func protected(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationProtected] = "true"
	for _, sub := range cmd.Commands() {
		protected(sub)
	}
	return cmd
}

// prompt reads one line from stdin. Secret input is read without echo when
// stdin is a terminal.
func (c *cli) prompt(label string, secret bool) (string, error) {
	fmt.Fprint(c.errOut, label)

	if f, ok := c.in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(data), nil
	}

	if c.lines == nil {
		c.lines = bufio.NewReader(c.in)
	}
	line, err := c.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ":")), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// credentials returns the email from the flag or a prompt, then the password.
func (c *cli) credentials(email string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = c.prompt("Email: ", false); err != nil {
			return "", "", err
		}
	}
	if email == "" {
		return "", "", errors.New("email is required")
	}
	password, err := c.prompt("Password: ", true)
	if err != nil {
		return "", "", err
	}
	if password == "" {
		return "", "", errors.New("password is required")
	}
	return email, password, nil
}
