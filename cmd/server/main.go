// Command server runs the warikan reference API server: the /api/v1 REST
// API over SQLite plus an identity emulator under /identity/v1.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/warikan/internal/auth"
	"github.com/mmynk/warikan/internal/config"
	"github.com/mmynk/warikan/internal/service"
	"github.com/mmynk/warikan/internal/storage/sqlite"
	"github.com/mmynk/warikan/pkg/logging"
)

// idTokenTTL bounds how long an identity-emulator token can be exchanged.
const idTokenTTL = 5 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "warikan-server",
		Short:         "Reference API server for warikan",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{ConfigFile: configFile, Flags: cmd.Flags()})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			logger := logging.Configure(os.Stderr, cfg.LogLevel(), cfg.Log.Format)

			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("Server failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "config file (default: search $HOME/.warikan, .warikan, .)")
	cmd.Flags().String("addr", "", "listen address (server.addr)")
	cmd.Flags().String("db", "", "SQLite database path (server.db_path)")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.Server.DBPath)

	var registry *prometheus.Registry
	if cfg.Server.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	handler, err := service.NewHandler(service.Options{
		Store:         store,
		Authenticator: auth.NewPasswordAuthenticator(store),
		IDTokens:      auth.NewJWTManager(cfg.Server.JWTSecret, idTokenTTL, auth.AudienceIdentity),
		SessionTokens: auth.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL, auth.AudienceAPI),
		RequireAuth:   cfg.Server.RequireAuth,
		Registry:      registry,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	// h2c serves HTTP/2 without TLS alongside HTTP/1.1.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			"address", cfg.Server.Addr,
			"require_auth", cfg.Server.RequireAuth,
			"metrics", cfg.Server.Metrics,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
