// Package app builds the client-side state containers from configuration
// and wires them together. Each UI gets one App per process.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/warikan/internal/client"
	"github.com/mmynk/warikan/internal/config"
	"github.com/mmynk/warikan/internal/directory"
	"github.com/mmynk/warikan/internal/ledger"
	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/session"
)

// App holds the shared client state.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Tracker   *loading.Tracker
	Client    *client.Client
	People    *directory.Directory
	Purchases *ledger.Ledger
	Session   *session.Gate
	Store     *session.Store
}

// Option customizes New.
type Option func(*options)

type options struct {
	transport  http.RoundTripper
	registerer prometheus.Registerer
}

// WithTransport replaces the HTTP transport of both the API and identity
// clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithRegisterer exports the loading gauge to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New builds an App. Nothing touches the network until an operation runs.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var trackerOpts []loading.Option
	if o.registerer != nil {
		trackerOpts = append(trackerOpts, loading.WithRegisterer(o.registerer))
	}
	tracker, err := loading.NewTracker(trackerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create loading tracker: %w", err)
	}

	store, err := session.NewStore(cfg.Session.File)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.API.Timeout),
		client.WithTokenSource(store),
		client.WithLogger(logger),
	}
	if o.transport != nil {
		clientOpts = append(clientOpts, client.WithTransport(o.transport))
	}
	api, err := client.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	identityHTTP := &http.Client{Timeout: cfg.API.Timeout, Transport: o.transport}
	identity := session.NewHTTPIdentity(cfg.Identity.URL, identityHTTP)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Tracker:   tracker,
		Client:    api,
		People:    directory.New(api, tracker, logger),
		Purchases: ledger.New(api, tracker, logger),
		Session:   session.New(identity, api, store, session.WithLogger(logger)),
		Store:     store,
	}, nil
}
