// Package service implements the HTTP handlers of the reference API server:
// /api/v1 for people, purchases and sessions, and /identity/v1 for the
// identity emulator.
package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/warikan/internal/auth"
	"github.com/mmynk/warikan/internal/middleware"
	"github.com/mmynk/warikan/internal/storage"
)

// Options configures NewHandler.
type Options struct {
	Store         storage.Store
	Authenticator auth.Authenticator

	// IDTokens signs identity-emulator tokens; SessionTokens signs API
	// session tokens.
	IDTokens      *auth.JWTManager
	SessionTokens *auth.JWTManager

	// RequireAuth protects people and purchases with a session.
	RequireAuth bool

	// Registry, when set, receives request metrics and is served at /metrics.
	Registry *prometheus.Registry

	Logger *slog.Logger
}

// NewHandler builds the server's root handler.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Store == nil || opts.Authenticator == nil || opts.IDTokens == nil || opts.SessionTokens == nil {
		return nil, errors.New("service: store, authenticator and token managers are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *middleware.Metrics
	if opts.Registry != nil {
		m, err := middleware.NewMetrics(opts.Registry)
		if err != nil {
			return nil, err
		}
		metrics = m
	}

	people := NewPeopleService(opts.Store, logger)
	purchases := NewPurchaseService(opts.Store, logger)
	sessions := NewAuthService(opts.Store, opts.IDTokens, opts.SessionTokens, logger)
	identity := NewIdentityService(opts.Authenticator, opts.IDTokens, logger)

	requireAuth := middleware.RequireAuth(opts.SessionTokens)
	protect := func(h http.HandlerFunc) http.Handler {
		if opts.RequireAuth {
			return requireAuth(h)
		}
		return middleware.OptionalAuth(opts.SessionTokens)(h)
	}

	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		if metrics != nil {
			h = metrics.Instrument(pattern, h)
		}
		mux.Handle(pattern, h)
	}

	handle("GET /api/v1/people", protect(people.List))
	handle("POST /api/v1/people", protect(people.Create))
	handle("DELETE /api/v1/people/{id}", protect(people.Delete))

	handle("GET /api/v1/purchases", protect(purchases.List))
	handle("POST /api/v1/purchases", protect(purchases.Create))
	handle("PATCH /api/v1/purchases", protect(purchases.PatchBulk))
	handle("DELETE /api/v1/purchases", protect(purchases.DeleteBulk))
	handle("PATCH /api/v1/purchases/{id}", protect(purchases.Patch))
	handle("DELETE /api/v1/purchases/{id}", protect(purchases.Delete))

	handle("POST /api/v1/auth/login", http.HandlerFunc(sessions.Login))
	handle("POST /api/v1/auth/logout", middleware.OptionalAuth(opts.SessionTokens)(http.HandlerFunc(sessions.Logout)))
	handle("GET /api/v1/auth/me", requireAuth(http.HandlerFunc(sessions.Me)))

	handle("POST /identity/v1/signUp", http.HandlerFunc(identity.SignUp))
	handle("POST /identity/v1/signIn", http.HandlerFunc(identity.SignIn))
	handle("POST /identity/v1/signOut", http.HandlerFunc(identity.SignOut))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.CORS,
	), nil
}
