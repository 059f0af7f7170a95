// Package session is the authentication gate of the client. It exchanges
// identity-provider credentials for an API session token, keeps that token
// in a Store, and decides where navigation may go.
//
// Tokens are inspected without verifying their signature. The API remains
// the authority; the gate only avoids sending a token it can see has expired.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Route names a top-level view.
type Route string

const (
	RouteTop    Route = "top"
	RouteSignIn Route = "signin"
	RouteSignUp Route = "signup"
)

// API is the subset of the REST client the gate needs.
type API interface {
	Login(ctx context.Context, idToken string) (string, error)
	Logout(ctx context.Context) error
}

// Status describes the current session.
type Status struct {
	Authenticated bool      `json:"authenticated" yaml:"authenticated"`
	Email         string    `json:"email,omitempty" yaml:"email,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
}

// Gate tracks whether the user is signed in.
type Gate struct {
	identity IdentityProvider
	api      API
	store    *Store
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	authenticated bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate. Call Resolve to pick up a session saved in store.
func New(identity IdentityProvider, api API, store *Store, opts ...Option) *Gate {
	g := &Gate{
		identity: identity,
		api:      api,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SignIn verifies credentials with the identity provider and opens an API
// session.
func (g *Gate) SignIn(ctx context.Context, email, password string) error {
	idToken, err := g.identity.SignIn(ctx, email, password)
	if err != nil {
		g.logger.Error("Sign in failed", "email", email, "error", err)
		return err
	}

	token, err := g.api.Login(ctx, idToken)
	if err != nil {
		g.logger.Error("API login failed", "email", email, "error", err)
		return err
	}
	if token == "" {
		return fmt.Errorf("login: API returned no session token")
	}

	if err := g.store.Set(token, email); err != nil {
		return err
	}

	g.mu.Lock()
	g.authenticated = true
	g.mu.Unlock()

	g.logger.Info("Signed in", "email", email)
	return nil
}

// SignUp registers an account and announces it to the API. The new user is
// not signed in; the returned route is the sign-in view.
func (g *Gate) SignUp(ctx context.Context, email, password string) (Route, error) {
	idToken, err := g.identity.SignUp(ctx, email, password)
	if err != nil {
		g.logger.Error("Sign up failed", "email", email, "error", err)
		return RouteSignUp, err
	}
	if _, err := g.api.Login(ctx, idToken); err != nil {
		g.logger.Error("API login after sign up failed", "email", email, "error", err)
		return RouteSignUp, err
	}

	g.mu.Lock()
	g.authenticated = false
	g.mu.Unlock()

	g.logger.Info("Signed up", "email", email)
	return RouteSignIn, nil
}

// SignOut ends the session with the identity provider and the API. The local
// session is cleared even if either call fails; their errors are returned
// joined.
func (g *Gate) SignOut(ctx context.Context) error {
	var errs []error
	if err := g.identity.SignOut(ctx); err != nil {
		g.logger.Warn("Identity sign out failed", "error", err)
		errs = append(errs, err)
	}
	if err := g.api.Logout(ctx); err != nil {
		g.logger.Warn("API logout failed", "error", err)
		errs = append(errs, err)
	}
	if err := g.store.Clear(); err != nil {
		errs = append(errs, err)
	}

	g.mu.Lock()
	g.authenticated = false
	g.mu.Unlock()

	g.logger.Info("Signed out")
	return errors.Join(errs...)
}

// Resolve derives the authentication state from the stored token. A token
// that parses as a JWT with an expiry in the past is discarded. Tokens that
// are not JWTs are trusted until the API rejects them.
func (g *Gate) Resolve(ctx context.Context) (bool, error) {
	token := g.store.Token()
	authenticated := token != ""

	if authenticated {
		if exp, ok := expiry(token); ok && !g.now().Before(exp) {
			g.logger.Info("Session expired", "expired_at", exp)
			authenticated = false
			if err := g.store.Clear(); err != nil {
				return false, err
			}
		}
	}

	g.mu.Lock()
	g.authenticated = authenticated
	g.mu.Unlock()
	return authenticated, ctx.Err()
}

// IsAuthenticated returns the state as of the last SignIn, SignOut or Resolve.
func (g *Gate) IsAuthenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Require returns ErrNotAuthenticated unless a session is resolved.
func (g *Gate) Require(ctx context.Context) error {
	if g.Guard(ctx, RouteTop) != RouteTop {
		return ErrNotAuthenticated
	}
	return nil
}

// Guard decides the route to show for a navigation to to. Unauthenticated
// users are sent to sign-in unless they are heading to sign-in or sign-up;
// authenticated users heading to sign-in are sent to the top view.
func (g *Gate) Guard(ctx context.Context, to Route) Route {
	authenticated, err := g.Resolve(ctx)
	if err != nil {
		g.logger.Warn("Resolve session failed", "error", err)
		authenticated = false
	}

	switch {
	case !authenticated && to != RouteSignIn && to != RouteSignUp:
		return RouteSignIn
	case authenticated && to == RouteSignIn:
		return RouteTop
	default:
		return to
	}
}

// Status reports the session state, reading the email and expiry from the
// token when it is a JWT.
func (g *Gate) Status(ctx context.Context) (Status, error) {
	authenticated, err := g.Resolve(ctx)
	if err != nil {
		return Status{}, err
	}
	status := Status{Authenticated: authenticated}
	if !authenticated {
		return status, nil
	}

	status.Email = g.store.Email()
	token := g.store.Token()
	if exp, ok := expiry(token); ok {
		status.ExpiresAt = exp
	}
	if claims, ok := parseUnverified(token); ok {
		if email, _ := claims["email"].(string); email != "" {
			status.Email = email
		}
	}
	return status, nil
}

func parseUnverified(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

func expiry(token string) (time.Time, bool) {
	claims, ok := parseUnverified(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
