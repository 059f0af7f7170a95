package auth

import (
	"context"

	"github.com/mmynk/warikan/internal/models"
)

// Authenticator backs the identity emulator's signUp and signIn endpoints.
type Authenticator interface {
	// Register creates an account. The email must not be registered yet.
	Register(ctx context.Context, email, credential string) (*models.User, error)

	// Authenticate returns the account matching email and credential, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether credential is acceptable for a new
	// account.
	ValidateCredential(credential string) error
}
