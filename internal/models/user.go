package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity account held by the reference server's identity
// emulator. The client never sees password hashes; it only receives the
// tokens issued for a user.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the sign-in address (unique).
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser builds a User with a fresh ID and creation time.
func NewUser(email, passwordHash string) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}
