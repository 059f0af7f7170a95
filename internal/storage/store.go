// Package storage provides abstractions for the reference server's persistent
// data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/warikan/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a stage change is not allowed
	// from the purchase's stored stage.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// Store defines the storage operations behind the REST API.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// ListPeople returns every person in insertion order.
	ListPeople(ctx context.Context) ([]models.Person, error)

	// UpsertPerson creates person, or renames it if the ID exists.
	// An empty ID is assigned by the store.
	UpsertPerson(ctx context.Context, person *models.Person) error

	// DeletePerson removes a person. Purchases keep their participant copies.
	DeletePerson(ctx context.Context, id string) error

	// ListPurchases returns purchases in insertion order, filtered by stage
	// when stage is non-empty.
	ListPurchases(ctx context.Context, stage models.Stage) ([]models.Purchase, error)

	// GetPurchase retrieves a purchase with its participants.
	GetPurchase(ctx context.Context, id string) (*models.Purchase, error)

	// CreatePurchase persists a new purchase. The purchase.ID field is
	// populated by the store.
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error

	// UpdatePurchase applies patch to one purchase and returns the result.
	UpdatePurchase(ctx context.Context, id string, patch models.PurchasePatch) (*models.Purchase, error)

	// SetStages moves every listed purchase that may transition to stage and
	// returns how many were changed. Unknown IDs are skipped.
	SetStages(ctx context.Context, ids []string, stage models.Stage) (int, error)

	// DeletePurchase removes one purchase.
	DeletePurchase(ctx context.Context, id string) error

	// DeletePurchases removes every listed purchase and returns how many
	// existed.
	DeletePurchases(ctx context.Context, ids []string) (int, error)

	// CreateUser persists an identity account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil, nil if no user has email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil, nil if no user has id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
