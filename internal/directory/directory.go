// Package directory caches the list of people known to the API.
//
// Every write is followed by a full refetch; the cache never holds a value
// the server has not returned.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/models"
)

// API is the subset of the REST client the directory needs.
type API interface {
	ListPeople(ctx context.Context) ([]models.Person, error)
	CreatePerson(ctx context.Context, name, id string) (*models.Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// Directory is the cached person list.
type Directory struct {
	api     API
	tracker *loading.Tracker
	logger  *slog.Logger

	mu     sync.RWMutex
	people []models.Person
}

// New creates an empty Directory.
func New(api API, tracker *loading.Tracker, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{api: api, tracker: tracker, logger: logger}
}

// FetchAll replaces the cache with the API's current list.
func (d *Directory) FetchAll(ctx context.Context) error {
	op := d.tracker.Start("fetch people")
	defer op.Done()

	return d.refetch(ctx)
}

// Create adds a person and refetches. id may be empty to let the API
// assign one.
func (d *Directory) Create(ctx context.Context, name, id string) error {
	op := d.tracker.Start("create person")
	defer op.Done()

	if _, err := d.api.CreatePerson(ctx, name, id); err != nil {
		return err
	}
	d.logger.Info("Person created", "name", name, "person_id", id)
	return d.refetch(ctx)
}

// Delete removes a person and refetches.
func (d *Directory) Delete(ctx context.Context, id string) error {
	op := d.tracker.Start("delete person")
	defer op.Done()

	if err := d.api.DeletePerson(ctx, id); err != nil {
		return err
	}
	d.logger.Info("Person deleted", "person_id", id)
	return d.refetch(ctx)
}

// People returns a copy of the cached list.
func (d *Directory) People() []models.Person {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Person(nil), d.people...)
}

// Lookup returns the cached person with the given ID.
func (d *Directory) Lookup(id string) (models.Person, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.people {
		if p.ID == id {
			return p, true
		}
	}
	return models.Person{}, false
}

func (d *Directory) refetch(ctx context.Context) error {
	people, err := d.api.ListPeople(ctx)
	if err != nil {
		return fmt.Errorf("refresh people: %w", err)
	}

	d.mu.Lock()
	d.people = people
	d.mu.Unlock()

	d.logger.Debug("People fetched", "count", len(people))
	return nil
}
