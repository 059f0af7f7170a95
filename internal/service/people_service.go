package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/storage"
)

// PeopleService serves /api/v1/people.
type PeopleService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewPeopleService creates a new PeopleService with the given storage backend.
func NewPeopleService(store storage.Store, logger *slog.Logger) *PeopleService {
	return &PeopleService{store: store, logger: logger}
}

// personRequest is the body of POST /people.
type personRequest struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// List handles GET /people.
func (s *PeopleService) List(w http.ResponseWriter, r *http.Request) {
	people, err := s.store.ListPeople(r.Context())
	if err != nil {
		fail(w, s.logger, "list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// Create handles POST /people. An existing ID is renamed.
func (s *PeopleService) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "create person", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fail(w, s.logger, "create person", badRequest{errors.New("name is required")})
		return
	}

	person := &models.Person{ID: req.ID, Name: req.Name}
	if err := s.store.UpsertPerson(r.Context(), person); err != nil {
		fail(w, s.logger, "create person", err)
		return
	}

	s.logger.Info("Person saved", "person_id", person.ID)
	writeJSON(w, http.StatusCreated, person)
}

// Delete handles DELETE /people/{id}.
func (s *PeopleService) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeletePerson(r.Context(), id); err != nil {
		fail(w, s.logger, "delete person", err)
		return
	}

	s.logger.Info("Person deleted", "person_id", id)
	w.WriteHeader(http.StatusNoContent)
}
