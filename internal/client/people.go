package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmynk/warikan/internal/models"
)

// ListPeople returns every person known to the API.
func (c *Client) ListPeople(ctx context.Context) ([]models.Person, error) {
	var people []models.Person
	if err := c.call(ctx, "list people", http.MethodGet, "/people", nil, nil, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// CreatePerson posts a new person. id may be empty, in which case the API
// assigns one.
func (c *Client) CreatePerson(ctx context.Context, name, id string) (*models.Person, error) {
	body := models.Person{ID: id, Name: name}
	var created models.Person
	if err := c.call(ctx, "create person", http.MethodPost, "/people", nil, personRequest(body), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeletePerson removes a person by ID.
func (c *Client) DeletePerson(ctx context.Context, id string) error {
	return c.call(ctx, "delete person", http.MethodDelete, "/people/"+url.PathEscape(id), nil, nil, nil)
}

// personRequest omits an empty _id so the API assigns one.
func personRequest(p models.Person) any {
	return struct {
		ID   string `json:"_id,omitempty"`
		Name string `json:"name"`
	}{ID: p.ID, Name: p.Name}
}
