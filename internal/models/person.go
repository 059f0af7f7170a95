package models

// Person is someone who can take part in purchases.
// Names are not unique; the ID is the identity.
type Person struct {
	// ID is the identifier assigned by the API (or supplied on upsert).
	ID string `json:"_id" yaml:"id"`

	// Name is the display name.
	Name string `json:"name" yaml:"name"`
}
