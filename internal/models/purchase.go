package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrDuplicateParticipant is returned when a purchase lists the same person twice.
var ErrDuplicateParticipant = errors.New("duplicate participant")

// Participant is a person's share of a single purchase.
type Participant struct {
	Person `yaml:",inline"`

	// ToPay is the amount this person is charged for the purchase.
	ToPay decimal.Decimal `json:"toPay" yaml:"to_pay"`

	// Paid is the amount this person has already paid toward the purchase.
	Paid decimal.Decimal `json:"paid" yaml:"paid"`
}

// Outstanding returns ToPay - Paid. Negative means the person overpaid.
func (p Participant) Outstanding() decimal.Decimal {
	return p.ToPay.Sub(p.Paid)
}

// Purchase is a shared purchase tracked by the ledger.
type Purchase struct {
	// ID is the identifier assigned by the API.
	ID string `json:"_id" yaml:"id"`

	// Name is a short description of what was bought.
	Name string `json:"name" yaml:"name"`

	// Date is the purchase date as entered (YYYY-MM-DD by convention).
	Date string `json:"date" yaml:"date"`

	// Note is free text.
	Note string `json:"note" yaml:"note"`

	// Stage is the lifecycle stage.
	Stage Stage `json:"stage" yaml:"stage"`

	// Participants are the people sharing this purchase.
	Participants []Participant `json:"people" yaml:"people"`
}

// Participant returns the participant with the given person ID.
func (p Purchase) Participant(personID string) (Participant, bool) {
	for _, participant := range p.Participants {
		if participant.ID == personID {
			return participant, true
		}
	}
	return Participant{}, false
}

// Total returns the sum of ToPay over all participants.
func (p Purchase) Total() decimal.Decimal {
	total := decimal.Zero
	for _, participant := range p.Participants {
		total = total.Add(participant.ToPay)
	}
	return total
}

// Validate checks the stage and the no-duplicate-participant invariant.
func (p Purchase) Validate() error {
	if !p.Stage.Valid() {
		return fmt.Errorf("purchase %s: %w: %q", p.ID, ErrInvalidStage, p.Stage)
	}
	return ValidateParticipants(p.Participants)
}

// ValidateParticipants returns ErrDuplicateParticipant if a person ID repeats.
func ValidateParticipants(participants []Participant) error {
	seen := make(map[string]bool, len(participants))
	for _, participant := range participants {
		if seen[participant.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, participant.ID)
		}
		seen[participant.ID] = true
	}
	return nil
}

// NewPurchase holds the fields a client supplies when creating a purchase.
// The stage is always unsettled and the ID is assigned by the server.
type NewPurchase struct {
	Name   string        `json:"name"`
	Date   string        `json:"date"`
	Note   string        `json:"note"`
	People []Participant `json:"people"`
	Stage  Stage         `json:"stage,omitempty"`
}

// PurchasePatch is a partial update of one purchase. Nil fields are left
// unchanged by the server. A non-nil empty People clears the participants.
type PurchasePatch struct {
	Name   *string       `json:"name,omitempty"`
	Date   *string       `json:"date,omitempty"`
	Note   *string       `json:"note,omitempty"`
	Stage  *Stage        `json:"stage,omitempty"`
	People []Participant `json:"people,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p PurchasePatch) IsEmpty() bool {
	return p.Name == nil && p.Date == nil && p.Note == nil && p.Stage == nil && p.People == nil
}

// MarshalJSON omits People only when it is nil, so an empty list still
// reaches the server.
func (p PurchasePatch) MarshalJSON() ([]byte, error) {
	type plain PurchasePatch
	if p.People == nil || len(p.People) > 0 {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		People []Participant `json:"people"`
	}{plain: plain(p), People: []Participant{}})
}

// Validate checks the stage (if set) and participants (if set).
func (p PurchasePatch) Validate() error {
	if p.Stage != nil && !p.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, *p.Stage)
	}
	if p.People != nil {
		return ValidateParticipants(p.People)
	}
	return nil
}

// Apply returns a copy of purchase with the patch applied.
func (p PurchasePatch) Apply(purchase Purchase) Purchase {
	if p.Name != nil {
		purchase.Name = *p.Name
	}
	if p.Date != nil {
		purchase.Date = *p.Date
	}
	if p.Note != nil {
		purchase.Note = *p.Note
	}
	if p.Stage != nil {
		purchase.Stage = *p.Stage
	}
	if p.People != nil {
		purchase.Participants = append([]Participant(nil), p.People...)
	}
	return purchase
}

// StagePatch returns a patch that only moves a purchase to stage.
func StagePatch(stage Stage) PurchasePatch {
	return PurchasePatch{Stage: &stage}
}
