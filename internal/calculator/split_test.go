package calculator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/warikan/internal/models"
)

func people(ids ...string) []models.Person {
	out := make([]models.Person, len(ids))
	for i, id := range ids {
		out[i] = models.Person{ID: id, Name: "name-" + id}
	}
	return out
}

func TestEvenSplit(t *testing.T) {
	tests := []struct {
		name         string
		total        string
		payer        string
		people       []models.Person
		wantErr      bool
		validateFunc func(t *testing.T, participants []models.Participant)
	}{
		{
			name:   "even two-person split",
			total:  "30",
			payer:  "a",
			people: people("a", "b"),
			validateFunc: func(t *testing.T, participants []models.Participant) {
				for _, p := range participants {
					if !p.ToPay.Equal(decimal.NewFromInt(15)) {
						t.Errorf("%s toPay = %s, want 15", p.ID, p.ToPay)
					}
				}
				if !participants[0].Paid.Equal(decimal.NewFromInt(30)) {
					t.Errorf("payer paid = %s, want 30", participants[0].Paid)
				}
				if !participants[1].Paid.IsZero() {
					t.Errorf("non-payer paid = %s, want 0", participants[1].Paid)
				}
			},
		},
		{
			name:   "leftover cents go to the first participants",
			total:  "100",
			payer:  "",
			people: people("a", "b", "c"),
			validateFunc: func(t *testing.T, participants []models.Participant) {
				want := []string{"33.34", "33.33", "33.33"}
				sum := decimal.Zero
				for i, p := range participants {
					if !p.ToPay.Equal(decimal.RequireFromString(want[i])) {
						t.Errorf("%s toPay = %s, want %s", p.ID, p.ToPay, want[i])
					}
					sum = sum.Add(p.ToPay)
				}
				if !sum.Equal(decimal.NewFromInt(100)) {
					t.Errorf("shares sum to %s, want 100", sum)
				}
			},
		},
		{
			name:   "two leftover cents",
			total:  "0.05",
			payer:  "b",
			people: people("a", "b", "c"),
			validateFunc: func(t *testing.T, participants []models.Participant) {
				want := []string{"0.02", "0.02", "0.01"}
				for i, p := range participants {
					if !p.ToPay.Equal(decimal.RequireFromString(want[i])) {
						t.Errorf("%s toPay = %s, want %s", p.ID, p.ToPay, want[i])
					}
				}
			},
		},
		{
			name:    "no participants should error",
			total:   "10",
			people:  nil,
			wantErr: true,
		},
		{
			name:    "payer outside participants should error",
			total:   "10",
			payer:   "z",
			people:  people("a", "b"),
			wantErr: true,
		},
		{
			name:    "negative total should error",
			total:   "-1",
			people:  people("a"),
			wantErr: true,
		},
		{
			name:    "duplicate participants should error",
			total:   "10",
			people:  people("a", "a"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participants, err := EvenSplit(decimal.RequireFromString(tt.total), tt.payer, tt.people)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EvenSplit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(participants) != len(tt.people) {
				t.Fatalf("got %d participants, want %d", len(participants), len(tt.people))
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, participants)
			}
		})
	}
}
