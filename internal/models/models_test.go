package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	for _, s := range []string{"unsettled", "settled", "archived"} {
		stage, err := ParseStage(s)
		require.NoError(t, err)
		assert.Equal(t, s, stage.String())
	}

	for _, s := range []string{"", "Settled", "UNSETTLED", "paid"} {
		_, err := ParseStage(s)
		assert.ErrorIs(t, err, ErrInvalidStage, s)
	}
}

func TestStageCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Stage
		want     bool
	}{
		{StageUnsettled, StageSettled, true},
		{StageSettled, StageUnsettled, true},
		{StageUnsettled, StageArchived, true},
		{StageSettled, StageArchived, true},
		{StageArchived, StageUnsettled, false},
		{StageArchived, StageSettled, false},
		{StageArchived, StageArchived, true},
		{StageSettled, StageSettled, true},
		{Stage("Settled"), StageArchived, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPurchaseDecodesStringAndNumberAmounts(t *testing.T) {
	body := `{
		"_id": "p1",
		"name": "Groceries",
		"date": "2024-05-01",
		"note": "",
		"stage": "unsettled",
		"people": [
			{"_id": "a", "name": "Aki", "toPay": "100", "paid": 0},
			{"_id": "b", "name": "Ben", "toPay": 50.5, "paid": "50.5"}
		]
	}`

	var purchase Purchase
	require.NoError(t, json.Unmarshal([]byte(body), &purchase))

	assert.Equal(t, StageUnsettled, purchase.Stage)
	require.Len(t, purchase.Participants, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(purchase.Participants[0].ToPay))
	assert.True(t, purchase.Participants[1].Outstanding().IsZero())
	assert.True(t, decimal.RequireFromString("150.5").Equal(purchase.Total()))
}

func TestPurchaseRejectsUnknownStage(t *testing.T) {
	var purchase Purchase
	err := json.Unmarshal([]byte(`{"_id":"p1","stage":"Settled","people":[]}`), &purchase)
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestPurchaseValidate(t *testing.T) {
	purchase := Purchase{
		ID:    "p1",
		Stage: StageUnsettled,
		Participants: []Participant{
			{Person: Person{ID: "a"}},
			{Person: Person{ID: "a"}},
		},
	}
	assert.ErrorIs(t, purchase.Validate(), ErrDuplicateParticipant)

	purchase.Participants = purchase.Participants[:1]
	assert.NoError(t, purchase.Validate())
}

func TestPurchasePatch(t *testing.T) {
	assert.True(t, PurchasePatch{}.IsEmpty())

	note := "split later"
	patch := PurchasePatch{Note: &note}
	data, err := json.Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"note":"split later"}`, string(data))

	updated := patch.Apply(Purchase{ID: "p1", Name: "Taxi", Note: "old"})
	assert.Equal(t, "Taxi", updated.Name)
	assert.Equal(t, "split later", updated.Note)

	stagePatch := StagePatch(StageSettled)
	data, err = json.Marshal(stagePatch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage":"settled"}`, string(data))

	bad := Stage("done")
	assert.ErrorIs(t, PurchasePatch{Stage: &bad}.Validate(), ErrInvalidStage)
}

func TestPurchasePatchClearsParticipants(t *testing.T) {
	clear := PurchasePatch{People: []Participant{}}
	assert.False(t, clear.IsEmpty())

	data, err := json.Marshal(clear)
	require.NoError(t, err)
	assert.JSONEq(t, `{"people":[]}`, string(data))

	var decoded PurchasePatch
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.IsEmpty(), "an empty list survives the round trip")
	assert.Empty(t, decoded.Apply(Purchase{Participants: []Participant{{Person: Person{ID: "a"}}}}).Participants)

	data, err = json.Marshal(PurchasePatch{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
