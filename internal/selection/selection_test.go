package selection

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/models"
)

func participant(id, name string, toPay, paid int64) models.Participant {
	return models.Participant{
		Person: models.Person{ID: id, Name: name},
		ToPay:  decimal.NewFromInt(toPay),
		Paid:   decimal.NewFromInt(paid),
	}
}

func purchases() []models.Purchase {
	return []models.Purchase{
		{ID: "p1", Stage: models.StageUnsettled, Participants: []models.Participant{
			participant("a", "Ann", 100, 0),
			participant("b", "Ben", 0, 0),
		}},
		{ID: "p2", Stage: models.StageSettled, Participants: []models.Participant{
			participant("c", "Cy", 30, 10),
		}},
		{ID: "p3", Stage: models.StageUnsettled, Participants: nil},
	}
}

func netOwed(t *testing.T, balances []calculator.Balance) map[string]string {
	t.Helper()
	out := make(map[string]string, len(balances))
	for _, b := range balances {
		out[b.PersonID] = b.NetOwed.String()
	}
	return out
}

func TestSingleSelectionBalances(t *testing.T) {
	v := New(models.StageUnsettled)
	ps := []models.Purchase{purchases()[0]}

	v.Toggle("p1")

	assert.Equal(t, map[string]string{"a": "100", "b": "0"}, netOwed(t, v.Balances(ps)))
	assert.True(t, v.IsAllSelected(ps))
}

func TestBalances_EmptySelectionIsZero(t *testing.T) {
	v := New(models.StageUnsettled)
	balances := v.Balances(purchases())

	require.Len(t, balances, 3)
	for _, b := range balances {
		assert.True(t, b.NetOwed.IsZero(), b.PersonID)
	}
}

func TestBalances_DirectoryOrderAndEmptyPurchase(t *testing.T) {
	v := New(models.StageUnsettled)
	v.Toggle("p1")
	v.Toggle("p3")

	balances := v.Balances(purchases())
	var ids []string
	for _, b := range balances {
		ids = append(ids, b.PersonID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, map[string]string{"a": "100", "b": "0", "c": "0"}, netOwed(t, balances))
}

func TestToggle(t *testing.T) {
	v := New(models.StageUnsettled)

	v.Toggle("p1")
	assert.True(t, v.IsSelected("p1"))
	v.Toggle("p1")
	assert.False(t, v.IsSelected("p1"))
	assert.Empty(t, v.Selected())
}

func TestIsAllSelected(t *testing.T) {
	ps := purchases()

	tests := []struct {
		name   string
		toggle []string
		want   bool
	}{
		{name: "nothing selected", want: false},
		{name: "subset", toggle: []string{"p1"}, want: false},
		{name: "exact set", toggle: []string{"p1", "p3"}, want: true},
		{name: "superset with other stage", toggle: []string{"p1", "p2", "p3"}, want: false},
		{name: "same size different ids", toggle: []string{"p1", "p2"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(models.StageUnsettled)
			for _, id := range tt.toggle {
				v.Toggle(id)
			}
			assert.Equal(t, tt.want, v.IsAllSelected(ps))
		})
	}
}

func TestIsAllSelected_NoMatchingPurchases(t *testing.T) {
	v := New(models.StageArchived)
	assert.False(t, v.IsAllSelected(purchases()))

	v.ToggleAll(purchases())
	assert.Empty(t, v.Selected())
	assert.False(t, v.IsAllSelected(purchases()))
}

func TestToggleAll_TwiceRestoresEmpty(t *testing.T) {
	ps := purchases()
	v := New(models.StageUnsettled)

	v.ToggleAll(ps)
	assert.Equal(t, []string{"p1", "p3"}, v.Selected())
	assert.True(t, v.IsAllSelected(ps))

	v.ToggleAll(ps)
	assert.Empty(t, v.Selected())
}

func TestToggleAll_FromPartialSelectsExactly(t *testing.T) {
	ps := purchases()
	v := New(models.StageUnsettled)
	v.Toggle("p2")

	v.ToggleAll(ps)
	assert.Equal(t, []string{"p1", "p3"}, v.Selected())
}

func TestStageMatchingIsExact(t *testing.T) {
	ps := []models.Purchase{{ID: "x", Stage: models.Stage("Unsettled")}}
	v := New(models.StageUnsettled)

	v.ToggleAll(ps)
	assert.Empty(t, v.Selected())
	assert.Empty(t, v.Visible(ps))
}

func TestEditDialog(t *testing.T) {
	v := New(models.StageUnsettled)
	assert.False(t, v.EditDialogVisible())

	v.ShowEditDialog("p1")
	assert.True(t, v.EditDialogVisible())
	assert.Equal(t, "p1", v.EditTarget())

	v.HideEditDialog()
	assert.False(t, v.EditDialogVisible())
	assert.Equal(t, "p1", v.EditTarget())
}
