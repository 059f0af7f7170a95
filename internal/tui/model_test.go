package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/warikan/internal/ledger"
	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/models"
)

// fakeLedger moves purchases in memory and records bulk calls.
type fakeLedger struct {
	purchases []models.Purchase
	bulk      []string
	edited    map[string]string
}

func (f *fakeLedger) FetchAll(ctx context.Context, stage models.Stage) error { return nil }

func (f *fakeLedger) Purchases() []models.Purchase {
	return append([]models.Purchase(nil), f.purchases...)
}

func (f *fakeLedger) Purchase(id string) (models.Purchase, bool) {
	for _, p := range f.purchases {
		if p.ID == id {
			return p, true
		}
	}
	return models.Purchase{}, false
}

func (f *fakeLedger) Edit(ctx context.Context, id string, patch models.PurchasePatch) error {
	if f.edited == nil {
		f.edited = map[string]string{}
	}
	f.edited[id] = *patch.Note
	return nil
}

func (f *fakeLedger) SetStageBulk(ctx context.Context, ids []string, stage models.Stage) (*ledger.BulkResult, error) {
	f.bulk = append(f.bulk, stage.String()+" "+strings.Join(ids, ","))
	result := &ledger.BulkResult{}
	for _, id := range ids {
		for i := range f.purchases {
			if f.purchases[i].ID == id {
				f.purchases[i].Stage = stage
			}
		}
		result.Items = append(result.Items, ledger.ItemResult{ID: id, Outcome: ledger.OutcomeApplied})
	}
	return result, nil
}

func (f *fakeLedger) DeleteBulk(ctx context.Context, ids []string) (*ledger.BulkResult, error) {
	f.bulk = append(f.bulk, "delete "+strings.Join(ids, ","))
	result := &ledger.BulkResult{}
	for _, id := range ids {
		result.Items = append(result.Items, ledger.ItemResult{ID: id, Outcome: ledger.OutcomeApplied})
	}
	return result, nil
}

func participant(id, name string, toPay, paid int64) models.Participant {
	return models.Participant{
		Person: models.Person{ID: id, Name: name},
		ToPay:  decimal.NewFromInt(toPay),
		Paid:   decimal.NewFromInt(paid),
	}
}

func testLedger() *fakeLedger {
	return &fakeLedger{purchases: []models.Purchase{
		{ID: "p1", Name: "Groceries", Date: "2024-05-01", Stage: models.StageUnsettled, Participants: []models.Participant{
			participant("a", "Aki", 100, 0),
			participant("b", "Ben", 0, 0),
		}},
		{ID: "p2", Name: "Taxi", Date: "2024-05-02", Note: "airport", Stage: models.StageUnsettled, Participants: []models.Participant{
			participant("a", "Aki", 10, 30),
			participant("b", "Ben", 20, 0),
		}},
		{ID: "p3", Name: "Hotel", Date: "2024-04-01", Stage: models.StageSettled, Participants: []models.Participant{
			participant("c", "Chie", 50, 50),
		}},
	}}
}

func newTestModel(t *testing.T, l *fakeLedger) Model {
	t.Helper()
	tracker, err := loading.NewTracker()
	require.NoError(t, err)
	m := New(context.Background(), l, tracker, models.StageUnsettled)
	updated, _ := m.Update(loadedMsg{})
	return updated.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs the resulting command, feeding its message back.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil {
		return m
	}
	switch out := cmd().(type) {
	case bulkDoneMsg, editDoneMsg, loadedMsg:
		updated, _ = m.Update(out)
		m = updated.(Model)
	}
	return m
}

func TestViewNamesInflightOperations(t *testing.T) {
	m := newTestModel(t, testLedger())
	assert.NotContains(t, m.View(), "set stage settled")

	op := m.tracker.Start("set stage settled")
	assert.Contains(t, m.View(), "set stage settled")

	op.Done()
	assert.NotContains(t, m.View(), "set stage settled")
}

func TestToggleShowsSelectionBalances(t *testing.T) {
	m := newTestModel(t, testLedger())

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"p1"}, m.view.Selected())

	balances := m.view.Balances(m.ledger.Purchases())
	require.Len(t, balances, 3)
	assert.Equal(t, "100", balances[0].NetOwed.String())
	assert.True(t, balances[1].NetOwed.IsZero())
	assert.True(t, balances[2].NetOwed.IsZero())

	view := m.View()
	assert.Contains(t, view, "[x]")
	assert.Contains(t, view, "Groceries")
	assert.NotContains(t, view, "Hotel")
}

func TestCursorMovement(t *testing.T) {
	m := newTestModel(t, testLedger())

	m = press(t, m, runes("j"))
	m = press(t, m, runes("j"))
	assert.Equal(t, 1, m.cursor, "cursor stops at the last visible purchase")

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	assert.Equal(t, []string{"p2"}, m.view.Selected())

	m = press(t, m, runes("k"))
	m = press(t, m, runes("k"))
	assert.Equal(t, 0, m.cursor)
}

func TestToggleAllThenSettle(t *testing.T) {
	l := testLedger()
	m := newTestModel(t, l)

	m = press(t, m, runes("a"))
	assert.True(t, m.view.IsAllSelected(l.Purchases()))

	m = press(t, m, runes("s"))
	assert.Equal(t, []string{"settled p1,p2"}, l.bulk)
	assert.Empty(t, m.view.Selected(), "applied purchases leave the selection")
	assert.Equal(t, "settle: 2 of 2 applied", m.status)
	assert.Empty(t, m.view.Visible(l.Purchases()))
}

func TestToggleAllTwiceClears(t *testing.T) {
	m := newTestModel(t, testLedger())

	m = press(t, m, runes("a"))
	m = press(t, m, runes("a"))
	assert.Empty(t, m.view.Selected())
}

func TestBulkActionsNeedSelection(t *testing.T) {
	l := testLedger()
	m := newTestModel(t, l)

	for _, k := range []string{"s", "r", "x", "d"} {
		updated, cmd := m.Update(runes(k))
		m = updated.(Model)
		assert.Nil(t, cmd, k)
		assert.Equal(t, "Nothing selected", m.status, k)
	}
	assert.Empty(t, l.bulk)
}

func TestDeleteSelected(t *testing.T) {
	l := testLedger()
	m := newTestModel(t, l)

	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, runes("d"))
	assert.Equal(t, []string{"delete p1"}, l.bulk)
	assert.Equal(t, "delete: 1 of 1 applied", m.status)
}

func TestEditNote(t *testing.T) {
	l := testLedger()
	m := newTestModel(t, l)

	m = press(t, m, runes("j"))
	m = press(t, m, runes("e"))
	require.True(t, m.view.EditDialogVisible())
	assert.Equal(t, "p2", m.view.EditTarget())
	assert.Equal(t, "airport", m.note.Value())
	assert.Contains(t, m.View(), "Note for p2")

	m = press(t, m, runes("!"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.view.EditDialogVisible())
	assert.Equal(t, "airport!", l.edited["p2"])
	assert.Equal(t, "Saved note on p2", m.status)
}

func TestEditCancel(t *testing.T) {
	l := testLedger()
	m := newTestModel(t, l)

	m = press(t, m, runes("e"))
	require.True(t, m.view.EditDialogVisible())

	// Keys go to the dialog while it is open.
	m = press(t, m, runes("s"))
	assert.Empty(t, l.bulk)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, m.view.EditDialogVisible())
	assert.Empty(t, l.edited)
}

func TestNextStage(t *testing.T) {
	m := newTestModel(t, testLedger())
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, models.StageSettled, m.view.Stage())
	assert.Empty(t, m.view.Selected())
	assert.Contains(t, m.View(), "Hotel")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, models.StageUnsettled, m.view.Stage())
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, testLedger())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
