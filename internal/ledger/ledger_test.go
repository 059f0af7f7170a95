package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/models"
)

// fakeAPI is an in-memory purchases endpoint. It applies stage moves
// unconditionally, like a permissive server, and records every call along
// with whether the tracker was busy at the time.
type fakeAPI struct {
	purchases []models.Purchase
	calls     []string
	nextID    int
	err       error
	noCount   bool

	tracker *loading.Tracker
	busy    []bool
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
	if f.tracker != nil {
		f.busy = append(f.busy, f.tracker.IsLoading())
	}
}

// count returns n as the API would report it.
func (f *fakeAPI) count(n int) int {
	if f.noCount {
		return -1
	}
	return n
}

func (f *fakeAPI) ListPurchases(ctx context.Context, stage models.Stage) ([]models.Purchase, error) {
	f.record("list " + stage.String())
	var out []models.Purchase
	for _, p := range f.purchases {
		if stage == "" || p.Stage == stage {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreatePurchase(ctx context.Context, p models.NewPurchase) (*models.Purchase, error) {
	f.record("create")
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	created := models.Purchase{
		ID:           fmt.Sprintf("p%d", f.nextID),
		Name:         p.Name,
		Date:         p.Date,
		Note:         p.Note,
		Stage:        p.Stage,
		Participants: p.People,
	}
	f.purchases = append(f.purchases, created)
	return &created, nil
}

func (f *fakeAPI) PatchPurchase(ctx context.Context, id string, patch models.PurchasePatch) error {
	f.record("patch " + id)
	if f.err != nil {
		return f.err
	}
	for i, p := range f.purchases {
		if p.ID == id {
			f.purchases[i] = patch.Apply(p)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeAPI) PatchPurchases(ctx context.Context, ids []string, stage models.Stage) (int, error) {
	f.record(fmt.Sprintf("patch %v %s", ids, stage))
	if f.err != nil {
		return 0, f.err
	}
	var n int
	for _, id := range ids {
		for i, p := range f.purchases {
			if p.ID == id {
				f.purchases[i].Stage = stage
				n++
			}
		}
	}
	return f.count(n), nil
}

func (f *fakeAPI) DeletePurchase(ctx context.Context, id string) error {
	f.record("delete " + id)
	_, err := f.remove([]string{id})
	return err
}

func (f *fakeAPI) DeletePurchases(ctx context.Context, ids []string) (int, error) {
	f.record(fmt.Sprintf("delete %v", ids))
	n, err := f.remove(ids)
	return f.count(n), err
}

func (f *fakeAPI) remove(ids []string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	drop := make(map[string]bool)
	for _, id := range ids {
		drop[id] = true
	}
	kept := f.purchases[:0]
	for _, p := range f.purchases {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	n := len(f.purchases) - len(kept)
	f.purchases = kept
	return n, nil
}

func participant(id, name string, toPay, paid int64) models.Participant {
	return models.Participant{
		Person: models.Person{ID: id, Name: name},
		ToPay:  decimal.NewFromInt(toPay),
		Paid:   decimal.NewFromInt(paid),
	}
}

func seed() []models.Purchase {
	return []models.Purchase{
		{ID: "p1", Name: "Lunch", Stage: models.StageUnsettled, Participants: []models.Participant{
			participant("a", "Ann", 100, 0),
			participant("b", "Ben", 0, 100),
		}},
		{ID: "p2", Name: "Taxi", Stage: models.StageUnsettled, Participants: []models.Participant{
			participant("a", "Ann", 20, 40),
			participant("c", "Cy", 20, 0),
		}},
		{ID: "p3", Name: "Hotel", Stage: models.StageArchived, Participants: []models.Participant{
			participant("b", "Ben", 50, 0),
		}},
	}
}

func newTestLedger(t *testing.T, api *fakeAPI) (*Ledger, *loading.Tracker) {
	t.Helper()
	tracker, err := loading.NewTracker()
	require.NoError(t, err)
	api.tracker = tracker
	return New(api, tracker, nil), tracker
}

func TestFetchAll_RemembersFilter(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)

	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))
	assert.Len(t, l.Purchases(), 2)
	assert.Equal(t, models.StageUnsettled, l.Filter())

	require.NoError(t, l.Delete(context.Background(), "p1"))
	assert.Equal(t, []string{"list unsettled", "delete p1", "list unsettled"}, api.calls)
	assert.Len(t, l.Purchases(), 1)
}

func TestFetchAll_InvalidStage(t *testing.T) {
	l, _ := newTestLedger(t, &fakeAPI{})
	err := l.FetchAll(context.Background(), "Settled")
	assert.ErrorIs(t, err, models.ErrInvalidStage)
}

func TestCreate(t *testing.T) {
	api := &fakeAPI{}
	l, tracker := newTestLedger(t, api)

	err := l.Create(context.Background(), models.NewPurchase{
		Name:   "Dinner",
		Stage:  models.StageArchived,
		People: []models.Participant{participant("a", "Ann", 10, 0)},
	})
	require.NoError(t, err)

	purchases := l.Purchases()
	require.Len(t, purchases, 1)
	assert.Equal(t, models.StageUnsettled, purchases[0].Stage)
	assert.Equal(t, []string{"create", "list "}, api.calls)
	assert.False(t, tracker.IsLoading())
}

func TestCreate_DuplicateParticipants(t *testing.T) {
	api := &fakeAPI{}
	l, _ := newTestLedger(t, api)

	err := l.Create(context.Background(), models.NewPurchase{
		Name: "Dinner",
		People: []models.Participant{
			participant("a", "Ann", 10, 0),
			participant("a", "Ann again", 5, 0),
		},
	})
	assert.ErrorIs(t, err, models.ErrDuplicateParticipant)
	assert.Empty(t, api.calls)
}

func TestEdit(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))

	note := "split later"
	require.NoError(t, l.Edit(context.Background(), "p1", models.PurchasePatch{Note: &note}))

	p, ok := l.Purchase("p1")
	require.True(t, ok)
	assert.Equal(t, "split later", p.Note)
	assert.Equal(t, "Lunch", p.Name)
}

func TestEdit_EmptyPatch(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)

	err := l.Edit(context.Background(), "p1", models.PurchasePatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
	assert.Empty(t, api.calls)
}

func TestSetStage_InvalidTransition(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))

	err := l.Repay(context.Background(), "p3")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []string{"list "}, api.calls)

	err = l.SetStage(context.Background(), "p1", "done")
	assert.ErrorIs(t, err, models.ErrInvalidStage)
}

func TestSettleBulk_OneRequestThenRefetch(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, tracker := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))
	api.calls = nil

	result, err := l.SettleBulk(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"patch [p1 p2] settled", "list "}, api.calls)
	assert.True(t, result.AllApplied())
	for _, p := range l.Purchases()[:2] {
		assert.Equal(t, models.StageSettled, p.Stage)
	}
	assert.False(t, tracker.IsLoading())
}

func TestSetStageBulk_Outcomes(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))
	api.calls = nil

	result, err := l.RepayBulk(context.Background(), []string{"p3", "p1", "ghost", "p1"})
	require.NoError(t, err)

	assert.Equal(t, []ItemResult{
		{ID: "p3", Outcome: OutcomeRejected},
		{ID: "p1", Outcome: OutcomeApplied},
		{ID: "ghost", Outcome: OutcomeNotFound},
	}, result.Items)
	assert.Equal(t, []string{"patch [p1 ghost] unsettled", "list "}, api.calls)
	assert.False(t, result.AllApplied())
}

func TestSetStageBulk_FilteredViewCountsMovedAsApplied(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))

	result, err := l.ArchiveBulk(context.Background(), []string{"p1", "p2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, result.Applied())
	assert.Empty(t, l.Purchases())
}

func TestSetStageBulk_AllRejectedSendsNothing(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))
	api.calls = nil

	result, err := l.SettleBulk(context.Background(), []string{"p3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, result.Rejected())
	assert.Empty(t, api.calls)
}

func TestBulk_EmptySelection(t *testing.T) {
	l, _ := newTestLedger(t, &fakeAPI{})

	_, err := l.SettleBulk(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = l.DeleteBulk(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestBulk_TransportFailureFailsBatch(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, tracker := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))
	api.err = errors.New("connection refused")

	result, err := l.SettleBulk(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.False(t, tracker.IsLoading())
}

func TestDeleteBulk(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))
	api.calls = nil

	result, err := l.DeleteBulk(context.Background(), []string{"p1", "p3", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, []string{"delete [p1 p3 ghost]", "list "}, api.calls)
	assert.Equal(t, []string{"p1", "p3"}, result.Applied())
	assert.Equal(t, []string{"ghost"}, result.With(OutcomeNotFound))
	require.Len(t, l.Purchases(), 1)
	assert.Equal(t, "p2", l.Purchases()[0].ID)
}

func TestSetStageBulk_CountConfirmsPurchasesOutsideFilter(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))

	// p3 is archived, so the unsettled cache never held it.
	result, err := l.SettleBulk(context.Background(), []string{"p1", "p3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, result.Applied())
	assert.True(t, result.AllApplied())
}

func TestSetStageBulk_PartialCountLeavesNotFound(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))

	result, err := l.SettleBulk(context.Background(), []string{"p3", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []ItemResult{
		{ID: "p3", Outcome: OutcomeNotFound},
		{ID: "ghost", Outcome: OutcomeNotFound},
	}, result.Items, "one change for two unseen IDs is ambiguous")
}

func TestSetStageBulk_NoCountLeavesNotFound(t *testing.T) {
	api := &fakeAPI{purchases: seed(), noCount: true}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))

	result, err := l.SettleBulk(context.Background(), []string{"p3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, result.With(OutcomeNotFound))
}

func TestDeleteBulk_CountConfirmsPurchasesOutsideFilter(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), models.StageUnsettled))

	result, err := l.DeleteBulk(context.Background(), []string{"p1", "p3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, result.Applied())
	require.Len(t, l.Purchases(), 1)
	assert.Len(t, api.purchases, 1)
}

func TestTrackerBusyDuringEveryCall(t *testing.T) {
	api := &fakeAPI{purchases: seed(), nextID: 10}
	l, tracker := newTestLedger(t, api)
	ctx := context.Background()

	require.NoError(t, l.FetchAll(ctx, ""))
	require.NoError(t, l.Create(ctx, models.NewPurchase{Name: "Snacks"}))
	note := "later"
	require.NoError(t, l.Edit(ctx, "p1", models.PurchasePatch{Note: &note}))
	require.NoError(t, l.Settle(ctx, "p2"))
	_, err := l.ArchiveBulk(ctx, []string{"p1", "p2"})
	require.NoError(t, err)
	require.NoError(t, l.Delete(ctx, "p3"))
	_, err = l.DeleteBulk(ctx, []string{"p1", "p2"})
	require.NoError(t, err)

	require.Len(t, api.busy, len(api.calls))
	for i, busy := range api.busy {
		assert.True(t, busy, "tracker idle during %q", api.calls[i])
	}
	assert.False(t, tracker.IsLoading())
}

func TestParticipantsAndBalances(t *testing.T) {
	api := &fakeAPI{purchases: seed()}
	l, _ := newTestLedger(t, api)
	require.NoError(t, l.FetchAll(context.Background(), ""))

	var ids []string
	for _, p := range l.Participants() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	balances := l.Balances()
	require.Len(t, balances, 3)
	assert.True(t, balances[0].NetOwed.Equal(decimal.NewFromInt(80)), "a: 100 + (20-40)")
	assert.True(t, balances[1].NetOwed.Equal(decimal.NewFromInt(-50)), "b: -100 + 50")
	assert.True(t, balances[2].NetOwed.Equal(decimal.NewFromInt(20)), "c")
}
