// Package ledger caches purchases and applies lifecycle transitions to them.
//
// The ledger never mutates its cache optimistically. Each write is sent to
// the API and followed by a refetch using the stage filter of the last
// FetchAll, so concurrent writers converge on whatever the server holds.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/models"
)

var (
	// ErrInvalidTransition is returned when a stage change is not allowed
	// from the purchase's cached stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrEmptyPatch is returned by Edit when the patch changes nothing.
	ErrEmptyPatch = errors.New("empty patch")

	// ErrEmptySelection is returned by bulk operations given no IDs.
	ErrEmptySelection = errors.New("no purchases selected")
)

// API is the subset of the REST client the ledger needs.
type API interface {
	ListPurchases(ctx context.Context, stage models.Stage) ([]models.Purchase, error)
	CreatePurchase(ctx context.Context, p models.NewPurchase) (*models.Purchase, error)
	PatchPurchase(ctx context.Context, id string, patch models.PurchasePatch) error
	PatchPurchases(ctx context.Context, ids []string, stage models.Stage) (int, error)
	DeletePurchase(ctx context.Context, id string) error
	DeletePurchases(ctx context.Context, ids []string) (int, error)
}

// Ledger is the cached purchase list.
type Ledger struct {
	api     API
	tracker *loading.Tracker
	logger  *slog.Logger

	mu        sync.RWMutex
	purchases []models.Purchase
	filter    models.Stage
}

// New creates an empty Ledger.
func New(api API, tracker *loading.Tracker, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{api: api, tracker: tracker, logger: logger}
}

// FetchAll replaces the cache with the API's purchases. A non-empty stage
// filters the list and is reused by every later refetch until the next
// FetchAll.
func (l *Ledger) FetchAll(ctx context.Context, stage models.Stage) error {
	if stage != "" && !stage.Valid() {
		return fmt.Errorf("fetch purchases: %w: %q", models.ErrInvalidStage, stage)
	}

	op := l.tracker.Start("fetch purchases")
	defer op.Done()

	l.mu.Lock()
	l.filter = stage
	l.mu.Unlock()

	return l.refetch(ctx)
}

// Filter returns the stage filter used by refetches ("" for all stages).
func (l *Ledger) Filter() models.Stage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.filter
}

// Create posts a new purchase. The stage is always unsettled.
func (l *Ledger) Create(ctx context.Context, p models.NewPurchase) error {
	p.Stage = models.StageUnsettled
	if err := models.ValidateParticipants(p.People); err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}

	op := l.tracker.Start("create purchase")
	defer op.Done()

	if _, err := l.api.CreatePurchase(ctx, p); err != nil {
		return err
	}
	l.logger.Info("Purchase created", "name", p.Name, "participants", len(p.People))
	return l.refetch(ctx)
}

// Edit applies a partial update to one purchase. A stage change is checked
// against the cached stage when the purchase is cached; otherwise the server
// decides.
func (l *Ledger) Edit(ctx context.Context, id string, patch models.PurchasePatch) error {
	if patch.IsEmpty() {
		return fmt.Errorf("edit purchase %s: %w", id, ErrEmptyPatch)
	}
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("edit purchase %s: %w", id, err)
	}
	if patch.Stage != nil {
		if err := l.checkTransition(id, *patch.Stage); err != nil {
			return err
		}
	}

	op := l.tracker.Start("edit purchase")
	defer op.Done()

	if err := l.api.PatchPurchase(ctx, id, patch); err != nil {
		return err
	}
	l.logger.Info("Purchase edited", "purchase_id", id)
	return l.refetch(ctx)
}

// SetStage moves one purchase to stage.
func (l *Ledger) SetStage(ctx context.Context, id string, stage models.Stage) error {
	if !stage.Valid() {
		return fmt.Errorf("set stage of %s: %w: %q", id, models.ErrInvalidStage, stage)
	}
	return l.Edit(ctx, id, models.StagePatch(stage))
}

// SetStageBulk moves every listed purchase to stage with one request.
// Purchases whose cached stage cannot move to stage are left out of the
// request and reported as rejected. The remaining outcomes are read from the
// refetched cache and cross-checked against the count the API reports. A
// transport or API failure fails the whole batch.
func (l *Ledger) SetStageBulk(ctx context.Context, ids []string, stage models.Stage) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("set stage: %w: %q", models.ErrInvalidStage, stage)
	}

	ids = dedupe(ids)
	before := l.index()
	outcomes := make(map[string]Outcome, len(ids))

	var eligible []string
	for _, id := range ids {
		if p, ok := before[id]; ok && !p.Stage.CanTransitionTo(stage) {
			outcomes[id] = OutcomeRejected
			continue
		}
		eligible = append(eligible, id)
	}
	if len(eligible) == 0 {
		return newBulkResult(ids, outcomes), nil
	}

	op := l.tracker.Start("set stage " + stage.String())
	defer op.Done()

	changed, err := l.api.PatchPurchases(ctx, eligible, stage)
	if err != nil {
		return nil, err
	}
	if err := l.refetch(ctx); err != nil {
		return nil, err
	}

	after := l.index()
	filter := l.Filter()
	for _, id := range eligible {
		p, visible := after[id]
		_, wasCached := before[id]
		switch {
		case visible && p.Stage == stage:
			outcomes[id] = OutcomeApplied
		case visible:
			outcomes[id] = OutcomeNotApplied
		case wasCached && filter != "" && filter != stage:
			// Moved out of the filtered view.
			outcomes[id] = OutcomeApplied
		default:
			outcomes[id] = OutcomeNotFound
		}
	}
	confirmUnseen(outcomes, eligible, changed)

	result := newBulkResult(ids, outcomes)
	l.logger.Info("Purchases moved",
		"stage", stage,
		"count", len(result.Applied()),
		"rejected", len(result.Rejected()),
	)
	return result, nil
}

// Settle moves a purchase to settled.
func (l *Ledger) Settle(ctx context.Context, id string) error {
	return l.SetStage(ctx, id, models.StageSettled)
}

// Archive moves a purchase to archived.
func (l *Ledger) Archive(ctx context.Context, id string) error {
	return l.SetStage(ctx, id, models.StageArchived)
}

// Repay moves a purchase back to unsettled.
func (l *Ledger) Repay(ctx context.Context, id string) error {
	return l.SetStage(ctx, id, models.StageUnsettled)
}

// SettleBulk moves purchases to settled.
func (l *Ledger) SettleBulk(ctx context.Context, ids []string) (*BulkResult, error) {
	return l.SetStageBulk(ctx, ids, models.StageSettled)
}

// ArchiveBulk moves purchases to archived.
func (l *Ledger) ArchiveBulk(ctx context.Context, ids []string) (*BulkResult, error) {
	return l.SetStageBulk(ctx, ids, models.StageArchived)
}

// RepayBulk moves purchases back to unsettled.
func (l *Ledger) RepayBulk(ctx context.Context, ids []string) (*BulkResult, error) {
	return l.SetStageBulk(ctx, ids, models.StageUnsettled)
}

// Delete removes one purchase and refetches.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	op := l.tracker.Start("delete purchase")
	defer op.Done()

	if err := l.api.DeletePurchase(ctx, id); err != nil {
		return err
	}
	l.logger.Info("Purchase deleted", "purchase_id", id)
	return l.refetch(ctx)
}

// DeleteBulk removes every listed purchase with one request.
func (l *Ledger) DeleteBulk(ctx context.Context, ids []string) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	ids = dedupe(ids)
	before := l.index()

	op := l.tracker.Start("delete purchases")
	defer op.Done()

	deleted, err := l.api.DeletePurchases(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := l.refetch(ctx); err != nil {
		return nil, err
	}

	after := l.index()
	outcomes := make(map[string]Outcome, len(ids))
	for _, id := range ids {
		_, visible := after[id]
		_, wasCached := before[id]
		switch {
		case visible:
			outcomes[id] = OutcomeNotApplied
		case wasCached:
			outcomes[id] = OutcomeApplied
		default:
			outcomes[id] = OutcomeNotFound
		}
	}
	confirmUnseen(outcomes, ids, deleted)

	result := newBulkResult(ids, outcomes)

	l.logger.Info("Purchases deleted", "count", len(result.Applied()))
	return result, nil
}

// Purchases returns a copy of the cached purchases.
func (l *Ledger) Purchases() []models.Purchase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Purchase(nil), l.purchases...)
}

// Purchase returns the cached purchase with the given ID.
func (l *Ledger) Purchase(id string) (models.Purchase, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.purchases {
		if p.ID == id {
			return p, true
		}
	}
	return models.Purchase{}, false
}

// Participants returns the distinct participants across cached purchases.
func (l *Ledger) Participants() []models.Participant {
	return calculator.Participants(l.Purchases())
}

// Balances returns each participant's outstanding amount over every cached
// purchase.
func (l *Ledger) Balances() []calculator.Balance {
	return calculator.Balances(l.Purchases(), nil)
}

func (l *Ledger) checkTransition(id string, target models.Stage) error {
	current, ok := l.Purchase(id)
	if !ok {
		return nil
	}
	if !current.Stage.CanTransitionTo(target) {
		return fmt.Errorf("purchase %s: %w: %s -> %s", id, ErrInvalidTransition, current.Stage, target)
	}
	return nil
}

func (l *Ledger) refetch(ctx context.Context) error {
	filter := l.Filter()
	purchases, err := l.api.ListPurchases(ctx, filter)
	if err != nil {
		return fmt.Errorf("refresh purchases: %w", err)
	}

	l.mu.Lock()
	l.purchases = purchases
	l.mu.Unlock()

	l.logger.Debug("Purchases fetched", "stage", filter, "count", len(purchases))
	return nil
}

func (l *Ledger) index() map[string]models.Purchase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m := make(map[string]models.Purchase, len(l.purchases))
	for _, p := range l.purchases {
		m[p.ID] = p
	}
	return m
}

// confirmUnseen marks every not_found ID as applied when the API's changed
// count is exactly the applied IDs plus the not_found ones. Purchases outside
// a filtered cache are only confirmed this way. A negative count, or one
// that covers just some of them, leaves the outcomes as they are.
func confirmUnseen(outcomes map[string]Outcome, ids []string, changed int) {
	if changed < 0 {
		return
	}
	var applied int
	var unseen []string
	for _, id := range ids {
		switch outcomes[id] {
		case OutcomeApplied:
			applied++
		case OutcomeNotFound:
			unseen = append(unseen, id)
		}
	}
	if len(unseen) == 0 || changed-applied != len(unseen) {
		return
	}
	for _, id := range unseen {
		outcomes[id] = OutcomeApplied
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
