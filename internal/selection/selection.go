// Package selection holds the per-stage view state of the purchase list:
// which purchases are selected, the balances over that selection, and the
// edit dialog.
package selection

import (
	"sort"
	"sync"

	"github.com/mmynk/warikan/internal/calculator"
	"github.com/mmynk/warikan/internal/models"
)

// View is the selection state for one stage. The zero value is not usable;
// create one with New.
type View struct {
	stage models.Stage

	mu            sync.RWMutex
	selected      map[string]bool
	editTarget    string
	dialogVisible bool
}

// New creates an empty view over purchases in stage.
func New(stage models.Stage) *View {
	return &View{stage: stage, selected: make(map[string]bool)}
}

// Stage returns the stage this view shows.
func (v *View) Stage() models.Stage {
	return v.stage
}

// Visible returns the purchases whose stage matches the view, in order.
func (v *View) Visible(purchases []models.Purchase) []models.Purchase {
	var out []models.Purchase
	for _, p := range purchases {
		if p.Stage == v.stage {
			out = append(out, p)
		}
	}
	return out
}

// Toggle adds id to the selection, or removes it if already selected.
func (v *View) Toggle(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected[id] {
		delete(v.selected, id)
		return
	}
	v.selected[id] = true
}

// IsSelected reports whether id is selected.
func (v *View) IsSelected(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selected[id]
}

// Selected returns the selected IDs, sorted.
func (v *View) Selected() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]string, 0, len(v.selected))
	for id := range v.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear empties the selection.
func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = make(map[string]bool)
}

// IsAllSelected reports whether the selection is exactly the set of IDs of
// the purchases in this view's stage, and that set is non-empty.
func (v *View) IsAllSelected(purchases []models.Purchase) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.isAllSelected(purchases)
}

func (v *View) isAllSelected(purchases []models.Purchase) bool {
	matching := make(map[string]bool)
	for _, p := range purchases {
		if p.Stage == v.stage {
			matching[p.ID] = true
		}
	}
	if len(matching) == 0 || len(matching) != len(v.selected) {
		return false
	}
	for id := range v.selected {
		if !matching[id] {
			return false
		}
	}
	return true
}

// ToggleAll clears the selection if everything is selected, and otherwise
// selects exactly the purchases in this view's stage.
func (v *View) ToggleAll(purchases []models.Purchase) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.isAllSelected(purchases) {
		v.selected = make(map[string]bool)
		return
	}
	v.selected = make(map[string]bool)
	for _, p := range purchases {
		if p.Stage == v.stage {
			v.selected[p.ID] = true
		}
	}
}

// Balances sums ToPay - Paid over the selected purchases for every
// participant of the ledger-wide directory, in directory order. People who
// appear in no selected purchase get zero.
func (v *View) Balances(purchases []models.Purchase) []calculator.Balance {
	v.mu.RLock()
	selected := make(map[string]bool, len(v.selected))
	for id := range v.selected {
		selected[id] = true
	}
	v.mu.RUnlock()

	return calculator.Balances(purchases, func(p models.Purchase) bool {
		return selected[p.ID]
	})
}

// ShowEditDialog opens the edit dialog for purchase id.
func (v *View) ShowEditDialog(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editTarget = id
	v.dialogVisible = true
}

// HideEditDialog closes the edit dialog. The target is kept until the next
// ShowEditDialog.
func (v *View) HideEditDialog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dialogVisible = false
}

// EditTarget returns the purchase ID last passed to ShowEditDialog.
func (v *View) EditTarget() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.editTarget
}

// EditDialogVisible reports whether the edit dialog is open.
func (v *View) EditDialogVisible() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dialogVisible
}
