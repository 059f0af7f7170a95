package ledger

// Outcome is what happened to one purchase of a bulk operation.
type Outcome string

const (
	// OutcomeApplied means the refetched state reflects the change.
	OutcomeApplied Outcome = "applied"

	// OutcomeNotFound means the purchase was not in the refetched cache and
	// the API's changed count does not account for it. On a filtered cache
	// this cannot tell an unknown ID from a purchase the API changed
	// outside the filter when the count covers only some of them.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeRejected means the transition was not allowed from the
	// purchase's stage and it was not sent.
	OutcomeRejected Outcome = "rejected"

	// OutcomeNotApplied means the request succeeded but the refetched
	// purchase does not reflect the change.
	OutcomeNotApplied Outcome = "not_applied"
)

// ItemResult is the outcome for one purchase ID.
type ItemResult struct {
	ID      string  `json:"id" yaml:"id" csv:"id"`
	Outcome Outcome `json:"outcome" yaml:"outcome" csv:"outcome"`
}

// BulkResult lists per-purchase outcomes in request order.
type BulkResult struct {
	Items []ItemResult `json:"items" yaml:"items"`
}

func newBulkResult(ids []string, outcomes map[string]Outcome) *BulkResult {
	r := &BulkResult{Items: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		r.Items = append(r.Items, ItemResult{ID: id, Outcome: outcomes[id]})
	}
	return r
}

// With returns the IDs whose outcome is outcome.
func (r *BulkResult) With(outcome Outcome) []string {
	var ids []string
	for _, item := range r.Items {
		if item.Outcome == outcome {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Applied returns the IDs that were changed.
func (r *BulkResult) Applied() []string { return r.With(OutcomeApplied) }

// Rejected returns the IDs refused as invalid transitions.
func (r *BulkResult) Rejected() []string { return r.With(OutcomeRejected) }

// AllApplied reports whether every item was applied.
func (r *BulkResult) AllApplied() bool {
	return len(r.Applied()) == len(r.Items)
}
