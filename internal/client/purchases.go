package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/mmynk/warikan/internal/models"
)

// BulkStageRequest is the body of PATCH /purchases.
type BulkStageRequest struct {
	IDList []string    `json:"idList"`
	Target StageTarget `json:"target"`
}

// StageTarget is the update applied to every purchase of a bulk request.
type StageTarget struct {
	Stage models.Stage `json:"stage"`
}

// BulkDeleteRequest is the body of DELETE /purchases.
type BulkDeleteRequest struct {
	IDList []string `json:"idList"`
}

// BulkResponse is the body returned by the bulk endpoints. Only the count
// matching the request is set.
type BulkResponse struct {
	Requested int  `json:"requested"`
	Updated   *int `json:"updated,omitempty"`
	Deleted   *int `json:"deleted,omitempty"`
}

// count returns n, or -1 when the API did not report a count.
func count(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}

// ListPurchases returns purchases, filtered by stage when stage is non-empty.
func (c *Client) ListPurchases(ctx context.Context, stage models.Stage) ([]models.Purchase, error) {
	var query url.Values
	if stage != "" {
		query = url.Values{"stage": {stage.String()}}
	}
	var purchases []models.Purchase
	if err := c.call(ctx, "list purchases", http.MethodGet, "/purchases", query, nil, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}

// CreatePurchase posts a new purchase and returns what the API stored.
// The returned value is nil if the API answered without a body.
func (c *Client) CreatePurchase(ctx context.Context, p models.NewPurchase) (*models.Purchase, error) {
	var created *models.Purchase
	if err := c.call(ctx, "create purchase", http.MethodPost, "/purchases", nil, p, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// PatchPurchase applies a partial update to one purchase.
func (c *Client) PatchPurchase(ctx context.Context, id string, patch models.PurchasePatch) error {
	return c.call(ctx, "patch purchase", http.MethodPatch, "/purchases/"+url.PathEscape(id), nil, patch, nil)
}

// PatchPurchases moves every listed purchase to stage in one request and
// returns how many the API changed, or -1 if it did not say.
func (c *Client) PatchPurchases(ctx context.Context, ids []string, stage models.Stage) (int, error) {
	body := BulkStageRequest{IDList: ids, Target: StageTarget{Stage: stage}}
	var resp BulkResponse
	if err := c.call(ctx, "patch purchases", http.MethodPatch, "/purchases", nil, body, &resp); err != nil {
		return 0, err
	}
	return count(resp.Updated), nil
}

// DeletePurchase removes one purchase.
func (c *Client) DeletePurchase(ctx context.Context, id string) error {
	return c.call(ctx, "delete purchase", http.MethodDelete, "/purchases/"+url.PathEscape(id), nil, nil, nil)
}

// DeletePurchases removes every listed purchase in one request and returns
// how many the API removed, or -1 if it did not say.
func (c *Client) DeletePurchases(ctx context.Context, ids []string) (int, error) {
	var resp BulkResponse
	if err := c.call(ctx, "delete purchases", http.MethodDelete, "/purchases", nil, BulkDeleteRequest{IDList: ids}, &resp); err != nil {
		return 0, err
	}
	return count(resp.Deleted), nil
}
