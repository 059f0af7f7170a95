package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/storage"
)

// PurchaseService serves /api/v1/purchases.
type PurchaseService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewPurchaseService creates a new PurchaseService with the given storage backend.
func NewPurchaseService(store storage.Store, logger *slog.Logger) *PurchaseService {
	return &PurchaseService{store: store, logger: logger}
}

// bulkStageRequest is the body of PATCH /purchases.
type bulkStageRequest struct {
	IDList []string             `json:"idList"`
	Target models.PurchasePatch `json:"target"`
}

// bulkDeleteRequest is the body of DELETE /purchases.
type bulkDeleteRequest struct {
	IDList []string `json:"idList"`
}

// bulkResponse reports how many purchases a bulk request changed.
type bulkResponse struct {
	Requested int `json:"requested"`
	Updated   *int `json:"updated,omitempty"`
	Deleted   *int `json:"deleted,omitempty"`
}

// List handles GET /purchases[?stage=].
func (s *PurchaseService) List(w http.ResponseWriter, r *http.Request) {
	var stage models.Stage
	if raw := r.URL.Query().Get("stage"); raw != "" {
		parsed, err := models.ParseStage(raw)
		if err != nil {
			fail(w, s.logger, "list purchases", err)
			return
		}
		stage = parsed
	}

	purchases, err := s.store.ListPurchases(r.Context(), stage)
	if err != nil {
		fail(w, s.logger, "list purchases", err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

// Create handles POST /purchases. New purchases always start unsettled.
func (s *PurchaseService) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewPurchase
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "create purchase", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fail(w, s.logger, "create purchase", badRequest{errors.New("name is required")})
		return
	}
	if req.Stage != "" && req.Stage != models.StageUnsettled {
		fail(w, s.logger, "create purchase", badRequest{fmt.Errorf("new purchases start %s, got %s", models.StageUnsettled, req.Stage)})
		return
	}

	purchase := &models.Purchase{
		Name:         req.Name,
		Date:         req.Date,
		Note:         req.Note,
		Stage:        models.StageUnsettled,
		Participants: req.People,
	}
	if purchase.Participants == nil {
		purchase.Participants = []models.Participant{}
	}
	if err := s.store.CreatePurchase(r.Context(), purchase); err != nil {
		fail(w, s.logger, "create purchase", err)
		return
	}

	s.logger.Info("Purchase created", "purchase_id", purchase.ID, "participants", len(purchase.Participants))
	writeJSON(w, http.StatusCreated, purchase)
}

// Patch handles PATCH /purchases/{id}.
func (s *PurchaseService) Patch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch models.PurchasePatch
	if err := decodeJSON(r, &patch); err != nil {
		fail(w, s.logger, "patch purchase", err)
		return
	}
	if patch.IsEmpty() {
		fail(w, s.logger, "patch purchase", badRequest{errors.New("patch changes nothing")})
		return
	}

	updated, err := s.store.UpdatePurchase(r.Context(), id, patch)
	if err != nil {
		fail(w, s.logger, "patch purchase", err)
		return
	}

	s.logger.Info("Purchase updated", "purchase_id", id, "stage", updated.Stage)
	writeJSON(w, http.StatusOK, updated)
}

// PatchBulk handles PATCH /purchases. Only the stage may be set in bulk.
func (s *PurchaseService) PatchBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkStageRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "patch purchases", err)
		return
	}
	target := req.Target
	if target.Stage == nil || target.Name != nil || target.Date != nil || target.Note != nil || target.People != nil {
		fail(w, s.logger, "patch purchases", badRequest{errors.New("target must set only stage")})
		return
	}
	if len(req.IDList) == 0 {
		fail(w, s.logger, "patch purchases", badRequest{errors.New("idList is required")})
		return
	}

	n, err := s.store.SetStages(r.Context(), req.IDList, *target.Stage)
	if err != nil {
		fail(w, s.logger, "patch purchases", err)
		return
	}

	s.logger.Info("Purchases moved", "stage", *target.Stage, "requested", len(req.IDList), "count", n)
	writeJSON(w, http.StatusOK, bulkResponse{Requested: len(req.IDList), Updated: &n})
}

// Delete handles DELETE /purchases/{id}.
func (s *PurchaseService) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeletePurchase(r.Context(), id); err != nil {
		fail(w, s.logger, "delete purchase", err)
		return
	}

	s.logger.Info("Purchase deleted", "purchase_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBulk handles DELETE /purchases with an {idList} body.
func (s *PurchaseService) DeleteBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, s.logger, "delete purchases", err)
		return
	}
	if len(req.IDList) == 0 {
		fail(w, s.logger, "delete purchases", badRequest{errors.New("idList is required")})
		return
	}

	n, err := s.store.DeletePurchases(r.Context(), req.IDList)
	if err != nil {
		fail(w, s.logger, "delete purchases", err)
		return
	}

	s.logger.Info("Purchases deleted", "requested", len(req.IDList), "count", n)
	writeJSON(w, http.StatusOK, bulkResponse{Requested: len(req.IDList), Deleted: &n})
}
