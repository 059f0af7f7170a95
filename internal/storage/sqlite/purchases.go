package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/storage"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListPurchases returns purchases in insertion order, optionally by stage.
func (s *SQLiteStore) ListPurchases(ctx context.Context, stage models.Stage) ([]models.Purchase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, date, note, stage FROM purchases
		 WHERE ? = '' OR stage = ?
		 ORDER BY created_at, rowid`,
		stage.String(), stage.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	purchases := []models.Purchase{}
	index := make(map[string]int)
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.Name, &p.Date, &p.Note, &p.Stage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		p.Participants = []models.Participant{}
		index[p.ID] = len(purchases)
		purchases = append(purchases, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	// Participants are read after the purchase rows are closed; the store
	// holds a single connection.
	peopleRows, err := s.db.QueryContext(ctx,
		`SELECT pp.purchase_id, pp.person_id, pp.name, pp.to_pay, pp.paid
		 FROM purchase_people pp JOIN purchases p ON p.id = pp.purchase_id
		 WHERE ? = '' OR p.stage = ?
		 ORDER BY pp.purchase_id, pp.position`,
		stage.String(), stage.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer peopleRows.Close()

	for peopleRows.Next() {
		var purchaseID string
		var participant models.Participant
		if err := peopleRows.Scan(&purchaseID, &participant.ID, &participant.Name, &participant.ToPay, &participant.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if i, ok := index[purchaseID]; ok {
			purchases[i].Participants = append(purchases[i].Participants, participant)
		}
	}
	if err := peopleRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return purchases, nil
}

// GetPurchase retrieves one purchase with its participants.
func (s *SQLiteStore) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	return getPurchase(ctx, s.db, id)
}

func getPurchase(ctx context.Context, q querier, id string) (*models.Purchase, error) {
	p := &models.Purchase{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, date, note, stage FROM purchases WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Date, &p.Note, &p.Stage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("purchase %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT person_id, name, to_pay, paid FROM purchase_people WHERE purchase_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	p.Participants = []models.Participant{}
	for rows.Next() {
		var participant models.Participant
		if err := rows.Scan(&participant.ID, &participant.Name, &participant.ToPay, &participant.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.Participants = append(p.Participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return p, nil
}

// CreatePurchase persists a new purchase and its participants.
func (s *SQLiteStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.New().String()
	}
	if purchase.Stage == "" {
		purchase.Stage = models.StageUnsettled
	}
	if err := purchase.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO purchases (id, name, date, note, stage, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		purchase.ID, purchase.Name, purchase.Date, purchase.Note, purchase.Stage.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	if err := insertParticipants(ctx, tx, purchase.ID, purchase.Participants); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func insertParticipants(ctx context.Context, tx *sql.Tx, purchaseID string, participants []models.Participant) error {
	for i, participant := range participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO purchase_people (purchase_id, position, person_id, name, to_pay, paid)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			purchaseID, i, participant.ID, participant.Name, participant.ToPay, participant.Paid,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// UpdatePurchase applies patch in a transaction. A stage change must be a
// valid transition from the stored stage.
func (s *SQLiteStore) UpdatePurchase(ctx context.Context, id string, patch models.PurchasePatch) (*models.Purchase, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getPurchase(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if patch.Stage != nil && !current.Stage.CanTransitionTo(*patch.Stage) {
		return nil, fmt.Errorf("purchase %s: %w: %s -> %s", id, storage.ErrInvalidTransition, current.Stage, *patch.Stage)
	}

	updated := patch.Apply(*current)
	_, err = tx.ExecContext(ctx,
		"UPDATE purchases SET name = ?, date = ?, note = ?, stage = ? WHERE id = ?",
		updated.Name, updated.Date, updated.Note, updated.Stage.String(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update purchase: %w", err)
	}

	if patch.People != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM purchase_people WHERE purchase_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to replace participants: %w", err)
		}
		if err := insertParticipants(ctx, tx, id, updated.Participants); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &updated, nil
}

// SetStages moves the listed purchases to stage in one transaction.
// Unknown IDs and disallowed transitions are skipped.
func (s *SQLiteStore) SetStages(ctx context.Context, ids []string, stage models.Stage) (int, error) {
	if !stage.Valid() {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidStage, stage)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, stage FROM purchases WHERE id IN ("+placeholders(len(ids))+")",
		args(ids)...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to load stages: %w", err)
	}
	var movable []string
	for rows.Next() {
		var id string
		var current models.Stage
		if err := rows.Scan(&id, &current); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan stage: %w", err)
		}
		if current.CanTransitionTo(stage) {
			movable = append(movable, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate stages: %w", err)
	}

	if len(movable) > 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE purchases SET stage = ? WHERE id IN ("+placeholders(len(movable))+")",
			append([]any{stage.String()}, args(movable)...)...,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to update stages: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(movable), nil
}

// DeletePurchase removes a purchase by ID.
func (s *SQLiteStore) DeletePurchase(ctx context.Context, id string) error {
	n, err := s.DeletePurchases(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("purchase %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// DeletePurchases removes the listed purchases and their participants.
func (s *SQLiteStore) DeletePurchases(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM purchases WHERE id IN ("+placeholders(len(ids))+")",
		args(ids)...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete purchases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete purchases: %w", err)
	}

	return int(n), nil
}
