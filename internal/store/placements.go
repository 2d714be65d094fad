package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// CreatePlacement opens a placement request for a pet. Only the current
// owner (or an admin acting on their behalf) may place a pet, and a pet can
// have only one placement moving through the workflow at a time.
func CreatePlacement(ctx context.Context, db *sql.DB, actor model.Actor, petID int64, requestType string, endDate, expiresAt *time.Time) (*model.PlacementRequest, error) {
	if !model.ValidPlacementType(requestType) {
		return nil, fmt.Errorf("%w: unknown request type %q", model.ErrValidation, requestType)
	}

	pet, err := GetPet(ctx, db, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil || pet.DeletedAt != nil {
		return nil, fmt.Errorf("%w: pet %d", model.ErrNotFound, petID)
	}
	if !actor.IsOwnerOf(pet) && !actor.HasRole(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the owner may place pet %d", model.ErrForbidden, petID)
	}

	// The one-live-placement rule is enforced by the partial unique index on
	// pet_id, so a concurrent double-create loses on the INSERT itself rather
	// than slipping past an application-level check.
	result, err := db.ExecContext(ctx,
		`INSERT INTO placement_requests (pet_id, owner_user_id, request_type, end_date, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		petID, pet.UserID, requestType, endDate, expiresAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: pet %d already has a live placement", model.ErrConflict, petID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating placement request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting placement id: %w", err)
	}

	return GetPlacement(ctx, db, id)
}

// GetPlacement returns a placement request by ID.
func GetPlacement(ctx context.Context, db *sql.DB, id int64) (*model.PlacementRequest, error) {
	return getPlacement(ctx, db, id)
}

func getPlacement(ctx context.Context, q dbtx, id int64) (*model.PlacementRequest, error) {
	p := &model.PlacementRequest{}
	var petName sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT pr.id, pr.pet_id, pr.owner_user_id, pr.request_type, pr.status,
		        pr.end_date, pr.expires_at, pr.created_at, pr.updated_at, p.name
		 FROM placement_requests pr
		 JOIN pets p ON p.id = pr.pet_id
		 WHERE pr.id = ?`, id,
	).Scan(&p.ID, &p.PetID, &p.OwnerUserID, &p.RequestType, &p.Status,
		&p.EndDate, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt, &petName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting placement request: %w", err)
	}
	p.PetName = petName.String
	return p, nil
}

// ListPlacements returns placement requests, optionally filtered by status
// and owner.
func ListPlacements(ctx context.Context, db *sql.DB, status string, ownerID int64) ([]model.PlacementRequest, error) {
	query := `SELECT pr.id, pr.pet_id, pr.owner_user_id, pr.request_type, pr.status,
	                 pr.end_date, pr.expires_at, pr.created_at, pr.updated_at, p.name
	          FROM placement_requests pr
	          JOIN pets p ON p.id = pr.pet_id
	          WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND pr.status = ?`
		args = append(args, status)
	}
	if ownerID > 0 {
		query += ` AND pr.owner_user_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY pr.created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing placement requests: %w", err)
	}
	defer rows.Close()

	var placements []model.PlacementRequest
	for rows.Next() {
		var p model.PlacementRequest
		var petName sql.NullString
		if err := rows.Scan(&p.ID, &p.PetID, &p.OwnerUserID, &p.RequestType, &p.Status,
			&p.EndDate, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt, &petName); err != nil {
			return nil, fmt.Errorf("scanning placement request: %w", err)
		}
		p.PetName = petName.String
		placements = append(placements, p)
	}
	return placements, rows.Err()
}

// CancelPlacement cancels a placement request before a transfer completes.
// Any live transfer request and pending handover under it are canceled in
// the same transaction. Ownership, pets and foster assignments are never
// touched; nothing has been finalized yet.
func CancelPlacement(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.PlacementRequest, error) {
	placement, err := GetPlacement(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if placement == nil {
		return nil, fmt.Errorf("%w: placement request %d", model.ErrNotFound, id)
	}
	if placement.OwnerUserID != actor.ID && !actor.HasRole(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the owner may cancel placement %d", model.ErrForbidden, id)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Guarded write first: acquires the write lock and re-validates status.
	result, err := tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('open', 'pending_review', 'fulfilled')`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling placement request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: placement %d is %s and cannot be cancelled", model.ErrConflict, id, placement.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transfer_handovers SET status = 'canceled', canceled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE status IN ('pending', 'confirmed')
		   AND transfer_request_id IN (
		       SELECT id FROM transfer_requests
		       WHERE placement_request_id = ? AND status IN ('pending', 'accepted'))`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling handovers: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transfer_requests SET status = 'canceled'
		 WHERE placement_request_id = ? AND status IN ('pending', 'accepted')`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling transfer requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cancellation: %w", err)
	}

	return GetPlacement(ctx, db, id)
}

// ExpirePlacements moves open placements past their expiry to expired and
// expires pending transfer requests left under them. Returns the number of
// placements expired. Intended for the background sweeper; safe to re-run.
func ExpirePlacements(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'expired', updated_at = CURRENT_TIMESTAMP
		 WHERE status IN ('open', 'pending_review') AND expires_at IS NOT NULL AND expires_at < ?`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("expiring placements: %w", err)
	}
	expired, _ := result.RowsAffected()

	_, err = tx.ExecContext(ctx,
		`UPDATE transfer_requests SET status = 'expired'
		 WHERE status = 'pending'
		   AND placement_request_id IN (SELECT id FROM placement_requests WHERE status = 'expired')`,
	)
	if err != nil {
		return 0, fmt.Errorf("expiring transfer requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing expiry: %w", err)
	}
	return expired, nil
}
