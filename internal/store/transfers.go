package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// RespondToPlacement creates a pending transfer request: a helper's offer to
// take the pet. The requested relationship type follows from the placement
// type. The partial unique index on live transfer requests turns a
// concurrent double-respond into a conflict instead of a second live claim.
func RespondToPlacement(ctx context.Context, db *sql.DB, actor model.Actor, placementID int64, message string) (*model.TransferRequest, error) {
	placement, err := GetPlacement(ctx, db, placementID)
	if err != nil {
		return nil, err
	}
	if placement == nil {
		return nil, fmt.Errorf("%w: placement request %d", model.ErrNotFound, placementID)
	}
	if placement.OwnerUserID == actor.ID {
		return nil, fmt.Errorf("%w: cannot respond to your own placement", model.ErrValidation)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'pending_review', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'open'`,
		placementID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking placement pending review: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: placement %d is %s, not open", model.ErrConflict, placementID, placement.Status)
	}

	relationship := model.RelationshipTypeFor(placement.RequestType)
	result, err = tx.ExecContext(ctx,
		`INSERT INTO transfer_requests
		     (pet_id, placement_request_id, initiator_user_id, recipient_user_id, relationship_type, message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		placement.PetID, placementID, actor.ID, placement.OwnerUserID, relationship, message,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: placement %d already has a live transfer request", model.ErrConflict, placementID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating transfer request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer request id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer request: %w", err)
	}

	return GetTransferRequest(ctx, db, id)
}

// GetTransferRequest returns a transfer request by ID.
func GetTransferRequest(ctx context.Context, db *sql.DB, id int64) (*model.TransferRequest, error) {
	return getTransferRequest(ctx, db, id)
}

func getTransferRequest(ctx context.Context, q dbtx, id int64) (*model.TransferRequest, error) {
	t := &model.TransferRequest{}
	var message sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, pet_id, placement_request_id, initiator_user_id, recipient_user_id,
		        relationship_type, status, message, accepted_at, rejected_at, created_at
		 FROM transfer_requests WHERE id = ?`, id,
	).Scan(&t.ID, &t.PetID, &t.PlacementRequestID, &t.InitiatorUserID, &t.RecipientUserID,
		&t.RelationshipType, &t.Status, &message, &t.AcceptedAt, &t.RejectedAt, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer request: %w", err)
	}
	t.Message = message.String
	return t, nil
}

// ListTransferRequests returns transfer requests, optionally filtered by
// placement or by a user on either side.
func ListTransferRequests(ctx context.Context, db *sql.DB, placementID, userID int64, status string) ([]model.TransferRequest, error) {
	query := `SELECT id, pet_id, placement_request_id, initiator_user_id, recipient_user_id,
	                 relationship_type, status, message, accepted_at, rejected_at, created_at
	          FROM transfer_requests WHERE 1=1`
	var args []any

	if placementID > 0 {
		query += ` AND placement_request_id = ?`
		args = append(args, placementID)
	}
	if userID > 0 {
		query += ` AND (initiator_user_id = ? OR recipient_user_id = ?)`
		args = append(args, userID, userID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfer requests: %w", err)
	}
	defer rows.Close()

	var transfers []model.TransferRequest
	for rows.Next() {
		var t model.TransferRequest
		var message sql.NullString
		if err := rows.Scan(&t.ID, &t.PetID, &t.PlacementRequestID, &t.InitiatorUserID, &t.RecipientUserID,
			&t.RelationshipType, &t.Status, &message, &t.AcceptedAt, &t.RejectedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transfer request: %w", err)
		}
		t.Message = message.String
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// AcceptTransferRequest is performed by the recipient (current owner). In a
// single transaction it moves the request pending → accepted, finds or
// creates the pending handover for the pair, and marks the placement
// fulfilled. Accepting a non-pending request fails with a conflict.
func AcceptTransferRequest(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.TransferRequest, *model.Handover, error) {
	transfer, err := GetTransferRequest(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	if transfer == nil {
		return nil, nil, fmt.Errorf("%w: transfer request %d", model.ErrNotFound, id)
	}
	if transfer.RecipientUserID != actor.ID && !actor.HasRole(model.RoleAdmin) {
		return nil, nil, fmt.Errorf("%w: only the recipient may accept transfer request %d", model.ErrForbidden, id)
	}

	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE transfer_requests SET status = 'accepted', accepted_at = ?
		 WHERE id = ? AND status = 'pending'`,
		now, id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("accepting transfer request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil, fmt.Errorf("%w: transfer request %d is %s, not pending", model.ErrConflict, id, transfer.Status)
	}

	// Reuse the pending handover when one already exists for this request.
	handoverID, err := liveHandoverID(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if handoverID == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transfer_handovers (transfer_request_id, owner_user_id, helper_user_id)
			 VALUES (?, ?, ?)`,
			id, transfer.RecipientUserID, transfer.InitiatorUserID,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating handover: %w", err)
		}
		handoverID, err = res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("getting handover id: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'fulfilled', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending_review'`,
		transfer.PlacementRequestID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("marking placement fulfilled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing acceptance: %w", err)
	}

	transfer, err = GetTransferRequest(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	handover, err := GetHandover(ctx, db, handoverID)
	if err != nil {
		return nil, nil, err
	}
	return transfer, handover, nil
}

// RejectTransferRequest is performed by the recipient. The placement returns
// to open so another helper can respond.
func RejectTransferRequest(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.TransferRequest, error) {
	transfer, err := GetTransferRequest(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transfer request %d", model.ErrNotFound, id)
	}
	if transfer.RecipientUserID != actor.ID && !actor.HasRole(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the recipient may reject transfer request %d", model.ErrForbidden, id)
	}

	return closeTransferRequest(ctx, db, transfer, "rejected", "rejected_at")
}

// CancelTransferRequest is performed by the initiator (helper) to withdraw a
// pending offer. The placement returns to open.
func CancelTransferRequest(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.TransferRequest, error) {
	transfer, err := GetTransferRequest(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transfer request %d", model.ErrNotFound, id)
	}
	if transfer.InitiatorUserID != actor.ID && !actor.HasRole(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: only the initiator may cancel transfer request %d", model.ErrForbidden, id)
	}

	return closeTransferRequest(ctx, db, transfer, "canceled", "")
}

// closeTransferRequest moves a pending request to a terminal status and
// reopens the placement for other helpers.
func closeTransferRequest(ctx context.Context, db *sql.DB, transfer *model.TransferRequest, status, tsColumn string) (*model.TransferRequest, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE transfer_requests SET status = ? WHERE id = ? AND status = 'pending'`
	if tsColumn != "" {
		query = fmt.Sprintf(
			`UPDATE transfer_requests SET status = ?, %s = CURRENT_TIMESTAMP WHERE id = ? AND status = 'pending'`,
			tsColumn,
		)
	}
	result, err := tx.ExecContext(ctx, query, status, transfer.ID)
	if err != nil {
		return nil, fmt.Errorf("closing transfer request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: transfer request %d is %s, not pending", model.ErrConflict, transfer.ID, transfer.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'open', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending_review'`,
		transfer.PlacementRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("reopening placement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer request close: %w", err)
	}

	return GetTransferRequest(ctx, db, transfer.ID)
}

// ExpireTransferRequests expires pending requests whose placement has
// already lapsed. ExpirePlacements cascades to its own requests; this
// catches strays left behind by earlier partial sweeps. Returns the
// number of requests expired.
func ExpireTransferRequests(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE transfer_requests SET status = 'expired'
		 WHERE status = 'pending'
		   AND placement_request_id IN (
		       SELECT id FROM placement_requests
		       WHERE status = 'expired'
		          OR (status IN ('open', 'pending_review') AND expires_at IS NOT NULL AND expires_at < ?))`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("expiring transfer requests: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
