package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// HandoverCompletion carries everything the caller needs after a completed
// handover: the finalized entities for the response and the participant IDs
// for post-commit notification.
type HandoverCompletion struct {
	Handover  *model.Handover
	Transfer  *model.TransferRequest
	Placement *model.PlacementRequest
	Foster    *model.FosterAssignment // nil for permanent transfers
}

// GetHandover returns a handover by ID.
func GetHandover(ctx context.Context, db *sql.DB, id int64) (*model.Handover, error) {
	return getHandover(ctx, db, id)
}

func getHandover(ctx context.Context, q dbtx, id int64) (*model.Handover, error) {
	h := &model.Handover{}
	var location, notes sql.NullString
	var condition sql.NullBool
	err := q.QueryRowContext(ctx,
		`SELECT id, transfer_request_id, owner_user_id, helper_user_id, scheduled_at, location,
		        status, condition_confirmed, condition_notes, owner_initiated_at,
		        helper_confirmed_at, completed_at, canceled_at, created_at, updated_at
		 FROM transfer_handovers WHERE id = ?`, id,
	).Scan(&h.ID, &h.TransferRequestID, &h.OwnerUserID, &h.HelperUserID, &h.ScheduledAt, &location,
		&h.Status, &condition, &notes, &h.OwnerInitiatedAt,
		&h.HelperConfirmedAt, &h.CompletedAt, &h.CanceledAt, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting handover: %w", err)
	}
	h.Location = location.String
	h.ConditionNotes = notes.String
	if condition.Valid {
		h.ConditionConfirmed = &condition.Bool
	}
	return h, nil
}

// GetHandoverForTransfer returns the live (pending or confirmed) handover
// for a transfer request, or nil when none exists.
func GetHandoverForTransfer(ctx context.Context, db *sql.DB, transferRequestID int64) (*model.Handover, error) {
	id, err := liveHandoverID(ctx, db, transferRequestID)
	if err != nil || id == 0 {
		return nil, err
	}
	return GetHandover(ctx, db, id)
}

// liveHandoverID returns the ID of the live handover for a transfer
// request, or 0 when none exists. At most one can exist (partial unique
// index).
func liveHandoverID(ctx context.Context, q dbtx, transferRequestID int64) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM transfer_handovers
		 WHERE transfer_request_id = ? AND status IN ('pending', 'confirmed')`,
		transferRequestID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("finding live handover: %w", err)
	}
	return id, nil
}

// ScheduleHandover sets or updates the meeting time and location for an
// accepted transfer request. The pending handover is reused when one exists;
// otherwise one is created. Either participant may reschedule while the
// handover is still pending; a scheduling owner stamps owner_initiated_at.
func ScheduleHandover(ctx context.Context, db *sql.DB, actor model.Actor, transferRequestID int64, scheduledAt time.Time, location string) (*model.Handover, error) {
	if scheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", model.ErrValidation)
	}

	transfer, err := GetTransferRequest(ctx, db, transferRequestID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transfer request %d", model.ErrNotFound, transferRequestID)
	}
	if actor.ID != transfer.InitiatorUserID && actor.ID != transfer.RecipientUserID {
		return nil, fmt.Errorf("%w: not a participant of transfer request %d", model.ErrForbidden, transferRequestID)
	}
	if transfer.Status != model.TransferStatusAccepted {
		return nil, fmt.Errorf("%w: transfer request %d is %s, not accepted", model.ErrConflict, transferRequestID, transfer.Status)
	}

	isOwner := actor.ID == transfer.RecipientUserID
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := liveHandoverID(ctx, tx, transferRequestID)
	if err != nil {
		return nil, err
	}

	if id == 0 {
		var ownerInitiated any
		if isOwner {
			ownerInitiated = now
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO transfer_handovers
			     (transfer_request_id, owner_user_id, helper_user_id, scheduled_at, location, owner_initiated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			transferRequestID, transfer.RecipientUserID, transfer.InitiatorUserID, scheduledAt, location, ownerInitiated,
		)
		if err != nil {
			return nil, fmt.Errorf("creating handover: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting handover id: %w", err)
		}
	} else {
		query := `UPDATE transfer_handovers
		          SET scheduled_at = ?, location = ?, updated_at = CURRENT_TIMESTAMP
		          WHERE id = ? AND status = 'pending'`
		if isOwner {
			query = `UPDATE transfer_handovers
			         SET scheduled_at = ?, location = ?, updated_at = CURRENT_TIMESTAMP,
			             owner_initiated_at = COALESCE(owner_initiated_at, CURRENT_TIMESTAMP)
			         WHERE id = ? AND status = 'pending'`
		}
		result, err := tx.ExecContext(ctx, query, scheduledAt, location, id)
		if err != nil {
			return nil, fmt.Errorf("rescheduling handover: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: handover %d is no longer pending", model.ErrConflict, id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing handover schedule: %w", err)
	}

	return GetHandover(ctx, db, id)
}

// HelperConfirmHandover records the helper's check of the pet's physical
// condition at the meeting. Confirming moves pending → confirmed; denying
// routes to disputed instead. Only the helper may do this.
func HelperConfirmHandover(ctx context.Context, db *sql.DB, actor model.Actor, id int64, conditionConfirmed bool, notes string) (*model.Handover, error) {
	handover, err := GetHandover(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if handover == nil {
		return nil, fmt.Errorf("%w: handover %d", model.ErrNotFound, id)
	}
	if actor.ID != handover.HelperUserID {
		return nil, fmt.Errorf("%w: only the helper may confirm handover %d", model.ErrForbidden, id)
	}

	status := model.HandoverStatusConfirmed
	if !conditionConfirmed {
		status = model.HandoverStatusDisputed
	}

	result, err := db.ExecContext(ctx,
		`UPDATE transfer_handovers
		 SET status = ?, condition_confirmed = ?, condition_notes = ?,
		     helper_confirmed_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending'`,
		status, conditionConfirmed, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("confirming handover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: handover %d is %s, not pending", model.ErrConflict, id, handover.Status)
	}

	return GetHandover(ctx, db, id)
}

// CompleteHandover finalizes a handover. This is the one operation that
// must leave pets, the ownership ledger, foster assignments and the parent
// placement consistent under concurrent attempts, so everything runs in a
// single transaction whose first statement is the guarded status flip: the
// write lock is held from that point and a losing racer sees zero rows
// affected and gets a conflict.
//
// For permanent transfers the pet's open ledger row is closed, the pet is
// reassigned, and a new open row is appended. For fostering transfers a
// foster assignment is found-or-created on its idempotency key. The parent
// placement passes through pending_transfer to its final status inside the
// same transaction.
func CompleteHandover(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*HandoverCompletion, error) {
	handover, err := GetHandover(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if handover == nil {
		return nil, fmt.Errorf("%w: handover %d", model.ErrNotFound, id)
	}
	if !actor.IsParticipantOf(handover) {
		return nil, fmt.Errorf("%w: not a participant of handover %d", model.ErrForbidden, id)
	}

	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Step 1: guarded status flip. Re-validates status under the write lock;
	// a concurrent completion already holds or wins the lock and this
	// statement then affects zero rows.
	result, err := tx.ExecContext(ctx,
		`UPDATE transfer_handovers
		 SET status = 'completed', completed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('pending', 'confirmed')`,
		now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("completing handover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: handover %d cannot be completed", model.ErrConflict, id)
	}

	transfer, err := getTransferRequest(ctx, tx, handover.TransferRequestID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, fmt.Errorf("%w: transfer request %d", model.ErrNotFound, handover.TransferRequestID)
	}
	placement, err := getPlacement(ctx, tx, transfer.PlacementRequestID)
	if err != nil {
		return nil, err
	}
	if placement == nil {
		return nil, fmt.Errorf("%w: placement request %d", model.ErrNotFound, transfer.PlacementRequestID)
	}

	// Step 2: intermediate marker so the placement never observably skips
	// from fulfilled to its final status if this transaction is ever split.
	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'pending_transfer', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		placement.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking placement pending transfer: %w", err)
	}

	var foster *model.FosterAssignment
	finalStatus := model.PlacementStatusActive

	switch transfer.RelationshipType {
	case model.RelationshipPermanentFoster:
		if err := transferOwnership(ctx, tx, transfer, placement, now); err != nil {
			return nil, err
		}
		finalStatus = model.PlacementStatusFinalized

	case model.RelationshipFostering:
		foster, err = findOrCreateFoster(ctx, tx, transfer, placement, now)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: unknown relationship type %q", model.ErrValidation, transfer.RelationshipType)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		finalStatus, placement.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("finalizing placement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing handover completion: %w", err)
	}

	completion := &HandoverCompletion{Foster: foster}
	if completion.Handover, err = GetHandover(ctx, db, id); err != nil {
		return nil, err
	}
	if completion.Transfer, err = GetTransferRequest(ctx, db, transfer.ID); err != nil {
		return nil, err
	}
	if completion.Placement, err = GetPlacement(ctx, db, placement.ID); err != nil {
		return nil, err
	}
	return completion, nil
}

// transferOwnership closes the pet's open ledger row, reassigns the pet to
// the initiator, and appends the new open row. Pets that predate the ledger
// get a defensive seed-estimated backfill so the chain stays continuous.
func transferOwnership(ctx context.Context, tx dbtx, transfer *model.TransferRequest, placement *model.PlacementRequest, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE ownership_history SET to_ts = ? WHERE pet_id = ? AND to_ts IS NULL`,
		now, transfer.PetID,
	)
	if err != nil {
		return fmt.Errorf("closing ownership record: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		// Legacy data gap: no seed row exists. Backfill a closed row for the
		// outgoing owner spanning from the earliest known timestamp.
		pet, err := getPet(ctx, tx, transfer.PetID)
		if err != nil {
			return err
		}
		if pet == nil {
			return fmt.Errorf("%w: pet %d", model.ErrNotFound, transfer.PetID)
		}
		from := pet.CreatedAt
		if placement.CreatedAt.Before(from) {
			from = placement.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ownership_history (pet_id, user_id, provenance, from_ts, to_ts)
			 VALUES (?, ?, ?, ?, ?)`,
			transfer.PetID, transfer.RecipientUserID, model.ProvenanceSeedEstimated, from, now,
		)
		if err != nil {
			return fmt.Errorf("backfilling ownership record: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE pets SET user_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		transfer.InitiatorUserID, transfer.PetID,
	)
	if err != nil {
		return fmt.Errorf("reassigning pet: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ownership_history (pet_id, user_id, provenance, from_ts)
		 VALUES (?, ?, ?, ?)`,
		transfer.PetID, transfer.InitiatorUserID, model.ProvenanceRecorded, now,
	)
	if err != nil {
		return fmt.Errorf("appending ownership record: %w", err)
	}
	return nil
}

// findOrCreateFoster creates the foster assignment for a fostering transfer,
// idempotently: the unique key over (pet, owner, foster, transfer request)
// makes a second attempt a no-op that returns the existing row.
func findOrCreateFoster(ctx context.Context, tx dbtx, transfer *model.TransferRequest, placement *model.PlacementRequest, now time.Time) (*model.FosterAssignment, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO foster_assignments
		     (pet_id, owner_user_id, foster_user_id, transfer_request_id, start_date, expected_end_date)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (pet_id, owner_user_id, foster_user_id, transfer_request_id) DO NOTHING`,
		transfer.PetID, transfer.RecipientUserID, transfer.InitiatorUserID, transfer.ID,
		now.Truncate(24*time.Hour), placement.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("creating foster assignment: %w", err)
	}

	foster, err := getFosterByTransfer(ctx, tx, transfer.ID)
	if err != nil {
		return nil, err
	}
	if foster == nil {
		return nil, fmt.Errorf("foster assignment missing after create for transfer %d", transfer.ID)
	}
	return foster, nil
}

// CancelHandover cancels a handover before completion. Ownership, pets and
// foster assignments are never touched; in the same transaction the accepted
// transfer request is canceled and the placement reopens so the owner can
// accept another helper.
func CancelHandover(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.Handover, error) {
	handover, err := GetHandover(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if handover == nil {
		return nil, fmt.Errorf("%w: handover %d", model.ErrNotFound, id)
	}
	if !actor.IsParticipantOf(handover) {
		return nil, fmt.Errorf("%w: not a participant of handover %d", model.ErrForbidden, id)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE transfer_handovers
		 SET status = 'canceled', canceled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('pending', 'confirmed', 'disputed')`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("cancelling handover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: handover %d is %s and cannot be canceled", model.ErrConflict, id, handover.Status)
	}

	if err := unwindTransfer(ctx, tx, handover.TransferRequestID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing handover cancellation: %w", err)
	}

	return GetHandover(ctx, db, id)
}

// unwindTransfer cancels the accepted transfer request behind a dead
// handover and reopens its placement.
func unwindTransfer(ctx context.Context, tx dbtx, transferRequestID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE transfer_requests SET status = 'canceled' WHERE id = ? AND status = 'accepted'`,
		transferRequestID,
	)
	if err != nil {
		return fmt.Errorf("cancelling transfer request: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'open', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'fulfilled'
		   AND id = (SELECT placement_request_id FROM transfer_requests WHERE id = ?)`,
		transferRequestID,
	)
	if err != nil {
		return fmt.Errorf("reopening placement: %w", err)
	}
	return nil
}

// DisputeHandover flags a handover for human attention. The reason always
// lands in a handover_disputes row; the helper's condition notes from
// confirmation stay untouched. Before completion the handover itself also
// moves to disputed, while a completed handover keeps its status since no
// compensating transaction exists. Canceled handovers cannot be disputed.
func DisputeHandover(ctx context.Context, db *sql.DB, actor model.Actor, id int64, reason string) (*model.Handover, *model.HandoverDispute, error) {
	handover, err := GetHandover(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	if handover == nil {
		return nil, nil, fmt.Errorf("%w: handover %d", model.ErrNotFound, id)
	}
	if !actor.IsParticipantOf(handover) {
		return nil, nil, fmt.Errorf("%w: not a participant of handover %d", model.ErrForbidden, id)
	}

	if handover.Status == model.HandoverStatusCompleted {
		result, err := db.ExecContext(ctx,
			`INSERT INTO handover_disputes (handover_id, raised_by_user_id, reason) VALUES (?, ?, ?)`,
			id, actor.ID, reason,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("flagging completed handover: %w", err)
		}
		disputeID, err := result.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("getting dispute id: %w", err)
		}
		dispute, err := getHandoverDispute(ctx, db, disputeID)
		if err != nil {
			return nil, nil, err
		}
		return handover, dispute, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE transfer_handovers
		 SET status = 'disputed', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN ('pending', 'confirmed')`,
		id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("disputing handover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil, fmt.Errorf("%w: handover %d is %s and cannot be disputed", model.ErrConflict, id, handover.Status)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO handover_disputes (handover_id, raised_by_user_id, reason) VALUES (?, ?, ?)`,
		id, actor.ID, reason,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("recording dispute: %w", err)
	}
	disputeID, err := res.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("getting dispute id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing dispute: %w", err)
	}

	handover, err = GetHandover(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	dispute, err := getHandoverDispute(ctx, db, disputeID)
	if err != nil {
		return nil, nil, err
	}
	return handover, dispute, nil
}

func getHandoverDispute(ctx context.Context, q dbtx, id int64) (*model.HandoverDispute, error) {
	d := &model.HandoverDispute{}
	var reason sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, handover_id, raised_by_user_id, reason, created_at
		 FROM handover_disputes WHERE id = ?`, id,
	).Scan(&d.ID, &d.HandoverID, &d.RaisedByUserID, &reason, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting handover dispute: %w", err)
	}
	d.Reason = reason.String
	return d, nil
}

// ListHandoverDisputes returns post-completion dispute flags for a handover.
func ListHandoverDisputes(ctx context.Context, db *sql.DB, handoverID int64) ([]model.HandoverDispute, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, handover_id, raised_by_user_id, reason, created_at
		 FROM handover_disputes WHERE handover_id = ? ORDER BY created_at DESC`, handoverID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing handover disputes: %w", err)
	}
	defer rows.Close()

	var disputes []model.HandoverDispute
	for rows.Next() {
		var d model.HandoverDispute
		var reason sql.NullString
		if err := rows.Scan(&d.ID, &d.HandoverID, &d.RaisedByUserID, &reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning handover dispute: %w", err)
		}
		d.Reason = reason.String
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// ExpireStaleHandovers cancels pending handovers whose meeting time (or
// creation, when never scheduled) is older than the cutoff, unwinding the
// transfer request and placement like a participant cancellation would.
// Returns the number of handovers canceled.
func ExpireStaleHandovers(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, transfer_request_id FROM transfer_handovers
		 WHERE status = 'pending' AND COALESCE(scheduled_at, created_at) < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("finding stale handovers: %w", err)
	}

	type stale struct{ handoverID, transferID int64 }
	var stales []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.handoverID, &s.transferID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning stale handover: %w", err)
		}
		stales = append(stales, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, s := range stales {
		_, err := tx.ExecContext(ctx,
			`UPDATE transfer_handovers
			 SET status = 'canceled', canceled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = 'pending'`,
			s.handoverID,
		)
		if err != nil {
			return 0, fmt.Errorf("cancelling stale handover: %w", err)
		}
		if err := unwindTransfer(ctx, tx, s.transferID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing stale handover expiry: %w", err)
	}
	return int64(len(stales)), nil
}
