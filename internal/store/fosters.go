package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

const fosterColumns = `id, pet_id, owner_user_id, foster_user_id, transfer_request_id,
       start_date, expected_end_date, status, completed_at, canceled_at, cancellation_reason, created_at`

// GetFosterAssignment returns a foster assignment by ID.
func GetFosterAssignment(ctx context.Context, db *sql.DB, id int64) (*model.FosterAssignment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+fosterColumns+` FROM foster_assignments WHERE id = ?`, id)
	return scanFoster(row)
}

func getFosterByTransfer(ctx context.Context, q dbtx, transferRequestID int64) (*model.FosterAssignment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+fosterColumns+` FROM foster_assignments WHERE transfer_request_id = ?`, transferRequestID)
	return scanFoster(row)
}

func scanFoster(row *sql.Row) (*model.FosterAssignment, error) {
	f := &model.FosterAssignment{}
	var reason sql.NullString
	err := row.Scan(&f.ID, &f.PetID, &f.OwnerUserID, &f.FosterUserID, &f.TransferRequestID,
		&f.StartDate, &f.ExpectedEndDate, &f.Status, &f.CompletedAt, &f.CanceledAt, &reason, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting foster assignment: %w", err)
	}
	f.CancellationReason = reason.String
	return f, nil
}

// ListFosterAssignments returns foster assignments, optionally filtered by
// pet, by a user on either side, and by status.
func ListFosterAssignments(ctx context.Context, db *sql.DB, petID, userID int64, status string) ([]model.FosterAssignment, error) {
	query := `SELECT ` + fosterColumns + ` FROM foster_assignments WHERE 1=1`
	var args []any

	if petID > 0 {
		query += ` AND pet_id = ?`
		args = append(args, petID)
	}
	if userID > 0 {
		query += ` AND (owner_user_id = ? OR foster_user_id = ?)`
		args = append(args, userID, userID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing foster assignments: %w", err)
	}
	defer rows.Close()

	var fosters []model.FosterAssignment
	for rows.Next() {
		var f model.FosterAssignment
		var reason sql.NullString
		if err := rows.Scan(&f.ID, &f.PetID, &f.OwnerUserID, &f.FosterUserID, &f.TransferRequestID,
			&f.StartDate, &f.ExpectedEndDate, &f.Status, &f.CompletedAt, &f.CanceledAt, &reason, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning foster assignment: %w", err)
		}
		f.CancellationReason = reason.String
		fosters = append(fosters, f)
	}
	return fosters, rows.Err()
}

// CompleteFosterAssignment ends a foster arrangement normally: the pet
// returns to its owner and the parent placement is finalized.
func CompleteFosterAssignment(ctx context.Context, db *sql.DB, actor model.Actor, id int64) (*model.FosterAssignment, error) {
	return closeFosterAssignment(ctx, db, actor, id, model.FosterStatusCompleted, "")
}

// CancelFosterAssignment ends a foster arrangement early with a reason. Like
// completion it finalizes the parent placement; custody simply reverts to
// the owner since ownership never moved.
func CancelFosterAssignment(ctx context.Context, db *sql.DB, actor model.Actor, id int64, reason string) (*model.FosterAssignment, error) {
	return closeFosterAssignment(ctx, db, actor, id, model.FosterStatusCanceled, reason)
}

func closeFosterAssignment(ctx context.Context, db *sql.DB, actor model.Actor, id int64, status, reason string) (*model.FosterAssignment, error) {
	foster, err := GetFosterAssignment(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if foster == nil {
		return nil, fmt.Errorf("%w: foster assignment %d", model.ErrNotFound, id)
	}
	if actor.ID != foster.OwnerUserID && actor.ID != foster.FosterUserID && !actor.HasRole(model.RoleAdmin) {
		return nil, fmt.Errorf("%w: not a party to foster assignment %d", model.ErrForbidden, id)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var result sql.Result
	if status == model.FosterStatusCompleted {
		result, err = tx.ExecContext(ctx,
			`UPDATE foster_assignments
			 SET status = 'completed', completed_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status = 'active'`,
			id,
		)
	} else {
		result, err = tx.ExecContext(ctx,
			`UPDATE foster_assignments
			 SET status = 'canceled', canceled_at = CURRENT_TIMESTAMP, cancellation_reason = ?
			 WHERE id = ? AND status = 'active'`,
			reason, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("closing foster assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: foster assignment %d is %s, not active", model.ErrConflict, id, foster.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE placement_requests SET status = 'finalized', updated_at = CURRENT_TIMESTAMP
		 WHERE status = 'active'
		   AND id = (SELECT placement_request_id FROM transfer_requests WHERE id = ?)`,
		foster.TransferRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("finalizing placement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing foster close: %w", err)
	}

	return GetFosterAssignment(ctx, db, id)
}
