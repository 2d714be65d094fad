package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// CurrentOwner returns the open ledger row for a pet, or nil when the pet
// predates the ledger and no seed row exists yet.
func CurrentOwner(ctx context.Context, db *sql.DB, petID int64) (*model.OwnershipRecord, error) {
	r := &model.OwnershipRecord{}
	err := db.QueryRowContext(ctx,
		`SELECT id, pet_id, user_id, provenance, from_ts, to_ts
		 FROM ownership_history WHERE pet_id = ? AND to_ts IS NULL`, petID,
	).Scan(&r.ID, &r.PetID, &r.UserID, &r.Provenance, &r.FromTS, &r.ToTS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting current owner: %w", err)
	}
	return r, nil
}

// OwnershipHistory returns the full ledger for a pet, newest first.
func OwnershipHistory(ctx context.Context, db *sql.DB, petID int64) ([]model.OwnershipRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, pet_id, user_id, provenance, from_ts, to_ts
		 FROM ownership_history WHERE pet_id = ? ORDER BY from_ts DESC, id DESC`, petID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting ownership history: %w", err)
	}
	defer rows.Close()

	var records []model.OwnershipRecord
	for rows.Next() {
		var r model.OwnershipRecord
		if err := rows.Scan(&r.ID, &r.PetID, &r.UserID, &r.Provenance, &r.FromTS, &r.ToTS); err != nil {
			return nil, fmt.Errorf("scanning ownership record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
