package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// CreatePet creates a pet and seeds its ownership ledger with an open row in
// the same transaction, so every pet has a current-owner record from birth.
func CreatePet(ctx context.Context, db *sql.DB, name, species, description string, ownerID int64) (*model.Pet, error) {
	if name == "" || species == "" {
		return nil, fmt.Errorf("%w: name and species are required", model.ErrValidation)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO pets (name, species, description, user_id) VALUES (?, ?, ?, ?)`,
		name, species, description, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating pet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting pet id: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ownership_history (pet_id, user_id, provenance, from_ts) VALUES (?, ?, ?, ?)`,
		id, ownerID, model.ProvenanceRecorded, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("seeding ownership ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pet: %w", err)
	}

	return GetPet(ctx, db, id)
}

// GetPet returns a pet by ID.
func GetPet(ctx context.Context, db *sql.DB, id int64) (*model.Pet, error) {
	return getPet(ctx, db, id)
}

func getPet(ctx context.Context, q dbtx, id int64) (*model.Pet, error) {
	p := &model.Pet{}
	var description sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, name, species, description, user_id, created_at, updated_at, deleted_at
		 FROM pets WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Species, &description, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pet: %w", err)
	}
	p.Description = description.String
	return p, nil
}

// ListPets returns all non-deleted pets, optionally filtered by owner.
func ListPets(ctx context.Context, db *sql.DB, ownerID int64) ([]model.Pet, error) {
	query := `SELECT id, name, species, description, user_id, created_at, updated_at, deleted_at
	          FROM pets WHERE deleted_at IS NULL`
	var args []any

	if ownerID > 0 {
		query += ` AND user_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pets: %w", err)
	}
	defer rows.Close()

	var pets []model.Pet
	for rows.Next() {
		var p model.Pet
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Species, &description, &p.UserID, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning pet: %w", err)
		}
		p.Description = description.String
		pets = append(pets, p)
	}
	return pets, rows.Err()
}

// UpdatePet updates a pet's descriptive fields. Only the current owner or an
// admin may update.
func UpdatePet(ctx context.Context, db *sql.DB, actor model.Actor, id int64, name, species, description string) error {
	pet, err := GetPet(ctx, db, id)
	if err != nil {
		return err
	}
	if pet == nil || pet.DeletedAt != nil {
		return fmt.Errorf("%w: pet %d", model.ErrNotFound, id)
	}
	if !actor.IsOwnerOf(pet) && !actor.HasRole(model.RoleAdmin) {
		return fmt.Errorf("%w: only the owner may update pet %d", model.ErrForbidden, id)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE pets SET name = ?, species = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, species, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating pet: %w", err)
	}
	return nil
}

// DeletePet soft-deletes a pet. Pets with a placement still moving through
// the workflow cannot be deleted.
func DeletePet(ctx context.Context, db *sql.DB, actor model.Actor, id int64) error {
	pet, err := GetPet(ctx, db, id)
	if err != nil {
		return err
	}
	if pet == nil || pet.DeletedAt != nil {
		return fmt.Errorf("%w: pet %d", model.ErrNotFound, id)
	}
	if !actor.IsOwnerOf(pet) && !actor.HasRole(model.RoleAdmin) {
		return fmt.Errorf("%w: only the owner may delete pet %d", model.ErrForbidden, id)
	}

	var live int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM placement_requests
		 WHERE pet_id = ? AND status NOT IN ('finalized', 'expired', 'cancelled')`,
		id,
	).Scan(&live)
	if err != nil {
		return fmt.Errorf("checking live placements: %w", err)
	}
	if live > 0 {
		return fmt.Errorf("%w: pet %d has a placement in progress", model.ErrConflict, id)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE pets SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting pet: %w", err)
	}
	return nil
}
