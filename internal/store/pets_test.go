package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gnezdoapp/gnezdo/internal/db"
	"github.com/gnezdoapp/gnezdo/internal/model"
)

func TestCreatePetSeedsOwnershipLedger(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	pet, err := CreatePet(ctx, database, "Luna", "dog", "", owner.ID)
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}

	record, err := CurrentOwner(ctx, database, pet.ID)
	if err != nil {
		t.Fatalf("CurrentOwner: %v", err)
	}
	if record == nil {
		t.Fatal("expected a seeded open ownership row")
	}
	if record.UserID != owner.ID {
		t.Errorf("expected owner %d, got %d", owner.ID, record.UserID)
	}
	if record.Provenance != model.ProvenanceRecorded {
		t.Errorf("expected recorded provenance, got %q", record.Provenance)
	}
	if record.ToTS != nil {
		t.Error("seed row should be open")
	}
}

func TestCreatePetValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, _ := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	if _, err := CreatePet(ctx, database, "", "dog", "", owner.ID); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdatePetOnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := UpdatePet(ctx, f.db, f.helper, f.pet.ID, "Luna", "dog", "not mine")
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}

	if err := UpdatePet(ctx, f.db, f.owner, f.pet.ID, "Luna", "dog", "updated"); err != nil {
		t.Fatalf("UpdatePet as owner: %v", err)
	}
	pet, _ := GetPet(ctx, f.db, f.pet.ID)
	if pet.Description != "updated" {
		t.Errorf("expected updated description, got %q", pet.Description)
	}
}

func TestDeletePetBlockedByLivePlacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.openPlacement(t, model.PlacementTypePermanent)

	if err := DeletePet(ctx, f.db, f.owner, f.pet.ID); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict while placement is live, got %v", err)
	}
}

func TestDeletePetSoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := DeletePet(ctx, f.db, f.owner, f.pet.ID); err != nil {
		t.Fatalf("DeletePet: %v", err)
	}

	pet, _ := GetPet(ctx, f.db, f.pet.ID)
	if pet == nil || pet.DeletedAt == nil {
		t.Error("expected soft-deleted pet to remain with deleted_at set")
	}

	pets, _ := ListPets(ctx, f.db, f.owner.ID)
	if len(pets) != 0 {
		t.Errorf("expected no listed pets after delete, got %d", len(pets))
	}

	if err := DeletePet(ctx, f.db, f.owner, f.pet.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found on double delete, got %v", err)
	}
}
