package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gnezdoapp/gnezdo/internal/db"
	"github.com/gnezdoapp/gnezdo/internal/model"
)

// fixture bundles the cast of a typical workflow test: an owner with a pet
// and a helper willing to take it.
type fixture struct {
	db     *sql.DB
	owner  model.Actor
	helper model.Actor
	pet    *model.Pet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, err := CreateUser(ctx, database, "owner", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("creating owner: %v", err)
	}
	helper, err := CreateUser(ctx, database, "helper", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("creating helper: %v", err)
	}
	pet, err := CreatePet(ctx, database, "Luna", "dog", "friendly husky mix", owner.ID)
	if err != nil {
		t.Fatalf("creating pet: %v", err)
	}

	return &fixture{
		db:     database,
		owner:  model.Actor{ID: owner.ID, Role: owner.Role},
		helper: model.Actor{ID: helper.ID, Role: helper.Role},
		pet:    pet,
	}
}

// openPlacement creates a placement of the given type for the fixture pet.
func (f *fixture) openPlacement(t *testing.T, requestType string) *model.PlacementRequest {
	t.Helper()
	placement, err := CreatePlacement(context.Background(), f.db, f.owner, f.pet.ID, requestType, nil, nil)
	if err != nil {
		t.Fatalf("creating placement: %v", err)
	}
	return placement
}

// acceptedTransfer walks the happy path up to an accepted transfer request
// with its pending handover.
func (f *fixture) acceptedTransfer(t *testing.T, requestType string) (*model.TransferRequest, *model.Handover) {
	t.Helper()
	ctx := context.Background()

	placement := f.openPlacement(t, requestType)
	transfer, err := RespondToPlacement(ctx, f.db, f.helper, placement.ID, "happy to help")
	if err != nil {
		t.Fatalf("responding to placement: %v", err)
	}
	transfer, handover, err := AcceptTransferRequest(ctx, f.db, f.owner, transfer.ID)
	if err != nil {
		t.Fatalf("accepting transfer request: %v", err)
	}
	return transfer, handover
}
