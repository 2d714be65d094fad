package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// activeFoster walks the fostering workflow to an active assignment.
func activeFoster(t *testing.T, f *fixture) *model.FosterAssignment {
	t.Helper()
	ctx := context.Background()

	_, handover := f.acceptedTransfer(t, model.PlacementTypeFosterFree)
	result, err := CompleteHandover(ctx, f.db, f.helper, handover.ID)
	if err != nil {
		t.Fatalf("CompleteHandover: %v", err)
	}
	return result.Foster
}

func TestCompleteFosterAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)

	completed, err := CompleteFosterAssignment(ctx, f.db, f.owner, foster.ID)
	if err != nil {
		t.Fatalf("CompleteFosterAssignment: %v", err)
	}
	if completed.Status != model.FosterStatusCompleted {
		t.Errorf("expected completed, got %q", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("expected completed_at")
	}

	transfer, _ := GetTransferRequest(ctx, f.db, foster.TransferRequestID)
	placement, _ := GetPlacement(ctx, f.db, transfer.PlacementRequestID)
	if placement.Status != model.PlacementStatusFinalized {
		t.Errorf("expected finalized placement, got %q", placement.Status)
	}
}

func TestCancelFosterAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)

	canceled, err := CancelFosterAssignment(ctx, f.db, f.helper, foster.ID, "moving abroad")
	if err != nil {
		t.Fatalf("CancelFosterAssignment: %v", err)
	}
	if canceled.Status != model.FosterStatusCanceled {
		t.Errorf("expected canceled, got %q", canceled.Status)
	}
	if canceled.CancellationReason != "moving abroad" {
		t.Errorf("expected reason, got %q", canceled.CancellationReason)
	}

	// Early cancellation still finalizes the placement; custody reverts to
	// the owner without any ledger change.
	transfer, _ := GetTransferRequest(ctx, f.db, foster.TransferRequestID)
	placement, _ := GetPlacement(ctx, f.db, transfer.PlacementRequestID)
	if placement.Status != model.PlacementStatusFinalized {
		t.Errorf("expected finalized placement, got %q", placement.Status)
	}
	pet, _ := GetPet(ctx, f.db, f.pet.ID)
	if pet.UserID != f.owner.ID {
		t.Errorf("expected pet to stay with owner, got %d", pet.UserID)
	}
}

func TestCloseFosterAssignmentTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)
	if _, err := CompleteFosterAssignment(ctx, f.db, f.owner, foster.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}

	if _, err := CancelFosterAssignment(ctx, f.db, f.owner, foster.ID, ""); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict closing twice, got %v", err)
	}
}

func TestCloseFosterAssignmentStranger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)
	stranger, _ := CreateUser(ctx, f.db, "stranger", "hash", model.RoleUser)

	_, err := CompleteFosterAssignment(ctx, f.db, model.Actor{ID: stranger.ID, Role: stranger.Role}, foster.ID)
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestPetPlaceableAfterFosterEnds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)
	if _, err := CompleteFosterAssignment(ctx, f.db, f.owner, foster.ID); err != nil {
		t.Fatalf("CompleteFosterAssignment: %v", err)
	}

	// Finalized placement frees the pet for a new one.
	if _, err := CreatePlacement(ctx, f.db, f.owner, f.pet.ID, model.PlacementTypePermanent, nil, nil); err != nil {
		t.Errorf("expected new placement after foster ended: %v", err)
	}
}

func TestListFosterAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	foster := activeFoster(t, f)

	byPet, err := ListFosterAssignments(ctx, f.db, f.pet.ID, 0, "")
	if err != nil {
		t.Fatalf("ListFosterAssignments: %v", err)
	}
	if len(byPet) != 1 || byPet[0].ID != foster.ID {
		t.Errorf("expected the assignment by pet, got %v", byPet)
	}

	byUser, _ := ListFosterAssignments(ctx, f.db, 0, f.helper.ID, model.FosterStatusActive)
	if len(byUser) != 1 {
		t.Errorf("expected 1 active assignment for helper, got %d", len(byUser))
	}

	none, _ := ListFosterAssignments(ctx, f.db, 0, f.helper.ID, model.FosterStatusCompleted)
	if len(none) != 0 {
		t.Errorf("expected no completed assignments, got %d", len(none))
	}
}
