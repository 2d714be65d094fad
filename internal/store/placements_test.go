package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

func TestCreatePlacement(t *testing.T) {
	f := newFixture(t)

	placement := f.openPlacement(t, model.PlacementTypeFosterFree)
	if placement.Status != model.PlacementStatusOpen {
		t.Errorf("expected open, got %q", placement.Status)
	}
	if placement.OwnerUserID != f.owner.ID {
		t.Errorf("expected owner %d, got %d", f.owner.ID, placement.OwnerUserID)
	}
	if placement.PetName != "Luna" {
		t.Errorf("expected joined pet name, got %q", placement.PetName)
	}
}

func TestCreatePlacementInvalidType(t *testing.T) {
	f := newFixture(t)

	_, err := CreatePlacement(context.Background(), f.db, f.owner, f.pet.ID, "adoption", nil, nil)
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreatePlacementOnlyOwner(t *testing.T) {
	f := newFixture(t)

	_, err := CreatePlacement(context.Background(), f.db, f.helper, f.pet.ID, model.PlacementTypePermanent, nil, nil)
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestCreatePlacementOnePerPet(t *testing.T) {
	f := newFixture(t)

	f.openPlacement(t, model.PlacementTypePermanent)
	_, err := CreatePlacement(context.Background(), f.db, f.owner, f.pet.ID, model.PlacementTypeFosterFree, nil, nil)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict for second live placement, got %v", err)
	}
}

func TestCreatePlacementConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Both creators pass the ownership check before either inserts; the
	// partial unique index on live placements must leave exactly one row.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = CreatePlacement(ctx, f.db, f.owner, f.pet.ID, model.PlacementTypePermanent, nil, nil)
		}(i)
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, model.ErrConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || conflicted != 1 {
		t.Errorf("expected exactly one winner and one conflict, got %d/%d", won, conflicted)
	}

	placements, err := ListPlacements(ctx, f.db, "", f.owner.ID)
	if err != nil {
		t.Fatalf("ListPlacements: %v", err)
	}
	if len(placements) != 1 {
		t.Errorf("expected a single placement after the race, got %d", len(placements))
	}
}

func TestCancelPlacementCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	transfer, handover := f.acceptedTransfer(t, model.PlacementTypeFosterFree)

	placement, err := CancelPlacement(ctx, f.db, f.owner, transfer.PlacementRequestID)
	if err != nil {
		t.Fatalf("CancelPlacement: %v", err)
	}
	if placement.Status != model.PlacementStatusCancelled {
		t.Errorf("expected cancelled, got %q", placement.Status)
	}

	transfer, _ = GetTransferRequest(ctx, f.db, transfer.ID)
	if transfer.Status != model.TransferStatusCanceled {
		t.Errorf("expected canceled transfer, got %q", transfer.Status)
	}

	handover, _ = GetHandover(ctx, f.db, handover.ID)
	if handover.Status != model.HandoverStatusCanceled {
		t.Errorf("expected canceled handover, got %q", handover.Status)
	}
}

func TestCancelPlacementOnlyOwner(t *testing.T) {
	f := newFixture(t)

	placement := f.openPlacement(t, model.PlacementTypePermanent)
	_, err := CancelPlacement(context.Background(), f.db, f.helper, placement.ID)
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestCancelFinalizedPlacementConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, handover := f.acceptedTransfer(t, model.PlacementTypePermanent)
	result, err := CompleteHandover(ctx, f.db, f.owner, handover.ID)
	if err != nil {
		t.Fatalf("CompleteHandover: %v", err)
	}

	_, err = CancelPlacement(ctx, f.db, f.owner, result.Placement.ID)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected conflict cancelling finalized placement, got %v", err)
	}
}

func TestExpirePlacements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	placement, err := CreatePlacement(ctx, f.db, f.owner, f.pet.ID, model.PlacementTypeFosterPaid, nil, &past)
	if err != nil {
		t.Fatalf("CreatePlacement: %v", err)
	}

	transfer, err := RespondToPlacement(ctx, f.db, f.helper, placement.ID, "")
	if err != nil {
		t.Fatalf("RespondToPlacement: %v", err)
	}

	n, err := ExpirePlacements(ctx, f.db, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpirePlacements: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired placement, got %d", n)
	}

	placement, _ = GetPlacement(ctx, f.db, placement.ID)
	if placement.Status != model.PlacementStatusExpired {
		t.Errorf("expected expired placement, got %q", placement.Status)
	}
	transfer, _ = GetTransferRequest(ctx, f.db, transfer.ID)
	if transfer.Status != model.TransferStatusExpired {
		t.Errorf("expected expired transfer request, got %q", transfer.Status)
	}

	// Re-running is a no-op.
	n, err = ExpirePlacements(ctx, f.db, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpirePlacements rerun: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 on rerun, got %d", n)
	}
}

func TestExpirePlacementsLeavesFulfilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	placement, err := CreatePlacement(ctx, f.db, f.owner, f.pet.ID, model.PlacementTypeFosterFree, nil, &past)
	if err != nil {
		t.Fatalf("CreatePlacement: %v", err)
	}
	transfer, err := RespondToPlacement(ctx, f.db, f.helper, placement.ID, "")
	if err != nil {
		t.Fatalf("RespondToPlacement: %v", err)
	}
	if _, _, err := AcceptTransferRequest(ctx, f.db, f.owner, transfer.ID); err != nil {
		t.Fatalf("AcceptTransferRequest: %v", err)
	}

	// Fulfilled placements are past the expiry window's reach.
	n, err := ExpirePlacements(ctx, f.db, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpirePlacements: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no expirations, got %d", n)
	}
	placement, _ = GetPlacement(ctx, f.db, placement.ID)
	if placement.Status != model.PlacementStatusFulfilled {
		t.Errorf("expected fulfilled, got %q", placement.Status)
	}
}
