package store

import (
	"context"
	"testing"

	"github.com/gnezdoapp/gnezdo/internal/model"
)

// countOpenRows returns the number of open ledger rows for a pet. The
// invariant is at most one, enforced by the partial unique index.
func countOpenRows(t *testing.T, f *fixture) int {
	t.Helper()
	var n int
	err := f.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM ownership_history WHERE pet_id = ? AND to_ts IS NULL`, f.pet.ID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("counting open rows: %v", err)
	}
	return n
}

func TestLedgerSingleOpenRowThroughChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if n := countOpenRows(t, f); n != 1 {
		t.Fatalf("expected 1 open row after creation, got %d", n)
	}

	// First permanent transfer: owner → helper.
	_, handover := f.acceptedTransfer(t, model.PlacementTypePermanent)
	if _, err := CompleteHandover(ctx, f.db, f.owner, handover.ID); err != nil {
		t.Fatalf("first transfer: %v", err)
	}
	if n := countOpenRows(t, f); n != 1 {
		t.Errorf("expected 1 open row after first transfer, got %d", n)
	}

	// Second transfer: helper places the pet, a third user takes it.
	third, _ := CreateUser(ctx, f.db, "third", "hash", model.RoleUser)
	thirdActor := model.Actor{ID: third.ID, Role: third.Role}

	placement, err := CreatePlacement(ctx, f.db, f.helper, f.pet.ID, model.PlacementTypePermanent, nil, nil)
	if err != nil {
		t.Fatalf("second placement: %v", err)
	}
	transfer, err := RespondToPlacement(ctx, f.db, thirdActor, placement.ID, "")
	if err != nil {
		t.Fatalf("third responding: %v", err)
	}
	_, handover2, err := AcceptTransferRequest(ctx, f.db, f.helper, transfer.ID)
	if err != nil {
		t.Fatalf("helper accepting: %v", err)
	}
	if _, err := CompleteHandover(ctx, f.db, thirdActor, handover2.ID); err != nil {
		t.Fatalf("second transfer: %v", err)
	}

	if n := countOpenRows(t, f); n != 1 {
		t.Errorf("expected 1 open row after second transfer, got %d", n)
	}

	history, err := OwnershipHistory(ctx, f.db, f.pet.ID)
	if err != nil {
		t.Fatalf("OwnershipHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 ledger rows, got %d", len(history))
	}
	if history[0].UserID != third.ID || history[0].ToTS != nil {
		t.Errorf("expected open row for third user, got %+v", history[0])
	}
	// Closed rows never reopen.
	for _, r := range history[1:] {
		if r.ToTS == nil {
			t.Errorf("expected closed historical row, got %+v", r)
		}
	}
}

func TestCurrentOwnerNilWithoutLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.db.ExecContext(ctx, `DELETE FROM ownership_history WHERE pet_id = ?`, f.pet.ID); err != nil {
		t.Fatal(err)
	}

	record, err := CurrentOwner(ctx, f.db, f.pet.ID)
	if err != nil {
		t.Fatalf("CurrentOwner: %v", err)
	}
	if record != nil {
		t.Errorf("expected nil for ledger gap, got %+v", record)
	}
}
