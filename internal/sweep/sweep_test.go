package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gnezdoapp/gnezdo/internal/db"
	"github.com/gnezdoapp/gnezdo/internal/model"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

func TestSweepExpiresPlacements(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, database, "owner", "pw", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	pet, err := store.CreatePet(ctx, database, "Luna", "dog", "", owner.ID)
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}

	actor := model.Actor{ID: owner.ID, Role: owner.Role}
	past := time.Now().UTC().Add(-time.Hour)
	placement, err := store.CreatePlacement(ctx, database, actor, pet.ID, model.PlacementTypePermanent, nil, &past)
	if err != nil {
		t.Fatalf("CreatePlacement: %v", err)
	}

	s := New(database, time.Minute, time.Hour, zerolog.Nop())
	s.Sweep(ctx)

	got, err := store.GetPlacement(ctx, database, placement.ID)
	if err != nil {
		t.Fatalf("GetPlacement: %v", err)
	}
	if got.Status != model.PlacementStatusExpired {
		t.Errorf("expected expired placement, got %q", got.Status)
	}
}

func TestSweepLeavesFreshPlacements(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner, err := store.CreateUser(ctx, database, "owner", "pw", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	pet, err := store.CreatePet(ctx, database, "Miško", "cat", "", owner.ID)
	if err != nil {
		t.Fatalf("CreatePet: %v", err)
	}

	actor := model.Actor{ID: owner.ID, Role: owner.Role}
	future := time.Now().UTC().Add(24 * time.Hour)
	placement, err := store.CreatePlacement(ctx, database, actor, pet.ID, model.PlacementTypeFosterFree, nil, &future)
	if err != nil {
		t.Fatalf("CreatePlacement: %v", err)
	}

	s := New(database, time.Minute, time.Hour, zerolog.Nop())
	s.Sweep(ctx)

	got, err := store.GetPlacement(ctx, database, placement.ID)
	if err != nil {
		t.Fatalf("GetPlacement: %v", err)
	}
	if got.Status != model.PlacementStatusOpen {
		t.Errorf("expected placement to stay open, got %q", got.Status)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	database := db.NewTestDB(t)

	s := New(database, 10*time.Millisecond, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
