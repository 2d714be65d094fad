package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatcherDeliversEvents(t *testing.T) {
	var mu sync.Mutex
	var got []Event

	d := NewDispatcher(SenderFunc(func(_ context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
		return nil
	}), zerolog.Nop())

	d.Notify(context.Background(), 1, EventTransferAccepted, map[string]any{"transfer_request_id": int64(7)})
	d.NotifyAll(context.Background(), []int64{2, 3}, EventHandoverCompleted, nil)
	d.Close()

	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	ids := make(map[string]bool)
	for _, e := range got {
		if e.ID == "" {
			t.Error("event without ID")
		}
		if ids[e.ID] {
			t.Errorf("duplicate event ID %s", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestDispatcherSwallowsSenderFailure(t *testing.T) {
	d := NewDispatcher(SenderFunc(func(_ context.Context, _ Event) error {
		return errors.New("smtp down")
	}), zerolog.Nop())

	// Must not panic or propagate.
	d.Notify(context.Background(), 1, EventHandoverCanceled, nil)
	d.Close()
}

func TestNotifySurvivesCanceledContext(t *testing.T) {
	delivered := make(chan struct{})
	d := NewDispatcher(SenderFunc(func(ctx context.Context, _ Event) error {
		select {
		case <-ctx.Done():
			t.Error("send context canceled with the request context")
		default:
		}
		close(delivered)
		return nil
	}), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Notify(ctx, 1, EventHandoverCompleted, nil)
	d.Close()
	<-delivered
}
