// Package notify implements the best-effort notification contract: workflow
// operations announce events to interested users after their transaction
// commits. Dispatch is fire-and-forget; a failing sender is logged and
// counted but never surfaces to the caller or reverses committed state.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gnezdoapp/gnezdo/internal/observability"
)

// Event types dispatched by the workflow.
const (
	EventTransferAccepted  = "transfer.accepted"
	EventTransferRejected  = "transfer.rejected"
	EventHandoverScheduled = "handover.scheduled"
	EventHandoverCompleted = "handover.completed"
	EventHandoverCanceled  = "handover.canceled"
	EventHandoverDisputed  = "handover.disputed"
	EventFosterCompleted   = "foster.completed"
	EventFosterCanceled    = "foster.canceled"
)

// Event is one notification to one user.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     int64          `json:"user_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Sender delivers a single event. Delivery transports (mail, chat bots) plug
// in here; the default just logs.
type Sender interface {
	Send(ctx context.Context, event Event) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, event Event) error

func (f SenderFunc) Send(ctx context.Context, event Event) error { return f(ctx, event) }

// LogSender is the default transport: it records the event in the log.
func LogSender(logger zerolog.Logger) Sender {
	return SenderFunc(func(_ context.Context, event Event) error {
		logger.Info().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Int64("user_id", event.UserID).
			Msg("notification")
		return nil
	})
}

// Dispatcher fans events out asynchronously.
type Dispatcher struct {
	sender Sender
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher around the given sender.
func NewDispatcher(sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Notify dispatches one event to one user in the background. It never
// returns an error and never blocks on delivery; the caller's transaction
// has already committed and must not appear to fail because a notification
// could not be sent.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, eventType string, payload map[string]any) {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// Detach from the request context: the HTTP request may finish
		// before delivery does.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()

		if err := d.sender.Send(sendCtx, event); err != nil {
			observability.RecordNotifyFailure(event.Type)
			d.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.Type).
				Int64("user_id", event.UserID).
				Msg("notification delivery failed")
		}
	}()
}

// NotifyAll dispatches the same event to several users.
func (d *Dispatcher) NotifyAll(ctx context.Context, userIDs []int64, eventType string, payload map[string]any) {
	for _, id := range userIDs {
		d.Notify(ctx, id, eventType, payload)
	}
}

// Close waits for in-flight dispatches to finish.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
