// Package sweep runs the background housekeeping loop: placements past
// their expiry window are marked expired and handovers that were never
// confirmed or completed in time are canceled, unwinding their transfer
// requests.
package sweep

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/gnezdoapp/gnezdo/internal/observability"
	"github.com/gnezdoapp/gnezdo/internal/store"
)

// Sweeper periodically expires stale workflow entities.
type Sweeper struct {
	DB             *sql.DB
	Interval       time.Duration
	HandoverMaxAge time.Duration
	Logger         zerolog.Logger
}

// New creates a sweeper with the given cadence.
func New(db *sql.DB, interval, handoverMaxAge time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{DB: db, Interval: interval, HandoverMaxAge: handoverMaxAge, Logger: logger}
}

// Run sweeps immediately and then on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one housekeeping pass. Errors are logged, not returned;
// the next tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now().UTC()

	expired, err := store.ExpirePlacements(ctx, s.DB, now)
	if err != nil {
		s.Logger.Error().Err(err).Msg("expiring placements")
	} else if expired > 0 {
		observability.RecordSweepExpiration("placement", expired)
	}

	strays, err := store.ExpireTransferRequests(ctx, s.DB, now)
	if err != nil {
		s.Logger.Error().Err(err).Msg("expiring transfer requests")
	} else if strays > 0 {
		observability.RecordSweepExpiration("transfer", strays)
	}

	canceled, err := store.ExpireStaleHandovers(ctx, s.DB, now.Add(-s.HandoverMaxAge))
	if err != nil {
		s.Logger.Error().Err(err).Msg("expiring stale handovers")
	} else if canceled > 0 {
		observability.RecordSweepExpiration("handover", canceled)
	}

	if expired > 0 || strays > 0 || canceled > 0 {
		s.Logger.Info().
			Int64("placements_expired", expired).
			Int64("transfers_expired", strays).
			Int64("handovers_canceled", canceled).
			Msg("sweep finished")
	}
}
