package model

import "time"

// OwnershipRecord is one row of the append-only ownership ledger. A nil ToTS
// marks the current owner; at most one such row exists per pet. Rows are only
// ever closed (ToTS set) or appended, never rewritten.
type OwnershipRecord struct {
	ID         int64      `json:"id"`
	PetID      int64      `json:"pet_id"`
	UserID     int64      `json:"user_id"`
	Provenance string     `json:"provenance"`
	FromTS     time.Time  `json:"from_ts"`
	ToTS       *time.Time `json:"to_ts,omitempty"`
}

// Ledger row provenance. Recorded rows come from observed events;
// seed-estimated rows are defensive backfills for pets that predate the
// ledger, with FromTS inferred from the earliest known timestamp.
const (
	ProvenanceRecorded      = "recorded"
	ProvenanceSeedEstimated = "seed_estimated"
)
