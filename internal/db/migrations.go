package db

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: ownership history rows created before provenance tracking
	// are exact records, not estimates.
	`UPDATE ownership_history SET provenance = 'recorded' WHERE provenance IS NULL`,

	// Migration 2: speed up ledger lookups by pet.
	`CREATE INDEX IF NOT EXISTS idx_ownership_history_pet ON ownership_history(pet_id)`,

	// Migration 3: speed up placement listings by owner and status.
	`CREATE INDEX IF NOT EXISTS idx_placement_requests_owner ON placement_requests(owner_user_id, status)`,

	// Migration 4: at most one live placement per pet, enforced by the
	// database rather than application checks.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_placement_requests_one_live
	    ON placement_requests(pet_id) WHERE status NOT IN ('finalized', 'expired', 'cancelled')`,
}
