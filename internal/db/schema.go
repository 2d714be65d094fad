package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS pets (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    species     TEXT NOT NULL,
    description TEXT,
    user_id     INTEGER NOT NULL REFERENCES users(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS placement_requests (
    id            INTEGER PRIMARY KEY,
    pet_id        INTEGER NOT NULL REFERENCES pets(id),
    owner_user_id INTEGER NOT NULL REFERENCES users(id),
    request_type  TEXT NOT NULL CHECK (request_type IN ('foster_paid', 'foster_free', 'permanent')),
    status        TEXT NOT NULL DEFAULT 'open' CHECK (status IN (
                      'open', 'pending_review', 'fulfilled', 'pending_transfer',
                      'active', 'finalized', 'expired', 'cancelled')),
    end_date      DATETIME,
    expires_at    DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_placement_requests_one_live
    ON placement_requests(pet_id) WHERE status NOT IN ('finalized', 'expired', 'cancelled');

CREATE TABLE IF NOT EXISTS transfer_requests (
    id                   INTEGER PRIMARY KEY,
    pet_id               INTEGER NOT NULL REFERENCES pets(id),
    placement_request_id INTEGER NOT NULL REFERENCES placement_requests(id),
    initiator_user_id    INTEGER NOT NULL REFERENCES users(id),
    recipient_user_id    INTEGER NOT NULL REFERENCES users(id),
    relationship_type    TEXT NOT NULL CHECK (relationship_type IN ('permanent_foster', 'fostering')),
    status               TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                             'pending', 'accepted', 'rejected', 'canceled', 'expired')),
    message              TEXT,
    accepted_at          DATETIME,
    rejected_at          DATETIME,
    created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transfer_requests_one_live
    ON transfer_requests(placement_request_id) WHERE status IN ('pending', 'accepted');

CREATE TABLE IF NOT EXISTS transfer_handovers (
    id                  INTEGER PRIMARY KEY,
    transfer_request_id INTEGER NOT NULL REFERENCES transfer_requests(id),
    owner_user_id       INTEGER NOT NULL REFERENCES users(id),
    helper_user_id      INTEGER NOT NULL REFERENCES users(id),
    scheduled_at        DATETIME,
    location            TEXT,
    status              TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                            'pending', 'confirmed', 'completed', 'canceled', 'disputed')),
    condition_confirmed INTEGER,
    condition_notes     TEXT,
    owner_initiated_at  DATETIME,
    helper_confirmed_at DATETIME,
    completed_at        DATETIME,
    canceled_at         DATETIME,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transfer_handovers_one_live
    ON transfer_handovers(transfer_request_id) WHERE status IN ('pending', 'confirmed');

CREATE TABLE IF NOT EXISTS handover_disputes (
    id                INTEGER PRIMARY KEY,
    handover_id       INTEGER NOT NULL REFERENCES transfer_handovers(id),
    raised_by_user_id INTEGER NOT NULL REFERENCES users(id),
    reason            TEXT,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS foster_assignments (
    id                  INTEGER PRIMARY KEY,
    pet_id              INTEGER NOT NULL REFERENCES pets(id),
    owner_user_id       INTEGER NOT NULL REFERENCES users(id),
    foster_user_id      INTEGER NOT NULL REFERENCES users(id),
    transfer_request_id INTEGER NOT NULL REFERENCES transfer_requests(id),
    start_date          DATETIME NOT NULL,
    expected_end_date   DATETIME,
    status              TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'canceled')),
    completed_at        DATETIME,
    canceled_at         DATETIME,
    cancellation_reason TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (pet_id, owner_user_id, foster_user_id, transfer_request_id)
);

CREATE TABLE IF NOT EXISTS ownership_history (
    id         INTEGER PRIMARY KEY,
    pet_id     INTEGER NOT NULL REFERENCES pets(id),
    user_id    INTEGER NOT NULL REFERENCES users(id),
    provenance TEXT NOT NULL DEFAULT 'recorded' CHECK (provenance IN ('recorded', 'seed_estimated')),
    from_ts    DATETIME NOT NULL,
    to_ts      DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ownership_history_one_open
    ON ownership_history(pet_id) WHERE to_ts IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist,
// then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
