// Package store implements all persistence and the transfer/handover
// workflow core. Functions take a *sql.DB and enforce authorization and
// state-machine invariants; transitions that must be race-free are guarded
// UPDATEs executed first inside their transaction, so the SQLite write lock
// is held while the rest of the transaction runs.
package store

import (
	"context"
	"database/sql"
	"strings"
)

// dbtx is the subset of *sql.DB and *sql.Tx the store queries through, so
// row loaders work both inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
