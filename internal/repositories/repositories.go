package repositories

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned by lookups when no row matches. Callers wrap it
// with entity context before surfacing.
var ErrNotFound = errors.New("not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx. The recompute pipeline
// runs every read inside the mutating transaction, so repository methods
// accept either.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
