// Package store holds the Postgres-backed stores. Queries are built with
// squirrel and scanned with sqlx.
package store

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const (
	TableUsers    = "users"
	TableEntries  = "diary_entries"
	TableAdmins   = "admins"
	TableConsents = "consent_records"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidID is returned for identifiers the uuid column would reject.
	ErrInvalidID = errors.New("store: invalid identifier")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func errorSqlBuild(err error) error {
	return fmt.Errorf("store: build sql: %w", err)
}
