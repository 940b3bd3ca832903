// Package repo contains all database access logic for the trip planner.
// Each aggregate has its own file with an interface and a Postgres
// implementation. No business logic lives here, only SQL and type mapping,
// plus the transactions that keep an entity map and its order array in step.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
// Tests pass a transaction that is rolled back after each test; Begin on a
// pgx.Tx opens a savepoint, so the repos' own transactions nest inside it.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// NewKey returns a new unique storage key. Keys are UUIDv7 strings, so they
// sort in creation order.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// wrapErr prefixes err with op. Lookup and validation failures keep their
// sentinel; anything else the database rejected is marked domain.ErrRemote.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrRemote, err)
}

// orNone avoids writing NULL into NOT NULL array columns.
func orNone(order []string) []string {
	if order == nil {
		return []string{}
	}
	return order
}
