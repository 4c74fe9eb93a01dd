// Package store persists imports in PostgreSQL using pgx.
//
// The schema lives in migrations/ and is applied with MigrateUp. Uniqueness
// is enforced by constraints (MPAN, meter per meter point, reading per meter,
// register and date, flow file name); get-or-create is an
// INSERT ... ON CONFLICT DO NOTHING followed by a lookup when nothing was
// inserted.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const (
	pgUniqueViolation      = "23505"
	flowFileFilenameUnique = "flow_files_filename_key"
)

// Postgres is a core.Store backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Postgres)(nil)

// New returns a store using pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Ping implements core.Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// FlowFileExists implements core.Store.
func (p *Postgres) FlowFileExists(ctx context.Context, filename string) (bool, error) {
	return flowFileExists(ctx, p.pool, filename)
}

// WithTx implements core.Store. fn's writes commit together or not at all.
func (p *Postgres) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
