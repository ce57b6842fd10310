// Package postgres adapts a PostgreSQL connection into a probe for the wait
// engine, for waits like "block until the database accepts connections" or
// "block until the migration has populated this table".
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

// ErrUnavailable is the transient failure kind raised when the database does
// not answer. Callers waiting for the database to come up list it in
// Spec.Ignore.
var ErrUnavailable = errors.New("database unavailable")

// Querier is the slice of a pgx pool the probe needs. *pgxpool.Pool
// implements it, as does the pgxmock pool used in tests.
type Querier interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database is the probe handle wrapping a live connection pool.
type Database struct {
	q      Querier
	logger *zap.Logger
	closer func()
}

// New wraps an existing Querier. The caller keeps ownership of the
// underlying pool.
func New(q Querier, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{q: q, logger: logger}
}

// Connect opens a pgx pool for the given DSN and wraps it. Close releases
// the pool. Connect itself does not wait for the server; pair it with
// Reachable and an engine that ignores ErrUnavailable.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("configuring database pool: %w", err)
	}
	db := New(pool, logger)
	db.closer = pool.Close
	return db, nil
}

// Close releases the pool if this Database owns one.
func (d *Database) Close() {
	if d.closer != nil {
		d.closer()
	}
}

// Reachable waits for the database to answer a ping.
func Reachable() wait.Condition[*Database] {
	return wait.New("database reachable", func(ctx context.Context, d *Database) wait.Outcome {
		if err := d.q.Ping(ctx); err != nil {
			return wait.Failed(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		return wait.Satisfied(true)
	})
}

// RowCount waits for a single-value count query ("SELECT count(*) FROM
// jobs") to return exactly want. The satisfied value is the count.
func RowCount(query string, want int64) wait.Condition[*Database] {
	return wait.New(fmt.Sprintf("query returns count %d", want), func(ctx context.Context, d *Database) wait.Outcome {
		var count int64
		if err := d.q.QueryRow(ctx, query).Scan(&count); err != nil {
			return wait.Failed(err)
		}
		if count != want {
			return wait.NotYetBecause("count is %d", count)
		}
		return wait.Satisfied(count)
	})
}

// RowExists waits for the query to return at least one row. The query should
// select a single column; the satisfied value is that column of the first
// row. A pgx.ErrNoRows result keeps the wait polling.
func RowExists(query string, args ...any) wait.Condition[*Database] {
	return wait.New(fmt.Sprintf("query %q returns a row", query), func(ctx context.Context, d *Database) wait.Outcome {
		var value any
		err := d.q.QueryRow(ctx, query, args...).Scan(&value)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return wait.NotYetBecause("no matching row")
		case err != nil:
			return wait.Failed(err)
		default:
			return wait.Satisfied(value)
		}
	})
}
