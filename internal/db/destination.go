package db

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// PgxDestination adapts *pgxpool.Pool to pgload.Destination. Transactions it
// opens also implement pgload.Copier, which enables COPY FROM STDIN.
//
// Thread-Safety: Safe for concurrent use (pgxpool.Pool is thread-safe).
type PgxDestination struct {
	pool   *pgxpool.Pool
	closer io.Closer
}

// NewPgxDestination wraps pool. closer, when non-nil, is closed after the
// pool, which is how the Cloud SQL dialer is released.
func NewPgxDestination(pool *pgxpool.Pool, closer io.Closer) *PgxDestination {
	return &PgxDestination{pool: pool, closer: closer}
}

// Connect opens a pool through connector and wraps it.
func Connect(ctx context.Context, connector pgload.Connector) (*PgxDestination, error) {
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	closer, _ := connector.(io.Closer)
	return NewPgxDestination(pool, closer), nil
}

func (d *PgxDestination) Begin(ctx context.Context) (pgload.Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (d *PgxDestination) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (d *PgxDestination) QueryInt(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := d.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *PgxDestination) Driver() pgload.Driver {
	return pgload.DriverPostgres
}

// Close closes the pool and then the optional closer. Safe to call more than once.
func (d *PgxDestination) Close() error {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	if d.closer != nil {
		err := d.closer.Close()
		d.closer = nil
		return err
	}
	return nil
}

// pgxTx adapts pgx.Tx to pgload.Tx and pgload.Copier.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error) {
	return t.tx.CopyFrom(ctx, pgx.Identifier(table), columns, pgx.CopyFromRows(rows))
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback is a no-op after Commit.
func (t *pgxTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var (
	_ pgload.Destination = (*PgxDestination)(nil)
	_ pgload.Copier      = (*pgxTx)(nil)
)
