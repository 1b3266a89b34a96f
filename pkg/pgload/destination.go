package pgload

import "context"

// Tx is a single database transaction against the destination.
// Rollback after a successful Commit must be a harmless no-op.
type Tx interface {
	// Exec executes a statement inside the transaction and returns the number of affected rows.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Commit makes every statement executed in the transaction visible.
	Commit(ctx context.Context) error

	// Rollback discards every statement executed in the transaction.
	Rollback(ctx context.Context) error
}

// Copier is implemented by transactions that support a native bulk-load
// protocol (PostgreSQL COPY FROM STDIN).
type Copier interface {
	CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error)
}

// TxBeginner opens transactions. It is the only capability the insertion
// executor needs from the destination.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// Destination is the relational database a load writes into.
//
// Implementations:
//   - db.PgxDestination: PostgreSQL through a pgx connection pool
//   - sqldb.Destination: MySQL, SQLite and SQL Server through database/sql
type Destination interface {
	TxBeginner

	// Exec runs a statement outside an explicit transaction (DDL, TRUNCATE).
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// QueryInt runs a query that returns a single integer column in a single row,
	// such as SELECT COUNT(*).
	QueryInt(ctx context.Context, sql string, args ...any) (int64, error)

	// Driver reports which database family the destination talks to.
	Driver() Driver

	// Close releases the underlying connections. Safe to call more than once.
	Close() error
}
