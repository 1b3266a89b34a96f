package insert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/internal/retry"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// fakeDest is an in-memory destination. Rows written inside a transaction only
// become visible on Commit. failures is consumed one entry per Exec call.
type fakeDest struct {
	mu        sync.Mutex
	committed [][]any
	failures  []error
	begins    int
	rollbacks int
	commits   int
	stmts     []string
	copies    int
	copyable  bool
	beginErr  error
	onExec    func()
}

func (d *fakeDest) Begin(ctx context.Context) (pgload.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.begins++
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	tx := &fakeTx{dest: d}
	if d.copyable {
		return &fakeCopyTx{fakeTx: tx}, nil
	}
	return tx, nil
}

func (d *fakeDest) visible() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.committed)
}

type fakeTx struct {
	dest    *fakeDest
	pending [][]any
	done    bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	d := t.dest
	if d.onExec != nil {
		d.onExec()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stmts = append(d.stmts, sql)
	if len(d.failures) > 0 {
		err := d.failures[0]
		d.failures = d.failures[1:]
		if err != nil {
			return 0, err
		}
	}
	width := strings.Count(sql[:strings.Index(sql, ")")], ",") + 1
	for i := 0; i < len(args); i += width {
		t.pending = append(t.pending, args[i:i+width])
	}
	return int64(len(args) / width), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	d := t.dest
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commits++
	d.committed = append(d.committed, t.pending...)
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	d := t.dest
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollbacks++
	t.pending = nil
	t.done = true
	return nil
}

type fakeCopyTx struct {
	*fakeTx
}

func (t *fakeCopyTx) CopyFrom(ctx context.Context, table []string, columns []string, rows [][]any) (int64, error) {
	t.dest.mu.Lock()
	t.dest.copies++
	t.dest.mu.Unlock()
	t.pending = append(t.pending, rows...)
	return int64(len(rows)), nil
}

func deadlock() error {
	return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
}

func makeBatch(index int64, n int) pgload.Batch {
	recs := make([]pgload.Record, n)
	for i := range recs {
		recs[i] = pgload.Record{fmt.Sprint(int(index)*n + i), fmt.Sprintf("name%d", i)}
	}
	return pgload.Batch{Index: index, FirstLine: index * int64(n), Records: recs}
}

func newTestExecutor(t *testing.T, dest pgload.TxBeginner, d dialect.Dialect) *Executor {
	t.Helper()
	e := NewExecutor(dest, retry.NewPostgreSQLErrorClassifier(), retry.ConstantBackoff{Retries: pgload.DefaultRetryMaxAttempts}, nil)
	require.NoError(t, e.Configure(Template{Table: "people", Columns: []string{"id", "name"}, Dialect: d}))
	return e
}

func TestInsertBatch_Success(t *testing.T) {
	dest := &fakeDest{}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 5))
	require.NoError(t, err)
	assert.Equal(t, pgload.BatchCommitted, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 0, out.Retries)
	assert.Equal(t, int64(5), out.Rows)
	assert.Equal(t, 5, dest.visible())
	require.Len(t, dest.stmts, 1)
	assert.Equal(t,
		`INSERT INTO "people" ("id", "name") VALUES ($1, $2), ($3, $4), ($5, $6), ($7, $8), ($9, $10)`,
		dest.stmts[0])
}

// Five records, two transient failures, then success: committed once with all five rows.
func TestInsertBatch_TwoTransientFailuresThenCommit(t *testing.T) {
	dest := &fakeDest{failures: []error{deadlock(), deadlock()}}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 5))
	require.NoError(t, err)
	assert.Equal(t, pgload.BatchCommitted, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 2, out.Retries)
	assert.Equal(t, 5, dest.visible())
	assert.Equal(t, 2, dest.rollbacks)
	assert.Equal(t, 1, dest.commits)

	// The counter is per call: the next batch starts with a fresh budget.
	dest.failures = []error{deadlock(), deadlock(), deadlock()}
	out, err = e.InsertBatch(context.Background(), makeBatch(1, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Retries)
	assert.Equal(t, 10, dest.visible())
}

func TestInsertBatch_RetryBound(t *testing.T) {
	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("%d transient failures", k), func(t *testing.T) {
			failures := make([]error, k)
			for i := range failures {
				failures[i] = deadlock()
			}
			dest := &fakeDest{failures: failures}
			e := newTestExecutor(t, dest, dialect.Postgres)

			out, err := e.InsertBatch(context.Background(), makeBatch(0, 5))
			if k <= 3 {
				require.NoError(t, err)
				assert.Equal(t, pgload.BatchCommitted, out.State)
				assert.Equal(t, 5, dest.visible())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, pgload.ErrBatchFailed))
			assert.Equal(t, pgload.BatchFailed, out.State)
			assert.Equal(t, 4, out.Attempts)
			assert.Equal(t, int64(0), out.Rows)
			assert.Equal(t, 0, dest.visible(), "failed batch must leave no rows")
			assert.Equal(t, 4, dest.rollbacks)
		})
	}
}

func TestInsertBatch_NonTransientFailsImmediately(t *testing.T) {
	dest := &fakeDest{failures: []error{&pgconn.PgError{Code: "22001", Message: "value too long"}}}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgload.ErrBatchFailed))

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "22001", pgErr.Code)

	assert.Equal(t, pgload.BatchFailed, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, dest.begins)
	assert.Equal(t, 1, dest.rollbacks)
	assert.Equal(t, 0, dest.visible())
}

func TestInsertBatch_BeginFailureIsRetried(t *testing.T) {
	dest := &fakeDest{beginErr: errors.New("connection reset by peer")}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 2))
	require.Error(t, err)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, 4, dest.begins)
}

func TestInsertBatch_NotConfigured(t *testing.T) {
	e := NewExecutor(&fakeDest{}, retry.NewPostgreSQLErrorClassifier(), retry.ConstantBackoff{Retries: 3}, nil)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 1))
	assert.True(t, errors.Is(err, pgload.ErrNotConfigured))
	assert.Equal(t, pgload.BatchFailed, out.State)
}

func TestInsertBatch_ArityMismatch(t *testing.T) {
	dest := &fakeDest{}
	e := newTestExecutor(t, dest, dialect.Postgres)

	batch := makeBatch(0, 3)
	batch.Records[1] = pgload.Record{"only-one-field"}

	out, err := e.InsertBatch(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pgload.ErrArityMismatch))
	assert.True(t, errors.Is(err, pgload.ErrBatchFailed))
	assert.Equal(t, pgload.BatchFailed, out.State)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, 0, dest.begins, "arity is checked before touching the database")
}

func TestInsertBatch_Empty(t *testing.T) {
	dest := &fakeDest{}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(context.Background(), pgload.Batch{Index: 7})
	require.NoError(t, err)
	assert.True(t, out.Committed())
	assert.Equal(t, 0, dest.begins)
}

func TestInsertBatch_ChunksWithinOneTransaction(t *testing.T) {
	dest := &fakeDest{}
	// 2100 params / 2 columns = 1050 rows, capped at 1000 rows per VALUES list.
	e := newTestExecutor(t, dest, dialect.SQLServer)

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 2500))
	require.NoError(t, err)
	assert.Equal(t, int64(2500), out.Rows)
	assert.Len(t, dest.stmts, 3)
	assert.Equal(t, 1, dest.begins)
	assert.Equal(t, 1, dest.commits)
	assert.Equal(t, 2500, dest.visible())
	assert.True(t, strings.HasPrefix(dest.stmts[0], "INSERT INTO [people] ([id], [name]) VALUES (@p1, @p2), "))
}

func TestInsertBatch_FailureInLaterChunkRollsBackEverything(t *testing.T) {
	dest := &fakeDest{failures: []error{nil, &pgconn.PgError{Code: "23502"}}}
	e := newTestExecutor(t, dest, dialect.SQLServer)

	_, err := e.InsertBatch(context.Background(), makeBatch(0, 1500))
	require.Error(t, err)
	assert.Equal(t, 0, dest.visible())
	assert.Equal(t, 1, dest.rollbacks)
}

func TestInsertBatch_CopyMode(t *testing.T) {
	dest := &fakeDest{copyable: true}
	e := NewExecutor(dest, retry.NewPostgreSQLErrorClassifier(), retry.ConstantBackoff{Retries: 3}, nil)
	require.NoError(t, e.Configure(Template{
		Table:   "people",
		Columns: []string{"id", "name"},
		Dialect: dialect.Postgres,
		Mode:    pgload.InsertModeCopy,
	}))

	out, err := e.InsertBatch(context.Background(), makeBatch(0, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Rows)
	assert.Equal(t, 1, dest.copies)
	assert.Empty(t, dest.stmts)
	assert.Equal(t, 4, dest.visible())
}

func TestInsertBatch_CopyModeFallsBackToInsert(t *testing.T) {
	dest := &fakeDest{}
	e := NewExecutor(dest, retry.NewPostgreSQLErrorClassifier(), retry.ConstantBackoff{Retries: 3}, nil)
	require.NoError(t, e.Configure(Template{
		Table:   "people",
		Columns: []string{"id", "name"},
		Dialect: dialect.Postgres,
		Mode:    pgload.InsertModeCopy,
	}))

	_, err := e.InsertBatch(context.Background(), makeBatch(0, 2))
	require.NoError(t, err)
	assert.Len(t, dest.stmts, 1)
}

func TestInsertBatch_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dest := &fakeDest{
		failures: []error{deadlock(), deadlock(), deadlock(), deadlock()},
		onExec:   cancel,
	}
	e := newTestExecutor(t, dest, dialect.Postgres)

	out, err := e.InsertBatch(ctx, makeBatch(0, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pgload.BatchFailed, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 0, dest.visible())
}

func TestConfigure_Validation(t *testing.T) {
	e := NewExecutor(&fakeDest{}, retry.NewPostgreSQLErrorClassifier(), retry.ConstantBackoff{}, nil)

	tests := []struct {
		name string
		tmpl Template
	}{
		{"no table", Template{Columns: []string{"a"}, Dialect: dialect.Postgres}},
		{"no columns", Template{Table: "t", Dialect: dialect.Postgres}},
		{"no dialect", Template{Table: "t", Columns: []string{"a"}}},
		{"bad mode", Template{Table: "t", Columns: []string{"a"}, Dialect: dialect.Postgres, Mode: "merge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(e.Configure(tt.tmpl), pgload.ErrInvalidConfig))
		})
	}

	_, ok := e.Template()
	assert.False(t, ok)
}
