package insert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/retry"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Outcome is the result of one InsertBatch call.
type Outcome struct {
	Index int64

	// State is BatchCommitted or BatchFailed.
	State pgload.BatchState

	// Attempts counts transactions started for the batch. Retries is Attempts-1
	// for a batch that reached the database, and 0 when it was rejected up front.
	Attempts int
	Retries  int

	// Rows is the number of rows committed. It is len(batch) or 0, never in between.
	Rows int64

	Elapsed time.Duration

	// Err is the last failure for a failed batch.
	Err error
}

// Committed reports whether the batch is visible in the destination.
func (o Outcome) Committed() bool {
	return o.State == pgload.BatchCommitted
}

// Executor inserts batches into the configured table.
type Executor struct {
	dest     pgload.TxBeginner
	retry    *retry.Executor
	maxRetry int
	logger   pgload.Logger

	tmpl    *Template
	builder *statementBuilder
}

// NewExecutor creates an executor writing through dest.
// classifier decides which failures are retried and strategy bounds how often.
// A nil logger discards output.
func NewExecutor(dest pgload.TxBeginner, classifier pgload.ErrorClassifier, strategy pgload.BackoffStrategy, logger pgload.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Executor{
		dest:     dest,
		retry:    retry.NewExecutor(classifier, strategy),
		maxRetry: strategy.MaxAttempts(),
		logger:   logger,
	}
}

// Configure sets the table and columns used by every subsequent InsertBatch.
func (e *Executor) Configure(t Template) error {
	if err := t.validate(); err != nil {
		return err
	}
	if t.Mode == "" {
		t.Mode = pgload.InsertModeValues
	}
	e.tmpl = &t
	e.builder = newStatementBuilder(t)
	e.logger.Verbose("Insert template: %s (%d columns, %s, mode %s)",
		t.Table, len(t.Columns), t.Dialect.Driver, t.Mode)
	return nil
}

// Template returns the active template and whether one was configured.
func (e *Executor) Template() (Template, bool) {
	if e.tmpl == nil {
		return Template{}, false
	}
	return *e.tmpl, true
}

// InsertBatch writes the batch in a single transaction, retrying transient
// failures. The returned error is nil exactly when the outcome is committed;
// otherwise it wraps pgload.ErrBatchFailed and the cause.
func (e *Executor) InsertBatch(ctx context.Context, batch pgload.Batch) (Outcome, error) {
	start := time.Now()
	out := Outcome{Index: batch.Index, State: pgload.BatchPending}

	if e.tmpl == nil {
		out.State = pgload.BatchFailed
		out.Err = pgload.ErrNotConfigured
		return out, fmt.Errorf("batch %d: %w", batch.Index, pgload.ErrNotConfigured)
	}

	if err := e.checkArity(batch); err != nil {
		e.logger.Error("Batch %d rejected before insert: %v", batch.Index, err)
		return e.fail(out, start, err)
	}

	if batch.Len() == 0 {
		out.State = pgload.BatchCommitted
		out.Elapsed = time.Since(start)
		return out, nil
	}

	exec := e.retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		e.logger.Warn("Batch %d: transient failure, retry %d/%d in %v: %v",
			batch.Index, attempt+1, e.maxRetry, delay.Round(time.Millisecond), err)
	})

	attempts, err := exec.ExecuteCounted(ctx, func(ctx context.Context) error {
		return e.attempt(ctx, batch)
	})
	out.Attempts = attempts
	out.Retries = attempts - 1

	if err != nil {
		e.logger.Error("Batch %d %s after %d attempt(s): %v", batch.Index, pgload.BatchFailed, attempts, err)
		return e.fail(out, start, err)
	}

	out.State = pgload.BatchCommitted
	out.Rows = int64(batch.Len())
	out.Elapsed = time.Since(start)
	e.logger.Verbose("Batch %d %s: %d rows (records %d-%d, %d attempt(s), %v)",
		batch.Index, out.State, out.Rows, batch.FirstLine, batch.FirstLine+out.Rows-1,
		attempts, out.Elapsed.Round(time.Millisecond))
	return out, nil
}

func (e *Executor) fail(out Outcome, start time.Time, err error) (Outcome, error) {
	out.State = pgload.BatchFailed
	out.Rows = 0
	out.Err = err
	out.Elapsed = time.Since(start)
	return out, fmt.Errorf("batch %d: %w: %w", out.Index, pgload.ErrBatchFailed, err)
}

// attempt runs one transaction for the whole batch. Any error leaves the
// transaction rolled back.
func (e *Executor) attempt(ctx context.Context, batch pgload.Batch) (err error) {
	e.logger.Verbose("Batch %d %s", batch.Index, pgload.BatchAttempting)

	tx, err := e.dest.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// Rollback on a fresh context so a cancelled run still releases the transaction.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			e.logger.Warn("Batch %d rollback failed: %v", batch.Index, rbErr)
		}
		e.logger.Verbose("Batch %d %s", batch.Index, pgload.BatchRolledBack)
	}()

	if err = e.write(ctx, tx, batch.Records); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (e *Executor) write(ctx context.Context, tx pgload.Tx, records []pgload.Record) error {
	if e.tmpl.Mode == pgload.InsertModeCopy {
		if copier, ok := tx.(pgload.Copier); ok {
			n, err := copier.CopyFrom(ctx, dialect.SplitTable(e.tmpl.Table), e.tmpl.Columns, rows(records))
			if err != nil {
				return fmt.Errorf("copy into %s: %w", e.tmpl.Table, err)
			}
			if n != int64(len(records)) {
				return fmt.Errorf("copy into %s: wrote %d of %d rows", e.tmpl.Table, n, len(records))
			}
			return nil
		}
		e.logger.Verbose("Destination does not support bulk copy, using INSERT")
	}

	chunk := e.builder.rowsPerStatement()
	for lo := 0; lo < len(records); lo += chunk {
		hi := min(lo+chunk, len(records))
		part := records[lo:hi]
		if _, err := tx.Exec(ctx, e.builder.sql(len(part)), args(part)...); err != nil {
			return fmt.Errorf("insert into %s: %w", e.tmpl.Table, err)
		}
	}
	return nil
}

func (e *Executor) checkArity(batch pgload.Batch) error {
	want := len(e.tmpl.Columns)
	for i, rec := range batch.Records {
		if len(rec) != want {
			return fmt.Errorf("record %d has %d fields, table %s has %d columns (%s): %w",
				batch.FirstLine+int64(i), len(rec), e.tmpl.Table, want, preview(rec), pgload.ErrArityMismatch)
		}
	}
	return nil
}

func preview(rec pgload.Record) string {
	s := strings.Join(rec, ",")
	if len(s) > pgload.MaxErrorPreviewLength {
		return s[:pgload.MaxErrorPreviewLength] + "..."
	}
	return s
}

