package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/internal/insert"
	"github.com/vvka-141/pgload/internal/planner"
	"github.com/vvka-141/pgload/internal/retry"
	"github.com/vvka-141/pgload/internal/schema"
	"github.com/vvka-141/pgload/internal/source"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// Service runs loads.
//
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
// A load is strictly sequential; create one Service per run.
type Service struct {
	open     DestinationOpener
	prompter pgload.Prompter
	logger   pgload.Logger

	// strategy and classifier replace the ones derived from the config and
	// the destination driver when set.
	strategy   pgload.BackoffStrategy
	classifier pgload.ErrorClassifier
}

// NewService creates a Service. Nil dependencies are programmer errors and panic.
func NewService(open DestinationOpener, prompter pgload.Prompter, logger pgload.Logger) *Service {
	if open == nil {
		panic("open cannot be nil")
	}
	if prompter == nil {
		panic("prompter cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Service{open: open, prompter: prompter, logger: logger}
}

// run holds the collaborators of one Run call.
type run struct {
	cfg      pgload.LoadConfig
	reader   *source.Reader
	dest     pgload.Destination
	dialect  dialect.Dialect
	header   []string
	columns  []string
	executor *insert.Executor
	plan     planner.Plan
	summary  *Summary
}

// Run loads cfg.SourcePath into cfg.Table. The returned Summary is filled in
// as far as the run got, also on error.
//
// Errors wrap pgload.ErrResumeAmbiguous when the operator gave no usable
// resume answer, pgload.ErrBatchFailed when a batch could not be committed,
// pgload.ErrSourceTruncated when the file shrank during the run, and the
// context error when the run was interrupted.
func (s *Service) Run(ctx context.Context, cfg pgload.LoadConfig) (summary Summary, err error) {
	started := time.Now()
	summary = Summary{
		RunID:        uuid.New(),
		Table:        cfg.Table,
		ExistingRows: -1,
		FailedBatch:  -1,
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return summary, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	r := &run{cfg: cfg, summary: &summary}
	defer func() {
		s.shutdown(r)
		summary.Elapsed = time.Since(started)
	}()

	s.logger.Info("Run %s: loading %s into %s", summary.RunID, cfg.SourcePath, cfg.Table)

	if err := s.startup(ctx, r); err != nil {
		s.logger.Error("Error during startup: %v", err)
		return summary, err
	}

	if err := s.decideResume(ctx, r); err != nil {
		s.logger.Error("Error choosing where to start: %v", err)
		return summary, err
	}

	if r.plan.IsComplete() {
		s.logger.Info("Nothing to load: %s already holds all %d records", cfg.Table, r.plan.Total)
		return summary, nil
	}

	if err := s.loop(ctx, r); err != nil {
		return summary, err
	}

	s.logger.Info("Load completed: %d rows in %d batches (%v)",
		summary.RowsCommitted, summary.BatchesCommitted, time.Since(started).Round(time.Millisecond))
	return summary, nil
}

// startup opens the source and the destination and prepares the executor.
func (s *Service) startup(ctx context.Context, r *run) error {
	cfg := r.cfg

	reader, err := source.Open(cfg.SourcePath,
		source.WithDelimiter(cfg.Delimiter),
		source.WithEncoding(cfg.Encoding),
	)
	if err != nil {
		return err
	}
	r.reader = reader
	r.header = reader.Header()

	hasHeader := false
	if len(r.header) > 0 {
		hasHeader, err = s.prompter.ConfirmHeader(ctx, r.header)
		if err != nil {
			return fmt.Errorf("header question: %w", err)
		}
	}
	if err := reader.SetHasHeader(hasHeader); err != nil {
		return err
	}

	total, err := reader.CountRecords(ctx)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}
	r.summary.TotalRecords = total
	s.logger.Verbose("Source %s: %d records, header=%t", reader.Name(), total, hasHeader)

	r.columns = s.columns(r, hasHeader)
	if len(r.columns) == 0 && total > 0 {
		return fmt.Errorf("cannot derive columns for %s: %w", cfg.Table, pgload.ErrInvalidConfig)
	}

	dest, err := s.open(ctx, cfg, s.logger)
	if err != nil {
		return err
	}
	r.dest = dest

	d, err := dialect.For(dest.Driver())
	if err != nil {
		return err
	}
	r.dialect = d

	if cfg.CreateTable && len(r.columns) > 0 {
		ddl, err := schema.BuildCreateTable(d, cfg.Table, r.columns)
		if err != nil {
			return err
		}
		if _, err := dest.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("creating table %s: %w", cfg.Table, err)
		}
		s.logger.Verbose("Ensured table %s exists", cfg.Table)
	}

	strategy := s.strategy
	if strategy == nil {
		strategy = retry.BackoffFromConfig(cfg)
	}
	classifier := s.classifier
	if classifier == nil {
		classifier = retry.ClassifierFor(dest.Driver())
	}
	r.executor = insert.NewExecutor(dest, classifier, strategy, s.logger)
	if len(r.columns) > 0 {
		if err := r.executor.Configure(insert.Template{
			Table:   cfg.Table,
			Columns: r.columns,
			Dialect: d,
			Mode:    cfg.Mode,
		}); err != nil {
			return err
		}
	}

	s.logger.Info("Startup successful")
	return nil
}

// columns picks the destination columns: configured names, then header
// names, then positional names.
func (s *Service) columns(r *run, hasHeader bool) []string {
	switch {
	case len(r.cfg.Columns) > 0:
		if len(r.header) > 0 && len(r.cfg.Columns) != len(r.header) {
			s.logger.Warn("%d columns configured but the first line has %d fields", len(r.cfg.Columns), len(r.header))
		}
		return r.cfg.Columns
	case hasHeader:
		return schema.ColumnsFromHeader(r.header)
	default:
		return schema.PositionalColumns(len(r.header))
	}
}

// decideResume reads the destination row count and settles where the run starts.
func (s *Service) decideResume(ctx context.Context, r *run) error {
	rows, err := r.dest.QueryInt(ctx, r.dialect.CountSQL(r.cfg.Table))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Could not count rows in %s, starting from the first batch: %v", r.cfg.Table, err)
		rows = -1
	}
	r.summary.ExistingRows = rows

	var resumeAt int64
	if rows <= 0 {
		s.logger.Info("No entries in %s, starting from the first batch", r.cfg.Table)
	} else {
		decision, err := s.prompter.ChooseResume(ctx, r.cfg.Table, rows)
		if err != nil {
			return fmt.Errorf("resume question: %w", err)
		}
		r.summary.Decision = decision

		switch decision {
		case pgload.ResumeContinue:
			resumeAt = rows
		case pgload.ResumeRestart:
			if _, err := r.dest.Exec(ctx, r.dialect.TruncateSQL(r.cfg.Table)); err != nil {
				return fmt.Errorf("truncating %s: %w", r.cfg.Table, err)
			}
			s.logger.Info("Restarting insertion: %s truncated", r.cfg.Table)
		default:
			s.logger.Warn("Invalid input while choosing how to proceed with insertion")
			return fmt.Errorf("%s holds %d rows: %w", r.cfg.Table, rows, pgload.ErrResumeAmbiguous)
		}
	}

	plan, err := planner.New(r.summary.TotalRecords, int64(r.cfg.BatchSize), resumeAt)
	if err != nil {
		return err
	}
	r.plan = plan
	r.summary.StartBatch = plan.StartBatch
	r.summary.TotalBatches = plan.TotalBatches

	if resumeAt > r.summary.TotalRecords {
		s.logger.Warn("%s holds %d rows but the source has only %d records", r.cfg.Table, resumeAt, r.summary.TotalRecords)
	}

	if resumeAt > 0 && !plan.IsComplete() {
		line := plan.ResumeLine()
		if err := r.reader.SeekToLine(ctx, line); err != nil {
			return fmt.Errorf("positioning at record %d: %w", line, err)
		}
		s.logger.Info("Continuing insertion from batch %d (record %d, %d rows already in %s)",
			plan.StartBatch+1, line, resumeAt, r.cfg.Table)
	}
	return nil
}

// loop inserts batches StartBatch..TotalBatches-1 in order.
func (s *Service) loop(ctx context.Context, r *run) error {
	rounds := 0

	for i := r.plan.StartBatch; i < r.plan.TotalBatches; {
		if err := ctx.Err(); err != nil {
			r.summary.Interrupted = true
			s.logger.Warn("Interrupted before batch %d of %d; the next run resumes from the rows already committed",
				i+1, r.plan.TotalBatches)
			return fmt.Errorf("load interrupted: %w", err)
		}

		start, end := r.plan.Window(i)
		records, err := r.reader.ReadBatch(ctx, int(end-start))
		if err != nil {
			return fmt.Errorf("reading batch %d: %w", i, err)
		}
		if len(records) == 0 {
			return fmt.Errorf("batch %d expected records %d-%d: %w", i, start, end-1, pgload.ErrSourceTruncated)
		}

		out, err := r.executor.InsertBatch(ctx, pgload.Batch{Index: i, FirstLine: start, Records: records})
		r.summary.Retries += out.Retries
		if err == nil {
			r.summary.BatchesCommitted++
			r.summary.RowsCommitted += out.Rows
			s.logger.Info("Batch %d completed in %v", i+1, out.Elapsed.Round(time.Millisecond))
			rounds = 0
			i++
			continue
		}

		if seekErr := r.reader.SeekToLine(context.WithoutCancel(ctx), start); seekErr != nil {
			err = errors.Join(err, fmt.Errorf("repositioning at record %d: %w", start, seekErr))
		} else {
			s.logger.Verbose("Reader repositioned at record %d", start)
		}

		if ctx.Err() != nil {
			r.summary.Interrupted = true
			s.logger.Warn("Interrupted during batch %d; it was rolled back", i+1)
			return fmt.Errorf("load interrupted: %w", ctx.Err())
		}

		if r.cfg.OnFailure == pgload.FailureRetry && rounds < r.cfg.FailureRounds {
			rounds++
			r.summary.Resubmissions++
			s.logger.Warn("Batch %d failed, submitting it again (round %d/%d)", i+1, rounds, r.cfg.FailureRounds)
			continue
		}

		r.summary.FailedBatch = i
		s.logger.Error("Batch %d failed, stopping. Rerun to resume from the rows already committed.", i+1)
		return err
	}
	return nil
}

// shutdown releases everything startup acquired. Errors are logged, not returned.
func (s *Service) shutdown(r *run) {
	if r.reader != nil {
		if err := r.reader.Close(); err != nil {
			s.logger.Warn("Closing source: %v", err)
		}
	}
	if r.dest != nil {
		if err := r.dest.Close(); err != nil {
			s.logger.Warn("Closing destination: %v", err)
		}
	}
	s.logger.Verbose("Shutdown complete")
}
