package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/internal/db/sqldb"
	"github.com/vvka-141/pgload/internal/loader"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/planner"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// isolateEnv clears every variable the commands read, so a developer's
// shell cannot leak into the tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvFile, config.EnvTable, config.EnvColumns, config.EnvDelimiter,
		config.EnvEncoding, config.EnvHasHeader, config.EnvBatchSize, config.EnvMode,
		config.EnvDriver, config.EnvDSN, config.EnvLogFile, config.EnvMaxRetries,
		config.EnvOnFailure, config.EnvResume, config.EnvTimeout, config.EnvCreateTable,
		config.EnvVerbose,
		"DATABASE_URL", "PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE",
		"AWS_REGION", "AZURE_TENANT_ID", "AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("PGLOAD_NON_INTERACTIVE", "1")
	t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "no-pgpass"))
}

type testCommand struct {
	cmd    *cobra.Command
	flags  *loadFlagValues
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newLoadTestCommand builds a fresh command carrying the load flags, so
// tests never share flag state through the package-level commands.
func newLoadTestCommand(t *testing.T, args ...string) *testCommand {
	t.Helper()
	tc := &testCommand{
		cmd:    &cobra.Command{Use: "load <file>"},
		flags:  &loadFlagValues{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	tc.cmd.Flags().BoolP("verbose", "v", false, "")
	registerLoadFlags(tc.cmd, tc.flags)
	tc.cmd.SetOut(tc.stdout)
	tc.cmd.SetErr(tc.stderr)
	require.NoError(t, tc.cmd.ParseFlags(args))
	return tc
}

func writeCSV(t *testing.T, records int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < records; i++ {
		fmt.Fprintf(&b, "%d,name-%d\n", i, i)
	}
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func countRows(t *testing.T, dsn, table string) int64 {
	t.Helper()
	dest, err := sqldb.Open(context.Background(), pgload.DriverSQLite, dsn)
	require.NoError(t, err)
	defer dest.Close()

	n, err := dest.QueryInt(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	return n
}

func sqliteArgs(dsn string, extra ...string) []string {
	return append([]string{
		"--driver", "sqlite",
		"--dsn", dsn,
		"--table", "people",
		"--has-header",
		"--create-table",
		"--batch-size", "10",
	}, extra...)
}

func TestLoadCmd_SQLiteLifecycle(t *testing.T) {
	isolateEnv(t)
	src := writeCSV(t, 25)
	dsn := filepath.Join(t.TempDir(), "load.db")
	logFile := filepath.Join(t.TempDir(), "load.log")

	t.Run("fresh load", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn, "--log-file", logFile)...)
		require.NoError(t, executeLoad(tc.cmd, []string{src}, tc.flags))

		assert.Equal(t, int64(25), countRows(t, dsn, "people"))
		assert.Contains(t, tc.stderr.String(), "Loaded 25 rows into people in 3 batches")

		logged, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(logged), "Batch 3 completed")
	})

	t.Run("no resume answer", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn)...)
		err := executeLoad(tc.cmd, []string{src}, tc.flags)

		require.Error(t, err)
		assert.Equal(t, pgload.ExitResumeAmbiguous, pgload.ExitCodeForError(err))
		assert.Contains(t, tc.stderr.String(), "Choose --resume or --restart")
		assert.Equal(t, int64(25), countRows(t, dsn, "people"))
	})

	t.Run("resume of a complete load", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn, "--resume")...)
		require.NoError(t, executeLoad(tc.cmd, []string{src}, tc.flags))

		assert.Contains(t, tc.stderr.String(), "nothing to load")
		assert.Equal(t, int64(25), countRows(t, dsn, "people"))
	})

	t.Run("restart", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn, "--restart")...)
		require.NoError(t, executeLoad(tc.cmd, []string{src}, tc.flags))

		assert.Contains(t, tc.stderr.String(), "Loaded 25 rows")
		assert.Equal(t, int64(25), countRows(t, dsn, "people"))
	})
}

func TestLoadCmd_MissingSource(t *testing.T) {
	isolateEnv(t)
	dsn := filepath.Join(t.TempDir(), "load.db")

	tc := newLoadTestCommand(t, sqliteArgs(dsn)...)
	err := executeLoad(tc.cmd, []string{filepath.Join(t.TempDir(), "absent.csv")}, tc.flags)

	require.Error(t, err)
	assert.Equal(t, pgload.ExitSourceError, pgload.ExitCodeForError(err))
}

func TestLoadCmd_NoSourceGiven(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--driver", "sqlite", "--dsn", "x.db")
	err := executeLoad(tc.cmd, nil, tc.flags)

	require.Error(t, err)
	assert.Equal(t, pgload.ExitUsageError, pgload.ExitCodeForError(err))
}

func TestLoadCmd_ResumeAndRestartAreExclusive(t *testing.T) {
	tc := &cobra.Command{Use: "load <file>"}
	registerLoadFlags(tc, &loadFlagValues{})
	require.NoError(t, tc.ParseFlags([]string{"--resume", "--restart"}))

	err := tc.ValidateFlagGroups()
	require.Error(t, err)
	assert.Equal(t, pgload.ExitUsageError, pgload.ExitCodeForError(err))
}

func TestResolveSettings_FlagsOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.EnvBatchSize, "500")
	t.Setenv(config.EnvTable, "from_env")

	tc := newLoadTestCommand(t, "--driver", "sqlite", "--dsn", "x.db", "--batch-size", "20")
	s, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)
	require.NoError(t, err)

	assert.Equal(t, 20, s.Load.BatchSize)
	assert.Equal(t, "from_env", s.Load.Table)
	assert.Equal(t, "in.csv", s.Load.SourcePath)
	assert.Nil(t, s.HasHeader, "an unset --has-header leaves the question open")
	assert.Equal(t, pgload.ResumeUndecided, s.Resume)
}

func TestResolveSettings_ResumeFlags(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--driver", "sqlite", "--dsn", "x.db", "--restart", "--has-header=false")
	s, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)
	require.NoError(t, err)

	assert.Equal(t, pgload.ResumeRestart, s.Resume)
	require.NotNil(t, s.HasHeader)
	assert.False(t, *s.HasHeader)
}

func TestResolveSettings_PostgresConnection(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--dsn", "postgresql://loader@db.internal:5433/warehouse", "-d", "staging")
	s, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)
	require.NoError(t, err)

	require.NotNil(t, s.Load.Connection)
	assert.Equal(t, "db.internal", s.Load.Connection.Host)
	assert.Equal(t, 5433, s.Load.Connection.Port)
	assert.Equal(t, "loader", s.Load.Connection.Username)
	assert.Equal(t, "staging", s.Load.Connection.Database, "-d overrides the DSN database")
}

func TestResolveSettings_ConnectionAlias(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--driver", "mysql", "--connection", "loader:pw@tcp(db:3306)/warehouse")
	s, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)
	require.NoError(t, err)

	assert.Equal(t, "loader:pw@tcp(db:3306)/warehouse", s.Load.ConnectionString)
	assert.Nil(t, s.Load.Connection)
}

func TestResolveSettings_PostgresFlagsRejectedForOtherDrivers(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--driver", "sqlite", "--dsn", "x.db", "-h", "db.internal")
	_, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)

	require.Error(t, err)
	assert.True(t, errors.Is(err, pgload.ErrInvalidConfig), "got %v", err)
}

func TestResolveSettings_ProjectFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nightly.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`source:
  path: /data/orders.csv
  has_header: true
destination:
  driver: sqlite
  dsn: orders.db
  table: orders
load:
  batch_size: 250
`), 0o644))

	tc := newLoadTestCommand(t, "--config", path)
	s, err := resolveSettings(tc.cmd, nil, tc.flags)
	require.NoError(t, err)

	assert.Equal(t, "/data/orders.csv", s.Load.SourcePath)
	assert.Equal(t, "orders", s.Load.Table)
	assert.Equal(t, 250, s.Load.BatchSize)
	assert.Equal(t, pgload.DriverSQLite, s.Load.Driver)
	require.NotNil(t, s.HasHeader)
	assert.True(t, *s.HasHeader)
}

func TestResolveSettings_MissingExplicitConfig(t *testing.T) {
	isolateEnv(t)

	tc := newLoadTestCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := resolveSettings(tc.cmd, []string{"in.csv"}, tc.flags)

	require.Error(t, err)
	assert.Equal(t, pgload.ExitConfigError, pgload.ExitCodeForError(err))
}

func TestCountCmd(t *testing.T) {
	isolateEnv(t)
	src := writeCSV(t, 25)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"header excluded", []string{"--has-header"}, "25\n"},
		{"header counted", []string{"--has-header=false"}, "26\n"},
		{"header question unanswered", nil, "26\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "count <file>"}
			f := &sourceFlags{}
			registerSourceFlags(cmd, f)
			var out bytes.Buffer
			cmd.SetOut(&out)
			require.NoError(t, cmd.ParseFlags(tt.args))

			require.NoError(t, executeCount(cmd, []string{src}, f))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestPlanCmd(t *testing.T) {
	isolateEnv(t)
	src := writeCSV(t, 25)
	dsn := filepath.Join(t.TempDir(), "plan.db")

	t.Run("before any load", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn)...)
		require.NoError(t, executePlan(tc.cmd, []string{src}, tc.flags))

		out := tc.stdout.String()
		assert.Contains(t, out, "Records:     25")
		assert.Contains(t, out, "Batches:     3")
		assert.Contains(t, out, "Resume:      unknown")
		assert.Contains(t, out, "pending")
	})

	// A partial previous run: 13 rows land in batch 1 (0-based), which
	// --resume loads again from its first record.
	dest, err := sqldb.Open(context.Background(), pgload.DriverSQLite, dsn)
	require.NoError(t, err)
	_, err = dest.Exec(context.Background(), "CREATE TABLE people (id TEXT, name TEXT)")
	require.NoError(t, err)
	for i := 0; i < 13; i++ {
		_, err = dest.Exec(context.Background(), "INSERT INTO people VALUES (?, ?)", fmt.Sprint(i), "x")
		require.NoError(t, err)
	}
	require.NoError(t, dest.Close())

	t.Run("after a partial load", func(t *testing.T) {
		tc := newLoadTestCommand(t, sqliteArgs(dsn)...)
		require.NoError(t, executePlan(tc.cmd, []string{src}, tc.flags))

		out := tc.stdout.String()
		assert.Contains(t, out, "13 rows present, --resume starts at batch 2 (record 10)")
		assert.Contains(t, out, "done")
		assert.Equal(t, int64(13), countRows(t, dsn, "people"), "plan never writes")
	})
}

func TestBatchTable_LongPlansAreElided(t *testing.T) {
	plan, err := planner.New(1000, 10, 0)
	require.NoError(t, err)
	out := batchTable(plan, 0)

	assert.Contains(t, out, "80 more")
	assert.Contains(t, out, "100", "the last batch is shown")
}

func TestProbeRowCount_UnreachableDestination(t *testing.T) {
	failing := func(ctx context.Context, cfg pgload.LoadConfig, logger pgload.Logger) (pgload.Destination, error) {
		return nil, fmt.Errorf("dial: %w", pgload.ErrConnectionFailed)
	}
	cfg := pgload.LoadConfig{Driver: pgload.DriverPostgres, Table: "people"}

	var log bytes.Buffer
	rows := probeRowCount(context.Background(), cfg, logging.NewWriterLogger(&log, true), loader.DestinationOpener(failing))

	assert.Equal(t, int64(-1), rows)
	assert.Contains(t, log.String(), "destination not reachable")
}

func TestConfigCmd(t *testing.T) {
	isolateEnv(t)

	t.Run("prints yaml", func(t *testing.T) {
		tc := newLoadTestCommand(t, "--driver", "sqlite", "--dsn", "orders.db", "--table", "orders",
			"--batch-size", "7", "--on-failure", "retry", "--timeout", "90m")
		require.NoError(t, executeConfig(tc.cmd, []string{"orders.csv"}, tc.flags, ""))

		out := tc.stdout.String()
		assert.Contains(t, out, "table: orders")
		assert.Contains(t, out, "batch_size: 7")
		assert.Contains(t, out, "dsn: orders.db")
		assert.Contains(t, out, "failure_rounds: 1")
		assert.Contains(t, out, "timeout: 1h30m0s")
	})

	t.Run("write round-trips through Build", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.ConfigFileName)
		tc := newLoadTestCommand(t, "--dsn", "postgresql://loader@db:5433/warehouse",
			"--table", "staging.orders", "--has-header", "--max-retries", "0")
		require.NoError(t, executeConfig(tc.cmd, []string{"orders.csv"}, tc.flags, path))

		project, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "db", project.Connection.Host)
		assert.Equal(t, 5433, project.Connection.Port)
		assert.Empty(t, project.Destination.DSN, "postgres settings are written field by field")

		s, err := config.Build(config.Flags{}, config.Env{}, project)
		require.NoError(t, err)
		assert.Equal(t, "orders.csv", s.Load.SourcePath)
		assert.Equal(t, "staging.orders", s.Load.Table)
		assert.Equal(t, 0, s.Load.RetryMaxAttempts)
		require.NotNil(t, s.HasHeader)
		assert.True(t, *s.HasHeader)
	})
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary loader.Summary
		err     error
		want    string
	}{
		{
			name:    "complete",
			summary: loader.Summary{Table: "t", TotalBatches: 2, BatchesCommitted: 2, RowsCommitted: 15, FailedBatch: -1, Elapsed: time.Second},
			want:    "Loaded 15 rows into t in 2 batches",
		},
		{
			name:    "already complete",
			summary: loader.Summary{Table: "t", TotalRecords: 15, ExistingRows: 15, StartBatch: 2, TotalBatches: 2, FailedBatch: -1},
			want:    "t already holds all 15 records",
		},
		{
			name:    "interrupted",
			summary: loader.Summary{Table: "t", TotalBatches: 4, BatchesCommitted: 1, RowsCommitted: 10, FailedBatch: -1, Interrupted: true},
			err:     context.Canceled,
			want:    "Interrupted: 10 rows committed",
		},
		{
			name:    "batch failed",
			summary: loader.Summary{Table: "t", TotalBatches: 4, BatchesCommitted: 2, RowsCommitted: 20, FailedBatch: 2},
			err:     pgload.ErrBatchFailed,
			want:    "Batch 3 of 4 failed: 20 rows committed",
		},
		{
			name:    "resume undecided",
			summary: loader.Summary{Table: "t", ExistingRows: 12, FailedBatch: -1},
			err:     pgload.ErrResumeAmbiguous,
			want:    "t already holds 12 rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printSummary(&out, false, tt.summary, tt.err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
