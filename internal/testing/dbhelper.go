package testing

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/internal/loader"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/testinfra"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartSimplePostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: PGLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("PGLOAD_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("PGLOAD_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// StaticPrompter answers every question the same way without touching a
// terminal.
type StaticPrompter struct {
	HasHeader bool
	Resume    pgload.ResumeDecision
}

func (p StaticPrompter) ConfirmHeader(context.Context, []string) (bool, error) {
	return p.HasHeader, nil
}

func (p StaticPrompter) ChooseResume(context.Context, string, int64) (pgload.ResumeDecision, error) {
	return p.Resume, nil
}

// NewTestService creates a loader Service wired to the production
// destination opener, a silent logger and prompter.
func NewTestService(t *testing.T, prompter pgload.Prompter) *loader.Service {
	t.Helper()

	return loader.NewService(loader.OpenDestination, prompter, logging.NewNullLogger())
}

// GetTestPool opens a pool on connString that is closed when the test ends.
func GetTestPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// CreateTestTable creates an empty table with the given text columns and
// drops it when the test ends.
func CreateTestTable(t *testing.T, pool *pgxpool.Pool, table string, columns ...string) {
	t.Helper()

	ctx := context.Background()
	ident := pgx.Identifier{table}.Sanitize()

	defs := ""
	for i, c := range columns {
		if i > 0 {
			defs += ", "
		}
		defs += pgx.Identifier{c}.Sanitize() + " text"
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", ident)); err != nil {
		t.Fatalf("Failed to drop stale table %s: %v", table, err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", ident, defs)); err != nil {
		t.Fatalf("Failed to create test table %s: %v", table, err)
	}

	t.Cleanup(func() { DropTestTable(t, pool, table) })
}

// DropTestTable drops table. Safe to call multiple times.
func DropTestTable(t *testing.T, pool *pgxpool.Pool, table string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		t.Logf("Warning: Failed to drop table %s: %v", table, err)
	}
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, pool *pgxpool.Pool, table string) int64 {
	t.Helper()

	var n int64
	err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n)
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}
