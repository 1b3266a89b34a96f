//go:build conntest || azure

package conntest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/internal/loader"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

type headerPrompter struct{}

func (headerPrompter) ConfirmHeader(context.Context, []string) (bool, error) {
	return true, nil
}

func (headerPrompter) ChooseResume(context.Context, string, int64) (pgload.ResumeDecision, error) {
	return pgload.ResumeRestart, nil
}

// loadThrough loads a small CSV into table over the given connection
// settings, creating the table, and returns the run summary.
func loadThrough(t *testing.T, config *pgload.ConnectionConfig, table string) loader.Summary {
	t.Helper()

	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "%d,conntest-%d\n", i, i)
	}
	path := filepath.Join(t.TempDir(), "conntest.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	svc := loader.NewService(loader.OpenDestination, headerPrompter{}, logging.NewNullLogger())
	summary, err := svc.Run(context.Background(), pgload.LoadConfig{
		SourcePath:  path,
		Table:       table,
		CreateTable: true,
		BatchSize:   5,
		Mode:        pgload.InsertModeCopy,
		Driver:      pgload.DriverPostgres,
		Connection:  config,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return summary
}

func dropTable(t *testing.T, pool *pgxpool.Pool, table string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		t.Logf("cleanup: failed to drop %s: %v", table, err)
	}
}
