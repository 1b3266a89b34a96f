//go:build conntest

package conntest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/internal/db"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/testinfra"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var (
	stdContainer  *testinfra.PostgresContainer
	mtlsContainer *testinfra.PostgresContainer
	certPaths     *testinfra.CertPaths
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	bundle, err := testinfra.GenerateCertBundle([]string{"localhost", "127.0.0.1"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate certs: %v\n", err)
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "pgload-conntest-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}

	certPaths, err = bundle.WriteToDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write certs: %v\n", err)
		os.Exit(1)
	}

	stdContainer, err = testinfra.StartPostgres(ctx, certPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}

	mtlsContainer, err = testinfra.StartMTLSPostgres(ctx, certPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start mTLS postgres: %v\n", err)
		stdContainer.Terminate(ctx) //nolint:errcheck
		os.Exit(1)
	}

	code := m.Run()

	stdContainer.Terminate(ctx)  //nolint:errcheck
	mtlsContainer.Terminate(ctx) //nolint:errcheck
	os.RemoveAll(dir)
	os.Exit(code)
}

func connect(config *pgload.ConnectionConfig) (*pgxpool.Pool, error) {
	connector, err := db.NewConnector(config, logging.NewNullLogger())
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

func connectWithConfig(t *testing.T, config *pgload.ConnectionConfig) *pgxpool.Pool {
	t.Helper()

	pool, err := connect(config)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func pingSucceeds(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func queryVersion(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var version string
	if err := pool.QueryRow(context.Background(), "SELECT version()").Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	return version
}

func parseConnString(t *testing.T, ctr *testinfra.PostgresContainer) *pgload.ConnectionConfig {
	t.Helper()
	config, err := db.ParseConnectionString(ctr.ConnString)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	return config
}

func parseStdConnString(t *testing.T) *pgload.ConnectionConfig {
	t.Helper()
	return parseConnString(t, stdContainer)
}

func parseMTLSConnString(t *testing.T) *pgload.ConnectionConfig {
	t.Helper()
	return parseConnString(t, mtlsContainer)
}
