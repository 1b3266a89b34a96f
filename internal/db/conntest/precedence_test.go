//go:build conntest

package conntest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgload/internal/db"
)

func TestPrecedence_FlagOverridesEnv(t *testing.T) {
	config := parseStdConnString(t)

	t.Setenv("PGHOST", "unreachable.invalid")
	t.Setenv("PGPASSWORD", config.Password)
	t.Setenv("PGSSLMODE", "disable")

	resolved, err := db.ResolveConnectionParams(
		"",
		&db.GranularConnFlags{Host: config.Host, Port: config.Port, Username: config.Username, Database: config.Database},
		nil,
		db.LoadFromEnvironment(),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, config.Host, resolved.Host)

	pool := connectWithConfig(t, resolved)
	pingSucceeds(t, pool)
}

func TestPrecedence_EnvFallback(t *testing.T) {
	config := parseStdConnString(t)

	t.Setenv("PGHOST", config.Host)
	t.Setenv("PGUSER", config.Username)
	t.Setenv("PGPASSWORD", config.Password)
	t.Setenv("PGDATABASE", config.Database)
	t.Setenv("PGSSLMODE", "disable")

	resolved, err := db.ResolveConnectionParams(
		"",
		&db.GranularConnFlags{Port: config.Port},
		nil,
		db.LoadFromEnvironment(),
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, config.Host, resolved.Host)
	assert.Equal(t, config.Username, resolved.Username)

	pool := connectWithConfig(t, resolved)
	pingSucceeds(t, pool)
}

func TestPrecedence_DatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", stdContainer.ConnString)

	resolved, err := db.ResolveConnectionParams("", nil, nil, db.LoadFromEnvironment(), nil)
	require.NoError(t, err)

	pool := connectWithConfig(t, resolved)
	pingSucceeds(t, pool)
}
