package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/internal/db"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// loadProjectConfig loads .env files and pgload.yaml and returns the
// PGLOAD_* snapshot with the project file, which is nil when absent.
// An explicit --config path must exist; the default ./pgload.yaml may not.
func loadProjectConfig(f *sourceFlags) (config.Env, *config.ProjectConfig, error) {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	env, err := config.LoadEnv(envFiles...)
	if err != nil {
		return config.Env{}, nil, fmt.Errorf("failed to load env file: %w: %w", pgload.ErrInvalidConfig, err)
	}

	if f.configPath == "" {
		project, err := config.LoadOptional(".")
		if err != nil {
			return env, nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
		}
		return env, project, nil
	}

	project, err := config.Load(f.configPath)
	if err != nil {
		return env, nil, fmt.Errorf("failed to load %s: %w: %w", f.configPath, pgload.ErrInvalidConfig, err)
	}
	return env, project, nil
}

// resolveSettings builds the settings of a `load` or `plan` run and attaches
// the destination connection.
func resolveSettings(cmd *cobra.Command, args []string, f *loadFlagValues) (*config.Settings, error) {
	var sourcePath string
	if len(args) > 0 {
		sourcePath = args[0]
	}

	env, project, err := loadProjectConfig(&f.source)
	if err != nil {
		return nil, err
	}

	settings, err := config.Build(f.configFlags(cmd, sourcePath), env, project)
	if err != nil {
		return nil, err
	}
	if settings.Load.SourcePath == "" {
		return nil, missingSourceError(cmd)
	}

	if err := resolveConnection(settings, &f.conn); err != nil {
		return nil, err
	}
	return settings, nil
}

// resolveConnection fills in the destination connection. PostgreSQL settings
// go through the libpq-style resolver (flags, PG* variables, pgload.yaml,
// .pgpass, cloud IAM); other drivers take the DSN as is.
func resolveConnection(settings *config.Settings, f *connectionFlags) error {
	c := &settings.Load

	if c.Driver != pgload.DriverPostgres {
		if f.postgresOnly() {
			return fmt.Errorf("connection flags -h, -p, -U, -d, --sslmode and --auth-* apply to postgres only; use --dsn for %s: %w",
				c.Driver, pgload.ErrInvalidConfig)
		}
		return nil
	}

	var projectConn *config.ConnectionConfig
	if settings.Project != nil {
		projectConn = &settings.Project.Connection
	}

	connConfig, err := db.ResolveConnectionParams(c.ConnectionString, f.granular(), f.auth(), db.LoadFromEnvironment(), projectConn)
	if err != nil {
		return err
	}
	c.Connection = connConfig
	if c.Verbose {
		logConnectionVerbose(connConfig)
	}
	return nil
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *pgload.ConnectionConfig) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", connConfig.AuthMethod)
}
