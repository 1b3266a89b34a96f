package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// GranularConnFlags represents connection parameters from CLI flags.
// These follow PostgreSQL standard flag conventions (-h, -p, -U, -d).
//
// Password is not a flag. Use $PGPASSWORD, .pgpass or a connection string.
type GranularConnFlags struct {
	Host     string
	Port     int
	Username string
	Database string
	SSLMode  string
}

// IsEmpty returns true if no connection-related granular flags were provided.
// Database is excluded because -d may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// AuthFlags selects a cloud IAM authentication method from the command line.
// Client secrets are never flags; AZURE_CLIENT_SECRET is read from the environment.
type AuthFlags struct {
	Method         string // standard, cert, aws, google, azure
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string // Full connection string (Heroku/Rails convention)

	// Cloud SDK standard names
	AWS_REGION          string
	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads libpq and cloud provider environment variables.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnectionParams resolves PostgreSQL connection parameters:
//
//  1. Connection string (--dsn, $PGLOAD_DSN or destination.dsn), parsed directly
//  2. $DATABASE_URL, when no granular flags are given
//  3. Granular values per field: flag > PG* env var > pgload.yaml connection > default
//
// -d always overrides the database, whichever path was taken. A password
// missing from every source is looked up in .pgpass.
//
// Giving both a connection string and granular flags is an error.
func ResolveConnectionParams(
	connString string,
	granularFlags *GranularConnFlags,
	authFlags *AuthFlags,
	envVars *EnvVars,
	projectConn *config.ConnectionConfig,
) (*pgload.ConnectionConfig, error) {
	if granularFlags == nil {
		granularFlags = &GranularConnFlags{}
	}
	if authFlags == nil {
		authFlags = &AuthFlags{}
	}
	if envVars == nil {
		envVars = &EnvVars{}
	}
	if projectConn == nil {
		projectConn = &config.ConnectionConfig{}
	}

	if connString != "" && !granularFlags.IsEmpty() {
		return nil, fmt.Errorf(
			"cannot specify both --dsn and granular flags (-h, -p, -U)\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --dsn \"postgresql://user@localhost:5432/warehouse\"\n"+
				"  2. Granular flags: -h localhost -p 5432 -U loader -d warehouse\n"+
				"  3. Environment variables: export PGHOST=localhost PGPORT=5432 PGUSER=loader: %w",
			pgload.ErrInvalidConfig,
		)
	}

	var cfg *pgload.ConnectionConfig
	var err error

	switch {
	case connString != "":
		cfg, err = resolveFromConnectionString(connString, envVars)
	case granularFlags.IsEmpty() && envVars.DATABASE_URL != "":
		cfg, err = resolveFromConnectionString(envVars.DATABASE_URL, envVars)
	default:
		cfg, err = resolveFromGranularParams(granularFlags, envVars, projectConn)
	}
	if err != nil {
		return nil, err
	}

	if granularFlags.Database != "" {
		cfg.Database = granularFlags.Database
	}

	if err := applyAuth(cfg, authFlags, envVars, projectConn); err != nil {
		return nil, err
	}

	if cfg.Password == "" && cfg.AuthMethod == pgload.AuthMethodStandard {
		cfg.Password = LookupPgpass(PgpassPath(), cfg.Host, cfg.Port, cfg.Database, cfg.Username)
	}

	return cfg, nil
}

// applyAuth picks the authentication method and attaches cloud credentials.
// An explicit method (flag, then pgload.yaml) wins; otherwise Azure identifiers
// in flags or environment switch to Entra ID, as the Azure SDK tools do.
func applyAuth(cfg *pgload.ConnectionConfig, flags *AuthFlags, env *EnvVars, pc *config.ConnectionConfig) error {
	tenantID := firstOf(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	clientID := firstOf(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)

	method := firstOf(flags.Method, pc.AuthMethod)
	if method != "" {
		m, err := pgload.ParseAuthMethod(method)
		if err != nil {
			return err
		}
		cfg.AuthMethod = m
	} else if flags.AzureTenantID != "" || flags.AzureClientID != "" || env.AZURE_TENANT_ID != "" || env.AZURE_CLIENT_ID != "" {
		cfg.AuthMethod = pgload.AuthMethodAzureEntraID
	}

	switch cfg.AuthMethod {
	case pgload.AuthMethodAzureEntraID:
		cfg.AzureTenantID = tenantID
		cfg.AzureClientID = clientID
		cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET
	case pgload.AuthMethodAWSIAM:
		cfg.AWSRegion = firstOf(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	case pgload.AuthMethodGoogleIAM:
		cfg.GoogleInstance = firstOf(flags.GoogleInstance, pc.GoogleInstance)
	}
	return nil
}

// resolveFromConnectionString parses a connection string. PGSSLMODE fills in
// sslmode when the string does not carry one, as libpq does.
func resolveFromConnectionString(connStr string, envVars *EnvVars) (*pgload.ConnectionConfig, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if cfg.SSLMode == "" {
		cfg.SSLMode = firstOf(envVars.PGSSLMODE, "prefer")
	}
	if cfg.Database == "" {
		cfg.Database = pgload.DefaultDatabase
	}
	return cfg, nil
}

// resolveFromGranularParams builds a ConnectionConfig field by field:
// CLI flag > environment variable > pgload.yaml > default.
func resolveFromGranularParams(
	flags *GranularConnFlags,
	envVars *EnvVars,
	pc *config.ConnectionConfig,
) (*pgload.ConnectionConfig, error) {
	cfg := &pgload.ConnectionConfig{
		AuthMethod:       pgload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = firstOf(flags.Host, envVars.PGHOST, pc.Host, "localhost")

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case envVars.PGPORT != "":
		port, err := strconv.Atoi(envVars.PGPORT)
		if err != nil {
			return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", envVars.PGPORT, pgload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = 5432
	}

	cfg.Username = firstOf(flags.Username, envVars.PGUSER, pc.Username, os.Getenv("USER"), os.Getenv("USERNAME"))
	cfg.Password = envVars.PGPASSWORD
	cfg.Database = firstOf(flags.Database, envVars.PGDATABASE, pc.Database, pgload.DefaultDatabase)
	cfg.SSLMode = firstOf(flags.SSLMode, envVars.PGSSLMODE, pc.SSLMode, "prefer")

	for key, value := range map[string]string{
		"sslcert":     pc.SSLCert,
		"sslkey":      pc.SSLKey,
		"sslrootcert": pc.SSLRootCert,
	} {
		if value != "" {
			if err := applyParam(cfg, key, value); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
