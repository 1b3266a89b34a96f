package loader

import (
	"context"
	"fmt"

	"github.com/vvka-141/pgload/internal/db"
	"github.com/vvka-141/pgload/internal/db/sqldb"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// DestinationOpener connects to the destination described by cfg.
type DestinationOpener func(ctx context.Context, cfg pgload.LoadConfig, logger pgload.Logger) (pgload.Destination, error)

// OpenDestination is the production DestinationOpener. PostgreSQL goes
// through pgx and the authentication-aware connectors; every other driver
// goes through database/sql.
func OpenDestination(ctx context.Context, cfg pgload.LoadConfig, logger pgload.Logger) (pgload.Destination, error) {
	if cfg.Driver != pgload.DriverPostgres {
		return sqldb.Open(ctx, cfg.Driver, cfg.ConnectionString)
	}

	connConfig := cfg.Connection
	if connConfig == nil {
		parsed, err := db.ParseConnectionString(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w", err)
		}
		connConfig = parsed
	}

	connector, err := db.NewConnector(connConfig, logger)
	if err != nil {
		return nil, err
	}
	logger.Verbose("Connecting to %s:%d/%s (%s)", connConfig.Host, connConfig.Port, connConfig.Database, connConfig.AuthMethod)
	return db.Connect(ctx, connector)
}
