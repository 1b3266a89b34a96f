package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// GoogleCloudSQLConnector connects to Cloud SQL for PostgreSQL with IAM
// database authentication through the Cloud SQL Go Connector.
//
// The dialer outlives Connect; call Close after the pool is closed.
type GoogleCloudSQLConnector struct {
	config   *pgload.ConnectionConfig
	instance string
	logger   pgload.Logger
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for the instance connection
// name "project:region:instance".
func NewGoogleCloudSQLConnector(config *pgload.ConnectionConfig, instance string, logger pgload.Logger) *GoogleCloudSQLConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &GoogleCloudSQLConnector{
		config:   config,
		instance: instance,
		logger:   logger,
	}
}

// googleDSN is the libpq string handed to pgx. TLS is done by the dialer, so
// the pgx side runs with sslmode=disable.
func googleDSN(instance string, cfg *pgload.ConnectionConfig) string {
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", instance, cfg.Username, cfg.Database)
}

func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud SQL dialer: %w: %w", pgload.ErrConnectionFailed, err)
	}

	poolConfig, err := pgxpool.ParseConfig(googleDSN(c.instance, c.config))
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", pgload.ErrInvalidConfig, err)
	}

	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	configurePool(poolConfig, c.logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w: %w", c.instance, pgload.ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, fmt.Errorf("failed to ping %s: %w: %w", c.instance, pgload.ErrConnectionFailed, err)
	}

	c.logger.Verbose("Connected to Cloud SQL instance %s as %s", c.instance, c.config.Username)
	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		c.dialer.Close()
		c.dialer = nil
	}
	return nil
}
