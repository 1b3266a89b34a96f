package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/retry"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// tokenExpiryWarning is how close to expiry a freshly issued token has to be
// before a warning is logged. A long load outlives the token, but pgx only
// needs it at connection time.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *pgload.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        pgload.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *pgload.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger pgload.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newConnectRetry(logger),
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Acquiring token from %s", c.tokenProvider)

	return connectWithRetry(ctx, c.retryExecutor, c.config, c.logger, func(ctx context.Context) (string, error) {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to acquire %s token: %w: %w", c.providerName, pgload.ErrConnectionFailed, err)
		}

		if left := time.Until(expiresOn); left < tokenExpiryWarning {
			c.logger.Warn("%s token expires in %v", c.providerName, left.Round(time.Second))
		}

		configWithToken := *c.config
		configWithToken.Password = token
		return BuildConnectionString(&configWithToken), nil
	})
}
