package db

import (
	"context"
	"time"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
// Implementations exist for AWS RDS IAM and Azure Entra ID; tests substitute fakes.
type TokenProvider interface {
	// GetToken acquires a token that is sent as the PostgreSQL password.
	// Returns the token string and its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// awsTokenLifetime is how long an RDS IAM token is accepted after it is signed.
const awsTokenLifetime = 15 * time.Minute
