package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// PostgreSQL error codes for transient conditions
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 40 - Transaction Rollback
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"

	// Class 55 - Object Not In Prerequisite State
	pgCodeLockNotAvailable = "55P03"
)

// Whole SQLSTATE classes that are always transient.
var pgTransientClasses = []string{
	"08", // Connection Exception
	"53", // Insufficient Resources
	"57", // Operator Intervention (admin shutdown, crash shutdown, cannot connect now)
}

// PostgreSQLErrorClassifier implements pgload.ErrorClassifier for PostgreSQL errors.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	return isTransientNetworkError(err) || hasTransientMessage(err)
}

func isTransientPgCode(code string) bool {
	for _, class := range pgTransientClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	switch code {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
		return true
	}
	return false
}

// isContextError reports cancellation and deadline expiry. Retrying after the
// caller gave up only delays shutdown.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isTransientNetworkError checks for network-level errors shared by every driver.
func isTransientNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		if opErr.Err != nil {
			switch {
			case errors.Is(opErr.Err, syscall.ECONNREFUSED),
				errors.Is(opErr.Err, syscall.ECONNRESET),
				errors.Is(opErr.Err, syscall.ENETUNREACH),
				errors.Is(opErr.Err, syscall.EHOSTUNREACH):
				return true
			}
		}
	}

	return false
}

// transientPatterns match driver messages for dropped or refused connections
// that arrive without a typed error.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"connection pool exhausted",
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// ClassifierFor returns the classifier matching a destination driver.
// Unknown drivers get a classifier that only recognises network failures.
func ClassifierFor(d pgload.Driver) pgload.ErrorClassifier {
	switch d {
	case pgload.DriverPostgres:
		return NewPostgreSQLErrorClassifier()
	case pgload.DriverMySQL:
		return NewMySQLErrorClassifier()
	case pgload.DriverSQLite:
		return NewSQLiteErrorClassifier()
	case pgload.DriverSQLServer:
		return NewSQLServerErrorClassifier()
	default:
		return NewCompositeClassifier()
	}
}
