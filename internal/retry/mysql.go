package retry

import (
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers for transient conditions
// See: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	mysqlTooManyConnections = 1040
	mysqlServerShutdown     = 1053
	mysqlLockWaitTimeout    = 1205
	mysqlDeadlock           = 1213
	mysqlQueryInterrupted   = 1317
)

// MySQLErrorClassifier implements pgload.ErrorClassifier for MySQL and MariaDB.
type MySQLErrorClassifier struct{}

// NewMySQLErrorClassifier creates a new MySQL error classifier.
func NewMySQLErrorClassifier() *MySQLErrorClassifier {
	return &MySQLErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *MySQLErrorClassifier) IsTransient(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlTooManyConnections, mysqlServerShutdown, mysqlLockWaitTimeout,
			mysqlDeadlock, mysqlQueryInterrupted:
			return true
		}
		return false
	}

	// Server gone away / lost connection surface as these rather than numbered errors.
	if errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	return isTransientNetworkError(err) || hasTransientMessage(err)
}
