package retry

import (
	"errors"

	mssql "github.com/microsoft/go-mssqldb"
)

// SQL Server and Azure SQL error numbers for transient conditions
// See: https://learn.microsoft.com/en-us/azure/azure-sql/database/troubleshoot-common-errors-issues
var sqlServerTransientNumbers = map[int32]bool{
	1205:  true, // deadlock victim
	1222:  true, // lock request time out
	4060:  true, // cannot open database (failover in progress)
	40197: true, // service error processing request
	40501: true, // service busy
	40613: true, // database not currently available
	49918: true, // not enough resources
	49919: true, // too many create/update operations
	49920: true, // too many operations in progress
}

// SQLServerErrorClassifier implements pgload.ErrorClassifier for SQL Server.
type SQLServerErrorClassifier struct{}

// NewSQLServerErrorClassifier creates a new SQL Server error classifier.
func NewSQLServerErrorClassifier() *SQLServerErrorClassifier {
	return &SQLServerErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *SQLServerErrorClassifier) IsTransient(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return sqlServerTransientNumbers[msErr.Number]
	}

	return isTransientNetworkError(err) || hasTransientMessage(err)
}
