package retry

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteErrorClassifier implements pgload.ErrorClassifier for SQLite.
// Only lock contention is transient; everything else is a local file or SQL problem.
type SQLiteErrorClassifier struct{}

// NewSQLiteErrorClassifier creates a new SQLite error classifier.
func NewSQLiteErrorClassifier() *SQLiteErrorClassifier {
	return &SQLiteErrorClassifier{}
}

// IsTransient determines if an error is temporary and retryable.
func (c *SQLiteErrorClassifier) IsTransient(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// Extended result codes carry the primary code in the low byte.
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	return false
}
