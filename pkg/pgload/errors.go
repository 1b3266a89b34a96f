package pgload

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	summary, err := svc.Run(ctx, cfg)
//	if errors.Is(err, pgload.ErrBatchFailed) {
//	    // the next run resumes from the destination row count
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSourceIO indicates the source file could not be opened or read.
	ErrSourceIO = errors.New("source i/o error")

	// ErrBeyondEOF indicates a seek target lies past the last record.
	ErrBeyondEOF = errors.New("position beyond end of file")

	// ErrInvalidPosition indicates a negative seek target.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrSourceTruncated indicates the source ended before the planned record count.
	ErrSourceTruncated = errors.New("source ended before planned record count")

	// ErrBatchFailed indicates a batch reached the FAILED state.
	ErrBatchFailed = errors.New("batch failed")

	// ErrNotConfigured indicates an insert was attempted before the insert template was set.
	ErrNotConfigured = errors.New("insert template not configured")

	// ErrArityMismatch indicates a record does not have one field per destination column.
	ErrArityMismatch = errors.New("record arity does not match column count")

	// ErrResumeAmbiguous indicates the operator chose neither continue nor restart.
	ErrResumeAmbiguous = errors.New("resume decision not given")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrUnsupportedDriver indicates the destination driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported driver")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnsupportedDriver),
		errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrResumeAmbiguous):
		return ExitResumeAmbiguous
	case errors.Is(err, ErrBatchFailed):
		return ExitBatchFailed
	case errors.Is(err, ErrSourceIO), errors.Is(err, ErrSourceTruncated):
		return ExitSourceError
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// usageErrorPatterns are the messages cobra and pflag produce for command-line misuse.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"missing required argument",
	"accepts ",
	"required flag",
	"invalid argument",
	"flag needs an argument",
	"if any flags in the group",
}

func isUsageError(msg string) bool {
	for _, p := range usageErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
