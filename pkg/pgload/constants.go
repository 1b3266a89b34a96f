package pgload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to the destination
	ExitResumeAmbiguous = 12 // Operator chose neither continue nor restart
	ExitBatchFailed     = 13 // A batch could not be committed
	ExitSourceError     = 14 // Source file missing or unreadable
)

const (
	// DefaultBatchSize is the number of records inserted per transaction.
	DefaultBatchSize = 10000

	// DefaultDelimiter separates fields within a source line.
	DefaultDelimiter = ","

	// DefaultRetryMaxAttempts is the number of retries after the first failed
	// insert attempt of a batch. A batch is abandoned on its fourth failure.
	DefaultRetryMaxAttempts = 3

	// DefaultFailureRounds is how often a failed window is resubmitted under the retry failure policy.
	DefaultFailureRounds = 1

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultDatabase is the PostgreSQL database used when none is given.
	DefaultDatabase = "postgres"

	// ConfigFileName is the optional project configuration file.
	ConfigFileName = "pgload.yaml"

	// MaxErrorPreviewLength caps how much of a failing record is echoed in logs.
	MaxErrorPreviewLength = 200
)
