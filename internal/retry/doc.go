// Package retry provides bounded retry with exponential backoff for
// operations that fail transiently, such as a batch insert that hits a
// deadlock or a dropped connection.
//
// # Example Usage
//
//	classifier := retry.ClassifierFor(pgload.DriverPostgres)
//	strategy := retry.NewExponentialBackoff(pgload.DefaultRetryMaxAttempts)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	attempts, err := executor.ExecuteCounted(ctx, func(ctx context.Context) error {
//	    return insertBatch(ctx)
//	})
//
// # Error Classification
//
// An ErrorClassifier decides whether a failure is worth another attempt.
// There is one classifier per destination family (PostgreSQL, MySQL, SQLite,
// SQL Server) plus a CompositeClassifier that combines them. Context
// cancellation is never transient.
//
// # Attempt Budget
//
// MaxAttempts counts retries, not attempts: with MaxAttempts() == 3 an
// operation runs at most four times and succeeds if and only if one of those
// four runs succeeds.
package retry
