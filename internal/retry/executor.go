package retry

import (
	"context"
	"time"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Executor runs an operation, retrying transient failures with backoff.
//
// WithOnRetry returns a new instance, so one base Executor can be shared and
// specialised per call site without shared mutable state.
type Executor struct {
	classifier pgload.ErrorClassifier
	strategy   pgload.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor with the given configuration.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier pgload.ErrorClassifier, strategy pgload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
	}
}

// WithOnRetry returns a new Executor that calls callback before each retry.
// attempt is the zero-indexed retry number.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs the operation with retry logic and returns the outcome of the
// last attempt.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	_, err := e.ExecuteCounted(ctx, operation)
	return err
}

// ExecuteCounted is Execute that also reports how many times the operation ran.
// The retry counter lives only for the duration of this call.
func (e *Executor) ExecuteCounted(ctx context.Context, operation func(ctx context.Context) error) (int, error) {
	maxRetries := e.strategy.MaxAttempts()

	attempts := 1
	lastErr := operation(ctx)
	if lastErr == nil {
		return attempts, nil
	}
	if !e.classifier.IsTransient(lastErr) {
		return attempts, lastErr
	}

	// A negative budget retries until success, a fatal error or cancellation.
	for retry := 0; maxRetries < 0 || retry < maxRetries; retry++ {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		delay := e.strategy.NextDelay(retry)
		if e.onRetry != nil {
			e.onRetry(retry, lastErr, delay)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempts, ctx.Err()
			case <-timer.C:
			}
		}

		attempts++
		lastErr = operation(ctx)
		if lastErr == nil {
			return attempts, nil
		}
		if !e.classifier.IsTransient(lastErr) {
			return attempts, lastErr
		}
	}

	return attempts, lastErr
}
