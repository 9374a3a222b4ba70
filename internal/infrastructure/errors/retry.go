package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

// RetryLogger receives retry progress messages
type RetryLogger interface {
	Printf(format string, v ...interface{})
}

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxAttempts     int           // total attempts including the first
	InitialDelay    time.Duration // delay before the second attempt
	MaxDelay        time.Duration // upper bound on any single delay
	BackoffFactor   float64       // exponential growth per attempt
	Jitter          bool          // add up to 25% random jitter
	RetryableErrors []ErrorCode   // codes eligible for retry
}

var (
	retryLoggerMu sync.RWMutex
	retryLogger   RetryLogger
)

// DefaultRetryConfig retries transient SQLite contention a few times
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeTransaction,
			ErrCodeBusy,
		},
	}
}

// RetryableOperation represents an operation that can be retried
type RetryableOperation func() error

// SetRetryLogger sets the package-level logger for retry operations
func SetRetryLogger(logger RetryLogger) {
	retryLoggerMu.Lock()
	defer retryLoggerMu.Unlock()
	retryLogger = logger
}

func logRetryMessage(format string, v ...interface{}) {
	retryLoggerMu.RLock()
	l := retryLogger
	retryLoggerMu.RUnlock()
	if l != nil {
		l.Printf(format, v...)
	}
}

// WithRetry executes an operation with retry logic
func WithRetry(ctx context.Context, config *RetryConfig, operation RetryableOperation) error {
	return WithRetryContext(ctx, config, operation, "")
}

// WithRetryContext executes a named operation with retry logic. The name only shows up in messages.
func WithRetryContext(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	label := "operation"
	if operationName != "" {
		label = fmt.Sprintf("operation '%s'", operationName)
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logRetryMessage("%s succeeded after %d attempts", label, attempt+1)
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, config) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)
		logRetryMessage("%s failed (attempt %d/%d), retrying in %v: %v", label, attempt+1, config.MaxAttempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during retry: %w", label, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", label, config.MaxAttempts, lastErr)
}

// shouldRetry only retries RepositoryErrors that are retryable and whose code is listed
func shouldRetry(err error, config *RetryConfig) bool {
	var repoErr *RepositoryError
	if !errors.As(err, &repoErr) {
		return false
	}
	return repoErr.IsRetryable() && slices.Contains(config.RetryableErrors, repoErr.Code)
}

// calculateDelay returns the backoff delay before attempt+1, capped at MaxDelay
func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for range attempt {
		multiplier *= config.BackoffFactor
	}

	delay := time.Duration(float64(config.InitialDelay) * multiplier)
	if config.Jitter && delay > 0 {
		if jitter := int64(float64(delay) * 0.25); jitter > 0 {
			delay += time.Duration(rand.Int64N(jitter))
		}
	}
	return min(delay, config.MaxDelay)
}
