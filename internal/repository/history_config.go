package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
)

// SetRetryConfig updates the retry configuration for the repository
func (r *SQLiteRepository) SetRetryConfig(config *repoerrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

// SetLogger updates the logger for the repository
func (r *SQLiteRepository) SetLogger(logger logging.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// GetBatchConfig returns the current batch configuration
func (r *SQLiteRepository) GetBatchConfig() *BatchConfig {
	return r.batchConfig
}

// GetRetryConfig returns the current retry configuration
func (r *SQLiteRepository) GetRetryConfig() *repoerrors.RetryConfig {
	return r.retryConfig
}

// SetBatchSize changes the number of rows written per INSERT statement
func (r *SQLiteRepository) SetBatchSize(batchSize int) error {
	if batchSize <= 0 {
		return repoerrors.NewRepositoryError("SetBatchSize",
			errors.New("batch size must be positive"), repoerrors.ErrCodeValidation)
	}
	if batchSize > r.batchConfig.MaxBatchSize {
		return repoerrors.NewRepositoryError("SetBatchSize",
			fmt.Errorf("batch size %d exceeds maximum allowed %d", batchSize, r.batchConfig.MaxBatchSize),
			repoerrors.ErrCodeValidation)
	}

	r.batchConfig.DefaultBatchSize = batchSize
	r.logger.Debug("Updated batch size configuration", "new_batch_size", batchSize)
	return nil
}

// HealthCheck pings the database and checks that the snapshot schema is present
func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	start := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := r.db.PingContext(ctx); err != nil {
			repoErr := repoerrors.NewRepositoryError("HealthCheck.Ping", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in health check ping", "error", err)
			} else {
				logging.LogError(r.logger, repoErr, "HealthCheck.Ping", nil)
			}
			return repoErr
		}
		return nil
	})
	if err != nil {
		return err
	}

	var tables int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('watch_records', 'record_categories', 'category_counts', 'daily_counts')`).
		Scan(&tables)
	if err != nil {
		repoErr := repoerrors.NewRepositoryError("HealthCheck.Query", err, r.classifyError(err))
		logging.LogError(r.logger, repoErr, "HealthCheck.Query", nil)
		return repoErr
	}
	if tables != 4 {
		return repoerrors.HandleSchemaError("HealthCheck", fmt.Sprintf("expected 4 snapshot tables, found %d", tables))
	}

	logging.LogOperation(r.logger, "HealthCheck", time.Since(start), nil)
	return nil
}
