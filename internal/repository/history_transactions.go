package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
)

// WithTransaction runs fn in a transaction, retrying retryable failures of the whole unit.
// Calls made on a transaction-scoped repository join the open transaction.
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(repo HistoryRepository) error) error {
	if r.inTx {
		return fn(r)
	}

	start := time.Now()

	err := repoerrors.WithRetryContext(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			repoErr := repoerrors.NewRepositoryError("WithTransaction.Begin", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error beginning transaction", "error", err)
			} else {
				logging.LogError(r.logger, repoErr, "WithTransaction.Begin", nil)
			}
			return repoErr
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				r.logger.Debug("Failed to rollback transaction", "rollback_error", rollbackErr)
			}
		}()

		txRepo := &SQLiteRepository{
			db:          r.db,
			q:           tx,
			inTx:        true,
			dbService:   r.dbService,
			retryConfig: r.retryConfig,
			batchConfig: r.batchConfig,
			logger:      r.logger,
		}

		// fn returns repository errors already; pass them through unwrapped
		if err := fn(txRepo); err != nil {
			r.logger.Debug("Transaction function failed", "error", err)
			return err
		}

		if err := tx.Commit(); err != nil {
			repoErr := repoerrors.NewRepositoryError("WithTransaction.Commit", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error committing transaction", "error", err)
			} else {
				logging.LogError(r.logger, repoErr, "WithTransaction.Commit", nil)
			}
			return repoErr
		}
		committed = true
		return nil
	}, "WithTransaction")

	if err == nil {
		logging.LogOperation(r.logger, "WithTransaction", time.Since(start), nil)
	}
	return err
}
