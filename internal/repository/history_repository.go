package repository

import (
	"context"
	"database/sql"

	"watchlens/internal/database"
	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repository queries through
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BatchConfig holds configuration for batch operations
type BatchConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
}

// DefaultBatchConfig returns sensible defaults for batch operations.
// 4 columns x 1000 rows stays under SQLite's bound parameter limit.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		DefaultBatchSize: 500,
		MaxBatchSize:     1000,
	}
}

// SQLiteRepository implements HistoryRepository on the snapshot database
type SQLiteRepository struct {
	db          *sql.DB
	q           dbtx
	inTx        bool
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	batchConfig *BatchConfig
	logger      logging.Logger
}

var _ HistoryRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository. The batch size follows the service's database config.
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	batchConfig := DefaultBatchConfig()
	if cfg := dbService.Config(); cfg != nil && cfg.BatchSize > 0 {
		batchConfig.DefaultBatchSize = min(cfg.BatchSize, batchConfig.MaxBatchSize)
	}
	return NewSQLiteRepositoryWithConfig(dbService, nil, batchConfig, logger)
}

// NewSQLiteRepositoryWithConfig creates a repository with custom retry and batch configuration
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, batchConfig *BatchConfig, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if batchConfig == nil {
		batchConfig = DefaultBatchConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db := dbService.DB()
	return &SQLiteRepository{
		db:          db,
		q:           db,
		dbService:   dbService,
		retryConfig: retryConfig,
		batchConfig: batchConfig,
		logger:      logger,
	}
}

// classifyError classifies database errors into repository error codes
func (r *SQLiteRepository) classifyError(err error) repoerrors.ErrorCode {
	return repoerrors.ClassifyError(err)
}
