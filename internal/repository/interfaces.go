package repository

import (
	"context"
	"time"

	"watchlens/internal/types"
)

// HistoryRepository persists the classified watch history snapshot and its headline aggregates
type HistoryRepository interface {
	// Records
	// ReplaceHistory drops the stored snapshot and writes records with their labels in one transaction.
	// sets[i] holds the labels of records[i].
	ReplaceHistory(ctx context.Context, records []types.WatchRecord, sets []types.CategorySet) error
	ListRecords(ctx context.Context) ([]types.WatchRecord, error)
	ListRecordsPaginated(ctx context.Context, limit, offset int) (*types.PaginatedRecords, error)
	ListRecordsByDateRange(ctx context.Context, start, end time.Time) ([]types.WatchRecord, error)
	CountRecords(ctx context.Context) (int, error)
	GetRecordCategories(ctx context.Context) ([]types.CategorySet, error)

	// Aggregates
	// SaveCategoryCounts and SaveDailyCounts write with the given strategy:
	// - BatchStrategyInsertOnly: insert rows, failing on conflicts
	// - BatchStrategyUpsert: update existing rows on conflicts
	SaveCategoryCounts(ctx context.Context, counts []types.CategoryCount, strategy types.BatchStrategy) error
	GetCategoryCounts(ctx context.Context) ([]types.CategoryCount, error)
	SaveDailyCounts(ctx context.Context, daily []types.DailyCount, strategy types.BatchStrategy) error
	GetDailyCounts(ctx context.Context) ([]types.DailyCount, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(repo HistoryRepository) error) error
}
