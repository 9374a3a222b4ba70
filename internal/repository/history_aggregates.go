package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

const dayLayout = "2006-01-02"

func strategyName(strategy types.BatchStrategy) (string, error) {
	switch strategy {
	case types.BatchStrategyInsertOnly:
		return "insert", nil
	case types.BatchStrategyUpsert:
		return "upsert", nil
	}
	return "", fmt.Errorf("unsupported batch strategy: %d", strategy)
}

// SaveCategoryCounts stores the category distribution
func (r *SQLiteRepository) SaveCategoryCounts(ctx context.Context, counts []types.CategoryCount, strategy types.BatchStrategy) error {
	rows := make([][]any, len(counts))
	for i, c := range counts {
		if strings.TrimSpace(c.Category) == "" {
			return repoerrors.HandleValidationError("SaveCategoryCounts", "category", "", "cannot be empty")
		}
		if c.Count < 0 {
			return repoerrors.HandleValidationError("SaveCategoryCounts", "count", strconv.Itoa(c.Count), "cannot be negative")
		}
		rows[i] = []any{c.Category, c.Count, c.Percentage}
	}

	return r.saveBatched(ctx, "SaveCategoryCounts", strategy, rows,
		"INSERT INTO category_counts (category, count, percentage) VALUES ", 3,
		" ON CONFLICT(category) DO UPDATE SET count = excluded.count, percentage = excluded.percentage,"+
			" updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")
}

// GetCategoryCounts returns the stored distribution by count descending, then name
func (r *SQLiteRepository) GetCategoryCounts(ctx context.Context) ([]types.CategoryCount, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT category, count, percentage FROM category_counts ORDER BY count DESC, category`)
	if err != nil {
		return nil, repoerrors.NewRepositoryError("GetCategoryCounts", err, r.classifyError(err))
	}
	defer rows.Close()

	out := make([]types.CategoryCount, 0)
	for rows.Next() {
		var c types.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count, &c.Percentage); err != nil {
			return nil, repoerrors.NewRepositoryError("GetCategoryCounts", err, r.classifyError(err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("GetCategoryCounts", err, r.classifyError(err))
	}
	return out, nil
}

// SaveDailyCounts stores the zero-filled daily series
func (r *SQLiteRepository) SaveDailyCounts(ctx context.Context, daily []types.DailyCount, strategy types.BatchStrategy) error {
	rows := make([][]any, len(daily))
	for i, d := range daily {
		if d.Count < 0 {
			return repoerrors.HandleValidationError("SaveDailyCounts", "count", strconv.Itoa(d.Count), "cannot be negative")
		}
		rows[i] = []any{d.Date.Format(dayLayout), d.Count}
	}

	return r.saveBatched(ctx, "SaveDailyCounts", strategy, rows,
		"INSERT INTO daily_counts (day, count) VALUES ", 2,
		" ON CONFLICT(day) DO UPDATE SET count = excluded.count,"+
			" updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")
}

// GetDailyCounts returns the stored daily series in ascending date order
func (r *SQLiteRepository) GetDailyCounts(ctx context.Context) ([]types.DailyCount, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT day, count FROM daily_counts ORDER BY day`)
	if err != nil {
		return nil, repoerrors.NewRepositoryError("GetDailyCounts", err, r.classifyError(err))
	}
	defer rows.Close()

	out := make([]types.DailyCount, 0)
	for rows.Next() {
		var day string
		var d types.DailyCount
		if err := rows.Scan(&day, &d.Count); err != nil {
			return nil, repoerrors.NewRepositoryError("GetDailyCounts", err, r.classifyError(err))
		}
		d.Date, err = time.Parse(dayLayout, day)
		if err != nil {
			return nil, repoerrors.NewRepositoryErrorWithContext("GetDailyCounts", err, repoerrors.ErrCodeCorruption, map[string]string{
				"day": day,
			})
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("GetDailyCounts", err, r.classifyError(err))
	}
	return out, nil
}

// saveBatched runs insertBatched in a transaction; upsertClause is appended for BatchStrategyUpsert
func (r *SQLiteRepository) saveBatched(ctx context.Context, op string, strategy types.BatchStrategy, rows [][]any, prefix string, cols int, upsertClause string) error {
	start := time.Now()

	name, err := strategyName(strategy)
	if err != nil {
		return repoerrors.NewRepositoryErrorWithContext(op, err, repoerrors.ErrCodeValidation, map[string]string{
			"strategy": strconv.Itoa(int(strategy)),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	suffix := ""
	if strategy == types.BatchStrategyUpsert {
		suffix = upsertClause
	}

	batchSize := r.batchConfig.DefaultBatchSize
	err = r.WithTransaction(ctx, func(repo HistoryRepository) error {
		return repo.(*SQLiteRepository).insertBatched(ctx, op, prefix, suffix, cols, rows, batchSize)
	})
	if err != nil {
		return err
	}

	logging.LogOperation(r.logger, op, time.Since(start), map[string]any{
		"total_size": len(rows),
		"batch_size": batchSize,
		"strategy":   name,
	})
	return nil
}
