package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

// watched_at is stored as RFC3339 text so the original offset survives a round trip
const timestampLayout = time.RFC3339Nano

// ReplaceHistory drops every stored record and aggregate, then writes records and their labels
func (r *SQLiteRepository) ReplaceHistory(ctx context.Context, records []types.WatchRecord, sets []types.CategorySet) error {
	start := time.Now()

	if len(records) != len(sets) {
		return repoerrors.HandleValidationError("ReplaceHistory", "sets",
			strconv.Itoa(len(sets)), fmt.Sprintf("expected one category set per record (%d)", len(records)))
	}
	for i, set := range sets {
		if set.Len() == 0 {
			return repoerrors.HandleValidationError("ReplaceHistory", "sets", strconv.Itoa(i), "record has no categories")
		}
	}

	recordRows := make([][]any, len(records))
	var categoryRows [][]any
	for i, rec := range records {
		id := int64(i + 1)
		recordRows[i] = []any{id, rec.Title, rec.Channel, rec.WatchedAt.Format(timestampLayout)}
		for pos, name := range sets[i].Names() {
			categoryRows = append(categoryRows, []any{id, pos, name})
		}
	}

	batchSize := r.batchConfig.DefaultBatchSize
	err := r.WithTransaction(ctx, func(repo HistoryRepository) error {
		txRepo := repo.(*SQLiteRepository)

		for _, table := range []string{"record_categories", "watch_records", "category_counts", "daily_counts"} {
			if _, err := txRepo.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return repoerrors.NewRepositoryErrorWithContext("ReplaceHistory", err, r.classifyError(err), map[string]string{
					"phase": "clear",
					"table": table,
				})
			}
		}

		if err := txRepo.insertBatched(ctx, "ReplaceHistory",
			"INSERT INTO watch_records (id, title, channel, watched_at) VALUES ", "", 4, recordRows, batchSize); err != nil {
			return err
		}
		return txRepo.insertBatched(ctx, "ReplaceHistory",
			"INSERT INTO record_categories (record_id, position, category) VALUES ", "", 3, categoryRows, batchSize)
	})
	if err != nil {
		return err
	}

	logging.LogOperation(r.logger, "ReplaceHistory", time.Since(start), map[string]any{
		"records":    len(records),
		"labels":     len(categoryRows),
		"batch_size": batchSize,
	})
	return nil
}

// insertBatched writes rows with multi-row INSERT statements of at most batchSize rows each
func (r *SQLiteRepository) insertBatched(ctx context.Context, op, prefix, suffix string, cols int, rows [][]any, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchConfig().DefaultBatchSize
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		batch := rows[i:end]

		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(batch)*cols)
		for j, row := range batch {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
			args = append(args, row...)
		}
		sb.WriteString(suffix)

		if _, err := r.q.ExecContext(ctx, sb.String(), args...); err != nil {
			repoErr := repoerrors.NewRepositoryErrorWithContext(op, err, r.classifyError(err), map[string]string{
				"batch_index": strconv.Itoa(i),
				"batch_size":  strconv.Itoa(len(batch)),
				"total_size":  strconv.Itoa(len(rows)),
			})
			logging.LogError(r.logger, repoErr, op, map[string]any{
				"batch_index": i,
				"batch_size":  len(batch),
				"total_size":  len(rows),
			})
			return repoErr
		}
	}
	return nil
}

// ListRecords returns every stored record in insertion order, reading one batch-sized page at a time
func (r *SQLiteRepository) ListRecords(ctx context.Context) ([]types.WatchRecord, error) {
	var out []types.WatchRecord
	limit := r.batchConfig.DefaultBatchSize
	for offset := 0; ; offset += limit {
		page, err := r.ListRecordsPaginated(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]types.WatchRecord, 0, page.Total)
		}
		out = append(out, page.Records...)
		if !page.HasMore {
			return out, nil
		}
	}
}

// ListRecordsPaginated returns one page of records together with the table total
func (r *SQLiteRepository) ListRecordsPaginated(ctx context.Context, limit, offset int) (*types.PaginatedRecords, error) {
	if limit <= 0 {
		return nil, repoerrors.HandleValidationError("ListRecordsPaginated", "limit", strconv.Itoa(limit), "must be positive")
	}
	if offset < 0 {
		return nil, repoerrors.HandleValidationError("ListRecordsPaginated", "offset", strconv.Itoa(offset), "cannot be negative")
	}

	total, err := r.CountRecords(ctx)
	if err != nil {
		return nil, err
	}

	records, err := r.queryRecords(ctx, "ListRecordsPaginated",
		`SELECT title, channel, watched_at FROM watch_records ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}

	return &types.PaginatedRecords{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(records) < total,
	}, nil
}

// ListRecordsByDateRange returns records watched within [start, end], compared as UTC instants
func (r *SQLiteRepository) ListRecordsByDateRange(ctx context.Context, start, end time.Time) ([]types.WatchRecord, error) {
	if end.Before(start) {
		return nil, repoerrors.HandleValidationError("ListRecordsByDateRange", "end",
			end.Format(timestampLayout), "is before start")
	}

	// stored offsets vary, so the range is applied after parsing
	all, err := r.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.WatchRecord, 0)
	for _, rec := range all {
		if !rec.WatchedAt.Before(start) && !rec.WatchedAt.After(end) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CountRecords returns the number of stored records
func (r *SQLiteRepository) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM watch_records`).Scan(&n); err != nil {
		return 0, repoerrors.NewRepositoryError("CountRecords", err, r.classifyError(err))
	}
	return n, nil
}

// GetRecordCategories returns the stored label set of every record, aligned with ListRecords
func (r *SQLiteRepository) GetRecordCategories(ctx context.Context) ([]types.CategorySet, error) {
	total, err := r.CountRecords(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT record_id, category FROM record_categories ORDER BY record_id, position`)
	if err != nil {
		return nil, repoerrors.NewRepositoryError("GetRecordCategories", err, r.classifyError(err))
	}
	defer rows.Close()

	names := make([][]string, total)
	for rows.Next() {
		var id int64
		var category string
		if err := rows.Scan(&id, &category); err != nil {
			return nil, repoerrors.NewRepositoryError("GetRecordCategories", err, r.classifyError(err))
		}
		if id < 1 || int(id) > total {
			return nil, repoerrors.NewRepositoryErrorWithContext("GetRecordCategories",
				errors.New("category row references a record outside the snapshot"),
				repoerrors.ErrCodeCorruption, map[string]string{"record_id": strconv.FormatInt(id, 10)})
		}
		names[id-1] = append(names[id-1], category)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError("GetRecordCategories", err, r.classifyError(err))
	}

	out := make([]types.CategorySet, total)
	for i, n := range names {
		out[i] = types.NewCategorySet(n...)
	}
	return out, nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]types.WatchRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repoerrors.NewRepositoryError(op, err, r.classifyError(err))
	}
	defer rows.Close()

	out := make([]types.WatchRecord, 0)
	for rows.Next() {
		var rec types.WatchRecord
		var watchedAt string
		if err := rows.Scan(&rec.Title, &rec.Channel, &watchedAt); err != nil {
			return nil, repoerrors.NewRepositoryError(op, err, r.classifyError(err))
		}
		rec.WatchedAt, err = time.Parse(timestampLayout, watchedAt)
		if err != nil {
			return nil, repoerrors.NewRepositoryErrorWithContext(op, err, repoerrors.ErrCodeCorruption, map[string]string{
				"watched_at": watchedAt,
			})
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, repoerrors.NewRepositoryError(op, err, r.classifyError(err))
	}
	return out, nil
}
