package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/types"
)

// MockRepository is an in-memory HistoryRepository for tests of snapshot callers
type MockRepository struct {
	mu               sync.RWMutex
	records          []types.WatchRecord
	sets             []types.CategorySet
	categoryCounts   map[string]types.CategoryCount
	dailyCounts      map[string]types.DailyCount // key: date string (YYYY-MM-DD)
	replaceCallCount int
	saveCallCount    int
	loadCallCount    int
	transactionCalls int
	shouldFailSave   bool
	shouldFailLoad   bool
	shouldFailTx     bool
}

var _ HistoryRepository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		categoryCounts: make(map[string]types.CategoryCount),
		dailyCounts:    make(map[string]types.DailyCount),
	}
}

// SetFailureModes configures the mock to simulate failures
func (m *MockRepository) SetFailureModes(save, load, tx bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailSave = save
	m.shouldFailLoad = load
	m.shouldFailTx = tx
}

// GetCallCounts returns the number of times each group of methods was called
func (m *MockRepository) GetCallCounts() (replace, save, load, tx int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replaceCallCount, m.saveCallCount, m.loadCallCount, m.transactionCalls
}

// ReplaceHistory implements HistoryRepository
func (m *MockRepository) ReplaceHistory(ctx context.Context, records []types.WatchRecord, sets []types.CategorySet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replaceCallCount++

	if m.shouldFailSave {
		return errors.NewRepositoryError("ReplaceHistory", fmt.Errorf("mock save failure"), errors.ErrCodeBusy)
	}
	if len(records) != len(sets) {
		return errors.HandleValidationError("ReplaceHistory", "sets", fmt.Sprint(len(sets)), "expected one category set per record")
	}

	m.records = append([]types.WatchRecord(nil), records...)
	m.sets = append([]types.CategorySet(nil), sets...)
	m.categoryCounts = make(map[string]types.CategoryCount)
	m.dailyCounts = make(map[string]types.DailyCount)
	return nil
}

func (m *MockRepository) checkLoad(op string) error {
	m.loadCallCount++
	if m.shouldFailLoad {
		return errors.NewRepositoryError(op, fmt.Errorf("mock load failure"), errors.ErrCodeConnection)
	}
	return nil
}

// ListRecords implements HistoryRepository
func (m *MockRepository) ListRecords(ctx context.Context) ([]types.WatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("ListRecords"); err != nil {
		return nil, err
	}
	return append([]types.WatchRecord{}, m.records...), nil
}

// ListRecordsPaginated implements HistoryRepository
func (m *MockRepository) ListRecordsPaginated(ctx context.Context, limit, offset int) (*types.PaginatedRecords, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("ListRecordsPaginated"); err != nil {
		return nil, err
	}
	if limit <= 0 || offset < 0 {
		return nil, errors.HandleValidationError("ListRecordsPaginated", "limit", fmt.Sprint(limit), "invalid page")
	}

	total := len(m.records)
	start := min(offset, total)
	end := min(start+limit, total)
	return &types.PaginatedRecords{
		Records: append([]types.WatchRecord{}, m.records[start:end]...),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	}, nil
}

// ListRecordsByDateRange implements HistoryRepository
func (m *MockRepository) ListRecordsByDateRange(ctx context.Context, start, end time.Time) ([]types.WatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("ListRecordsByDateRange"); err != nil {
		return nil, err
	}

	out := []types.WatchRecord{}
	for _, r := range m.records {
		if !r.WatchedAt.Before(start) && !r.WatchedAt.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountRecords implements HistoryRepository
func (m *MockRepository) CountRecords(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("CountRecords"); err != nil {
		return 0, err
	}
	return len(m.records), nil
}

// GetRecordCategories implements HistoryRepository
func (m *MockRepository) GetRecordCategories(ctx context.Context) ([]types.CategorySet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("GetRecordCategories"); err != nil {
		return nil, err
	}
	return append([]types.CategorySet{}, m.sets...), nil
}

// SaveCategoryCounts implements HistoryRepository
func (m *MockRepository) SaveCategoryCounts(ctx context.Context, counts []types.CategoryCount, strategy types.BatchStrategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCallCount++

	if m.shouldFailSave {
		return errors.NewRepositoryError("SaveCategoryCounts", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}

	for _, c := range counts {
		if _, exists := m.categoryCounts[c.Category]; exists && strategy == types.BatchStrategyInsertOnly {
			return errors.NewRepositoryError("SaveCategoryCounts", fmt.Errorf("duplicate category %q", c.Category), errors.ErrCodeDuplicate)
		}
		m.categoryCounts[c.Category] = c
	}
	return nil
}

// GetCategoryCounts implements HistoryRepository
func (m *MockRepository) GetCategoryCounts(ctx context.Context) ([]types.CategoryCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("GetCategoryCounts"); err != nil {
		return nil, err
	}

	out := make([]types.CategoryCount, 0, len(m.categoryCounts))
	for _, c := range m.categoryCounts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// SaveDailyCounts implements HistoryRepository
func (m *MockRepository) SaveDailyCounts(ctx context.Context, daily []types.DailyCount, strategy types.BatchStrategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCallCount++

	if m.shouldFailSave {
		return errors.NewRepositoryError("SaveDailyCounts", fmt.Errorf("mock save failure"), errors.ErrCodeConnection)
	}

	for _, d := range daily {
		key := d.Date.Format("2006-01-02")
		if _, exists := m.dailyCounts[key]; exists && strategy == types.BatchStrategyInsertOnly {
			return errors.NewRepositoryError("SaveDailyCounts", fmt.Errorf("duplicate day %s", key), errors.ErrCodeDuplicate)
		}
		m.dailyCounts[key] = d
	}
	return nil
}

// GetDailyCounts implements HistoryRepository
func (m *MockRepository) GetDailyCounts(ctx context.Context) ([]types.DailyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLoad("GetDailyCounts"); err != nil {
		return nil, err
	}

	out := make([]types.DailyCount, 0, len(m.dailyCounts))
	for _, d := range m.dailyCounts {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// WithTransaction implements HistoryRepository. The mock has no rollback.
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repo HistoryRepository) error) error {
	m.mu.Lock()
	m.transactionCalls++
	shouldFail := m.shouldFailTx
	m.mu.Unlock()

	if shouldFail {
		return errors.NewRepositoryError("WithTransaction", fmt.Errorf("mock transaction failure"), errors.ErrCodeTransaction)
	}
	return fn(m)
}
