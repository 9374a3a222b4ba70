package repository

import (
	"context"
	"testing"
	"time"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/testutils"
	"watchlens/internal/types"
)

func TestSQLiteRepository_CategoryCounts(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	counts := []types.CategoryCount{
		{Category: "Educational", Count: 3, Percentage: 42.85},
		{Category: "Tech", Count: 2, Percentage: 28.57},
		{Category: "Gaming", Count: 1, Percentage: 14.28},
		{Category: "Entertainment", Count: 1, Percentage: 14.28},
		{Category: types.OtherCategory, Count: 1, Percentage: 14.28},
	}
	if err := repo.SaveCategoryCounts(ctx, counts, types.BatchStrategyInsertOnly); err != nil {
		t.Fatalf("SaveCategoryCounts failed: %v", err)
	}

	got, err := repo.GetCategoryCounts(ctx)
	if err != nil {
		t.Fatalf("GetCategoryCounts failed: %v", err)
	}
	want := []string{"Educational", "Tech", "Entertainment", "Gaming", types.OtherCategory}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Category != name {
			t.Errorf("row %d = %q, want %q", i, got[i].Category, name)
		}
	}

	// insert-only fails on the existing key
	err = repo.SaveCategoryCounts(ctx, []types.CategoryCount{{Category: "Tech", Count: 9}}, types.BatchStrategyInsertOnly)
	if !repoerrors.IsDuplicate(err) {
		t.Errorf("expected duplicate error, got %v", err)
	}

	if err := repo.SaveCategoryCounts(ctx, []types.CategoryCount{{Category: "Tech", Count: 9, Percentage: 90}}, types.BatchStrategyUpsert); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	got, err = repo.GetCategoryCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Category != "Tech" || got[0].Count != 9 || got[0].Percentage != 90 {
		t.Errorf("upsert did not update the row: %+v", got[0])
	}
}

func TestSQLiteRepository_SaveCategoryCounts_Validation(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		counts   []types.CategoryCount
		strategy types.BatchStrategy
	}{
		{name: "empty category", counts: []types.CategoryCount{{Category: " ", Count: 1}}},
		{name: "negative count", counts: []types.CategoryCount{{Category: "Tech", Count: -1}}},
		{name: "unknown strategy", counts: []types.CategoryCount{{Category: "Tech", Count: 1}}, strategy: types.BatchStrategy(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.SaveCategoryCounts(ctx, tt.counts, tt.strategy)
			if !repoerrors.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSQLiteRepository_DailyCounts(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	// more rows than the test batch size
	var daily []types.DailyCount
	for d := testutils.Day("2024-01-01"); !d.After(testutils.Day("2024-01-10")); d = d.AddDate(0, 0, 1) {
		daily = append(daily, types.DailyCount{Date: d, Count: d.Day() % 3})
	}
	if err := repo.SaveDailyCounts(ctx, daily, types.BatchStrategyInsertOnly); err != nil {
		t.Fatalf("SaveDailyCounts failed: %v", err)
	}

	got, err := repo.GetDailyCounts(ctx)
	if err != nil {
		t.Fatalf("GetDailyCounts failed: %v", err)
	}
	if len(got) != len(daily) {
		t.Fatalf("got %d days, want %d", len(got), len(daily))
	}
	for i := range daily {
		if !got[i].Date.Equal(daily[i].Date) || got[i].Count != daily[i].Count {
			t.Errorf("day %d = %+v, want %+v", i, got[i], daily[i])
		}
	}

	update := []types.DailyCount{{Date: testutils.Day("2024-01-05"), Count: 50}}
	if err := repo.SaveDailyCounts(ctx, update, types.BatchStrategyUpsert); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	got, err = repo.GetDailyCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got[4].Count != 50 {
		t.Errorf("2024-01-05 = %d after upsert, want 50", got[4].Count)
	}

	if err := repo.SaveDailyCounts(ctx, []types.DailyCount{{Date: time.Now(), Count: -1}}, types.BatchStrategyUpsert); !repoerrors.IsValidation(err) {
		t.Errorf("negative count should be rejected, got %v", err)
	}
}

func TestSQLiteRepository_SaveEmpty(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveCategoryCounts(ctx, nil, types.BatchStrategyUpsert); err != nil {
		t.Errorf("empty category save: %v", err)
	}
	if err := repo.SaveDailyCounts(ctx, nil, types.BatchStrategyInsertOnly); err != nil {
		t.Errorf("empty daily save: %v", err)
	}
}
