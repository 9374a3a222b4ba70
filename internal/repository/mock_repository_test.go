package repository

import (
	"context"
	"testing"

	repoerrors "watchlens/internal/infrastructure/errors"
	"watchlens/internal/types"
)

func TestMockRepository(t *testing.T) {
	ctx := context.Background()
	records, sets := classifiedSample()

	mock := NewMockRepository()
	if err := mock.ReplaceHistory(ctx, records, sets); err != nil {
		t.Fatal(err)
	}
	page, err := mock.ListRecordsPaginated(ctx, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Records) != 2 || page.HasMore {
		t.Errorf("unexpected page %+v", page)
	}

	if err := mock.SaveDailyCounts(ctx, []types.DailyCount{{Date: records[0].WatchedAt, Count: 2}}, types.BatchStrategyInsertOnly); err != nil {
		t.Fatal(err)
	}
	err = mock.SaveDailyCounts(ctx, []types.DailyCount{{Date: records[0].WatchedAt, Count: 3}}, types.BatchStrategyInsertOnly)
	if !repoerrors.IsDuplicate(err) {
		t.Errorf("expected duplicate error, got %v", err)
	}

	mock.SetFailureModes(false, true, false)
	if _, err := mock.ListRecords(ctx); !repoerrors.IsConnection(err) {
		t.Errorf("expected simulated load failure, got %v", err)
	}

	replace, save, load, _ := mock.GetCallCounts()
	if replace != 1 || save != 2 || load != 2 {
		t.Errorf("call counts = %d/%d/%d", replace, save, load)
	}
}
