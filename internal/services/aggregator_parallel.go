package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

// LoadParallel is Load with classification and counting split across workers.
// Each partition is tallied independently and the tallies are merged once, so the result equals Load.
// workers <= 1 falls back to Load.
func (a *Aggregator) LoadParallel(ctx context.Context, records []types.WatchRecord, workers int) (*Batch, error) {
	if workers <= 1 || len(records) < 2 {
		return a.Load(records)
	}
	start := time.Now()

	for i, r := range records {
		if err := validateRecord(i, r); err != nil {
			return nil, err
		}
	}

	workers = min(workers, len(records))
	size := (len(records) + workers - 1) / workers

	sets := make([]types.CategorySet, len(records))
	partials := make([]*tally, 0, workers)

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(records); lo += size {
		hi := min(lo+size, len(records))
		part := newTally()
		partials = append(partials, part)

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				// partitions write disjoint ranges of sets
				sets[i] = a.classify(i, records[i].Title)
				part.add(i, records[i], sets[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newTally()
	for _, p := range partials {
		merged.merge(p)
	}

	logging.LogOperation(a.logger, "load_batch", time.Since(start), map[string]interface{}{
		"records":    len(records),
		"workers":    workers,
		"partitions": len(partials),
	})
	return a.newBatch(records, sets, merged), nil
}
