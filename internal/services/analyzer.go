package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

const tracerName = "watchlens/services"

// AnalysisOptions controls the size and shape of the report bundle
type AnalysisOptions struct {
	TopKeywords    int               `json:"topKeywords" yaml:"topKeywords"`
	TopChannels    int               `json:"topChannels" yaml:"topChannels"`
	RollingWindows []int             `json:"rollingWindows" yaml:"rollingWindows"`
	Granularity    types.Granularity `json:"granularity" yaml:"granularity"`
	Workers        int               `json:"workers" yaml:"workers"`
}

// DefaultAnalysisOptions returns the report sizes the tool has always produced
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		TopKeywords:    100,
		TopChannels:    20,
		RollingWindows: []int{7, 30},
		Granularity:    types.GranularityMonth,
		Workers:        1,
	}
}

// Validate checks the options for values the aggregator cannot honor
func (o AnalysisOptions) Validate() error {
	if o.TopKeywords < 0 {
		return fmt.Errorf("top keywords cannot be negative: %d", o.TopKeywords)
	}
	if o.TopChannels < 0 {
		return fmt.Errorf("top channels cannot be negative: %d", o.TopChannels)
	}
	for _, w := range o.RollingWindows {
		if w < 1 {
			return fmt.Errorf("rolling window must be at least 1: %d", w)
		}
	}
	if !o.Granularity.Valid() {
		return fmt.Errorf("unknown granularity %q", o.Granularity)
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1: %d", o.Workers)
	}
	return nil
}

// Analysis is the outcome of one run: the classified batch and its report bundle
type Analysis struct {
	Batch *Batch
	Stats *types.AggregateStats
}

// Analyzer runs the full classification and aggregation pass over a record stream
type Analyzer struct {
	aggregator *Aggregator
	options    AnalysisOptions
	logger     logging.Logger
	now        func() time.Time
}

// NewAnalyzer creates an analyzer. Invalid options are rejected.
func NewAnalyzer(classifier *Classifier, options AnalysisOptions, logger logging.Logger) (*Analyzer, error) {
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("analysis options: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Analyzer{
		aggregator: NewAggregator(classifier, logger),
		options:    options,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Options returns the analyzer's options
func (an *Analyzer) Options() AnalysisOptions {
	return an.options
}

// Analyze validates, classifies and aggregates records into the full report bundle
func (an *Analyzer) Analyze(ctx context.Context, records []types.WatchRecord) (*Analysis, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("workers", an.options.Workers),
	)

	start := time.Now()

	batch, err := an.aggregator.LoadParallel(ctx, records, an.options.Workers)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load records: %w", err)
	}

	_, aggSpan := otel.Tracer(tracerName).Start(ctx, "aggregate")
	stats, err := an.assemble(batch)
	aggSpan.End()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logging.LogOperation(an.logger, "analyze", time.Since(start), map[string]interface{}{
		"records":               batch.Len(),
		"categories":            len(stats.CategoryCounts),
		"multi_category_videos": stats.MultiCategoryVideos,
	})
	return &Analysis{Batch: batch, Stats: stats}, nil
}

func (an *Analyzer) assemble(b *Batch) (*types.AggregateStats, error) {
	rolling, err := b.RollingSeries(an.options.RollingWindows...)
	if err != nil {
		return nil, fmt.Errorf("rolling averages: %w", err)
	}

	categoryStats := b.CategoryStats()
	names := make([]string, len(categoryStats))
	for i, c := range categoryStats {
		names[i] = c.Category
	}

	return &types.AggregateStats{
		GeneratedAt:         an.now().UTC(),
		Granularity:         an.options.Granularity,
		Basic:               b.BasicStats(),
		CategoryCounts:      b.CategoryCounts(),
		CategoryStats:       categoryStats,
		CategoryByPeriod:    b.CategoryByPeriod(an.options.Granularity),
		MultiCategoryVideos: b.MultiCategoryCount(),
		TopKeywords:         b.TopKeywords(an.options.TopKeywords),
		ChannelCounts:       b.ChannelCounts(),
		TopChannels:         b.RankChannels(an.options.TopChannels),
		MonthlyTopChannels:  b.MonthlyTopChannels(),
		TimePatterns:        b.TimePatterns(),
		MonthlyHeatmap:      b.MonthlyHeatmap(),
		SeasonalShare:       b.SeasonalShare(),
		DailyCounts:         b.DailyCounts(),
		Rolling:             rolling,
		Correlation:         b.CategoryCorrelation(names),
	}, nil
}
