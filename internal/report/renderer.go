package report

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/services"
	"watchlens/internal/types"
)

// ChartRenderer draws the report charts as PNG files. Font faces are not safe
// for concurrent use, so a renderer draws one chart at a time.
type ChartRenderer struct {
	width  int
	height int
	fonts  *fontSet
	logger logging.Logger
}

// NewChartRenderer loads the chart font. An empty fontPath uses the built-in face.
func NewChartRenderer(fontPath string, width, height int, logger logging.Logger) (*ChartRenderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("chart size must be positive, got %dx%d", width, height)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fonts, err := loadFonts(fontPath)
	if err != nil {
		return nil, fmt.Errorf("load chart font: %w", err)
	}
	if fontPath == "" {
		logger.Debug("Using built-in chart font")
	}

	return &ChartRenderer{width: width, height: height, fonts: fonts, logger: logger}, nil
}

type chartJob struct {
	file string
	draw func(path string) error
}

// RenderAll writes every chart for the analysis into dir and returns the written paths
func (r *ChartRenderer) RenderAll(ctx context.Context, dir string, a *services.Analysis) ([]string, error) {
	if a.Batch.Len() == 0 {
		r.logger.Info("No records to chart; skipping figures")
		return []string{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create figures directory: %w", err)
	}

	stats := a.Stats
	jobs := []chartJob{
		{"category_distribution.png", func(p string) error { return r.categoryDistribution(p, stats) }},
		{"category_evolution.png", func(p string) error { return r.categoryEvolution(p, stats) }},
		{"top_channels.png", func(p string) error { return r.topChannels(p, stats) }},
		{"weekly_patterns.png", func(p string) error { return r.weeklyPatterns(p, stats) }},
		{"monthly_trends.png", func(p string) error { return r.monthlyTrends(p, stats) }},
		{"daily_views.png", func(p string) error { return r.dailyViews(p, stats) }},
		{"monthly_heatmap.png", func(p string) error { return r.monthlyHeatmap(p, stats) }},
		{"seasonal_patterns.png", func(p string) error { return r.seasonalPatterns(p, stats) }},
		{"category_correlations.png", func(p string) error { return r.categoryCorrelations(p, stats) }},
	}

	written := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		start := time.Now()
		path := filepath.Join(dir, job.file)
		if err := job.draw(path); err != nil {
			return written, err
		}
		r.logger.Debug("Rendered chart", "file", job.file, "duration_ms", time.Since(start).Milliseconds())
		written = append(written, path)
	}
	return written, nil
}

func (r *ChartRenderer) categoryDistribution(path string, s *types.AggregateStats) error {
	ch := barChart{Title: "Content Category Distribution", YLabel: "Percentage of Videos (%)"}
	for _, c := range s.CategoryStats {
		ch.Labels = append(ch.Labels, c.Category)
		ch.Values = append(ch.Values, c.Percentage)
		ch.Annotations = append(ch.Annotations, percentLabel(c.Percentage))
	}
	return r.drawBars(path, ch)
}

func (r *ChartRenderer) categoryEvolution(path string, s *types.AggregateStats) error {
	periods := services.SortedPeriods(s.CategoryByPeriod)
	ch := areaChart{
		Title:   "Evolution of Content Categories Over Time",
		YLabel:  "Number of Videos",
		XLabels: periods,
	}
	for _, c := range s.CategoryStats {
		series := make([]float64, len(periods))
		for i, p := range periods {
			series[i] = float64(s.CategoryByPeriod[p][c.Category])
		}
		ch.Names = append(ch.Names, c.Category)
		ch.Values = append(ch.Values, series)
	}
	return r.drawStackedArea(path, ch)
}

func (r *ChartRenderer) topChannels(path string, s *types.AggregateStats) error {
	ch := barChart{
		Title:  fmt.Sprintf("Top %d Most Watched Channels", len(s.TopChannels)),
		YLabel: "Number of Videos",
	}
	for _, c := range s.TopChannels {
		ch.Labels = append(ch.Labels, c.Channel)
		ch.Values = append(ch.Values, float64(c.Count))
		ch.Annotations = append(ch.Annotations, percentLabel(c.Percentage))
	}
	return r.drawBars(path, ch)
}

func (r *ChartRenderer) weeklyPatterns(path string, s *types.AggregateStats) error {
	ch := barChart{Title: "Viewing Patterns by Day of Week", YLabel: "Number of Videos"}
	for _, w := range s.TimePatterns.Weekday {
		ch.Labels = append(ch.Labels, w.Weekday)
		ch.Values = append(ch.Values, float64(w.Count))
		ch.Annotations = append(ch.Annotations, humanize.Comma(int64(w.Count)))
	}
	return r.drawBars(path, ch)
}

func (r *ChartRenderer) monthlyTrends(path string, s *types.AggregateStats) error {
	ch := barChart{Title: "Monthly Viewing Trends", YLabel: "Number of Videos"}
	for _, y := range sortedKeys(s.MonthlyHeatmap) {
		for _, m := range sortedKeys(s.MonthlyHeatmap[y]) {
			ch.Labels = append(ch.Labels, fmt.Sprintf("%04d-%02d", y, m))
			ch.Values = append(ch.Values, float64(s.MonthlyHeatmap[y][m]))
		}
	}
	return r.drawBars(path, ch)
}

func (r *ChartRenderer) dailyViews(path string, s *types.AggregateStats) error {
	ch := lineChart{Title: "Daily Viewing Patterns", YLabel: "Number of Videos Watched"}

	daily := lineSeries{Name: "Daily Views", Width: 1, Faint: true}
	for _, d := range s.DailyCounts {
		ch.XLabels = append(ch.XLabels, d.Date.Format("2006-01-02"))
		daily.Values = append(daily.Values, float64(d.Count))
	}
	ch.Series = append(ch.Series, daily)

	for _, rs := range s.Rolling {
		line := lineSeries{Name: fmt.Sprintf("%d-day Moving Average", rs.Window), Width: 2}
		for _, p := range rs.Points {
			if p.Average == nil {
				line.Values = append(line.Values, math.NaN())
				continue
			}
			line.Values = append(line.Values, *p.Average)
		}
		ch.Series = append(ch.Series, line)
	}

	ch.Peak = func(i int, v float64) string {
		return fmt.Sprintf("Peak: %s videos on %s", humanize.Comma(int64(v)), ch.XLabels[i])
	}
	return r.drawLines(path, ch)
}

func (r *ChartRenderer) monthlyHeatmap(path string, s *types.AggregateStats) error {
	years := sortedKeys(s.MonthlyHeatmap)
	ch := heatmapChart{
		Title:  "Monthly Viewing Activity",
		Cols:   monthAbbreviations(),
		Format: func(v float64) string { return humanize.Comma(int64(v)) },
	}
	for _, y := range years {
		ch.Rows = append(ch.Rows, strconv.Itoa(y))
		row := make([]float64, 12)
		for m, n := range s.MonthlyHeatmap[y] {
			row[m-1] = float64(n)
		}
		ch.Values = append(ch.Values, row)
	}
	ch.Skip = func(i, j int) bool {
		_, ok := s.MonthlyHeatmap[years[i]][j+1]
		return !ok
	}
	return r.drawHeatmap(path, ch)
}

func (r *ChartRenderer) seasonalPatterns(path string, s *types.AggregateStats) error {
	years := sortedKeys(s.SeasonalShare)
	ch := heatmapChart{
		Title:  "Seasonal Viewing Patterns (Normalized by Year)",
		Cols:   monthAbbreviations(),
		Format: func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
	}
	for _, y := range years {
		ch.Rows = append(ch.Rows, strconv.Itoa(y))
		row := make([]float64, 12)
		for m, share := range s.SeasonalShare[y] {
			row[m-1] = share
		}
		ch.Values = append(ch.Values, row)
	}
	ch.Skip = func(i, j int) bool {
		_, ok := s.SeasonalShare[years[i]][j+1]
		return !ok
	}
	return r.drawHeatmap(path, ch)
}

func (r *ChartRenderer) categoryCorrelations(path string, s *types.AggregateStats) error {
	ch := heatmapChart{
		Title:  "Category Correlation Heatmap",
		Rows:   s.Correlation.Categories,
		Cols:   s.Correlation.Categories,
		Values: s.Correlation.Values,
		// lower triangle and diagonal only
		Skip:   func(i, j int) bool { return j > i },
		Format: func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}
	return r.drawHeatmap(path, ch)
}

func monthAbbreviations() []string {
	out := make([]string, 12)
	for m := time.January; m <= time.December; m++ {
		out[m-1] = m.String()[:3]
	}
	return out
}
