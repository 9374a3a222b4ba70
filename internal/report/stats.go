package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"watchlens/internal/services"
	"watchlens/internal/types"
)

const dateLayout = "2006-01-02"

type contentAnalysis struct {
	CategoryCounts      map[string]int       `json:"category_counts"`
	MultiCategoryVideos int                  `json:"multi_category_videos"`
	TopKeywords         []types.KeywordCount `json:"top_keywords"`
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type basicStats struct {
	TotalVideosWatched  int       `json:"total_videos_watched"`
	UniqueChannels      int       `json:"unique_channels"`
	DateRange           dateRange `json:"date_range"`
	MostActiveDay       string    `json:"most_active_day"`
	AverageVideosPerDay float64   `json:"average_videos_per_day"`
}

type channelStats struct {
	TopChannels        []types.ChannelCount `json:"top_channels"`
	MonthlyTopChannels map[string]string    `json:"monthly_top_channels"`
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func newBasicStats(b types.BasicStats) basicStats {
	return basicStats{
		TotalVideosWatched: b.TotalVideos,
		UniqueChannels:     b.UniqueChannels,
		DateRange: dateRange{
			Start: formatDay(b.Start),
			End:   formatDay(b.End),
		},
		MostActiveDay:       formatDay(b.MostActiveDay),
		AverageVideosPerDay: b.AverageVideosPerDay,
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func categoryRows(stats []types.CategoryCount) [][]string {
	rows := make([][]string, len(stats))
	for i, c := range stats {
		rows[i] = []string{c.Category, strconv.Itoa(c.Count), formatFloat(c.Percentage)}
	}
	return rows
}

func channelRows(channels []types.ChannelCount) [][]string {
	rows := make([][]string, len(channels))
	for i, c := range channels {
		rows[i] = []string{c.Channel, strconv.Itoa(c.Count), formatFloat(c.Percentage)}
	}
	return rows
}

// trendTable has one row per day with one moving average column per window.
// Averages of windows that are not yet full are empty cells.
func trendTable(daily []types.DailyCount, rolling []types.RollingSeries) ([]string, [][]string) {
	header := []string{"date", "daily_views"}
	for _, rs := range rolling {
		header = append(header, "ma_"+strconv.Itoa(rs.Window))
	}

	rows := make([][]string, len(daily))
	for i, d := range daily {
		row := []string{d.Date.Format(dateLayout), strconv.Itoa(d.Count)}
		for _, rs := range rolling {
			cell := ""
			if avg := rs.Points[i].Average; avg != nil {
				cell = formatFloat(*avg)
			}
			row = append(row, cell)
		}
		rows[i] = row
	}
	return header, rows
}

// timePatternRows flattens the yearly, monthly and weekday counts into dimension,key,views rows
func timePatternRows(tp types.TimePatterns) [][]string {
	var rows [][]string
	for _, y := range sortedKeys(tp.Yearly) {
		rows = append(rows, []string{"year", strconv.Itoa(y), strconv.Itoa(tp.Yearly[y])})
	}
	for _, m := range sortedKeys(tp.Monthly) {
		rows = append(rows, []string{"month", strconv.Itoa(m), strconv.Itoa(tp.Monthly[m])})
	}
	for _, w := range tp.Weekday {
		rows = append(rows, []string{"weekday", w.Weekday, strconv.Itoa(w.Count)})
	}
	return rows
}

func correlationTable(m types.CorrelationMatrix) ([]string, [][]string) {
	header := append([]string{"category"}, m.Categories...)
	rows := make([][]string, len(m.Categories))
	for i, name := range m.Categories {
		row := []string{name}
		for _, v := range m.Values[i] {
			row = append(row, formatFloat(v))
		}
		rows[i] = row
	}
	return header, rows
}

// statsFiles writes every JSON and CSV report into dir and returns their paths
func statsFiles(dir string, a *services.Analysis) ([]string, error) {
	s := a.Stats
	var written []string

	jsonFiles := []struct {
		name string
		v    any
	}{
		{"content_analysis.json", contentAnalysis{
			CategoryCounts:      s.CategoryCounts,
			MultiCategoryVideos: s.MultiCategoryVideos,
			TopKeywords:         s.TopKeywords,
		}},
		{"basic_stats.json", newBasicStats(s.Basic)},
		{"channel_stats.json", channelStats{
			TopChannels:        s.TopChannels,
			MonthlyTopChannels: s.MonthlyTopChannels,
		}},
		{"aggregate_stats.json", s},
	}
	for _, f := range jsonFiles {
		path := filepath.Join(dir, f.name)
		if err := writeJSON(path, f.v); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	trendHeader, trendRows := trendTable(s.DailyCounts, s.Rolling)
	corrHeader, corrRows := correlationTable(s.Correlation)
	csvFiles := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"category_stats.csv", []string{"category", "count", "percentage"}, categoryRows(s.CategoryStats)},
		{"channel_stats.csv", []string{"channel", "count", "percentage"}, channelRows(a.Batch.RankChannels(0))},
		{"trend_stats.csv", trendHeader, trendRows},
		{"time_patterns.csv", []string{"dimension", "key", "views"}, timePatternRows(s.TimePatterns)},
		{"category_correlation.csv", corrHeader, corrRows},
	}
	for _, f := range csvFiles {
		path := filepath.Join(dir, f.name)
		if err := writeCSV(path, f.header, f.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
