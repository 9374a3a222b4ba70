package services

import (
	"fmt"
	"sort"
	"time"

	"watchlens/internal/types"
)

// PeriodLabel formats t as the bucket label for granularity g.
// Unknown granularities fall back to month.
func PeriodLabel(t time.Time, g types.Granularity) string {
	switch g {
	case types.GranularityYear:
		return t.Format("2006")
	case types.GranularityWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case types.GranularityDay:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01")
	}
}

// CategoryByPeriod counts labels per period. A record with k labels counts k times in its period.
func (b *Batch) CategoryByPeriod(g types.Granularity) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for i, r := range b.records {
		label := PeriodLabel(r.WatchedAt, g)
		bucket, ok := out[label]
		if !ok {
			bucket = make(map[string]int)
			out[label] = bucket
		}
		for _, name := range b.sets[i].Names() {
			bucket[name]++
		}
	}
	return out
}

// DailyCounts returns one entry per calendar day from the first to the last view, ascending.
// Days without views are present with a zero count.
func (b *Batch) DailyCounts() []types.DailyCount {
	if len(b.tally.days) == 0 {
		return []types.DailyCount{}
	}

	var first, last time.Time
	for d := range b.tally.days {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	out := make([]types.DailyCount, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, types.DailyCount{Date: d, Count: b.tally.days[d]})
	}
	return out
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// TimePatterns groups views by year, month of year and weekday
func (b *Batch) TimePatterns() types.TimePatterns {
	tp := types.TimePatterns{
		Yearly:  make(map[int]int),
		Monthly: make(map[int]int),
		Weekday: make([]types.WeekdayCount, len(weekdayOrder)),
	}

	byWeekday := make(map[time.Weekday]int, 7)
	for _, r := range b.records {
		tp.Yearly[r.WatchedAt.Year()]++
		tp.Monthly[int(r.WatchedAt.Month())]++
		byWeekday[r.WatchedAt.Weekday()]++
	}
	for i, wd := range weekdayOrder {
		tp.Weekday[i] = types.WeekdayCount{Weekday: wd.String(), Count: byWeekday[wd]}
	}
	return tp
}

// BasicStats summarizes the batch. The average is taken over days with at least one view.
func (b *Batch) BasicStats() types.BasicStats {
	stats := types.BasicStats{
		TotalVideos:    len(b.records),
		UniqueChannels: len(b.tally.channels),
	}
	if len(b.records) == 0 {
		return stats
	}

	for _, r := range b.records {
		if stats.Start.IsZero() || r.WatchedAt.Before(stats.Start) {
			stats.Start = r.WatchedAt
		}
		if r.WatchedAt.After(stats.End) {
			stats.End = r.WatchedAt
		}
	}

	best := -1
	for d, n := range b.tally.days {
		if n > best || (n == best && d.Before(stats.MostActiveDay)) {
			best = n
			stats.MostActiveDay = d
		}
	}
	stats.AverageVideosPerDay = float64(len(b.records)) / float64(len(b.tally.days))
	return stats
}

// MonthlyTopChannels maps each month label to its most watched channel, ties by first appearance
func (b *Batch) MonthlyTopChannels() map[string]string {
	perMonth := make(map[string]map[string]*keyCount)
	for i, r := range b.records {
		label := PeriodLabel(r.WatchedAt, types.GranularityMonth)
		m, ok := perMonth[label]
		if !ok {
			m = make(map[string]*keyCount)
			perMonth[label] = m
		}
		bump(m, r.Channel, firstSeen{record: i})
	}

	out := make(map[string]string, len(perMonth))
	for label, m := range perMonth {
		out[label] = rankKeyCounts(m, 1)[0].key
	}
	return out
}

// MonthlyHeatmap counts views per year and month
func (b *Batch) MonthlyHeatmap() map[int]map[int]int {
	out := make(map[int]map[int]int)
	for _, r := range b.records {
		y := r.WatchedAt.Year()
		if out[y] == nil {
			out[y] = make(map[int]int)
		}
		out[y][int(r.WatchedAt.Month())]++
	}
	return out
}

// SeasonalShare gives each month's fraction of its year's views. Months of a year sum to 1.
func (b *Batch) SeasonalShare() map[int]map[int]float64 {
	heat := b.MonthlyHeatmap()
	out := make(map[int]map[int]float64, len(heat))
	for y, months := range heat {
		total := 0
		for _, n := range months {
			total += n
		}
		out[y] = make(map[int]float64, len(months))
		for m, n := range months {
			out[y][m] = float64(n) / float64(total)
		}
	}
	return out
}

// SortedPeriods returns the keys of a period map in ascending order
func SortedPeriods[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
