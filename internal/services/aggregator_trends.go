package services

import (
	"strconv"
	"strings"

	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/types"
)

// RollingAverage computes a trailing simple moving average over daily.
// The first window-1 points have no value; a window of 1 reproduces the series.
func RollingAverage(daily []types.DailyCount, window int) ([]types.RollingPoint, error) {
	if window < 1 {
		return nil, errors.HandleValidationError("rolling_average", "window", strconv.Itoa(window), "must be at least 1")
	}

	out := make([]types.RollingPoint, len(daily))
	sum := 0
	for i, d := range daily {
		sum += d.Count
		if i >= window {
			sum -= daily[i-window].Count
		}
		out[i].Date = d.Date
		if i >= window-1 {
			avg := float64(sum) / float64(window)
			out[i].Average = &avg
		}
	}
	return out, nil
}

// RollingSeries computes RollingAverage over the batch's daily counts for each window
func (b *Batch) RollingSeries(windows ...int) ([]types.RollingSeries, error) {
	daily := b.DailyCounts()
	out := make([]types.RollingSeries, 0, len(windows))
	for _, w := range windows {
		points, err := RollingAverage(daily, w)
		if err != nil {
			return nil, err
		}
		out = append(out, types.RollingSeries{Window: w, Points: points})
	}
	return out, nil
}

// CategoryCorrelation returns the Jaccard similarity of the record sets whose raw titles contain each
// category name, case-insensitively. This is a textual heuristic independent of the classification rules.
// The diagonal is 1 for a name found in at least one title and 0 otherwise.
func (b *Batch) CategoryCorrelation(names []string) types.CorrelationMatrix {
	n := len(names)
	m := types.CorrelationMatrix{
		Categories: append([]string(nil), names...),
		Values:     make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	if n == 0 {
		return m
	}

	lowered := make([]string, len(b.records))
	for i, r := range b.records {
		lowered[i] = strings.ToLower(r.Title)
	}

	matches := make([][]bool, n)
	sizes := make([]int, n)
	for c, name := range names {
		needle := strings.ToLower(name)
		matches[c] = make([]bool, len(lowered))
		for i, title := range lowered {
			if strings.Contains(title, needle) {
				matches[c][i] = true
				sizes[c]++
			}
		}
	}

	for i := 0; i < n; i++ {
		if sizes[i] > 0 {
			m.Values[i][i] = 1
		}
		for j := i + 1; j < n; j++ {
			both := 0
			for r := range lowered {
				if matches[i][r] && matches[j][r] {
					both++
				}
			}
			union := sizes[i] + sizes[j] - both
			if union > 0 {
				v := float64(both) / float64(union)
				m.Values[i][j] = v
				m.Values[j][i] = v
			}
		}
	}
	return m
}
