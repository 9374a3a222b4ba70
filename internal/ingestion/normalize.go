package ingestion

import (
	"strings"
	"time"

	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

// IngestSummary counts what Normalize kept and why it dropped the rest
type IngestSummary struct {
	Total          int `json:"total"`
	Kept           int `json:"kept"`
	MissingTitle   int `json:"missingTitle"`
	MissingChannel int `json:"missingChannel"`
	BadDate        int `json:"badDate"`
}

// Skipped returns the number of dropped rows
func (s IngestSummary) Skipped() int {
	return s.Total - s.Kept
}

// Normalize turns raw rows into watch records, dropping rows with a placeholder
// or blank title or channel and rows whose date does not parse. Order is kept.
func Normalize(rows []RawRow, loc *time.Location, logger logging.Logger) ([]types.WatchRecord, IngestSummary) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	summary := IngestSummary{Total: len(rows)}
	out := make([]types.WatchRecord, 0, len(rows))

	for i, row := range rows {
		title := strings.TrimSpace(row.Title)
		channel := strings.TrimSpace(row.Channel)

		switch {
		case title == "" || title == UnknownTitle:
			summary.MissingTitle++
			logger.Debug("Skipping row without title", "row", i)
			continue
		case channel == "" || channel == UnknownChannel:
			summary.MissingChannel++
			logger.Debug("Skipping row without channel", "row", i, "title", title)
			continue
		}

		watchedAt, err := ParseWatchDate(row.RawDate, loc)
		if err != nil {
			summary.BadDate++
			logger.Debug("Skipping row with unparseable date", "row", i, "raw_date", row.RawDate, "error", err)
			continue
		}

		out = append(out, types.WatchRecord{Title: title, Channel: channel, WatchedAt: watchedAt})
	}

	summary.Kept = len(out)
	logger.Info("Normalized watch history",
		"total", summary.Total,
		"kept", summary.Kept,
		"missing_title", summary.MissingTitle,
		"missing_channel", summary.MissingChannel,
		"bad_date", summary.BadDate)
	return out, summary
}
