package testutils

import (
	"time"

	"watchlens/internal/types"
)

// Day parses a YYYY-MM-DD date in UTC and panics on malformed input
func Day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// Record builds a watch record at noon UTC on the given day
func Record(title, channel, day string) types.WatchRecord {
	return types.WatchRecord{
		Title:     title,
		Channel:   channel,
		WatchedAt: Day(day).Add(12 * time.Hour),
	}
}

// SampleHistory returns a small mixed-category history spanning two months
func SampleHistory() []types.WatchRecord {
	return []types.WatchRecord{
		Record("Майнкрафт выживание #1", "КаналРу", "2024-01-01"),
		Record("Learn Python in 10 minutes", "CodeAcademy", "2024-01-01"),
		Record("Minecraft Hardcore Tutorial", "GameGuide", "2024-01-02"),
		Record("Official Trailer - New Movie", "StudioX", "2024-01-04"),
		Record("Morning vlog in Tokyo", "Traveler", "2024-01-04"),
		Record("Random clip", "Misc", "2024-02-01"),
		Record("Python tutorial for beginners", "CodeAcademy", "2024-02-03"),
	}
}
