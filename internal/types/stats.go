package types

import "time"

// Granularity controls how timestamps are bucketed into periods
type Granularity string

const (
	GranularityYear  Granularity = "year"
	GranularityMonth Granularity = "month"
	GranularityWeek  Granularity = "week"
	GranularityDay   Granularity = "day"
)

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case GranularityYear, GranularityMonth, GranularityWeek, GranularityDay:
		return true
	}
	return false
}

// CategoryCount is one row of the category distribution
type CategoryCount struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // share of records, not of labels
}

// KeywordCount is a title token with its frequency
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ChannelCount is one row of the channel ranking
type ChannelCount struct {
	Channel    string  `json:"channel"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DailyCount is the number of videos watched on one calendar day
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// RollingPoint is one entry of a trailing moving average.
// Average is nil while the window is not yet full.
type RollingPoint struct {
	Date    time.Time `json:"date"`
	Average *float64  `json:"average"`
}

// RollingSeries is a moving average series for one window size
type RollingSeries struct {
	Window int            `json:"window"`
	Points []RollingPoint `json:"points"`
}

// CorrelationMatrix is a symmetric category similarity matrix.
// Values[i][j] relates Categories[i] and Categories[j].
type CorrelationMatrix struct {
	Categories []string    `json:"categories"`
	Values     [][]float64 `json:"values"`
}

// WeekdayCount is the number of videos watched on a weekday
type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Count   int    `json:"count"`
}

// TimePatterns groups views by calendar components
type TimePatterns struct {
	Yearly  map[int]int    `json:"yearly"`
	Monthly map[int]int    `json:"monthly"` // month of year, 1-12
	Weekday []WeekdayCount `json:"weekday"` // Monday first
}

// BasicStats summarizes the whole history
type BasicStats struct {
	TotalVideos         int       `json:"totalVideos"`
	UniqueChannels      int       `json:"uniqueChannels"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	MostActiveDay       time.Time `json:"mostActiveDay"`
	AverageVideosPerDay float64   `json:"averageVideosPerDay"` // over days with at least one view
}

// AggregateStats is the read-only report bundle derived from one batch of records
type AggregateStats struct {
	GeneratedAt         time.Time                 `json:"generatedAt"`
	Granularity         Granularity               `json:"granularity"`
	Basic               BasicStats                `json:"basic"`
	CategoryCounts      map[string]int            `json:"categoryCounts"`
	CategoryStats       []CategoryCount           `json:"categoryStats"`
	CategoryByPeriod    map[string]map[string]int `json:"categoryByPeriod"`
	MultiCategoryVideos int                       `json:"multiCategoryVideos"`
	TopKeywords         []KeywordCount            `json:"topKeywords"`
	ChannelCounts       map[string]int            `json:"channelCounts"`
	TopChannels         []ChannelCount            `json:"topChannels"`
	MonthlyTopChannels  map[string]string         `json:"monthlyTopChannels"`
	TimePatterns        TimePatterns              `json:"timePatterns"`
	MonthlyHeatmap      map[int]map[int]int       `json:"monthlyHeatmap"`
	SeasonalShare       map[int]map[int]float64   `json:"seasonalShare"`
	DailyCounts         []DailyCount              `json:"dailyCounts"`
	Rolling             []RollingSeries           `json:"rolling"`
	Correlation         CorrelationMatrix         `json:"correlation"`
}
