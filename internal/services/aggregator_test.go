package services

import (
	"math"
	"testing"
	"time"

	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/testutils"
	"watchlens/internal/types"
)

func loadBatch(t testing.TB, records []types.WatchRecord) *Batch {
	t.Helper()
	agg := NewAggregator(newDefaultClassifier(t), nil)
	b, err := agg.Load(records)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return b
}

func TestAggregator_EmptyStream(t *testing.T) {
	b := loadBatch(t, nil)

	if len(b.CategoryCounts()) != 0 {
		t.Errorf("CategoryCounts() = %v, want empty", b.CategoryCounts())
	}
	if b.MultiCategoryCount() != 0 {
		t.Errorf("MultiCategoryCount() = %d, want 0", b.MultiCategoryCount())
	}
	if kw := b.TopKeywords(10); kw == nil || len(kw) != 0 {
		t.Errorf("TopKeywords() = %#v, want empty slice", kw)
	}
	if len(b.DailyCounts()) != 0 || len(b.ChannelCounts()) != 0 || len(b.RankChannels(5)) != 0 {
		t.Error("expected empty daily and channel aggregates")
	}
	if len(b.CategoryByPeriod(types.GranularityMonth)) != 0 {
		t.Error("expected no periods")
	}
	if stats := b.BasicStats(); stats.TotalVideos != 0 || !stats.Start.IsZero() || stats.AverageVideosPerDay != 0 {
		t.Errorf("unexpected basic stats %+v", stats)
	}

	m := b.CategoryCorrelation([]string{"Gaming", "News"})
	for i := range m.Values {
		for j := range m.Values[i] {
			if m.Values[i][j] != 0 {
				t.Errorf("M[%d][%d] = %v, want 0", i, j, m.Values[i][j])
			}
		}
	}
}

func TestAggregator_LoadRejectsInvalidRecords(t *testing.T) {
	valid := testutils.Record("Some title", "Chan", "2024-01-01")

	tests := []struct {
		name   string
		broken types.WatchRecord
		field  string
	}{
		{"empty title", types.WatchRecord{Channel: "c", WatchedAt: valid.WatchedAt}, "title"},
		{"blank channel", types.WatchRecord{Title: "t", Channel: "  ", WatchedAt: valid.WatchedAt}, "channel"},
		{"zero time", types.WatchRecord{Title: "t", Channel: "c"}, "watchedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(newDefaultClassifier(t), nil)
			b, err := agg.Load([]types.WatchRecord{valid, tt.broken, tt.broken})
			if b != nil {
				t.Error("no partial batch may be returned")
			}

			var inputErr *errors.AggregationInputError
			if !asAggregationInput(err, &inputErr) {
				t.Fatalf("Load() error = %v, want AggregationInputError", err)
			}
			if inputErr.Index != 1 || inputErr.Field != tt.field {
				t.Errorf("error points at record %d field %q, want 1 %q", inputErr.Index, inputErr.Field, tt.field)
			}
		})
	}
}

func asAggregationInput(err error, target **errors.AggregationInputError) bool {
	if !errors.IsAggregationInput(err) {
		return false
	}
	e, ok := err.(*errors.AggregationInputError)
	if ok {
		*target = e
	}
	return ok
}

func TestAggregator_InvalidUTF8TitleIsLoggedNotFatal(t *testing.T) {
	rec := testutils.NewRecordingLogger()
	agg := NewAggregator(newDefaultClassifier(t), rec)

	b, err := agg.Load([]types.WatchRecord{testutils.Record("\xff\xfe", "Chan", "2024-01-01")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !b.Categories(0).IsOther() {
		t.Errorf("invalid title should classify as Other, got %v", b.Categories(0).Names())
	}
	if !rec.HasMessage("warn", "Treating title as empty") {
		t.Error("expected a warning for the invalid title")
	}
}

func TestAggregator_CategoryCountsProperties(t *testing.T) {
	records := []types.WatchRecord{
		testutils.Record("Top 10 Best Football Highlights 2023", "Sportz", "2024-01-01"),
		testutils.Record("Как выучить Python за 10 дней", "Ru", "2024-01-01"),
		testutils.Record("asdkj", "X", "2024-01-02"),
		testutils.Record("Python tutorial for beginners", "Code", "2024-01-03"),
		testutils.Record("Official Trailer", "Studio", "2024-02-01"),
	}
	b := loadBatch(t, records)
	c := newDefaultClassifier(t)

	total := 0
	for _, n := range b.CategoryCounts() {
		total += n
	}
	if total < len(records) {
		t.Errorf("label total %d < records %d", total, len(records))
	}

	wantMulti := 0
	for _, r := range records {
		if c.Classify(r.Title).Len() > 1 {
			wantMulti++
		}
	}
	if got := b.MultiCategoryCount(); got != wantMulti {
		t.Errorf("MultiCategoryCount() = %d, want %d", got, wantMulti)
	}
	if b.CategoryCounts()["Russian Content"] != 1 || b.CategoryCounts()[types.OtherCategory] != 1 {
		t.Errorf("unexpected counts %v", b.CategoryCounts())
	}

	byMonth := b.CategoryByPeriod(types.GranularityMonth)
	if len(byMonth) != 2 {
		t.Fatalf("expected 2 months, got %v", byMonth)
	}
	if byMonth["2024-01"]["Russian Content"] != 1 || byMonth["2024-02"]["Movies & TV"] != 1 {
		t.Errorf("unexpected monthly breakdown %v", byMonth)
	}

	stats := b.CategoryStats()
	for i := 1; i < len(stats); i++ {
		if stats[i].Count > stats[i-1].Count {
			t.Errorf("CategoryStats not sorted: %v", stats)
		}
	}
	for _, s := range stats {
		want := float64(s.Count) / float64(len(records)) * 100
		if math.Abs(s.Percentage-want) > 1e-9 {
			t.Errorf("%s percentage = %v, want %v", s.Category, s.Percentage, want)
		}
	}
}

func TestAggregator_TopKeywords(t *testing.T) {
	b := loadBatch(t, []types.WatchRecord{
		testutils.Record("Python tutorial basics", "A", "2024-01-01"),
		testutils.Record("python TUTORIAL for you", "A", "2024-01-01"),
		testutils.Record("Learn Python", "A", "2024-01-02"),
		testutils.Record("Ёжик тоже", "A", "2024-01-02"),
	})

	want := []types.KeywordCount{
		{Word: "python", Count: 3},
		{Word: "tutorial", Count: 2},
		{Word: "basics", Count: 1},
		{Word: "learn", Count: 1},
		{Word: "ёжик", Count: 1},
		{Word: "тоже", Count: 1},
	}
	got := b.TopKeywords(0)
	if len(got) != len(want) {
		t.Fatalf("TopKeywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TopKeywords()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if top := b.TopKeywords(2); len(top) != 2 || top[1].Word != "tutorial" {
		t.Errorf("TopKeywords(2) = %v", top)
	}
}

func TestAggregator_Channels(t *testing.T) {
	b := loadBatch(t, []types.WatchRecord{
		testutils.Record("one", "A", "2024-01-01"),
		testutils.Record("two", "C", "2024-01-01"),
		testutils.Record("three", "B", "2024-01-02"),
		testutils.Record("four", "C", "2024-01-03"),
		testutils.Record("five", "A", "2024-02-03"),
	})

	ranked := b.RankChannels(0)
	order := []string{"A", "C", "B"}
	for i, ch := range order {
		if ranked[i].Channel != ch {
			t.Fatalf("RankChannels() = %v, want order %v", ranked, order)
		}
	}
	if math.Abs(ranked[0].Percentage-40) > 1e-9 {
		t.Errorf("A percentage = %v, want 40", ranked[0].Percentage)
	}
	if len(b.RankChannels(1)) != 1 {
		t.Error("RankChannels(1) should truncate")
	}
	if b.ChannelCounts()["C"] != 2 {
		t.Errorf("ChannelCounts() = %v", b.ChannelCounts())
	}

	monthly := b.MonthlyTopChannels()
	if monthly["2024-01"] != "C" || monthly["2024-02"] != "A" {
		t.Errorf("MonthlyTopChannels() = %v", monthly)
	}
}

func TestAggregator_DailyCountsZeroFilled(t *testing.T) {
	b := loadBatch(t, []types.WatchRecord{
		testutils.Record("c", "x", "2024-01-03"),
		testutils.Record("a", "x", "2024-01-01"),
		testutils.Record("b", "x", "2024-01-01"),
	})

	got := b.DailyCounts()
	want := []int{2, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("DailyCounts() = %v", got)
	}
	for i, n := range want {
		if got[i].Count != n {
			t.Errorf("day %d count = %d, want %d", i, got[i].Count, n)
		}
		if !got[i].Date.Equal(testutils.Day("2024-01-01").AddDate(0, 0, i)) {
			t.Errorf("day %d date = %v", i, got[i].Date)
		}
	}
}

func TestAggregator_TimePatternsAndBasicStats(t *testing.T) {
	b := loadBatch(t, []types.WatchRecord{
		testutils.Record("a", "x", "2024-01-01"), // Monday
		testutils.Record("b", "y", "2024-01-01"),
		testutils.Record("c", "x", "2024-01-07"), // Sunday
		testutils.Record("d", "z", "2023-12-31"),
	})

	tp := b.TimePatterns()
	if len(tp.Weekday) != 7 || tp.Weekday[0].Weekday != "Monday" || tp.Weekday[6].Weekday != "Sunday" {
		t.Fatalf("unexpected weekday order %v", tp.Weekday)
	}
	if tp.Weekday[0].Count != 2 || tp.Weekday[6].Count != 2 || tp.Weekday[3].Count != 0 {
		t.Errorf("unexpected weekday counts %v", tp.Weekday)
	}
	if tp.Yearly[2024] != 3 || tp.Yearly[2023] != 1 || tp.Monthly[1] != 3 || tp.Monthly[12] != 1 {
		t.Errorf("unexpected yearly/monthly %v %v", tp.Yearly, tp.Monthly)
	}

	stats := b.BasicStats()
	if stats.TotalVideos != 4 || stats.UniqueChannels != 3 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if !stats.MostActiveDay.Equal(testutils.Day("2024-01-01")) {
		t.Errorf("MostActiveDay = %v", stats.MostActiveDay)
	}
	if !stats.Start.Equal(testutils.Record("", "", "2023-12-31").WatchedAt) {
		t.Errorf("Start = %v", stats.Start)
	}
	if stats.AverageVideosPerDay != 4.0/3.0 {
		t.Errorf("AverageVideosPerDay = %v", stats.AverageVideosPerDay)
	}

	heat := b.MonthlyHeatmap()
	if heat[2024][1] != 3 || heat[2023][12] != 1 {
		t.Errorf("MonthlyHeatmap() = %v", heat)
	}
	share := b.SeasonalShare()
	if share[2024][1] != 1 || share[2023][12] != 1 {
		t.Errorf("SeasonalShare() = %v", share)
	}
}

func TestPeriodLabel(t *testing.T) {
	ts := time.Date(2021, time.January, 1, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		g    types.Granularity
		want string
	}{
		{types.GranularityYear, "2021"},
		{types.GranularityMonth, "2021-01"},
		{types.GranularityWeek, "2020-W53"},
		{types.GranularityDay, "2021-01-01"},
		{types.Granularity("bogus"), "2021-01"},
	}
	for _, tt := range tests {
		if got := PeriodLabel(ts, tt.g); got != tt.want {
			t.Errorf("PeriodLabel(%s) = %q, want %q", tt.g, got, tt.want)
		}
	}

	periods := SortedPeriods(map[string]int{"2024-02": 1, "2023-12": 1, "2024-01": 1})
	if periods[0] != "2023-12" || periods[2] != "2024-02" {
		t.Errorf("SortedPeriods() = %v", periods)
	}
}

func dailySeries(counts ...int) []types.DailyCount {
	out := make([]types.DailyCount, len(counts))
	for i, c := range counts {
		out[i] = types.DailyCount{Date: testutils.Day("2024-01-01").AddDate(0, 0, i), Count: c}
	}
	return out
}

func TestRollingAverage(t *testing.T) {
	t.Run("trailing window", func(t *testing.T) {
		got, err := RollingAverage(dailySeries(2, 4, 6), 2)
		if err != nil {
			t.Fatal(err)
		}
		if got[0].Average != nil {
			t.Errorf("first point should be undefined, got %v", *got[0].Average)
		}
		if *got[1].Average != 3 || *got[2].Average != 5 {
			t.Errorf("got %v, %v; want 3, 5", *got[1].Average, *got[2].Average)
		}
	})

	t.Run("window one reproduces series", func(t *testing.T) {
		daily := dailySeries(5, 0, 7, 1)
		got, err := RollingAverage(daily, 1)
		if err != nil {
			t.Fatal(err)
		}
		for i, d := range daily {
			if got[i].Average == nil || *got[i].Average != float64(d.Count) || !got[i].Date.Equal(d.Date) {
				t.Errorf("point %d = %+v, want %d", i, got[i], d.Count)
			}
		}
	})

	t.Run("window longer than series", func(t *testing.T) {
		got, err := RollingAverage(dailySeries(1, 2), 7)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range got {
			if p.Average != nil {
				t.Errorf("expected undefined point, got %v", *p.Average)
			}
		}
	})

	t.Run("invalid window", func(t *testing.T) {
		if _, err := RollingAverage(dailySeries(1), 0); !errors.IsValidation(err) {
			t.Errorf("RollingAverage(window=0) error = %v, want validation error", err)
		}
	})
}

func TestCategoryCorrelation(t *testing.T) {
	b := loadBatch(t, []types.WatchRecord{
		testutils.Record("Gaming news roundup", "a", "2024-01-01"),
		testutils.Record("NEWS today", "a", "2024-01-01"),
		testutils.Record("relaxing music", "a", "2024-01-02"),
	})

	names := []string{"Gaming", "News", "Music", "Tech"}
	m := b.CategoryCorrelation(names)

	if m.Values[0][1] != 0.5 {
		t.Errorf("Gaming/News = %v, want 0.5", m.Values[0][1])
	}
	if m.Values[1][2] != 0 {
		t.Errorf("News/Music = %v, want 0", m.Values[1][2])
	}
	for i := range names {
		for j := range names {
			if m.Values[i][j] != m.Values[j][i] {
				t.Errorf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
	diag := []float64{1, 1, 1, 0}
	for i, want := range diag {
		if m.Values[i][i] != want {
			t.Errorf("M[%d][%d] = %v, want %v", i, i, m.Values[i][i], want)
		}
	}

	names[0] = "mutated"
	if m.Categories[0] != "Gaming" {
		t.Error("matrix should copy category names")
	}
}
