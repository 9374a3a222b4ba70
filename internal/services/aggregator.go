package services

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/infrastructure/logging"
	"watchlens/internal/types"
)

// minKeywordRunes is the shortest token counted as a keyword; anything up to three letters is noise
const minKeywordRunes = 4

// Aggregator turns a stream of watch records into grouped statistics
type Aggregator struct {
	classifier *Classifier
	logger     logging.Logger
}

// NewAggregator creates an aggregator that classifies with classifier
func NewAggregator(classifier *Classifier, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Aggregator{classifier: classifier, logger: logger}
}

// Batch is one validated, classified record stream together with its additive counters.
// A Batch is read-only after Load returns.
type Batch struct {
	records []types.WatchRecord
	sets    []types.CategorySet
	rank    func(string) int
	tally   *tally
}

// firstSeen orders ties by the position a key first appeared in the stream
type firstSeen struct {
	record int
	token  int
}

func (f firstSeen) before(o firstSeen) bool {
	if f.record != o.record {
		return f.record < o.record
	}
	return f.token < o.token
}

type keyCount struct {
	count int
	first firstSeen
}

// tally holds every counter that can be merged by addition
type tally struct {
	categories map[string]int
	multi      int
	keywords   map[string]*keyCount
	channels   map[string]*keyCount
	days       map[time.Time]int
}

func newTally() *tally {
	return &tally{
		categories: make(map[string]int),
		keywords:   make(map[string]*keyCount),
		channels:   make(map[string]*keyCount),
		days:       make(map[time.Time]int),
	}
}

func bump(m map[string]*keyCount, key string, at firstSeen) {
	if kc, ok := m[key]; ok {
		kc.count++
		if at.before(kc.first) {
			kc.first = at
		}
		return
	}
	m[key] = &keyCount{count: 1, first: at}
}

// add folds one classified record into the tally. index is the record's global position.
func (t *tally) add(index int, r types.WatchRecord, set types.CategorySet) {
	for _, name := range set.Names() {
		t.categories[name]++
	}
	if set.Len() > 1 {
		t.multi++
	}

	for pos, word := range keywordTokens(r.Title) {
		bump(t.keywords, word, firstSeen{record: index, token: pos})
	}
	bump(t.channels, r.Channel, firstSeen{record: index})
	t.days[civilDay(r.WatchedAt)]++
}

// merge adds other into t. Addition and min-of-first-seen are associative and commutative.
func (t *tally) merge(other *tally) {
	for k, v := range other.categories {
		t.categories[k] += v
	}
	t.multi += other.multi
	mergeKeyCounts(t.keywords, other.keywords)
	mergeKeyCounts(t.channels, other.channels)
	for d, n := range other.days {
		t.days[d] += n
	}
}

func mergeKeyCounts(dst, src map[string]*keyCount) {
	for k, v := range src {
		cur, ok := dst[k]
		if !ok {
			dst[k] = &keyCount{count: v.count, first: v.first}
			continue
		}
		cur.count += v.count
		if v.first.before(cur.first) {
			cur.first = v.first
		}
	}
}

// keywordTokens splits a title on whitespace, lower-cases it and keeps tokens longer than three runes
func keywordTokens(title string) []string {
	if !utf8.ValidString(title) {
		return nil
	}
	fields := strings.Fields(strings.ToLower(title))
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minKeywordRunes {
			out = append(out, f)
		}
	}
	return out
}

// civilDay truncates t to its calendar date, expressed as midnight UTC
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// validateRecord enforces the aggregation precondition: title, channel and timestamp are populated
func validateRecord(index int, r types.WatchRecord) error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return errors.NewAggregationInputError(index, "title", "is empty")
	case strings.TrimSpace(r.Channel) == "":
		return errors.NewAggregationInputError(index, "channel", "is empty")
	case r.WatchedAt.IsZero():
		return errors.NewAggregationInputError(index, "watchedAt", "is zero")
	}
	return nil
}

// Load validates and classifies records. It fails at the first invalid record and returns no partial batch.
func (a *Aggregator) Load(records []types.WatchRecord) (*Batch, error) {
	start := time.Now()

	for i, r := range records {
		if err := validateRecord(i, r); err != nil {
			return nil, err
		}
	}

	sets := make([]types.CategorySet, len(records))
	t := newTally()
	for i, r := range records {
		sets[i] = a.classify(i, r.Title)
		t.add(i, r, sets[i])
	}

	logging.LogOperation(a.logger, "load_batch", time.Since(start), map[string]interface{}{
		"records": len(records),
		"workers": 1,
	})
	return a.newBatch(records, sets, t), nil
}

func (a *Aggregator) classify(index int, title string) types.CategorySet {
	if err := a.classifier.CheckTitle(index, title); err != nil {
		a.logger.Warn("Treating title as empty", "index", index, "error", err)
	}
	return a.classifier.Classify(title)
}

func (a *Aggregator) newBatch(records []types.WatchRecord, sets []types.CategorySet, t *tally) *Batch {
	return &Batch{
		records: records,
		sets:    sets,
		rank:    a.classifier.Rules().Rank,
		tally:   t,
	}
}

// Len returns the number of records in the batch
func (b *Batch) Len() int {
	return len(b.records)
}

// Records returns the batch records. Callers must not modify the slice.
func (b *Batch) Records() []types.WatchRecord {
	return b.records
}

// Categories returns the labels assigned to record i
func (b *Batch) Categories(i int) types.CategorySet {
	return b.sets[i]
}

// CategoryCounts maps each label to the number of records carrying it. A record with k labels counts k times.
func (b *Batch) CategoryCounts() map[string]int {
	out := make(map[string]int, len(b.tally.categories))
	for k, v := range b.tally.categories {
		out[k] = v
	}
	return out
}

// MultiCategoryCount returns the number of records with more than one label
func (b *Batch) MultiCategoryCount() int {
	return b.tally.multi
}

// CategoryStats returns label counts with their share of records, by count then declared order
func (b *Batch) CategoryStats() []types.CategoryCount {
	out := make([]types.CategoryCount, 0, len(b.tally.categories))
	for name, n := range b.tally.categories {
		out = append(out, types.CategoryCount{
			Category:   name,
			Count:      n,
			Percentage: percent(n, len(b.records)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return b.rank(out[i].Category) < b.rank(out[j].Category)
	})
	return out
}

// TopKeywords returns the k most frequent title tokens, ties broken by first appearance. k <= 0 returns all.
func (b *Batch) TopKeywords(k int) []types.KeywordCount {
	ranked := rankKeyCounts(b.tally.keywords, k)
	out := make([]types.KeywordCount, len(ranked))
	for i, r := range ranked {
		out[i] = types.KeywordCount{Word: r.key, Count: r.count}
	}
	return out
}

// ChannelCounts maps each channel to the number of videos watched from it
func (b *Batch) ChannelCounts() map[string]int {
	out := make(map[string]int, len(b.tally.channels))
	for k, v := range b.tally.channels {
		out[k] = v.count
	}
	return out
}

// RankChannels returns the n most watched channels with their share of all videos. n <= 0 returns all.
func (b *Batch) RankChannels(n int) []types.ChannelCount {
	ranked := rankKeyCounts(b.tally.channels, n)
	out := make([]types.ChannelCount, len(ranked))
	for i, r := range ranked {
		out[i] = types.ChannelCount{
			Channel:    r.key,
			Count:      r.count,
			Percentage: percent(r.count, len(b.records)),
		}
	}
	return out
}

type rankedKey struct {
	key   string
	count int
	first firstSeen
}

func rankKeyCounts(m map[string]*keyCount, limit int) []rankedKey {
	out := make([]rankedKey, 0, len(m))
	for k, v := range m {
		out = append(out, rankedKey{key: k, count: v.count, first: v.first})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].first.before(out[j].first)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
