package types

import "time"

// OtherCategory is the sentinel label for titles that match no category
const OtherCategory = "Other"

// WatchRecord represents one viewing event from the watch history export
type WatchRecord struct {
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Category is a declarative classification bucket.
// Patterns are regular expressions evaluated in order; Keywords are descriptive only.
type Category struct {
	Name     string   `json:"name" yaml:"name"`
	Patterns []string `json:"patterns" yaml:"patterns"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Priority bool     `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// CategorySet is the set of labels assigned to one title.
// Names are kept in rule set declaration order so iteration is reproducible.
type CategorySet struct {
	names []string
}

// NewCategorySet builds a set from names, dropping duplicates while keeping first occurrence order
func NewCategorySet(names ...string) CategorySet {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return CategorySet{names: out}
}

// Names returns a copy of the labels in declaration order
func (s CategorySet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of labels
func (s CategorySet) Len() int {
	return len(s.names)
}

// Contains reports whether the set carries the given label
func (s CategorySet) Contains(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Equal reports whether both sets carry the same labels, ignoring order
func (s CategorySet) Equal(other CategorySet) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for _, n := range s.names {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// IsOther reports whether the set is the single "Other" sentinel
func (s CategorySet) IsOther() bool {
	return len(s.names) == 1 && s.names[0] == OtherCategory
}

// BatchStrategy represents the strategy for batch snapshot writes
type BatchStrategy int

const (
	// BatchStrategyInsertOnly inserts rows and fails on conflicts
	BatchStrategyInsertOnly BatchStrategy = iota
	// BatchStrategyUpsert updates existing rows on conflicts
	BatchStrategyUpsert
)

// PaginatedRecords is one page of stored watch records with the total for the whole table
type PaginatedRecords struct {
	Records []WatchRecord `json:"records"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}
