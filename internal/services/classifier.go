package services

import (
	"strings"
	"unicode/utf8"

	"watchlens/internal/categories"
	"watchlens/internal/infrastructure/errors"
	"watchlens/internal/types"
)

// Classifier assigns category labels to video titles.
// It holds no state beyond the immutable rule set and is safe for concurrent use.
type Classifier struct {
	rules    *categories.RuleSet
	priority categories.Rule
	ordinary []categories.Rule
}

// NewClassifier creates a classifier over the given rule set
func NewClassifier(rules *categories.RuleSet) *Classifier {
	return &Classifier{
		rules:    rules,
		priority: rules.Priority(),
		ordinary: rules.Ordinary(),
	}
}

// Rules returns the rule set the classifier was built with
func (c *Classifier) Rules() *categories.RuleSet {
	return c.rules
}

// Classify returns the labels matching title.
// A priority match is the sole label; otherwise every matching category is kept in declared order,
// and a title matching nothing is labelled "Other".
func (c *Classifier) Classify(title string) types.CategorySet {
	if !utf8.ValidString(title) {
		title = ""
	}
	if strings.TrimSpace(title) == "" {
		return types.NewCategorySet(types.OtherCategory)
	}

	// script detection runs on the raw title; case folding would be meaningless for it
	if c.priority.Match(title) {
		return types.NewCategorySet(c.priority.Name())
	}

	lower := strings.ToLower(title)
	var matched []string
	for _, rule := range c.ordinary {
		if rule.Match(lower) {
			matched = append(matched, rule.Name())
		}
	}

	if len(matched) == 0 {
		return types.NewCategorySet(types.OtherCategory)
	}
	return types.NewCategorySet(matched...)
}

// CheckTitle reports a title Classify would have to treat as empty.
// index is the record position used in the error, -1 when unknown.
func (c *Classifier) CheckTitle(index int, title string) error {
	if !utf8.ValidString(title) {
		return errors.NewClassificationInputError(index, title, "title is not valid UTF-8")
	}
	return nil
}
