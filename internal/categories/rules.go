package categories

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"watchlens/internal/types"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type yamlRuleFile struct {
	Categories []types.Category `yaml:"categories"`
}

// Rule is a category with its patterns compiled
type Rule struct {
	Category types.Category
	Patterns []*regexp.Regexp
}

// Name returns the category name
func (r Rule) Name() string { return r.Category.Name }

// Match reports whether any pattern matches text, returning on the first hit
func (r Rule) Match(text string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// RuleSet is an immutable, ordered category table with exactly one priority rule.
// Safe for concurrent use.
type RuleSet struct {
	rules    []Rule
	priority int
	ordinary []int
}

var (
	defaultOnce sync.Once
	defaultSet  *RuleSet
	defaultErr  error
)

// Default returns the built-in category table
func Default() (*RuleSet, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Parse(defaultRulesYAML)
		if defaultErr != nil {
			defaultErr = fmt.Errorf("built-in rules: %w", defaultErr)
		}
	})
	return defaultSet, defaultErr
}

// MustDefault is Default for callers that treat a broken built-in table as a programming error
func MustDefault() *RuleSet {
	rs, err := Default()
	if err != nil {
		panic(err)
	}
	return rs
}

// LoadFile reads a YAML rule table from disk
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a YAML rule table. Unknown fields are rejected.
func Parse(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file yamlRuleFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return NewRuleSet(file.Categories)
}

// NewRuleSet validates and compiles categories, keeping their declared order
func NewRuleSet(cats []types.Category) (*RuleSet, error) {
	if len(cats) == 0 {
		return nil, errors.New("rule set has no categories")
	}

	rs := &RuleSet{priority: -1}
	seen := make(map[string]struct{}, len(cats))

	for i, c := range cats {
		name := strings.TrimSpace(c.Name)
		switch {
		case name == "":
			return nil, fmt.Errorf("category %d: empty name", i)
		case name == types.OtherCategory:
			return nil, fmt.Errorf("category %d: %q is reserved", i, types.OtherCategory)
		case len(c.Patterns) == 0:
			return nil, fmt.Errorf("category %q: no patterns", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("category %q: duplicate name", name)
		}
		seen[name] = struct{}{}

		if c.Priority {
			if rs.priority >= 0 {
				return nil, fmt.Errorf("category %q: second priority category (already %q)", name, rs.rules[rs.priority].Name())
			}
			rs.priority = len(rs.rules)
		} else {
			rs.ordinary = append(rs.ordinary, len(rs.rules))
		}

		rule := Rule{Category: cloneCategory(c)}
		rule.Category.Name = name
		for j, p := range c.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %q pattern %d: %w", name, j, err)
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rs.rules = append(rs.rules, rule)
	}

	if rs.priority < 0 {
		return nil, errors.New("rule set has no priority category")
	}
	return rs, nil
}

func cloneCategory(c types.Category) types.Category {
	out := c
	out.Patterns = append([]string(nil), c.Patterns...)
	out.Keywords = append([]string(nil), c.Keywords...)
	return out
}

// Priority returns the override rule
func (rs *RuleSet) Priority() Rule {
	return rs.rules[rs.priority]
}

// Ordinary returns the non-priority rules in declared order
func (rs *RuleSet) Ordinary() []Rule {
	out := make([]Rule, len(rs.ordinary))
	for i, idx := range rs.ordinary {
		out[i] = rs.rules[idx]
	}
	return out
}

// Categories returns copies of the category definitions in declared order
func (rs *RuleSet) Categories() []types.Category {
	out := make([]types.Category, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = cloneCategory(r.Category)
	}
	return out
}

// Names returns every category name in declared order followed by "Other"
func (rs *RuleSet) Names() []string {
	out := make([]string, 0, len(rs.rules)+1)
	for _, r := range rs.rules {
		out = append(out, r.Name())
	}
	return append(out, types.OtherCategory)
}

// Rank returns the declared position of a category name; "Other" sorts last and unknown names after it
func (rs *RuleSet) Rank(name string) int {
	for i, r := range rs.rules {
		if r.Name() == name {
			return i
		}
	}
	if name == types.OtherCategory {
		return len(rs.rules)
	}
	return len(rs.rules) + 1
}

// Len returns the number of categories, excluding "Other"
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}
