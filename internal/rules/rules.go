// Package rules classifies filesystem paths against a declarative table
// of sensitive-path patterns.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decision is the outcome of classifying one path.
type Decision struct {
	Blocked bool
	Reason  string
}

// Set holds compiled rules for fast matching. A Set is immutable after
// construction and safe for concurrent use.
type Set struct {
	compiled []compiledRule
}

// New creates a Set from the given rules, compiling regexes. Invalid
// rules are rejected rather than silently skipped.
func New(rs []Rule) (*Set, error) {
	s := &Set{compiled: make([]compiledRule, 0, len(rs))}
	for _, r := range rs {
		cr, err := compile(r)
		if err != nil {
			return nil, err
		}
		s.compiled = append(s.compiled, cr)
	}
	return s, nil
}

// Default creates a Set with only the builtin rules.
func Default() *Set {
	s, err := New(Builtin)
	if err != nil {
		// Builtin rules are fixed at compile time; a failure here is a
		// programming error.
		panic(err)
	}
	return s
}

// fileRule is one entry in a user rules file. Exactly one field is set.
type fileRule struct {
	Suffix   string `yaml:"suffix,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Regex    string `yaml:"regex,omitempty"`
}

type rulesFile struct {
	Rules []fileRule `yaml:"rules"`
}

// Load creates a Set from the builtin rules plus any extra patterns in
// the given YAML file. An empty path or a missing file yields the
// builtin set; a present but invalid file is an error.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("rules: parse %s: %w", path, err)
	}

	all := make([]Rule, 0, len(Builtin)+len(rf.Rules))
	all = append(all, Builtin...)
	for i, fr := range rf.Rules {
		r, err := fr.toRule()
		if err != nil {
			return nil, fmt.Errorf("rules: %s entry %d: %w", path, i+1, err)
		}
		all = append(all, r)
	}
	return New(all)
}

func (fr fileRule) toRule() (Rule, error) {
	set := 0
	var r Rule
	if fr.Suffix != "" {
		r = Rule{Kind: KindSuffix, Pattern: fr.Suffix}
		set++
	}
	if fr.Contains != "" {
		r = Rule{Kind: KindContains, Pattern: fr.Contains}
		set++
	}
	if fr.Regex != "" {
		r = Rule{Kind: KindRegex, Pattern: fr.Regex}
		set++
	}
	if set != 1 {
		return r, fmt.Errorf("exactly one of suffix, contains, regex must be set")
	}
	return r, nil
}

// Classify normalizes a path and matches it against the rule set. An
// empty path is never blocked. Classify has no side effects.
func (s *Set) Classify(p string) Decision {
	norm := Normalize(p)
	if norm == "" {
		return Decision{}
	}
	lower := strings.ToLower(norm)

	for _, cr := range s.compiled {
		if cr.matches(lower) {
			return Decision{Blocked: true, Reason: reasonFor(lower)}
		}
	}
	return Decision{}
}

// reasonFor derives the display category for a matched path.
func reasonFor(lower string) string {
	for _, e := range reasonTable {
		if strings.Contains(lower, e.substr) {
			return e.reason
		}
	}
	return defaultReason
}
