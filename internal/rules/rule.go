package rules

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Kind selects the matching strategy for a rule.
type Kind string

const (
	KindSuffix   Kind = "suffix"
	KindContains Kind = "contains"
	KindRegex    Kind = "regex"
)

// Rule is one declarative sensitive-path pattern.
type Rule struct {
	Kind    Kind
	Pattern string
}

// compiledRule holds a Rule with its regex pre-compiled.
type compiledRule struct {
	rule Rule
	re   *regexp.Regexp // nil unless KindRegex
}

func compile(r Rule) (compiledRule, error) {
	cr := compiledRule{rule: r}
	switch r.Kind {
	case KindSuffix, KindContains:
		if r.Pattern == "" {
			return cr, fmt.Errorf("rules: empty %s pattern", r.Kind)
		}
		cr.rule.Pattern = strings.ToLower(r.Pattern)
	case KindRegex:
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return cr, fmt.Errorf("rules: compile %q: %w", r.Pattern, err)
		}
		cr.re = re
	default:
		return cr, fmt.Errorf("rules: unknown rule kind %q", r.Kind)
	}
	return cr, nil
}

// matches reports whether the rule matches a normalized, lowercased path.
func (cr compiledRule) matches(norm string) bool {
	switch cr.rule.Kind {
	case KindSuffix:
		return strings.HasSuffix(norm, cr.rule.Pattern)
	case KindContains:
		return strings.Contains(norm, cr.rule.Pattern)
	case KindRegex:
		return cr.re.MatchString(norm)
	}
	return false
}

// Normalize resolves redundant separators and relative segments so that
// "./config/../.env" and ".env" are judged identically. Backslashes are
// unified to forward slashes before cleaning.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}
