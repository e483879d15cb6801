package policy

import (
	"fmt"
	"path"
	"strings"
	"sync"
)

// Class is the bundling classification of a dependency reference
type Class string

const (
	ClassBundlable Class = "bundlable"
	ClassExcluded  Class = "excluded"
	ClassSystem    Class = "system"
)

// Decision is the outcome of classifying one reference
type Decision struct {
	Class Class
	Rule  string
}

// Bundlable reports whether the reference is a bundling candidate
func (d Decision) Bundlable() bool {
	return d.Class == ClassBundlable
}

// Matcher is one ordered predicate of a Policy
type Matcher interface {
	Match(reference string) bool
	Class() Class
	String() string
}

// Rules configures a Policy
type Rules struct {
	Exclusions     []string `json:"exclusions" yaml:"exclusions"`
	SystemPrefixes []string `json:"system_prefixes" yaml:"system_prefixes"`
}

// Statistics tracks classification counts for one run
type Statistics struct {
	TotalEvaluated int `json:"total_evaluated"`
	Bundlable      int `json:"bundlable"`
	Excluded       int `json:"excluded"`
	System         int `json:"system"`
}

// Policy is an immutable ordered list of matchers deciding which references are never
// bundled. The first matching predicate wins; no match means bundlable.
type Policy struct {
	matchers   []Matcher
	statistics Statistics
	statsMu    sync.Mutex
}

// NewPolicy builds a policy: name exclusions first, then system directory prefixes
func NewPolicy(rules Rules) (*Policy, error) {
	matchers := make([]Matcher, 0, len(rules.Exclusions)+len(rules.SystemPrefixes))
	for _, pattern := range rules.Exclusions {
		m, err := NewNameMatcher(pattern)
		if err != nil {
			return nil, err
		}
		if m != nil {
			matchers = append(matchers, m)
		}
	}
	for _, prefix := range rules.SystemPrefixes {
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		matchers = append(matchers, NewPathPrefixMatcher(prefix))
	}
	return &Policy{matchers: matchers}, nil
}

// Classify decides whether reference may be bundled
func (p *Policy) Classify(reference string) Decision {
	decision := Decision{Class: ClassBundlable}
	for _, m := range p.matchers {
		if m.Match(reference) {
			decision = Decision{Class: m.Class(), Rule: m.String()}
			break
		}
	}

	p.statsMu.Lock()
	p.statistics.TotalEvaluated++
	switch decision.Class {
	case ClassExcluded:
		p.statistics.Excluded++
	case ClassSystem:
		p.statistics.System++
	default:
		p.statistics.Bundlable++
	}
	p.statsMu.Unlock()

	return decision
}

// Statistics returns current classification counts
func (p *Policy) Statistics() Statistics {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.statistics
}

// Rules returns the matcher descriptions in evaluation order
func (p *Policy) Rules() []string {
	rules := make([]string, len(p.matchers))
	for i, m := range p.matchers {
		rules[i] = m.String()
	}
	return rules
}

// Len returns the number of matchers
func (p *Policy) Len() int {
	return len(p.matchers)
}

// NewNameMatcher returns a glob matcher when pattern holds glob metacharacters and a
// substring matcher otherwise. Blank patterns yield a nil matcher.
func NewNameMatcher(pattern string) (Matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}
	if strings.ContainsAny(pattern, "*?[") {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", pattern, err)
		}
		return &NameGlobMatcher{pattern: pattern}, nil
	}
	return &NameSubstringMatcher{substring: pattern}, nil
}

// NameGlobMatcher matches a reference's base name against a glob
type NameGlobMatcher struct {
	pattern string
}

func (m *NameGlobMatcher) Match(reference string) bool {
	ok, _ := path.Match(m.pattern, path.Base(reference))
	return ok
}

func (m *NameGlobMatcher) Class() Class { return ClassExcluded }

func (m *NameGlobMatcher) String() string { return "name glob " + m.pattern }

// NameSubstringMatcher matches when the base name contains a fixed string
type NameSubstringMatcher struct {
	substring string
}

func (m *NameSubstringMatcher) Match(reference string) bool {
	return strings.Contains(path.Base(reference), m.substring)
}

func (m *NameSubstringMatcher) Class() Class { return ClassExcluded }

func (m *NameSubstringMatcher) String() string { return "name contains " + m.substring }

// PathPrefixMatcher matches absolute references under a protected system directory
type PathPrefixMatcher struct {
	prefix string
}

// NewPathPrefixMatcher creates a system directory matcher
func NewPathPrefixMatcher(prefix string) *PathPrefixMatcher {
	return &PathPrefixMatcher{prefix: strings.TrimSpace(prefix)}
}

func (m *PathPrefixMatcher) Match(reference string) bool {
	if !strings.HasPrefix(reference, "/") {
		return false
	}
	return strings.HasPrefix(path.Clean(reference), m.prefix)
}

func (m *PathPrefixMatcher) Class() Class { return ClassSystem }

func (m *PathPrefixMatcher) String() string { return "system prefix " + m.prefix }
