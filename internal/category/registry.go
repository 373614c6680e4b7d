package category

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	// ErrDuplicateRule is returned when a custom rule name is already taken.
	ErrDuplicateRule = errors.New("custom rule already exists")
	// ErrInvalidRule is returned for rules that can never match or fail to compile.
	ErrInvalidRule = errors.New("invalid custom rule")
)

// NamedPattern is a custom rule together with its registration name.
type NamedPattern struct {
	Name    string  `json:"name" yaml:"name"`
	Pattern Pattern `json:"pattern" yaml:"pattern"`
}

type rule struct {
	name     string
	category Category
	keywords []string
	patterns []*regexp.Regexp
	weight   float64
}

// Registry owns the built-in patterns plus an ordered list of custom rules.
// Built-ins come first in their declaration order, then custom rules in the
// order they were added; scoring ties resolve to the earliest rule.
// A Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builtins []rule
	custom   []rule
	version  uint64
}

// NewRegistry returns a registry preloaded with the built-in taxonomy.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, p := range builtinPatterns() {
		compiled, err := compileRule("", p)
		if err != nil {
			// Built-in expressions are constants; a failure is a programming error.
			panic(err)
		}
		r.builtins = append(r.builtins, compiled)
	}
	return r
}

func compileRule(name string, p Pattern) (rule, error) {
	out := rule{name: name, category: p.Category, weight: p.Weight}
	if out.weight == 0 {
		out.weight = 1.0
	}
	if out.weight < 0 {
		return rule{}, fmt.Errorf("%w: negative weight %v", ErrInvalidRule, p.Weight)
	}
	for _, kw := range p.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out.keywords = append(out.keywords, kw)
		}
	}
	for _, expr := range p.Patterns {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return rule{}, fmt.Errorf("%w: pattern %q: %v", ErrInvalidRule, expr, err)
		}
		out.patterns = append(out.patterns, re)
	}
	return out, nil
}

// AddCustomRule appends a rule that participates in every later scoring call.
func (r *Registry) AddCustomRule(name string, cat Category, keywords, patterns []string, weight float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidRule)
	}
	compiled, err := compileRule(name, Pattern{Category: cat, Keywords: keywords, Patterns: patterns, Weight: weight})
	if err != nil {
		return err
	}
	if len(compiled.keywords) == 0 && len(compiled.patterns) == 0 {
		return fmt.Errorf("%w: %q has no keywords or patterns", ErrInvalidRule, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.custom {
		if existing.name == name {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, name)
		}
	}
	r.custom = append(r.custom, compiled)
	r.version++
	return nil
}

// RemoveCustomRule deletes the named rule and reports whether it existed.
func (r *Registry) RemoveCustomRule(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.custom {
		if existing.name == name {
			r.custom = append(r.custom[:i:i], r.custom[i+1:]...)
			r.version++
			return true
		}
	}
	return false
}

// CustomRules returns the custom rules in insertion order.
func (r *Registry) CustomRules() []NamedPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]NamedPattern, 0, len(r.custom))
	for _, c := range r.custom {
		out = append(out, NamedPattern{Name: c.name, Pattern: c.export()})
	}
	return out
}

// Patterns returns every rule in scoring order.
func (r *Registry) Patterns() []Pattern {
	rules, _ := r.snapshot()
	out := make([]Pattern, 0, len(rules))
	for _, c := range rules {
		out = append(out, c.export())
	}
	return out
}

// snapshot returns the rules in scoring order plus the registry version.
// Compiled rules are immutable, so the copy can be used without the lock.
func (r *Registry) snapshot() ([]rule, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]rule, 0, len(r.builtins)+len(r.custom))
	out = append(out, r.builtins...)
	out = append(out, r.custom...)
	return out, r.version
}

func (c rule) export() Pattern {
	p := Pattern{Category: c.category, Weight: c.weight}
	p.Keywords = append(p.Keywords, c.keywords...)
	for _, re := range c.patterns {
		p.Patterns = append(p.Patterns, strings.TrimPrefix(re.String(), "(?i)"))
	}
	return p
}

// score applies the weighted keyword/regex formula to lower-cased inputs.
// A title regex hit adds a flat 3.0 regardless of how often it matches.
func (c rule) score(content, title string) float64 {
	s := 0.0
	for _, kw := range c.keywords {
		if strings.Contains(content, kw) {
			s += 1.0
		}
		if title != "" && strings.Contains(title, kw) {
			s += 2.0
		}
	}
	for _, re := range c.patterns {
		s += float64(len(re.FindAllStringIndex(content, -1))) * 0.5
		if title != "" && re.MatchString(title) {
			s += 3.0
		}
	}
	return s * c.weight
}
