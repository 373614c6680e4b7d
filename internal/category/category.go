package category

import (
	"strings"
	"unicode"
)

// Known enumerates the built-in taxonomy. The zero value is not a category.
type Known int

const (
	Architecture Known = iota + 1
	Database
	Security
	Features
	Monitoring
	Critical
	Setup
	API
	Testing
	Performance
	Documentation
	Deployment
	Configuration
	Dependencies
	Custom
)

var knownNames = [...]string{
	Architecture:  "Architecture",
	Database:      "Database",
	Security:      "Security",
	Features:      "Features",
	Monitoring:    "Monitoring",
	Critical:      "Critical",
	Setup:         "Setup",
	API:           "API",
	Testing:       "Testing",
	Performance:   "Performance",
	Documentation: "Documentation",
	Deployment:    "Deployment",
	Configuration: "Configuration",
	Dependencies:  "Dependencies",
	Custom:        "Custom",
}

var knownIcons = [...]string{
	Architecture:  "🏗️",
	Database:      "🗄️",
	Security:      "🔐",
	Features:      "✅",
	Monitoring:    "📊",
	Critical:      "🚨",
	Setup:         "📋",
	API:           "🌐",
	Testing:       "🧪",
	Performance:   "⚡",
	Documentation: "📚",
	Deployment:    "🚀",
	Configuration: "⚙️",
	Dependencies:  "📦",
	Custom:        "🔧",
}

func (k Known) valid() bool { return k >= Architecture && k <= Custom }

// Name returns the bare category name, e.g. "Security".
func (k Known) Name() string {
	if !k.valid() {
		return ""
	}
	return knownNames[k]
}

// Label returns the display label, e.g. "🔐 Security".
func (k Known) Label() string {
	if !k.valid() {
		return ""
	}
	return knownIcons[k] + " " + knownNames[k]
}

// Category is either one of the Known built-ins or a free-form name
// introduced by a custom rule. Construct values with Of or Named so that
// equal categories compare equal and can be used as map keys.
type Category struct {
	known Known
	name  string
}

// Of wraps a built-in category.
func Of(k Known) Category { return Category{known: k} }

// Named returns a free-form category. Names matching a built-in label or
// name resolve to that built-in.
func Named(name string) Category {
	if k, ok := lookupKnown(name); ok {
		return Of(k)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Of(Custom)
	}
	return Category{name: name}
}

// Fallback is returned when nothing scores.
var Fallback = Of(Custom)

// Known reports the built-in value, if any. Free-form categories return
// (0, false); the zero Category reports Custom.
func (c Category) Known() (Known, bool) {
	if c.name != "" {
		return 0, false
	}
	if c.known == 0 {
		return Custom, true
	}
	return c.known, true
}

// Is reports whether c is the given built-in.
func (c Category) Is(k Known) bool {
	got, ok := c.Known()
	return ok && got == k
}

// IsCustom reports whether c is the Custom fallback or a free-form name.
func (c Category) IsCustom() bool {
	k, ok := c.Known()
	return !ok || k == Custom
}

// Label returns the display label for built-ins and the raw name otherwise.
func (c Category) Label() string {
	if c.name != "" {
		return c.name
	}
	k, _ := c.Known()
	return k.Label()
}

// Name returns the bare name without the icon.
func (c Category) Name() string {
	if c.name != "" {
		return c.name
	}
	k, _ := c.Known()
	return k.Name()
}

func (c Category) String() string { return c.Label() }

func (c Category) MarshalText() ([]byte, error) { return []byte(c.Label()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	*c = Parse(string(b))
	return nil
}

// Parse resolves a label or bare name case-insensitively. Unknown input
// becomes a free-form category.
func Parse(s string) Category { return Named(s) }

// All lists the built-ins in declaration order, Custom last.
func All() []Category {
	out := make([]Category, 0, int(Custom))
	for k := Architecture; k <= Custom; k++ {
		out = append(out, Of(k))
	}
	return out
}

func lookupKnown(s string) (Known, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for k := Architecture; k <= Custom; k++ {
		if strings.EqualFold(s, k.Name()) || s == k.Label() {
			return k, true
		}
	}
	// Accept labels whose icon differs, e.g. a missing variation selector.
	if i := strings.LastIndexByte(s, ' '); i >= 0 && !hasWordRune(s[:i]) {
		tail := s[i+1:]
		for k := Architecture; k <= Custom; k++ {
			if strings.EqualFold(tail, k.Name()) {
				return k, true
			}
		}
	}
	return 0, false
}

func hasWordRune(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
