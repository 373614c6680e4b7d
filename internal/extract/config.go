package extract

import (
	"github.com/hyperifyio/trapperkeeper/internal/category"
)

// Config controls what the Extractor keeps. An Extractor treats its Config
// as an immutable snapshot.
type Config struct {
	// Categories is the allow-list; empty means every category.
	Categories    []category.Category
	MinImportance float64
	CodeBlocks    bool
	Links         bool
	// PreserveStructure is informational and passed through to organizers.
	PreserveStructure bool

	MinSectionSize int
	MaxSectionSize int
	ContextBefore  int
	ContextAfter   int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		MinImportance:     0.3,
		CodeBlocks:        true,
		Links:             true,
		PreserveStructure: true,
		MinSectionSize:    100,
		MaxSectionSize:    5000,
		ContextBefore:     2,
		ContextAfter:      2,
	}
}

// Allows reports whether cat passes the allow-list.
func (c Config) Allows(cat category.Category) bool {
	if len(c.Categories) == 0 {
		return true
	}
	for _, allowed := range c.Categories {
		if allowed.Label() == cat.Label() {
			return true
		}
	}
	return false
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxSectionSize <= 0 {
		c.MaxSectionSize = d.MaxSectionSize
	}
	if c.MinSectionSize < 0 {
		c.MinSectionSize = d.MinSectionSize
	}
	if c.ContextBefore < 0 {
		c.ContextBefore = 0
	}
	if c.ContextAfter < 0 {
		c.ContextAfter = 0
	}
	return c
}
