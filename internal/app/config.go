package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hyperifyio/trapperkeeper/internal/category"
	"github.com/hyperifyio/trapperkeeper/internal/extract"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration for the application.
type Config struct {
	Inputs []string `yaml:"-" json:"-"`

	// Output
	OutputDir       string `yaml:"output_dir" json:"output_dir" validate:"required"`
	Format          string `yaml:"format" json:"format" validate:"oneof=markdown json yaml pdf"`
	GroupBy         string `yaml:"group_by" json:"group_by" validate:"oneof=category document all"`
	CreateIndex     bool   `yaml:"create_index" json:"create_index"`
	IncludeMetadata bool   `yaml:"include_metadata" json:"include_metadata"`
	References      bool   `yaml:"references" json:"references"`

	// Extraction
	Categories     []string `yaml:"categories,omitempty" json:"categories,omitempty"`
	MinImportance  float64  `yaml:"min_importance" json:"min_importance" validate:"gte=0,lte=1"`
	Strategy       string   `yaml:"strategy" json:"strategy" validate:"oneof=auto by_size by_section by_type default"`
	CodeBlocks     bool     `yaml:"code_blocks" json:"code_blocks"`
	Links          bool     `yaml:"links" json:"links"`
	MinSectionSize int      `yaml:"min_section_size" json:"min_section_size" validate:"gte=0"`
	MaxSectionSize int      `yaml:"max_section_size" json:"max_section_size" validate:"gt=0,gtefield=MinSectionSize"`
	ContextBefore  int      `yaml:"context_before" json:"context_before" validate:"gte=0"`
	ContextAfter   int      `yaml:"context_after" json:"context_after" validate:"gte=0"`
	Rules          []Rule   `yaml:"rules,omitempty" json:"rules,omitempty" validate:"dive"`

	// Behavior
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent" validate:"gte=1"`
	DryRun        bool   `yaml:"dry_run" json:"dry_run"`
	LogLevel      string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Verbose       bool   `yaml:"verbose" json:"verbose"`

	// Cache
	CacheDir    string        `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	CacheMaxAge time.Duration `yaml:"cache_max_age,omitempty" json:"cache_max_age,omitempty" validate:"gte=0"`
	CacheClear  bool          `yaml:"cache_clear,omitempty" json:"cache_clear,omitempty"`

	// Monitoring
	Debounce    time.Duration `yaml:"debounce" json:"debounce" validate:"gte=0"`
	HistoryDB   string        `yaml:"history_db,omitempty" json:"history_db,omitempty"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// Rule is a custom detection rule loaded from configuration.
type Rule struct {
	Name     string   `yaml:"name" json:"name" toml:"name" validate:"required"`
	Category string   `yaml:"category" json:"category" toml:"category" validate:"required"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty" toml:"keywords"`
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty" toml:"patterns"`
	Weight   float64  `yaml:"weight,omitempty" json:"weight,omitempty" toml:"weight" validate:"gte=0"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	ec := extract.DefaultConfig()
	return Config{
		OutputDir:       "extracted",
		Format:          "markdown",
		GroupBy:         "category",
		CreateIndex:     true,
		IncludeMetadata: true,
		References:      true,
		MinImportance:   ec.MinImportance,
		Strategy:        "default",
		CodeBlocks:      ec.CodeBlocks,
		Links:           ec.Links,
		MinSectionSize:  ec.MinSectionSize,
		MaxSectionSize:  ec.MaxSectionSize,
		ContextBefore:   ec.ContextBefore,
		ContextAfter:    ec.ContextAfter,
		MaxConcurrent:   4,
		LogLevel:        "info",
		Debounce:        time.Second,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ExtractConfig derives the extractor snapshot for one run.
func (c Config) ExtractConfig() extract.Config {
	ec := extract.Config{
		MinImportance:     c.MinImportance,
		CodeBlocks:        c.CodeBlocks,
		Links:             c.Links,
		PreserveStructure: true,
		MinSectionSize:    c.MinSectionSize,
		MaxSectionSize:    c.MaxSectionSize,
		ContextBefore:     c.ContextBefore,
		ContextAfter:      c.ContextAfter,
	}
	for _, name := range c.Categories {
		if name = strings.TrimSpace(name); name != "" {
			ec.Categories = append(ec.Categories, category.Parse(name))
		}
	}
	return ec
}

// Registry builds a category registry with the configured custom rules.
func (c Config) Registry() (*category.Registry, error) {
	reg := category.NewRegistry()
	for _, r := range c.Rules {
		if err := reg.AddCustomRule(r.Name, category.Parse(r.Category), r.Keywords, r.Patterns, r.Weight); err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
	}
	return reg, nil
}
