package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map onto the flat Config. Pointer fields distinguish
// "absent" from an explicit false or zero.
type FileConfig struct {
	Output struct {
		Dir        string `yaml:"dir" json:"dir" toml:"dir"`
		Format     string `yaml:"format" json:"format" toml:"format"`
		GroupBy    string `yaml:"groupBy" json:"groupBy" toml:"groupBy"`
		Index      *bool  `yaml:"index" json:"index" toml:"index"`
		Metadata   *bool  `yaml:"metadata" json:"metadata" toml:"metadata"`
		References *bool  `yaml:"references" json:"references" toml:"references"`
	} `yaml:"output" json:"output" toml:"output"`

	Extraction struct {
		Categories     []string `yaml:"categories" json:"categories" toml:"categories"`
		MinImportance  *float64 `yaml:"minImportance" json:"minImportance" toml:"minImportance"`
		Strategy       string   `yaml:"strategy" json:"strategy" toml:"strategy"`
		CodeBlocks     *bool    `yaml:"codeBlocks" json:"codeBlocks" toml:"codeBlocks"`
		Links          *bool    `yaml:"links" json:"links" toml:"links"`
		MinSectionSize *int     `yaml:"minSectionSize" json:"minSectionSize" toml:"minSectionSize"`
		MaxSectionSize int      `yaml:"maxSectionSize" json:"maxSectionSize" toml:"maxSectionSize"`
		ContextBefore  *int     `yaml:"contextBefore" json:"contextBefore" toml:"contextBefore"`
		ContextAfter   *int     `yaml:"contextAfter" json:"contextAfter" toml:"contextAfter"`
	} `yaml:"extraction" json:"extraction" toml:"extraction"`

	Rules []Rule `yaml:"rules" json:"rules" toml:"rules"`

	Processing struct {
		MaxConcurrent int  `yaml:"maxConcurrent" json:"maxConcurrent" toml:"maxConcurrent"`
		DryRun        bool `yaml:"dryRun" json:"dryRun" toml:"dryRun"`
	} `yaml:"processing" json:"processing" toml:"processing"`

	Cache struct {
		Dir    string   `yaml:"dir" json:"dir" toml:"dir"`
		MaxAge Duration `yaml:"maxAge" json:"maxAge" toml:"maxAge"`
		Clear  bool     `yaml:"clear" json:"clear" toml:"clear"`
	} `yaml:"cache" json:"cache" toml:"cache"`

	Monitor struct {
		Debounce  Duration `yaml:"debounce" json:"debounce" toml:"debounce"`
		HistoryDB string   `yaml:"historyDB" json:"historyDB" toml:"historyDB"`
	} `yaml:"monitor" json:"monitor" toml:"monitor"`

	Metrics struct {
		Addr string `yaml:"addr" json:"addr" toml:"addr"`
	} `yaml:"metrics" json:"metrics" toml:"metrics"`

	LogLevel string `yaml:"logLevel" json:"logLevel" toml:"logLevel"`
	Verbose  bool   `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// Duration accepts "90s"-style strings in every file format.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for yaml, json and toml.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig, chosen by
// extension. Unknown extensions try YAML then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(b), &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value present in fc onto cfg. Callers apply
// it to the defaults before environment and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setStr(&cfg.OutputDir, fc.Output.Dir)
	setStr(&cfg.Format, strings.ToLower(fc.Output.Format))
	setStr(&cfg.GroupBy, strings.ToLower(fc.Output.GroupBy))
	setBool(&cfg.CreateIndex, fc.Output.Index)
	setBool(&cfg.IncludeMetadata, fc.Output.Metadata)
	setBool(&cfg.References, fc.Output.References)

	if len(fc.Extraction.Categories) > 0 {
		cfg.Categories = append([]string{}, fc.Extraction.Categories...)
	}
	if fc.Extraction.MinImportance != nil {
		cfg.MinImportance = *fc.Extraction.MinImportance
	}
	setStr(&cfg.Strategy, strings.ToLower(fc.Extraction.Strategy))
	setBool(&cfg.CodeBlocks, fc.Extraction.CodeBlocks)
	setBool(&cfg.Links, fc.Extraction.Links)
	setInt(&cfg.MinSectionSize, fc.Extraction.MinSectionSize)
	if fc.Extraction.MaxSectionSize > 0 {
		cfg.MaxSectionSize = fc.Extraction.MaxSectionSize
	}
	setInt(&cfg.ContextBefore, fc.Extraction.ContextBefore)
	setInt(&cfg.ContextAfter, fc.Extraction.ContextAfter)
	if len(fc.Rules) > 0 {
		cfg.Rules = append(cfg.Rules, fc.Rules...)
	}

	if fc.Processing.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.Processing.MaxConcurrent
	}
	if fc.Processing.DryRun {
		cfg.DryRun = true
	}

	setStr(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = time.Duration(fc.Cache.MaxAge)
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}

	if fc.Monitor.Debounce > 0 {
		cfg.Debounce = time.Duration(fc.Monitor.Debounce)
	}
	setStr(&cfg.HistoryDB, fc.Monitor.HistoryDB)
	setStr(&cfg.MetricsAddr, fc.Metrics.Addr)

	setStr(&cfg.LogLevel, strings.ToLower(fc.LogLevel))
	if fc.Verbose {
		cfg.Verbose = true
	}
}
