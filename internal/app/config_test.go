package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/trapperkeeper/internal/category"
)

func TestDefaults_AreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"importance above one": func(c *Config) { c.MinImportance = 1.5 },
		"negative importance":  func(c *Config) { c.MinImportance = -0.1 },
		"unknown format":       func(c *Config) { c.Format = "docx" },
		"unknown strategy":     func(c *Config) { c.Strategy = "random" },
		"zero concurrency":     func(c *Config) { c.MaxConcurrent = 0 },
		"max below min":        func(c *Config) { c.MinSectionSize = 500; c.MaxSectionSize = 100 },
		"empty output dir":     func(c *Config) { c.OutputDir = "" },
		"bad metrics addr":     func(c *Config) { c.MetricsAddr = "not an address" },
		"rule without name":    func(c *Config) { c.Rules = []Rule{{Category: "Billing", Keywords: []string{"x"}}} },
		"unknown log level":    func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("want ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestExtractConfig_Derived(t *testing.T) {
	cfg := Defaults()
	cfg.Categories = []string{"Security", " ", "🧪 Testing", "Billing"}
	cfg.MinImportance = 0.6
	cfg.Links = false
	ec := cfg.ExtractConfig()
	if len(ec.Categories) != 3 {
		t.Fatalf("categories=%v", ec.Categories)
	}
	if !ec.Categories[0].Is(category.Security) || !ec.Categories[1].Is(category.Testing) || !ec.Categories[2].IsCustom() {
		t.Fatalf("categories not parsed: %v", ec.Categories)
	}
	if ec.MinImportance != 0.6 || ec.Links || !ec.CodeBlocks {
		t.Fatalf("unexpected derived config: %+v", ec)
	}
}

func TestRegistry_CustomRules(t *testing.T) {
	cfg := Defaults()
	cfg.Rules = []Rule{{Name: "billing", Category: "Billing", Keywords: []string{"invoice"}}}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	if rules := reg.CustomRules(); len(rules) != 1 || rules[0].Name != "billing" {
		t.Fatalf("rules=%+v", rules)
	}

	cfg.Rules = append(cfg.Rules, Rule{Name: "billing", Category: "Billing", Keywords: []string{"receipt"}})
	if _, err := cfg.Registry(); !errors.Is(err, category.ErrDuplicateRule) {
		t.Fatalf("duplicate rule: got %v", err)
	}
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New with duplicate rule: got %v", err)
	}
}

const yamlConfig = `
output:
  dir: out
  format: JSON
  index: false
extraction:
  categories: [security]
  minImportance: 0
  codeBlocks: false
  contextBefore: 0
rules:
  - name: billing
    category: Billing
    keywords: [invoice]
processing:
  maxConcurrent: 8
monitor:
  debounce: 2s
cache:
  maxAge: 24h
logLevel: debug
`

const tomlConfig = `
logLevel = "warn"

[output]
dir = "toml-out"
format = "yaml"
references = false

[extraction]
strategy = "by_section"
maxSectionSize = 800

[monitor]
debounce = "500ms"
historyDB = "history.db"

[metrics]
addr = ":9090"

[[rules]]
name = "ops"
category = "Operations"
patterns = ["on-?call"]
weight = 1.5
`

const jsonConfig = `{"output":{"dir":"json-out","groupBy":"document"},"extraction":{"minImportance":0.5,"links":false},"monitor":{"debounce":"3s"}}`

func TestLoadConfigFile_Formats(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	fc, err := LoadConfigFile(write("c.yaml", yamlConfig))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	cfg := Defaults()
	ApplyFileConfig(&cfg, fc)
	if cfg.OutputDir != "out" || cfg.Format != "json" || cfg.CreateIndex {
		t.Fatalf("yaml output section: %+v", cfg)
	}
	if cfg.MinImportance != 0 || cfg.CodeBlocks || !cfg.Links || cfg.ContextBefore != 0 || cfg.ContextAfter != 2 {
		t.Fatalf("yaml extraction section: %+v", cfg)
	}
	if cfg.MaxConcurrent != 8 || cfg.Debounce != 2*time.Second || cfg.CacheMaxAge != 24*time.Hour || cfg.LogLevel != "debug" {
		t.Fatalf("yaml processing section: %+v", cfg)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "billing" {
		t.Fatalf("yaml rules: %+v", cfg.Rules)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("yaml config invalid: %v", err)
	}

	fc, err = LoadConfigFile(write("c.toml", tomlConfig))
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	cfg = Defaults()
	ApplyFileConfig(&cfg, fc)
	if cfg.OutputDir != "toml-out" || cfg.Format != "yaml" || cfg.References || cfg.Strategy != "by_section" || cfg.MaxSectionSize != 800 {
		t.Fatalf("toml values: %+v", cfg)
	}
	if cfg.Debounce != 500*time.Millisecond || cfg.HistoryDB != "history.db" || cfg.MetricsAddr != ":9090" || cfg.LogLevel != "warn" {
		t.Fatalf("toml monitor values: %+v", cfg)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Weight != 1.5 {
		t.Fatalf("toml rules: %+v", cfg.Rules)
	}

	fc, err = LoadConfigFile(write("c.json", jsonConfig))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	cfg = Defaults()
	ApplyFileConfig(&cfg, fc)
	if cfg.OutputDir != "json-out" || cfg.GroupBy != "document" || cfg.MinImportance != 0.5 || cfg.Links || cfg.Debounce != 3*time.Second {
		t.Fatalf("json values: %+v", cfg)
	}

	// unknown extension falls back to YAML then JSON
	if _, err := LoadConfigFile(write("c.conf", jsonConfig)); err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if _, err := LoadConfigFile(write("bad.yaml", "output: [unclosed")); err == nil || !strings.Contains(err.Error(), "parse yaml") {
		t.Fatalf("bad yaml: %v", err)
	}
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing: %v", err)
	}
}

// File values apply over defaults and env values apply over file values.
func TestPrecedence_EnvOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yml")
	if err := os.WriteFile(path, []byte("output:\n  dir: from-file\n  format: yaml\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TRAPPER_KEEPER_OUTPUT_DIR", "from-env")

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := Defaults()
	ApplyFileConfig(&cfg, fc)
	ApplyEnvOverrides(&cfg)
	if cfg.OutputDir != "from-env" {
		t.Fatalf("OutputDir=%q, want env value", cfg.OutputDir)
	}
	if cfg.Format != "yaml" {
		t.Fatalf("Format=%q, want file value", cfg.Format)
	}
}
