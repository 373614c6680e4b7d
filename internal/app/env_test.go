package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs, quotes and export prefixes into the
// process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")
	t.Setenv("BAZ", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR=\"beta gamma\"\nBAZ='x=y'\nmalformed\n=novalue\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}

	for key, want := range map[string]string{"FOO": "alpha", "BAR": "beta gamma", "BAZ": "x=y"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TRAPPER_KEEPER_LOG_LEVEL", "DEBUG")
	t.Setenv("TRAPPER_KEEPER_OUTPUT_DIR", "/tmp/tk-out")
	t.Setenv("TRAPPER_KEEPER_MAX_CONCURRENT", "9")
	t.Setenv("TRAPPER_KEEPER_MIN_IMPORTANCE", "0.75")
	t.Setenv("TRAPPER_KEEPER_FORMAT", "yaml")
	t.Setenv("TRAPPER_KEEPER_HISTORY_DB", "/tmp/tk.db")
	t.Setenv("TRAPPER_KEEPER_METRICS_ADDR", ":9101")
	t.Setenv("TRAPPER_KEEPER_CATEGORIES", "security, ,testing")
	t.Setenv("TRAPPER_KEEPER_DEBOUNCE", "250ms")
	t.Setenv("TRAPPER_KEEPER_CODE_BLOCKS", "off")

	cfg := Defaults()
	ApplyEnvOverrides(&cfg)
	if cfg.LogLevel != "debug" || cfg.OutputDir != "/tmp/tk-out" || cfg.Format != "yaml" {
		t.Fatalf("string overrides not applied: %+v", cfg)
	}
	if cfg.MaxConcurrent != 9 || cfg.MinImportance != 0.75 {
		t.Fatalf("numeric overrides: MaxConcurrent=%d MinImportance=%v", cfg.MaxConcurrent, cfg.MinImportance)
	}
	if cfg.HistoryDB != "/tmp/tk.db" || cfg.MetricsAddr != ":9101" {
		t.Fatalf("monitor overrides: %q %q", cfg.HistoryDB, cfg.MetricsAddr)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[1] != "testing" {
		t.Fatalf("categories=%v", cfg.Categories)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("debounce=%v", cfg.Debounce)
	}
	if cfg.CodeBlocks {
		t.Fatalf("CODE_BLOCKS=off should disable code blocks")
	}
}

// Malformed values leave the previous setting in place.
func TestApplyEnvOverrides_IgnoresMalformed(t *testing.T) {
	t.Setenv("TRAPPER_KEEPER_MAX_CONCURRENT", "many")
	t.Setenv("TRAPPER_KEEPER_MIN_IMPORTANCE", "high")
	t.Setenv("TRAPPER_KEEPER_DEBOUNCE", "soon")
	t.Setenv("TRAPPER_KEEPER_DRY_RUN", "maybe")

	cfg := Defaults()
	ApplyEnvOverrides(&cfg)
	def := Defaults()
	if cfg.MaxConcurrent != def.MaxConcurrent || cfg.MinImportance != def.MinImportance || cfg.Debounce != def.Debounce || cfg.DryRun {
		t.Fatalf("malformed env changed config: %+v", cfg)
	}
	ApplyEnvOverrides(nil)
}
