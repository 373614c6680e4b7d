package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "TRAPPER_KEEPER_"

// ApplyEnvOverrides overrides cfg fields with environment variables when the
// corresponding variables are set. Env takes precedence over values from a
// config file while flags remain highest precedence. Malformed numbers and
// durations are logged and ignored.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	env := func(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := env("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := env("FORMAT"); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v := env("GROUP_BY"); v != "" {
		cfg.GroupBy = strings.ToLower(v)
	}
	if v := env("STRATEGY"); v != "" {
		cfg.Strategy = strings.ToLower(v)
	}
	if v := env("CATEGORIES"); v != "" {
		cfg.Categories = SplitList(v)
	}
	if v := env("HISTORY_DB"); v != "" {
		cfg.HistoryDB = v
	}
	if v := env("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := env("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := env("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		} else {
			log.Warn().Str("key", EnvPrefix+"MAX_CONCURRENT").Str("value", v).Msg("ignoring non-integer value")
		}
	}
	if v := env("MIN_IMPORTANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinImportance = f
		} else {
			log.Warn().Str("key", EnvPrefix+"MIN_IMPORTANCE").Str("value", v).Msg("ignoring non-numeric value")
		}
	}

	setDuration := func(dst *time.Duration, key string) {
		if v := env(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			} else {
				log.Warn().Str("key", EnvPrefix+key).Str("value", v).Msg("ignoring malformed duration")
			}
		}
	}
	setDuration(&cfg.Debounce, "DEBOUNCE")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	// Booleans override when present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(env(key)) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CodeBlocks, "CODE_BLOCKS")
	setBool(&cfg.Links, "LINKS")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
