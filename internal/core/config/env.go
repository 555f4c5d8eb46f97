package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: STRUCTMAP_[SECTION]_[KEY] (e.g., STRUCTMAP_PREVIEW_PORT).
// Values that fail to parse are ignored.
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.RootDir, "STRUCTMAP_ROOT_DIR")
	setEnvList(&cfg.Exclude, "STRUCTMAP_EXCLUDE")

	// Output
	setEnvString(&cfg.Output.File, "STRUCTMAP_OUTPUT_FILE")
	setEnvBool(&cfg.Output.Pretty, "STRUCTMAP_OUTPUT_PRETTY")
	setEnvString(&cfg.Output.DOT, "STRUCTMAP_OUTPUT_DOT")
	setEnvString(&cfg.Output.Mermaid, "STRUCTMAP_OUTPUT_MERMAID")
	setEnvString(&cfg.Output.Markdown, "STRUCTMAP_OUTPUT_MARKDOWN")

	// Preview
	setEnvBoolPtr(&cfg.Preview.Enabled, "STRUCTMAP_PREVIEW_ENABLED")
	setEnvString(&cfg.Preview.Host, "STRUCTMAP_PREVIEW_HOST")
	setEnvInt(&cfg.Preview.Port, "STRUCTMAP_PREVIEW_PORT")
	setEnvString(&cfg.Preview.WebDir, "STRUCTMAP_PREVIEW_WEB_DIR")
	setEnvBool(&cfg.Preview.Open, "STRUCTMAP_PREVIEW_OPEN")

	setEnvInt(&cfg.Levelize.Workers, "STRUCTMAP_LEVELIZE_WORKERS")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "STRUCTMAP_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "STRUCTMAP_WATCH_DEBOUNCE")
	setEnvDuration(&cfg.Watch.MinInterval, "STRUCTMAP_WATCH_MIN_INTERVAL")

	// History
	setEnvBool(&cfg.History.Enabled, "STRUCTMAP_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "STRUCTMAP_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsPath, "STRUCTMAP_OBSERVABILITY_METRICS_PATH")
	setEnvString(&cfg.Observability.OTLPEndpoint, "STRUCTMAP_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "STRUCTMAP_OBSERVABILITY_OTLP_INSECURE")
	setEnvBool(&cfg.Observability.EnableTracing, "STRUCTMAP_OBSERVABILITY_ENABLE_TRACING")
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

// setEnvList splits a comma separated value, dropping empty items.
func setEnvList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	logOverride(key, val)
	var items []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*target = items
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = &b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
