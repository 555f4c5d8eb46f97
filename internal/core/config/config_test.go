package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"structmap/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "structmap.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1
root_dir = "./src"
exclude = ["**/*.spec.ts", "generated"]

[output]
file = "out/structure.json"
pretty = true
dot = "out/structure.dot"
mermaid = "out/structure.mmd"

[preview]
enabled = false
port = 4000
web_dir = "./viewer"

[languages.javascript]
enabled = false

[languages.typescript]
extensions = [".ts", ".mts"]

[levelize]
workers = 4

[watch]
enabled = true
debounce = "1s"
min_interval = "5s"

[history]
enabled = true
path = "state/builds.db"

[observability]
otlp_endpoint = "localhost:4317"
enable_tracing = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./src", cfg.RootDir)
	assert.Equal(t, []string{"**/*.spec.ts", "generated"}, cfg.Exclude)
	assert.Equal(t, Output{File: "out/structure.json", Pretty: true, DOT: "out/structure.dot", Mermaid: "out/structure.mmd"}, cfg.Output)
	assert.False(t, cfg.Preview.IsEnabled())
	assert.Equal(t, "127.0.0.1:4000", cfg.Preview.Addr())
	assert.Equal(t, "./viewer", cfg.Preview.WebDir)
	require.NotNil(t, cfg.Languages["javascript"].Enabled)
	assert.False(t, *cfg.Languages["javascript"].Enabled)
	assert.Equal(t, []string{".ts", ".mts"}, cfg.Languages["typescript"].Extensions)
	assert.Equal(t, 4, cfg.Levelize.Workers)
	assert.Equal(t, Watch{Enabled: true, Debounce: time.Second, MinInterval: 5 * time.Second}, cfg.Watch)
	assert.Equal(t, History{Enabled: true, Path: "state/builds.db"}, cfg.History)
	assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
	assert.True(t, cfg.Observability.EnableTracing)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, ".", cfg.RootDir)
	assert.True(t, cfg.Preview.IsEnabled())
	assert.Equal(t, "127.0.0.1:3000", cfg.Preview.Addr())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.False(t, cfg.History.Enabled)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{name: "syntax", content: "version = ", code: errors.CodeValidationError},
		{name: "unknown key", content: "[output]\nfiel = \"x.json\"\n", code: errors.CodeValidationError},
		{name: "version", content: "version = 3\n", code: errors.CodeValidationError},
		{name: "bad glob", content: "exclude = [\"[a-\"]\n", code: errors.CodeValidationError},
		{name: "port", content: "[preview]\nport = 70000\n", code: errors.CodeValidationError},
		{name: "workers", content: "[levelize]\nworkers = -1\n", code: errors.CodeValidationError},
		{name: "metrics path", content: "[observability]\nmetrics_path = \"metrics\"\n", code: errors.CodeValidationError},
		{name: "tracing without endpoint", content: "[observability]\nenable_tracing = true\n", code: errors.CodeValidationError},
		{name: "watch without sink", content: "[watch]\nenabled = true\n[preview]\nenabled = false\n", code: errors.CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := LoadOrDefault(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(missing, true)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STRUCTMAP_ROOT_DIR", "/srv/app")
	t.Setenv("STRUCTMAP_EXCLUDE", "dist, ,node_modules")
	t.Setenv("STRUCTMAP_OUTPUT_PRETTY", "TRUE")
	t.Setenv("STRUCTMAP_PREVIEW_ENABLED", "false")
	t.Setenv("STRUCTMAP_PREVIEW_PORT", "8080")
	t.Setenv("STRUCTMAP_PREVIEW_OPEN", "true")
	t.Setenv("STRUCTMAP_LEVELIZE_WORKERS", "not-a-number")
	t.Setenv("STRUCTMAP_WATCH_DEBOUNCE", "2s")
	t.Setenv("STRUCTMAP_HISTORY_ENABLED", "1")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "/srv/app", cfg.RootDir)
	assert.Equal(t, []string{"dist", "node_modules"}, cfg.Exclude)
	assert.True(t, cfg.Output.Pretty)
	assert.False(t, cfg.Preview.IsEnabled())
	assert.Equal(t, 8080, cfg.Preview.Port)
	assert.True(t, cfg.Preview.Open)
	assert.Equal(t, 0, cfg.Levelize.Workers, "unparsable values are ignored")
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.History.Enabled)
}

func TestClone(t *testing.T) {
	enabled := true
	cfg := Default()
	cfg.Exclude = []string{"dist"}
	cfg.Preview.Enabled = &enabled
	cfg.Languages = map[string]Language{"typescript": {Extensions: []string{".ts"}}}

	cp := cfg.Clone()
	cp.Exclude[0] = "changed"
	*cp.Preview.Enabled = false
	cp.Languages["typescript"].Extensions[0] = ".mts"

	assert.Equal(t, "dist", cfg.Exclude[0])
	assert.True(t, *cfg.Preview.Enabled)
	assert.Equal(t, ".ts", cfg.Languages["typescript"].Extensions[0])
}
