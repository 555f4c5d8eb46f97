package config

import (
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"structmap/internal/core/errors"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "structmap.toml"

// DefaultHistoryPath is relative to the working directory.
const DefaultHistoryPath = ".structmap/history.db"

type Config struct {
	Version       int                 `toml:"version"`
	RootDir       string              `toml:"root_dir"`
	Exclude       []string            `toml:"exclude"`
	Output        Output              `toml:"output"`
	Preview       Preview             `toml:"preview"`
	Languages     map[string]Language `toml:"languages"`
	Levelize      Levelize            `toml:"levelize"`
	Watch         Watch               `toml:"watch"`
	History       History             `toml:"history"`
	Observability Observability       `toml:"observability"`
}

// Output describes the artifacts of one run. An empty File means the view
// model goes to a temporary file served by the preview server.
type Output struct {
	File    string `toml:"file"`
	Pretty  bool   `toml:"pretty"`
	DOT     string `toml:"dot"`
	Mermaid string `toml:"mermaid"`
	// Markdown is a level report, with the Mermaid diagram embedded.
	Markdown string `toml:"markdown"`
}

type Preview struct {
	Enabled *bool  `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	WebDir  string `toml:"web_dir"`
	Open    bool   `toml:"open"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Levelize struct {
	// Workers bounds concurrent sibling-group leveling; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
}

type Watch struct {
	Enabled     bool          `toml:"enabled"`
	Debounce    time.Duration `toml:"debounce"`
	MinInterval time.Duration `toml:"min_interval"`
}

// History keeps a summary row per build in a local SQLite file.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsPath   string `toml:"metrics_path"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	OTLPInsecure  bool   `toml:"otlp_insecure"`
	EnableTracing bool   `toml:"enable_tracing"`
}

func (p Preview) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

func (p Preview) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load decodes, defaults and validates the file at path. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeIO, "read config file"), errors.CtxPath, path)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config file"), errors.CtxPath, path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unknown config keys: %s", strings.Join(keys, ", ")),
			errors.CtxPath, path,
		)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path. A missing file is only an error when the path
// was requested explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.IsCode(err, errors.CodeNotFound) {
		return Default(), nil
	}
	return nil, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.RootDir) == "" {
		cfg.RootDir = "."
	}
	if strings.TrimSpace(cfg.Preview.Host) == "" {
		cfg.Preview.Host = "127.0.0.1"
	}
	if cfg.Preview.Port == 0 {
		cfg.Preview.Port = 3000
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MinInterval == 0 {
		cfg.Watch.MinInterval = time.Second
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if strings.TrimSpace(cfg.Observability.MetricsPath) == "" {
		cfg.Observability.MetricsPath = "/metrics"
	}
}

// Clone returns a deep copy so stages never share mutable slices.
func (c *Config) Clone() *Config {
	out := *c
	out.Exclude = append([]string(nil), c.Exclude...)
	if c.Preview.Enabled != nil {
		v := *c.Preview.Enabled
		out.Preview.Enabled = &v
	}
	if c.Languages != nil {
		out.Languages = make(map[string]Language, len(c.Languages))
		for id, lang := range c.Languages {
			cp := Language{Extensions: append([]string(nil), lang.Extensions...)}
			if lang.Enabled != nil {
				v := *lang.Enabled
				cp.Enabled = &v
			}
			out.Languages[id] = cp
		}
	}
	return &out
}
