package app

import (
	"os"
	"path/filepath"
	"sync"

	"structmap/internal/core/config"
	"structmap/internal/core/errors"
	"structmap/internal/core/ports"
	"structmap/internal/engine/parser"
	"structmap/internal/shared/util"

	"github.com/google/uuid"
)

// App runs structure map builds for one resolved configuration.
type App struct {
	Config *config.Config
	Root   string

	extractor ports.ImportExtractor
	excludes  *util.PathMatcher

	mu         sync.RWMutex
	lastResult *Result
	lastErr    error
}

func New(cfg *config.Config) (*App, error) {
	registry, err := buildParserRegistry(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := parser.NewGrammarLoaderWithRegistry(registry)
	if err != nil {
		return nil, err
	}
	p := parser.NewParser(loader)
	if err := p.RegisterDefaultExtractors(); err != nil {
		return nil, err
	}
	return NewWithExtractor(cfg, p)
}

// NewWithExtractor builds an App around a caller supplied extractor.
func NewWithExtractor(cfg *config.Config, extractor ports.ImportExtractor) (*App, error) {
	if extractor == nil {
		return nil, errors.New(errors.CodeInternal, "import extractor is required")
	}
	cfg = cfg.Clone()

	root, err := resolveRoot(cfg.RootDir)
	if err != nil {
		return nil, err
	}

	excludes, err := util.CompilePathMatcher(cfg.Exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile exclude patterns")
	}

	return &App{
		Config:    cfg,
		Root:      root,
		extractor: extractor,
		excludes:  excludes,
	}, nil
}

func buildParserRegistry(cfg *config.Config) (map[string]parser.LanguageSpec, error) {
	overrides := make(map[string]parser.LanguageOverride, len(cfg.Languages))
	for lang, languageCfg := range cfg.Languages {
		overrides[lang] = parser.LanguageOverride{
			Enabled:    languageCfg.Enabled,
			Extensions: append([]string(nil), languageCfg.Extensions...),
		}
	}
	registry, err := parser.BuildLanguageRegistry(overrides)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "languages")
	}
	return registry, nil
}

func resolveRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve root directory"), errors.CtxPath, dir)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.AddContext(errors.New(errors.CodeNotFound, "root directory does not exist"), errors.CtxPath, abs)
		}
		return "", errors.AddContext(errors.Wrap(err, errors.CodeIO, "stat root directory"), errors.CtxPath, abs)
	}
	if !info.IsDir() {
		return "", errors.AddContext(errors.New(errors.CodeValidationError, "root is not a directory"), errors.CtxPath, abs)
	}
	return filepath.Clean(abs), nil
}

// SupportedExtensions lists the file extensions discovery picks up.
func (a *App) SupportedExtensions() []string {
	return a.extractor.SupportedExtensions()
}

// LastResult returns the most recent successful build and the error of the
// most recent attempt, if it failed.
func (a *App) LastResult() (*Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult, a.lastErr
}

func (a *App) record(res *Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.lastErr = err
		return
	}
	a.lastResult = res
	a.lastErr = nil
}

func newRunID() string {
	return uuid.NewString()
}
