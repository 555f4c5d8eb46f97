package config

import (
	"strings"

	"structmap/internal/core/errors"
	"structmap/internal/shared/util"
)

// Validate checks a fully resolved configuration, after env and flag
// overrides have been applied.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateRoot,
		validateExclude,
		validatePreview,
		validateLevelize,
		validateWatch,
		validateHistory,
		validateObservability,
		validateLanguages,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.Newf(errors.CodeValidationError, "unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateRoot(cfg *Config) error {
	if strings.TrimSpace(cfg.RootDir) == "" {
		return errors.New(errors.CodeValidationError, "root_dir must not be empty")
	}
	return nil
}

func validateExclude(cfg *Config) error {
	if _, err := util.CompilePathMatcher(cfg.Exclude); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "exclude")
	}
	return nil
}

func validatePreview(cfg *Config) error {
	if cfg.Preview.Port < 0 || cfg.Preview.Port > 65535 {
		return errors.Newf(errors.CodeValidationError, "preview.port must be between 0 and 65535, got %d", cfg.Preview.Port)
	}
	if strings.TrimSpace(cfg.Preview.Host) == "" {
		return errors.New(errors.CodeValidationError, "preview.host must not be empty")
	}
	return nil
}

func validateLevelize(cfg *Config) error {
	if cfg.Levelize.Workers < 0 {
		return errors.Newf(errors.CodeValidationError, "levelize.workers must be >= 0, got %d", cfg.Levelize.Workers)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return errors.New(errors.CodeValidationError, "watch.debounce must not be negative")
	}
	if cfg.Watch.MinInterval < 0 {
		return errors.New(errors.CodeValidationError, "watch.min_interval must not be negative")
	}
	if cfg.Watch.Enabled && strings.TrimSpace(cfg.Output.File) == "" && !cfg.Preview.IsEnabled() {
		return errors.New(errors.CodeValidationError, "watch mode needs output.file or the preview server")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return errors.New(errors.CodeValidationError, "history.path must not be empty when history is enabled")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !strings.HasPrefix(cfg.Observability.MetricsPath, "/") {
		return errors.Newf(errors.CodeValidationError, "observability.metrics_path must start with '/', got %q", cfg.Observability.MetricsPath)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return errors.New(errors.CodeValidationError, "observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for id, lang := range cfg.Languages {
		if strings.TrimSpace(id) == "" {
			return errors.New(errors.CodeValidationError, "languages entry with empty id")
		}
		for _, ext := range lang.Extensions {
			if strings.TrimSpace(ext) == "" {
				return errors.AddContext(errors.New(errors.CodeValidationError, "language extension must not be empty"), errors.CtxLanguage, id)
			}
		}
	}
	return nil
}
