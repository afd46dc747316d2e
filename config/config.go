package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"scrapegen.db" validate:"required"`

	WorkDir           string `env:"WORK_DIR" envDefault:"temp_scrapers" validate:"required"`
	DownloadsDir      string `env:"DOWNLOADS_DIR" envDefault:"downloads" validate:"required"`
	CleanupMaxAgeHrs  int    `env:"CLEANUP_MAX_AGE_HOURS" envDefault:"24" validate:"min=1"`
	CleanupOnStart    bool   `env:"CLEANUP_ON_START" envDefault:"true"`

	MaxAttempts       int `env:"MAX_ATTEMPTS" envDefault:"5" validate:"min=1,max=20"`
	FetchTimeoutSec   int `env:"FETCH_TIMEOUT_SEC" envDefault:"30" validate:"min=1"`
	InstallTimeoutSec int `env:"INSTALL_TIMEOUT_SEC" envDefault:"120" validate:"min=1"`
	RunTimeoutSec     int `env:"RUN_TIMEOUT_SEC" envDefault:"60" validate:"min=1"`

	GeminiAPIKeys []string `env:"GEMINI_API_KEYS,required,notEmpty" envSeparator:"," validate:"required,min=1"`
	GeminiModel   string   `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	ValidatorCountRatio float64 `env:"VALIDATOR_COUNT_RATIO" envDefault:"0.5" validate:"gt=0,lte=1"`

	PythonBin string `env:"PYTHON_BIN" envDefault:"python"`
	PipBin    string `env:"PIP_BIN" envDefault:"pip"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to its slog constant.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
