// Package config loads the process configuration from viper (config file,
// environment, flags) into an immutable value that is constructed once at
// startup and passed by reference into the session supervisor. Nothing else
// in the codebase reads viper directly.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// RetryConfig controls the bounded retry policy applied to retryable model
// client failures.
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts"`
	InitialDelay int    `mapstructure:"initial_delay"` // milliseconds
	MaxDelay     int    `mapstructure:"max_delay"`     // milliseconds
	BackoffType  string `mapstructure:"backoff_type"`  // "fixed" or "exponential"
}

// DefaultRetryConfig is applied when no retry policy is configured.
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}

// Config is the resolved process configuration. It is treated as immutable
// for the lifetime of a session.
type Config struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	BaseURL   string `mapstructure:"base_url"` // OpenAI-compatible endpoint override

	StepBudget int         `mapstructure:"step_budget"`
	Retry      RetryConfig `mapstructure:"retry"`

	ModelTimeout time.Duration `mapstructure:"model_timeout"`
	ToolTimeout  time.Duration `mapstructure:"tool_timeout"`

	WorkspaceRoot string `mapstructure:"workspace_root"`
	LibraryDir    string `mapstructure:"library_dir"` // input documents, relative to workspace
	OutputDir     string `mapstructure:"output_dir"`  // produced skill packages, relative to workspace

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	TracingEnabled bool `mapstructure:"tracing_enabled"`
}

// Load resolves the configuration from viper, applying defaults and
// validating the result.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.StepBudget == 0 {
		cfg.StepBudget = 50
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = DefaultRetryConfig.Attempts
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if cfg.Retry.BackoffType == "" {
		cfg.Retry.BackoffType = DefaultRetryConfig.BackoffType
	}
	if cfg.ModelTimeout == 0 {
		cfg.ModelTimeout = 5 * time.Minute
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = 1 * time.Minute
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot, _ = os.Getwd()
	}
	if cfg.LibraryDir == "" {
		cfg.LibraryDir = "library"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "produced_skill"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.StepBudget < 1 {
		return errors.Errorf("step_budget must be at least 1, got %d", c.StepBudget)
	}
	if c.Retry.Attempts < 1 {
		return errors.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	switch c.Retry.BackoffType {
	case "fixed", "exponential":
	default:
		return errors.Errorf("retry.backoff_type must be fixed or exponential, got %q", c.Retry.BackoffType)
	}
	if !filepath.IsAbs(c.WorkspaceRoot) {
		abs, err := filepath.Abs(c.WorkspaceRoot)
		if err != nil {
			return errors.Wrap(err, "failed to resolve workspace root")
		}
		c.WorkspaceRoot = abs
	}
	return nil
}

// LibraryPath returns the absolute path of the input library directory.
func (c *Config) LibraryPath() string {
	return filepath.Join(c.WorkspaceRoot, c.LibraryDir)
}

// OutputPath returns the absolute path of the skill output directory.
func (c *Config) OutputPath() string {
	return filepath.Join(c.WorkspaceRoot, c.OutputDir)
}
