// Package config defines loom's runtime configuration and its YAML loader.
package config

import (
	"fmt"

	"github.com/planloom/loom/internal/llm"
	"github.com/planloom/loom/internal/types"
)

// Config is the top-level runtime configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Revision  RevisionConfig  `mapstructure:"revision" yaml:"revision"`
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LLMConfig selects the provider used for plan generation. APIKeyEnv names
// the environment variable holding the credential; the key itself never
// appears in config files.
type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKeyEnv string `mapstructure:"api_key_env" yaml:"api_key_env"`
}

// RevisionConfig bounds the plan revision loop.
type RevisionConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// ExecutionConfig tunes the mock executor used by dry runs.
type ExecutionConfig struct {
	MockDelayMS int `mapstructure:"mock_delay_ms" yaml:"mock_delay_ms"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			Provider:  string(llm.ProviderAnthropic),
			Model:     "claude-sonnet-4-20250514",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		Revision: RevisionConfig{
			MaxAttempts: 3,
		},
		Execution: ExecutionConfig{
			MockDelayMS: 0,
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

var validProviders = map[string]bool{
	string(llm.ProviderAnthropic): true,
	string(llm.ProviderOpenAI):    true,
	string(llm.ProviderOllama):    true,
}

// Validate checks the configuration for values the rest of the system cannot
// act on. It reports the first violation found.
func (c *Config) Validate() error {
	if !validLogLevels[c.Logging.Level] {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("invalid logging level %q (must be debug, info, warn, or error)", c.Logging.Level))
	}
	if !validLogFormats[c.Logging.Format] {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("invalid logging format %q (must be text or json)", c.Logging.Format))
	}
	if !validProviders[c.LLM.Provider] {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("unsupported llm provider %q", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "llm model cannot be empty")
	}
	if c.Revision.MaxAttempts < 1 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("revision max_attempts must be at least 1, got %d", c.Revision.MaxAttempts))
	}
	if c.Execution.MockDelayMS < 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("execution mock_delay_ms cannot be negative, got %d", c.Execution.MockDelayMS))
	}
	return nil
}
