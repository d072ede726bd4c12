package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/planloom/loom/internal/types"
)

// Loader reads configuration files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

type viperLoader struct{}

// NewLoader creates a viper-backed Loader.
func NewLoader() Loader {
	return &viperLoader{}
}

// Load reads and validates the YAML file at path. Missing or unreadable
// files are errors; use LoadWithDefaults to fall back to defaults.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("llm.provider", defaults.LLM.Provider)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("llm.api_key_env", defaults.LLM.APIKeyEnv)
	v.SetDefault("revision.max_attempts", defaults.Revision.MaxAttempts)
	v.SetDefault("execution.mock_delay_ms", defaults.Execution.MockDelayMS)

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	interpolateConfig(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads the file at path, or returns the default
// configuration when the file does not exist.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return l.Load(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateConfig expands ${VAR_NAME} references against the environment
// in every string field. Unset variables are left as-is so validation can
// surface them.
func interpolateConfig(cfg *Config) {
	cfg.Logging.Level = interpolateString(cfg.Logging.Level)
	cfg.Logging.Format = interpolateString(cfg.Logging.Format)
	cfg.LLM.Provider = interpolateString(cfg.LLM.Provider)
	cfg.LLM.Model = interpolateString(cfg.LLM.Model)
	cfg.LLM.APIKeyEnv = interpolateString(cfg.LLM.APIKeyEnv)
}

func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})
}
