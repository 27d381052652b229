// Package config layers mend's settings: compiled defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eriksjaastad/mend-go/internal/oracle"
)

// DefaultPath is where Load looks when no config file is named.
const DefaultPath = ".mend.yaml"

// Config holds all mend configuration.
type Config struct {
	Oracle   OracleConfig `yaml:"oracle"`
	Fixer    FixerConfig  `yaml:"fixer"`
	Runner   RunnerConfig `yaml:"runner"`
	LogLevel string       `yaml:"log_level"`
}

// OracleConfig configures the reasoning backend.
type OracleConfig struct {
	Provider string `yaml:"provider"` // ollama, openai, gemini; empty = detect
	Model    string `yaml:"model"`
	Host     string `yaml:"host"`
	APIKey   string `yaml:"api_key"`

	// MaxRetries bounds the restate-as-JSON loop; -1 keeps asking.
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
}

// FixerConfig configures the fix loop.
type FixerConfig struct {
	MaxAttempts int  `yaml:"max_attempts"`
	Candidates  int  `yaml:"candidates"`
	Confirm     bool `yaml:"confirm"`
}

// RunnerConfig configures script execution.
type RunnerConfig struct {
	Timeout string `yaml:"timeout"` // Go duration; "0" disables
}

func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			MaxRetries:  3,
			Temperature: 0.2,
		},
		Fixer: FixerConfig{
			MaxAttempts: 5,
			Candidates:  1,
		},
		Runner: RunnerConfig{
			Timeout: "60s",
		},
		LogLevel: "INFO",
	}
}

// Load reads the config file at path (missing file is fine, defaults
// apply) and then lets the environment override it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEND_PROVIDER"); v != "" {
		c.Oracle.Provider = v
	}
	if v := os.Getenv("MEND_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && c.Oracle.Host == "" {
		c.Oracle.Host = v
	}
	if v := os.Getenv("MEND_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Oracle.MaxRetries = n
		}
	}
	if v := os.Getenv("MEND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Resolve fills the provider-dependent blanks: detects the provider
// when unset, picks its default model, and pulls the matching API key
// from the environment.
func (c *Config) Resolve() {
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = oracle.DetectProvider()
	}
	if c.Oracle.Model == "" {
		switch c.Oracle.Provider {
		case oracle.ProviderOpenAI:
			c.Oracle.Model = "gpt-4o"
		case oracle.ProviderGemini:
			c.Oracle.Model = "gemini-2.0-flash"
		default:
			c.Oracle.Model = "qwen2.5-coder:7b"
		}
	}
	if c.Oracle.APIKey == "" {
		switch c.Oracle.Provider {
		case oracle.ProviderOpenAI:
			c.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		case oracle.ProviderGemini:
			c.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// RunTimeout parses the runner timeout.
func (c *Config) RunTimeout() (time.Duration, error) {
	if c.Runner.Timeout == "" || c.Runner.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Runner.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid runner timeout %q: %w", c.Runner.Timeout, err)
	}
	return d, nil
}

// OracleOptions maps the config onto the oracle client options.
func (c *Config) OracleOptions() oracle.Options {
	return oracle.Options{
		Provider:    c.Oracle.Provider,
		Model:       c.Oracle.Model,
		Host:        c.Oracle.Host,
		APIKey:      c.Oracle.APIKey,
		Temperature: c.Oracle.Temperature,
	}
}
