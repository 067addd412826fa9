// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	// Workspace is the root directory file actions operate under.
	Workspace string `yaml:"workspace"`

	Consensus    ConsensusConfig     `yaml:"consensus"`
	Dispatch     DispatchConfig      `yaml:"dispatch"`
	Embedding    EmbeddingConfig     `yaml:"embedding"`
	Shell        ShellConfig         `yaml:"shell"`
	Capabilities map[string][]string `yaml:"capabilities,omitempty"` // group -> action kinds
	Budgets      map[string]float64  `yaml:"budgets,omitempty"`      // agent -> budget units
	Audit        AuditConfig         `yaml:"audit"`
	Logger       LoggerConfig        `yaml:"logger"`
	Tracer       TracerConfig        `yaml:"tracer"`
}

// ConsensusConfig tunes proposal gathering.
type ConsensusConfig struct {
	Proposals int    `yaml:"proposals"` // samples per action
	Timeout   string `yaml:"timeout"`   // duration string
}

// DispatchConfig tunes handler dispatch.
type DispatchConfig struct {
	ActionTimeout string `yaml:"action_timeout"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryBase     string `yaml:"retry_base"`
}

// EmbeddingConfig selects and tunes the embedding provider chain used by
// the semantic-similarity consensus rule.
type EmbeddingConfig struct {
	BaseURL   string  `yaml:"base_url"`
	APIKeyEnv string  `yaml:"api_key_env"` // env var holding the key, never the key itself
	Model     string  `yaml:"model"`
	CacheSize int     `yaml:"cache_size"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
}

// ShellConfig tunes the execute_shell handler.
type ShellConfig struct {
	Allowed       []string `yaml:"allowed"`        // command allowlist, empty = all
	SyncThreshold string   `yaml:"sync_threshold"` // commands finishing within run synchronously
}

// AuditConfig tunes the action audit store.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // sqlite file path
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workspace: "./workspace",
		Consensus: ConsensusConfig{Proposals: 3, Timeout: "30s"},
		Dispatch:  DispatchConfig{ActionTimeout: "5m", RetryAttempts: 3, RetryBase: "100ms"},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "text-embedding-3-small",
			CacheSize: 1024,
		},
		Shell:  ShellConfig{SyncThreshold: "2s"},
		Audit:  AuditConfig{Enabled: true, Path: "./quorum-audit.db"},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Exporter: "noop"},
	}
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and duration syntax.
func (c *Config) Validate() error {
	if c.Consensus.Proposals < 1 {
		return fmt.Errorf("consensus.proposals must be at least 1, got %d", c.Consensus.Proposals)
	}
	for name, value := range map[string]string{
		"consensus.timeout":       c.Consensus.Timeout,
		"dispatch.action_timeout": c.Dispatch.ActionTimeout,
		"dispatch.retry_base":     c.Dispatch.RetryBase,
		"shell.sync_threshold":    c.Shell.SyncThreshold,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// Duration parses a duration string, returning fallback when the string
// is empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
