// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"impulse-sim/internal/sweep"
	"impulse-sim/internal/waveform"
)

// SessionConfig tunes the interactive controller.
type SessionConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	RetainOnError bool          `yaml:"retain_on_error"`
}

// ServerConfig configures the admin HTTP host.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ExplainConfig configures the explanation collaborator.
type ExplainConfig struct {
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// GreptimeConfig configures run export to GreptimeDB.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// SweepConfig describes the default sweep grid.
type SweepConfig struct {
	Workers int        `yaml:"workers"`
	MaxRuns int        `yaml:"max_runs"`
	Grid    sweep.Grid `yaml:"grid"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration.
type Config struct {
	Defaults waveform.Parameters            `yaml:"defaults"`
	Presets  map[string]waveform.Parameters `yaml:"presets"`
	Session  SessionConfig                  `yaml:"session"`
	Server   ServerConfig                   `yaml:"server"`
	Explain  ExplainConfig                  `yaml:"explain"`
	Greptime GreptimeConfig                 `yaml:"greptime"`
	Sweep    SweepConfig                    `yaml:"sweep"`
	Logging  LoggingConfig                  `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads YAML config and validates it against a CUE schema.
// A missing config file yields the built-in defaults; an empty schema path skips CUE validation.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, cfg.validate()
	}
	if err != nil {
		return nil, err
	}
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Defaults == (waveform.Parameters{}) {
		c.Defaults = waveform.DefaultParameters()
	}
	if c.Session.Debounce == 0 {
		c.Session.Debounce = 200 * time.Millisecond
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Explain.Model == "" {
		c.Explain.Model = "gemini-2.5-flash"
	}
	if c.Explain.APIKeyEnv == "" {
		c.Explain.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Greptime.Endpoint == "" {
		c.Greptime.Endpoint = "localhost"
	}
	if c.Greptime.Port == 0 {
		c.Greptime.Port = 4001
	}
	if c.Greptime.Database == "" {
		c.Greptime.Database = "public"
	}
	if c.Sweep.MaxRuns == 0 {
		c.Sweep.MaxRuns = sweep.DefaultMaxRuns
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("IMPULSE_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Greptime.Database = v
	}
	if v := os.Getenv("IMPULSE_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.Debounce = d
		}
	}
}

func (c *Config) validate() error {
	if err := waveform.Validate(c.Defaults); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for _, name := range c.PresetNames() {
		if err := waveform.Validate(c.Presets[name]); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	if c.Session.Debounce < 0 {
		return fmt.Errorf("session.debounce must not be negative")
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// PresetNames returns the preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for n := range c.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset looks up a named parameter set.
func (c *Config) Preset(name string) (waveform.Parameters, error) {
	p, ok := c.Presets[name]
	if !ok {
		return waveform.Parameters{}, fmt.Errorf("unknown preset %q", name)
	}
	return p, nil
}

// ResolveAPIKey returns the explanation API key: config value first, then the configured env var, then API_KEY.
func (c ExplainConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		if v := os.Getenv(c.APIKeyEnv); v != "" {
			return v
		}
	}
	return os.Getenv("API_KEY")
}
