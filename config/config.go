// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/carehub/core/module"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Backup  BackupConfig  `yaml:"backup"`
	Hooks   HooksConfig   `yaml:"hooks"`
	Modules ModulesConfig `yaml:"modules"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// BackupConfig configures where module backups are written.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// HooksConfig configures hook dispatch.
type HooksConfig struct {
	// Timeout bounds each callback. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`
}

// ModulesConfig selects which modules are registered at startup.
type ModulesConfig struct {
	// Builtin lists built-in modules to register. Empty means all of them.
	Builtin     []string                  `yaml:"builtin"`
	ManifestDir string                    `yaml:"manifest_dir"`
	Overrides   map[string]ModuleOverride `yaml:"overrides"`
}

// ModuleOverride adjusts the settings of a registered module.
type ModuleOverride struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	Isolated *bool `yaml:"isolated,omitempty"`
}

// Patch converts the override to a settings patch.
func (o ModuleOverride) Patch() module.SettingsPatch {
	return module.SettingsPatch{Enabled: o.Enabled, Isolated: o.Isolated}
}

// BuiltinEnabled reports whether the named built-in module should be registered.
func (m ModulesConfig) BuiltinEnabled(id string) bool {
	if len(m.Builtin) == 0 {
		return true
	}
	for _, b := range m.Builtin {
		if b == id {
			return true
		}
	}
	return false
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CAREHUB_SERVER_HOST          - Server host (default: 0.0.0.0)
//	CAREHUB_SERVER_PORT          - Server port (default: 8080)
//	CAREHUB_SERVER_READ_TIMEOUT  - Read timeout (default: 15s)
//	CAREHUB_SERVER_WRITE_TIMEOUT - Write timeout (default: 30s)
//	CAREHUB_LOG_LEVEL            - Log level: debug, info, warn, error (default: info)
//	CAREHUB_LOG_FORMAT           - Log format: json or console (default: json)
//	CAREHUB_METRICS_ENABLED      - Enable /metrics endpoint (default: true)
//	CAREHUB_METRICS_PATH         - Metrics path (default: /metrics)
//	CAREHUB_BACKUP_DIR           - Backup directory (default: backups)
//	CAREHUB_HOOKS_TIMEOUT        - Per-callback hook timeout (default: 5s)
//	CAREHUB_MODULES_BUILTIN      - Comma separated built-in modules (default: all)
//	CAREHUB_MODULES_MANIFEST_DIR - Directory of YAML/TOML module manifests
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from file when it exists, otherwise from the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies CAREHUB_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("CAREHUB_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CAREHUB_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CAREHUB_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("CAREHUB_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("CAREHUB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAREHUB_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("CAREHUB_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("CAREHUB_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// Backup configuration
	if v := os.Getenv("CAREHUB_BACKUP_DIR"); v != "" {
		cfg.Backup.Dir = v
	}

	// Hooks configuration
	if v := os.Getenv("CAREHUB_HOOKS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Hooks.Timeout = d
		}
	}

	// Modules configuration
	if v := os.Getenv("CAREHUB_MODULES_BUILTIN"); v != "" {
		cfg.Modules.Builtin = splitList(v)
	}
	if v := os.Getenv("CAREHUB_MODULES_MANIFEST_DIR"); v != "" {
		cfg.Modules.ManifestDir = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "backups"
	}

	if cfg.Hooks.Timeout == 0 {
		cfg.Hooks.Timeout = 5 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", cfg.Metrics.Path)
	}

	if cfg.Hooks.Timeout < 0 {
		return fmt.Errorf("hooks.timeout cannot be negative")
	}

	for id := range cfg.Modules.Overrides {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("modules.overrides: module id cannot be empty")
		}
	}

	return nil
}
