package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/carehub/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s

logging:
  level: debug
  format: console

backup:
  dir: /var/lib/carehub/backups

hooks:
  timeout: 250ms

modules:
  builtin: [people, finance]
  manifest_dir: /etc/carehub/modules
  overrides:
    finance:
      isolated: false
    people:
      enabled: false
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Backup.Dir != "/var/lib/carehub/backups" {
		t.Errorf("Backup.Dir = %s", cfg.Backup.Dir)
	}
	if cfg.Hooks.Timeout != 250*time.Millisecond {
		t.Errorf("Hooks.Timeout = %v, want 250ms", cfg.Hooks.Timeout)
	}
	if cfg.Modules.ManifestDir != "/etc/carehub/modules" {
		t.Errorf("ManifestDir = %s", cfg.Modules.ManifestDir)
	}

	finance := cfg.Modules.Overrides["finance"]
	if finance.Isolated == nil || *finance.Isolated {
		t.Errorf("finance isolated override = %v, want false", finance.Isolated)
	}
	if finance.Enabled != nil {
		t.Error("finance enabled override should be unset")
	}
	people := cfg.Modules.Overrides["people"].Patch()
	if people.Enabled == nil || *people.Enabled || people.Isolated != nil {
		t.Errorf("people patch = %+v", people)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics = %+v", cfg.Metrics)
	}
	if cfg.Backup.Dir != "backups" {
		t.Errorf("default Backup.Dir = %s", cfg.Backup.Dir)
	}
	if cfg.Hooks.Timeout != 5*time.Second {
		t.Errorf("default Hooks.Timeout = %v", cfg.Hooks.Timeout)
	}
}

func TestLoad_MetricsDisabled(t *testing.T) {
	cfg := writeAndLoad(t, "metrics:\n  enabled: false\n")
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BACKUP_DIR", "/tmp/care-backups")

	cfg := writeAndLoad(t, `
backup:
  dir: "${TEST_BACKUP_DIR}"
`)

	if cfg.Backup.Dir != "/tmp/care-backups" {
		t.Errorf("Backup.Dir = %s, want /tmp/care-backups", cfg.Backup.Dir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAREHUB_SERVER_PORT", "7070")
	t.Setenv("CAREHUB_LOG_LEVEL", "warn")
	t.Setenv("CAREHUB_METRICS_ENABLED", "no")
	t.Setenv("CAREHUB_HOOKS_TIMEOUT", "2s")
	t.Setenv("CAREHUB_MODULES_BUILTIN", "people, roster,")

	cfg := writeAndLoad(t, "server:\n  port: 9090\n")

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from env", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false from env")
	}
	if cfg.Hooks.Timeout != 2*time.Second {
		t.Errorf("Hooks.Timeout = %v, want 2s", cfg.Hooks.Timeout)
	}
	if len(cfg.Modules.Builtin) != 2 || cfg.Modules.Builtin[1] != "roster" {
		t.Errorf("Builtin = %v, want [people roster]", cfg.Modules.Builtin)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad metrics path", "metrics:\n  path: metrics\n", "metrics.path"},
		{"negative timeout", "hooks:\n  timeout: -1s\n", "hooks.timeout"},
		{"bad yaml", "server: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load should fail for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAREHUB_BACKUP_DIR", "/data/backups")
	t.Setenv("CAREHUB_MODULES_MANIFEST_DIR", "/data/modules")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Backup.Dir != "/data/backups" {
		t.Errorf("Backup.Dir = %s", cfg.Backup.Dir)
	}
	if cfg.Modules.ManifestDir != "/data/modules" {
		t.Errorf("ManifestDir = %s", cfg.Modules.ManifestDir)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics should default to enabled")
	}
}

func TestLoadWithFallback(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9191\n")

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191 from file", cfg.Server.Port)
	}

	cfg, err = config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback without file error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestBuiltinEnabled(t *testing.T) {
	all := config.ModulesConfig{}
	if !all.BuiltinEnabled("finance") {
		t.Error("empty builtin list should enable every module")
	}

	some := config.ModulesConfig{Builtin: []string{"people"}}
	if !some.BuiltinEnabled("people") {
		t.Error("people should be enabled")
	}
	if some.BuiltinEnabled("finance") {
		t.Error("finance should not be enabled")
	}
}

// Helpers

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeFile(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}
