package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfigFile(t, "casesync.yaml", `
logging:
  level: debug
  format: json
sync:
  debounce_ms: 500
  batch_size: 10
  retry:
    max_attempts: 4
    initial_delay_ms: 200
    max_delay_ms: 2000
    multiplier: 2.0
    constraint_delay_ms: 100
remote:
  connection_string: "postgres://worker@localhost/cases"
  ensure_schema: true
cache_path: "/tmp/casesync.db"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Sync.DebounceMs != 500 || cfg.Sync.BatchSize != 10 {
		t.Errorf("sync config = %+v", cfg.Sync)
	}
	if cfg.Remote.ConnectionString == "" || !cfg.Remote.EnsureSchema {
		t.Errorf("remote config = %+v", cfg.Remote)
	}
	if cfg.CachePath != "/tmp/casesync.db" {
		t.Errorf("cache_path = %q", cfg.CachePath)
	}

	policy := cfg.Sync.Retry.retryPolicy()
	if policy.MaxAttempts != 4 || policy.InitialDelay != 200*time.Millisecond {
		t.Errorf("retry policy = %+v", policy)
	}
	if policy.MaxDelay != 2*time.Second || policy.ConstraintDelay != 100*time.Millisecond {
		t.Errorf("retry policy = %+v", policy)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfigFile(t, "casesync.json",
		`{"sync": {"debounce_ms": 300}, "cache_path": "cases.db"}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Sync.DebounceMs != 300 || cfg.CachePath != "cases.db" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeConfigFile(t, "bad.yaml", "sync:\n  debounce_ms: -1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("negative debounce accepted")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "broken.yaml", "sync: [not a mapping\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed yaml accepted")
	}
}

func TestNewFromConfigLocalOnly(t *testing.T) {
	s, err := NewFromConfig(&Config{
		Sync: SyncConfig{DebounceMs: 50},
	})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer s.Close()
	if s.Store() == nil {
		t.Error("store not wired")
	}
}

func TestNewFromConfigWithCache(t *testing.T) {
	s, err := NewFromConfig(&Config{
		CachePath: filepath.Join(t.TempDir(), "cases.db"),
	})
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer s.Close()
	if s.cache == nil {
		t.Error("cache not wired")
	}
}
