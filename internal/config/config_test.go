package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	origDir, _ := os.Getwd()
	tmpDir := t.TempDir()
	_ = os.Chdir(tmpDir)
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoad_Defaults(t *testing.T) {
	// Ensure no config file affects the test
	chdirTemp(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected loglevel=info, got %s", cfg.LogLevel)
	}

	// Ingestion defaults
	if cfg.Ingestion.Enabled {
		t.Error("expected ingestion disabled by default")
	}
	if cfg.Ingestion.Mode != "compat" {
		t.Errorf("expected mode=compat, got %s", cfg.Ingestion.Mode)
	}
	if cfg.Ingestion.Timeout != 10*time.Second {
		t.Errorf("expected timeout=10s, got %v", cfg.Ingestion.Timeout)
	}
	if cfg.Ingestion.Suffix != ".csv" {
		t.Errorf("expected suffix=.csv, got %s", cfg.Ingestion.Suffix)
	}
	if cfg.Ingestion.Prefix != "" {
		t.Errorf("expected empty prefix, got %q", cfg.Ingestion.Prefix)
	}

	// Rotating log file defaults
	if cfg.Logging.Dir != "logs" {
		t.Errorf("expected logging dir=logs, got %s", cfg.Logging.Dir)
	}
	if cfg.Logging.MaxSizeMB != 5 || cfg.Logging.MaxBackups != 5 {
		t.Errorf("expected 5MB x 5 backups, got %dMB x %d", cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}

	// Emitter defaults
	if !cfg.Emitters.Stdout.Enabled {
		t.Error("expected stdout emitter enabled by default")
	}
	if cfg.Emitters.Stdout.Format != "json" {
		t.Errorf("expected stdout format=json, got %s", cfg.Emitters.Stdout.Format)
	}
	if cfg.Emitters.File.Enabled {
		t.Error("expected file emitter disabled by default")
	}

	if cfg.ObjectStore.Provider != "s3" {
		t.Errorf("expected objectstore provider=s3, got %s", cfg.ObjectStore.Provider)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)

	// FLOWBASE_LOGLEVEL -> loglevel
	t.Setenv("FLOWBASE_LOGLEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected loglevel=debug from env, got %s", cfg.LogLevel)
	}
}

func TestLoad_NestedEnvOverride(t *testing.T) {
	chdirTemp(t)

	// FLOWBASE_INGESTION_ENABLED -> ingestion.enabled
	t.Setenv("FLOWBASE_INGESTION_ENABLED", "true")
	t.Setenv("FLOWBASE_INGESTION_BUCKET", "raw-data")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Ingestion.Enabled {
		t.Error("expected ingestion enabled from nested env")
	}
	if cfg.Ingestion.Bucket != "raw-data" {
		t.Errorf("expected bucket=raw-data from env, got %s", cfg.Ingestion.Bucket)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowbase.yaml")

	configContent := `
loglevel: warn
ingestion:
  source: api
  enabled: true
  url: https://example.com/data
  authtoken: secret
  timeout: 3s
emitters:
  stdout:
    format: csv
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected loglevel=warn from file, got %s", cfg.LogLevel)
	}
	if cfg.Ingestion.Source != "api" {
		t.Errorf("expected source=api from file, got %s", cfg.Ingestion.Source)
	}
	if !cfg.Ingestion.Enabled {
		t.Error("expected ingestion enabled from file")
	}
	if cfg.Ingestion.URL != "https://example.com/data" {
		t.Errorf("unexpected url: %s", cfg.Ingestion.URL)
	}
	if cfg.Ingestion.AuthToken != "secret" {
		t.Errorf("unexpected auth token: %s", cfg.Ingestion.AuthToken)
	}
	if cfg.Ingestion.Timeout != 3*time.Second {
		t.Errorf("expected timeout=3s, got %v", cfg.Ingestion.Timeout)
	}
	if cfg.Emitters.Stdout.Format != "csv" {
		t.Errorf("expected stdout format=csv, got %s", cfg.Emitters.Stdout.Format)
	}
	// Untouched defaults survive
	if !cfg.Emitters.Stdout.Enabled {
		t.Error("expected stdout emitter to stay enabled")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowbase.yaml")

	configContent := `loglevel: warn`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("FLOWBASE_LOGLEVEL", "error")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("expected env to override file, got %s", cfg.LogLevel)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowbase.yaml")

	invalidContent := `
loglevel: info
  invalid_indent: true
`
	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/flowbase.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_JSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowbase.json")

	configContent := `{
  "loglevel": "error",
  "ingestion": {
    "source": "local",
    "filepath": "/data/input.csv"
  }
}`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("expected loglevel=error from JSON file, got %s", cfg.LogLevel)
	}
	if cfg.Ingestion.FilePath != "/data/input.csv" {
		t.Errorf("expected filepath from JSON file, got %s", cfg.Ingestion.FilePath)
	}
}

func TestRedacted(t *testing.T) {
	cfg := defaults()
	cfg.Ingestion.AuthToken = "token"
	cfg.ObjectStore.AccessKeyID = "AKIA"
	cfg.ObjectStore.SecretAccessKey = "secret"

	red := cfg.Redacted()

	if red.Ingestion.AuthToken == "token" || red.ObjectStore.SecretAccessKey == "secret" || red.ObjectStore.AccessKeyID == "AKIA" {
		t.Errorf("expected secrets to be masked, got %+v", red)
	}
	// Original untouched
	if cfg.Ingestion.AuthToken != "token" {
		t.Error("expected Redacted not to mutate the receiver")
	}
}

func TestDefaults_ReturnsCopy(t *testing.T) {
	a := Defaults()
	a.Ingestion.Enabled = true

	b := Defaults()
	if b.Ingestion.Enabled {
		t.Error("expected Defaults to return independent copies")
	}
}
