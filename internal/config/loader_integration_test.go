package config

import (
	"os"
	"path/filepath"
	"testing"
)

// Integration tests that exercise the full LoadFrom pipeline:
// defaults < YAML < environment variables.

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TASKBOARD_PORT", "7070")
	t.Setenv("TASKBOARD_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadFrom_YAMLPartialOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
dynamodb:
  table: "kanban"
  create_table: true
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.DynamoDB.Table != "kanban" || !cfg.DynamoDB.CreateTable {
		t.Errorf("got table %q create=%v", cfg.DynamoDB.Table, cfg.DynamoDB.CreateTable)
	}
	// Defaults preserved
	if cfg.DynamoDB.Region != "us-east-1" {
		t.Errorf("got region %q, want default us-east-1", cfg.DynamoDB.Region)
	}
	if cfg.Storage.PageSize != 100 {
		t.Errorf("got page size %d, want default 100", cfg.Storage.PageSize)
	}
}

func TestLoadFrom_MissingYAMLFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing YAML should fall back to defaults: %v", err)
	}
	if cfg.Server.Port != "3001" {
		t.Errorf("got port %q, want default 3001", cfg.Server.Port)
	}
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte("storage: {backend"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadFrom_ValidationAfterOverride(t *testing.T) {
	// Env pushes an invalid update mode; validation must reject the result.
	t.Setenv("TASKBOARD_UPDATE_MODE", "patch")

	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFrom_MemoryBackendFromEnv(t *testing.T) {
	t.Setenv("TASKBOARD_STORE", "memory")
	t.Setenv("TASKBOARD_ID_FORMAT", "nanoid")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.Backend != "memory" || cfg.Tasks.IDFormat != "nanoid" {
		t.Errorf("got backend %q id format %q", cfg.Storage.Backend, cfg.Tasks.IDFormat)
	}
}
