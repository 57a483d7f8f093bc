package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FillsDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mutgosd.yaml")
	if err := os.WriteFile(path, []byte("db:\n  dbFile: /var/lib/mutgos/site.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.DbFile != "/var/lib/mutgos/site.db" {
		t.Errorf("DbFile = %q, want the file's own value", cfg.DB.DbFile)
	}
	if cfg.DB.Limits.EntityName != Default().DB.Limits.EntityName {
		t.Errorf("EntityName limit should fall back to default, got %d", cfg.DB.Limits.EntityName)
	}
	if cfg.UpdateManager.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want default 5s", cfg.UpdateManager.FlushInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("db: [this is not a mapping"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestValidate_RejectsNonPositiveLimits(t *testing.T) {
	cfg := Default()
	cfg.DB.Limits.StringSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected Validate to reject a zero string size limit")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default() should be valid on its own, got %v", err)
	}
}
