package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file failed: %v", err)
	}
	if cfg.Port != 9000 || cfg.DBPath != "catrack.db" || cfg.SessionHours != 24 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catrack.yaml")
	data := "port: 8080\ndb_path: /tmp/test.db\nsession_hours: 2\ninstitution: DUT Assets\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBPath != "/tmp/test.db" || cfg.SessionHours != 2 {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	if cfg.Institution != "DUT Assets" {
		t.Errorf("Expected institution override, got %q", cfg.Institution)
	}
	// Unset keys keep their defaults.
	if cfg.UploadsDir != "uploads" {
		t.Errorf("Expected default uploads dir, got %q", cfg.UploadsDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catrack.yaml")
	if err := os.WriteFile(path, []byte("port: 8080\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CATRACK_PORT", "9999")
	t.Setenv("CATRACK_DB", "env.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9999 || cfg.DBPath != "env.db" {
		t.Errorf("Env overrides not applied: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestLoad_BadSessionHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catrack.yaml")
	if err := os.WriteFile(path, []byte("session_hours: -5\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SessionHours != 24 {
		t.Errorf("Invalid session hours should fall back to 24, got %d", cfg.SessionHours)
	}
}
