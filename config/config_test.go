package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig should tolerate a missing file, got: %v", err)
	}

	if cfg.Server.HTTPAddress != ":4174" {
		t.Errorf("Expected default http address :4174, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Game.DefaultLanguage != "fr" {
		t.Errorf("Expected default language fr, got %s", cfg.Game.DefaultLanguage)
	}
	if cfg.Game.GracePeriod != 5*time.Second {
		t.Errorf("Expected 5s grace period, got %v", cfg.Game.GracePeriod)
	}
	if cfg.Persistence.Driver != "none" {
		t.Errorf("Expected persistence disabled by default, got %s", cfg.Persistence.Driver)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
game:
  default_round_seconds: 60
  grace_period: 2s
persistence:
  driver: file
  path: /tmp/phrasegame
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("SERVER_HTTP_ADDRESS", ":9999")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Game.DefaultRoundSeconds != 60 {
		t.Errorf("Expected 60s rounds from file, got %d", cfg.Game.DefaultRoundSeconds)
	}
	if cfg.Game.GracePeriod != 2*time.Second {
		t.Errorf("Expected 2s grace period from file, got %v", cfg.Game.GracePeriod)
	}
	if cfg.Persistence.Driver != "file" {
		t.Errorf("Expected file driver, got %s", cfg.Persistence.Driver)
	}
	if cfg.Server.HTTPAddress != ":9999" {
		t.Errorf("Expected env override :9999, got %s", cfg.Server.HTTPAddress)
	}
}
