package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Remote.BaseURL == "" {
		t.Error("expected base_url to be populated")
	}
	if cfg.Remote.AppKeyEnv != "LOREBRIDGE_APP_KEY" {
		t.Errorf("expected app_key_env LOREBRIDGE_APP_KEY, got %q", cfg.Remote.AppKeyEnv)
	}
	if cfg.Import.Drafts {
		t.Error("expected drafts import disabled by default")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
remote:
  world_id: w1
import:
  drafts: true
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Remote.WorldID != "w1" {
		t.Errorf("expected world_id w1, got %q", cfg.Remote.WorldID)
	}
	if !cfg.Import.Drafts {
		t.Error("expected drafts import enabled")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Remote.TimeoutSeconds != 30 {
		t.Errorf("expected default timeout, got %d", cfg.Remote.TimeoutSeconds)
	}
	if cfg.Remote.TokenEnv != "LOREBRIDGE_TOKEN" {
		t.Errorf("expected default token_env, got %q", cfg.Remote.TokenEnv)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Remote.BaseURL == "" {
		t.Error("expected base_url populated from file")
	}
}

func TestResolveExplicitPathMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config path")
	}
}

func TestCredentialEnvResolution(t *testing.T) {
	r := Remote{AppKeyEnv: "TEST_LB_APP_KEY", TokenEnv: "TEST_LB_TOKEN"}
	t.Setenv("TEST_LB_APP_KEY", "key123")
	t.Setenv("TEST_LB_TOKEN", "tok456")

	if r.AppKey() != "key123" {
		t.Errorf("expected key123, got %q", r.AppKey())
	}
	if r.Token() != "tok456" {
		t.Errorf("expected tok456, got %q", r.Token())
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
