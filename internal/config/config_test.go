package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8000 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Orchestrator.MaxConcurrent != 8 {
		t.Errorf("default max_concurrent = %d", cfg.Orchestrator.MaxConcurrent)
	}
	if cfg.Orchestrator.MaxRounds != 5 {
		t.Errorf("default max_rounds = %d", cfg.Orchestrator.MaxRounds)
	}
	if cfg.Orchestrator.PartialSuccessThreshold != 3 {
		t.Errorf("default partial_success_threshold = %d", cfg.Orchestrator.PartialSuccessThreshold)
	}
	if cfg.Tools.CacheTTL != 15*time.Minute {
		t.Errorf("default cache_ttl = %s", cfg.Tools.CacheTTL)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
anthropic:
  model: claude-haiku-4-5
  use_bedrock: true
  aws_region: us-west-2
server:
  host: 127.0.0.1
  port: 9001
  allowed_origins:
    - https://app.example.com
orchestrator:
  max_concurrent: 4
tools:
  google_maps_api_key: gm-test
  cache_ttl: 1h
agents:
  overrides_file: /etc/vishva/agents.yaml
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Anthropic.Model != "claude-haiku-4-5" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if !cfg.Anthropic.UseBedrock || cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("bedrock settings not loaded: %+v", cfg.Anthropic)
	}
	if cfg.Server.Addr() != "127.0.0.1:9001" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("allowed origins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Orchestrator.MaxConcurrent != 4 {
		t.Errorf("max_concurrent override not applied: %d", cfg.Orchestrator.MaxConcurrent)
	}
	// Unset keys keep their defaults.
	if cfg.Orchestrator.MaxRounds != 5 {
		t.Errorf("max_rounds default lost: %d", cfg.Orchestrator.MaxRounds)
	}
	if cfg.Tools.GoogleMapsAPIKey != "gm-test" {
		t.Errorf("maps key = %q", cfg.Tools.GoogleMapsAPIKey)
	}
	if cfg.Tools.CacheTTL != time.Hour {
		t.Errorf("cache_ttl = %s", cfg.Tools.CacheTTL)
	}
	if cfg.Agents.OverridesFile != "/etc/vishva/agents.yaml" {
		t.Errorf("overrides file = %q", cfg.Agents.OverridesFile)
	}
}

func TestLoadFromPathExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_VISHVA_KEY", "sk-ant-expanded")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "anthropic:\n  api_key: ${TEST_VISHVA_KEY}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
}

func TestGetAPIKeyPrefersEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-config"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-ant-from-env" {
		t.Errorf("key = %q", key)
	}
}

func TestGetAPIKeyFallsBackToConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-from-config"

	key, err := GetAPIKey(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "sk-ant-from-config" {
		t.Errorf("key = %q", key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	if _, err := GetAPIKey(Default()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	if err := ValidateAPIKey("sk-ant-0123456789abcdef"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := ValidateAPIKey("not-a-key"); err == nil {
		t.Error("invalid prefix accepted")
	}
	if err := ValidateAPIKey(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey(""); got != "(not set)" {
		t.Errorf("mask of empty = %q", got)
	}
	if got := MaskAPIKey("short"); got != "***" {
		t.Errorf("mask of short = %q", got)
	}
	if got := MaskAPIKey("sk-ant-0123456789abcdef"); got != "sk-ant-...cdef" {
		t.Errorf("mask = %q", got)
	}
}
