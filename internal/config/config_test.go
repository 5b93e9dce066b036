package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Defaults.MaxConcurrency != 5 {
		t.Errorf("max concurrency = %d, want 5", cfg.Defaults.MaxConcurrency)
	}
	if cfg.Defaults.TaskTimeout != 2*time.Minute {
		t.Errorf("task timeout = %s, want 2m", cfg.Defaults.TaskTimeout)
	}
	if cfg.Defaults.RetryPreset != "default" {
		t.Errorf("retry preset = %s", cfg.Defaults.RetryPreset)
	}
	if cfg.Store.Scope != "project" {
		t.Errorf("store scope = %s", cfg.Store.Scope)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("watch debounce = %s", cfg.Watch.Debounce)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
anthropic:
  api_key: test-key
  use_bedrock: true
  aws_region: us-west-2
defaults:
  max_concurrency: 8
  task_timeout: 90s
  retry_preset: aggressive
store:
  scope: global
  retain_for: 72h
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if !cfg.Anthropic.UseBedrock || cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("bedrock settings = %+v", cfg.Anthropic)
	}
	if cfg.Defaults.MaxConcurrency != 8 {
		t.Errorf("max concurrency = %d, want 8", cfg.Defaults.MaxConcurrency)
	}
	if cfg.Defaults.TaskTimeout != 90*time.Second {
		t.Errorf("task timeout = %s, want 90s", cfg.Defaults.TaskTimeout)
	}
	if cfg.Defaults.RetryPreset != "aggressive" {
		t.Errorf("retry preset = %s", cfg.Defaults.RetryPreset)
	}
	if cfg.Store.Scope != "global" || cfg.Store.RetainFor != 72*time.Hour {
		t.Errorf("store = %+v", cfg.Store)
	}
}

func TestLoadFromPath_DefaultsFillGaps(t *testing.T) {
	path := writeConfig(t, "anthropic:\n  api_key: only-key\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Defaults.MaxConcurrency != 5 {
		t.Errorf("max concurrency = %d, want default 5", cfg.Defaults.MaxConcurrency)
	}
	if cfg.Watch.Dir != "plans" {
		t.Errorf("watch dir = %s, want default plans", cfg.Watch.Dir)
	}
}

func TestLoadFromPath_ExpandsEnvInAPIKey(t *testing.T) {
	t.Setenv("CONDUIT_TEST_KEY", "expanded-secret")
	path := writeConfig(t, "anthropic:\n  api_key: ${CONDUIT_TEST_KEY}\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-secret" {
		t.Errorf("api key = %q, want expanded-secret", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestGetUserConfigDir_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	got := getUserConfigDir()
	if got != "/custom/config/conduit" {
		t.Errorf("user config dir = %q", got)
	}
}
