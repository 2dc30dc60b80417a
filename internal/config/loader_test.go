package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.jsonc")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		// minimal config
		"models": {
			"default": "main",
			"providers": {
				"main": {"driver": "openai", "model": "gpt-4o"}
			}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Workspace.Root != "./workspaces" {
		t.Errorf("Workspace.Root = %q, want ./workspaces", cfg.Workspace.Root)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
	if cfg.Models.Providers["main"].Model != "gpt-4o" {
		t.Errorf("provider model = %q, want gpt-4o", cfg.Models.Providers["main"].Model)
	}
}

func TestLoadEnvTemplate(t *testing.T) {
	t.Setenv("MENTOR_TEST_KEY", "sk-abc123")
	path := writeConfig(t, `{
		"models": {
			"default": "main",
			"providers": {
				"main": {"driver": "openai", "model": "gpt-4o", "api_key": "${{ .Env.MENTOR_TEST_KEY }}"}
			}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Models.Providers["main"].APIKey; got != "sk-abc123" {
		t.Errorf("APIKey = %q, want sk-abc123", got)
	}
}

func TestLoadClampsNonPositiveSizes(t *testing.T) {
	path := writeConfig(t, `{
		"models": {
			"default": "main",
			"providers": {
				"main": {"driver": "openai", "model": "gpt-4o"}
			}
		},
		"events": {"buffer_size": -1},
		"search": {"max_results": -3}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Events.BufferSize != 1024 {
		t.Errorf("Events.BufferSize = %d, want 1024", cfg.Events.BufferSize)
	}
	if cfg.Search.MaxResults != 5 {
		t.Errorf("Search.MaxResults = %d, want 5", cfg.Search.MaxResults)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.jsonc")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	path := writeConfig(t, `{
		"models": {
			"default": "main",
			"providers": {
				"main": {"driver": "ollama", "model": "llama3", "timeout": "90s"}
			}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Models.Providers["main"].Timeout.Duration(); got != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", got)
	}
}
