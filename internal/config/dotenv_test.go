package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotenvFeedsTemplates(t *testing.T) {
	dir := t.TempDir()
	dotenv := "# local secrets\nMENTOR_DOTENV_KEY=sk-from-file\n\nMENTOR_DOTENV_QUOTED=\"has \\\"quotes\\\" and spaces\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.jsonc")
	content := `{
		"models": {
			"default": "main",
			"providers": {
				"main": {"driver": "openai", "model": "gpt-4o", "api_key": "${{ .Env.MENTOR_DOTENV_KEY }}"}
			}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MENTOR_DOTENV_KEY")
		os.Unsetenv("MENTOR_DOTENV_QUOTED")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Models.Providers["main"].APIKey; got != "sk-from-file" {
		t.Errorf("APIKey = %q, want sk-from-file", got)
	}
	if got := os.Getenv("MENTOR_DOTENV_QUOTED"); got != `has "quotes" and spaces` {
		t.Errorf("quoted value = %q", got)
	}
}

func TestLoadDotenvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MENTOR_DOTENV_WINS=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MENTOR_DOTENV_WINS", "env")

	if err := loadDotenv(filepath.Join(dir, ".env")); err != nil {
		t.Fatalf("loadDotenv: %v", err)
	}
	if got := os.Getenv("MENTOR_DOTENV_WINS"); got != "env" {
		t.Errorf("value = %q, want env", got)
	}
}

func TestLoadDotenvMissingFile(t *testing.T) {
	if err := loadDotenv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should not error: %v", err)
	}
}
