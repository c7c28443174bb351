package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestConfigUsesFileAPIKeysWhenEnvUnset(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	configDir := filepath.Join(home, ".chainflow")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")
	data := []byte("api_keys:\n  anthropic: file-ant\n  openai: file-openai\n  google: file-google\n  deepseek: file-deepseek\n")
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "file-ant" || cfg.OpenAIAPIKey != "file-openai" || cfg.GoogleAPIKey != "file-google" || cfg.DeepSeekAPIKey != "file-deepseek" {
		t.Fatalf("expected file API keys to be used, got %+v", cfg)
	}
}

func TestConfigEnvAPIKeysTakePrecedence(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	configDir := filepath.Join(home, ".chainflow")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")
	data := []byte("api_keys:\n  anthropic: file-ant\n")
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" {
		t.Fatalf("expected env key to win, got %q", cfg.AnthropicAPIKey)
	}
	if cfg.OpenAIAPIKey != "env-openai" {
		t.Fatalf("expected env key, got %q", cfg.OpenAIAPIKey)
	}
}

func TestConfigDefaultsWithoutFiles(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Chain.AvailableModels) == 0 {
		t.Fatal("expected default available models")
	}
	if cfg.Catalog == nil || cfg.Catalog.Len() == 0 {
		t.Fatal("expected default catalog")
	}
	if cfg.HasAdapter("anthropic") {
		t.Fatal("expected no adapter without keys")
	}
}

func TestLoadChainConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	data := []byte(`analyzer_model: claude-3-5-haiku-20241022
validator_model: claude-3-5-haiku-20241022
available_models:
  - claude-sonnet-4-20250514
  - gpt-5.2-thinking
min_complexity_for_chain: 5
max_retries: 3
validation_enabled: true
prefer_cheap_models: true
analyzer_timeout_ms: 15000
execution_timeout_ms: 90000
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write chain config: %v", err)
	}

	cfg, err := LoadChainConfig(path)
	if err != nil {
		t.Fatalf("load chain config: %v", err)
	}
	if cfg.MinComplexityForChain != 5 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected thresholds: %+v", cfg)
	}
	if !cfg.ValidationEnabled || !cfg.PreferCheapModels {
		t.Fatalf("expected flags set: %+v", cfg)
	}
	if cfg.AnalyzerTimeout != 15*time.Second {
		t.Fatalf("expected 15s analyzer timeout, got %v", cfg.AnalyzerTimeout)
	}
	if cfg.ExecutionTimeout != 90*time.Second {
		t.Fatalf("expected 90s execution timeout, got %v", cfg.ExecutionTimeout)
	}
	if len(cfg.AvailableModels) != 2 {
		t.Fatalf("expected 2 models, got %v", cfg.AvailableModels)
	}
}

func TestLoadChainConfigMissingFile(t *testing.T) {
	if _, err := LoadChainConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
}
