package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

func decodeSample(cfg *Config) error {
	return toml.Unmarshal([]byte(SampleConfig()), cfg)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("API_TOKEN", "env-token")

	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", path)
	}
	if cfg.Batch.MaxSize != defaultBatchMaxSize {
		t.Fatalf("expected default batch max size %d, got %d", defaultBatchMaxSize, cfg.Batch.MaxSize)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Fatalf("expected env token override, got %q", cfg.Paths.APIToken)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
temp_dir = "~/ts-tmp"
api_token = "secret"

[batch]
max_size = 5
workers = 3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %s, got %s", path, resolved)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.TempDir != filepath.Join(home, "ts-tmp") {
		t.Fatalf("expected ~ expansion, got %q", cfg.Paths.TempDir)
	}
	if cfg.Batch.MaxSize != 5 || cfg.Batch.Workers != 3 {
		t.Fatalf("unexpected batch config: %+v", cfg.Batch)
	}
}

func TestValidateRejectsMissingToken(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "api_token") {
		t.Fatalf("expected api_token validation error, got %v", err)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Paths.APIToken = "tok"
	cfg.Transcriber.Backend = "carrier-pigeon"
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "transcriber.backend") {
		t.Fatalf("expected backend validation error, got %v", err)
	}
}

func TestValidateRequiresKeyForOpenAI(t *testing.T) {
	cfg := Default()
	cfg.Paths.APIToken = "tok"
	cfg.Transcriber.Backend = "openai"
	cfg.Transcriber.APIKey = ""
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "transcriber.api_key") {
		t.Fatalf("expected api_key validation error, got %v", err)
	}
}

func TestValidateWorkerBound(t *testing.T) {
	cfg := Default()
	cfg.Paths.APIToken = "tok"
	cfg.Batch.MaxSize = 2
	cfg.Batch.Workers = 4
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "batch.workers") {
		t.Fatalf("expected worker bound error, got %v", err)
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg Config
	if err := decodeSample(&cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Batch.MaxSize != defaultBatchMaxSize {
		t.Fatalf("sample batch.max_size drifted from default: %d", cfg.Batch.MaxSize)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.TempDir = filepath.Join(dir, "tmp")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.ProfileDir = filepath.Join(dir, "profile")
	cfg.Paths.CookieFile = filepath.Join(dir, "jar", "cookies.txt")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.TempDir, cfg.Paths.LogDir, cfg.Paths.ProfileDir, filepath.Dir(cfg.Paths.CookieFile)} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", p, err)
		}
	}
}
