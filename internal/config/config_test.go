package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"avatardl/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AVATARDL_GATEWAY_URL", "")
	t.Setenv("AVATARDL_OUTPUT_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "Downloads", "avatars")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "avatardl")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Download.Concurrency != 3 {
		t.Fatalf("expected default concurrency 3, got %d", cfg.Download.Concurrency)
	}
	if cfg.TaskTimeout() != 0 {
		t.Fatalf("expected task timeout disabled by default, got %s", cfg.TaskTimeout())
	}
	if !cfg.Download.IncludeModel || !cfg.Download.IncludeSecondaryFormat {
		t.Fatal("expected model formats included by default")
	}
	if cfg.Download.IncludeImages {
		t.Fatal("expected images excluded by default")
	}
	if cfg.Catalog.GatewayURL != "https://arweave.net" {
		t.Fatalf("unexpected gateway: %q", cfg.Catalog.GatewayURL)
	}
	if cfg.LookupCacheTTL() != 5*time.Minute {
		t.Fatalf("unexpected lookup cache ttl: %s", cfg.LookupCacheTTL())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir to be left uncreated, stat err=%v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "avatardl.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Catalog struct {
			GatewayURL string `toml:"gateway_url"`
		} `toml:"catalog"`
		Download struct {
			Concurrency        int  `toml:"concurrency"`
			TaskTimeoutSeconds int  `toml:"task_timeout_seconds"`
			IncludeImages      bool `toml:"include_images"`
		} `toml:"download"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Catalog.GatewayURL = "https://gateway.example.com/"
	custom.Download.Concurrency = 5
	custom.Download.TaskTimeoutSeconds = 30
	custom.Download.IncludeImages = true
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Catalog.GatewayURL != "https://gateway.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Catalog.GatewayURL)
	}
	if cfg.Download.Concurrency != 5 {
		t.Fatalf("expected concurrency 5, got %d", cfg.Download.Concurrency)
	}
	if cfg.TaskTimeout() != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.TaskTimeout())
	}
	if !cfg.Download.IncludeImages {
		t.Fatal("expected include_images from file")
	}
}

func TestEnvOverridesOutputDirAndGateway(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AVATARDL_GATEWAY_URL", "https://mirror.example.org/")
	outDir := filepath.Join(t.TempDir(), "env-out")
	t.Setenv("AVATARDL_OUTPUT_DIR", outDir)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog.GatewayURL != "https://mirror.example.org" {
		t.Fatalf("expected gateway from env, got %q", cfg.Catalog.GatewayURL)
	}
	if cfg.Paths.OutputDir != outDir {
		t.Fatalf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "gateway_url") {
		t.Fatalf("sample config missing gateway setting: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Download.Concurrency != 3 {
		t.Fatalf("expected sample concurrency 3, got %d", cfg.Download.Concurrency)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Download.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}

	cfg = config.Default()
	cfg.Download.Concurrency = 64
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unbounded concurrency")
	}

	cfg = config.Default()
	cfg.Download.TaskTimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative timeout")
	}

	cfg = config.Default()
	cfg.Catalog.GatewayURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http gateway")
	}

	cfg = config.Default()
	cfg.Download.IncludeModel = false
	cfg.Download.IncludeSecondaryFormat = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when every category is excluded")
	}

	cfg = config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}
