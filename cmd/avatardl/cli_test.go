package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"avatardl/internal/config"
	"avatardl/internal/history"
	"avatardl/internal/testsupport"
)

const textureToken = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQ"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func (e *cliTestEnv) hitCount(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits[path]
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AVATARDL_OUTPUT_DIR", "")
	t.Setenv("AVATARDL_GATEWAY_URL", "")

	env := &cliTestEnv{hits: make(map[string]int)}
	bodies := map[string]string{
		"/a1/model.vrm":    "alpha vrm",
		"/a1/thumb.png":    "alpha png",
		"/" + textureToken: "alpha skin",
	}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		env.hits[r.URL.Path]++
		env.mu.Unlock()
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(env.server.Close)

	catalogDoc := fmt.Sprintf(`{"avatars": [
  {"id": "a1", "name": "Alpha", "model_file_url": %q, "thumbnail_url": %q,
   "deployed": {"textures": ["skin.png"]}},
  {"id": "b2", "name": "Broken", "model_file_url": %q}
]}`, env.server.URL+"/a1/model.vrm", env.server.URL+"/a1/thumb.png", env.server.URL+"/b2/missing.vrm")
	manifestDoc := fmt.Sprintf(`{"texture": {"skin.png": %q}}`, textureToken)

	env.cfg = testsupport.NewConfig(t,
		testsupport.WithGateway(env.server.URL),
		testsupport.WithCatalogJSON(catalogDoc),
		testsupport.WithManifestJSON(manifestDoc),
		testsupport.WithConcurrency(2),
	)
	env.cfg.Logging.Level = "error"

	env.configPath = filepath.Join(t.TempDir(), "config.toml")
	data, err := toml.Marshal(env.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteText(t, env.configPath, string(data))
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCatalogList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"catalog", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	requireContains(t, out, "Alpha")
	requireContains(t, out, "Broken")
	requireContains(t, out, "2 avatars")
}

func TestResolveJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"resolve", "a1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var results []resolvedAvatar
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode resolve output: %v\n%s", err, out)
	}
	if len(results) != 1 || results[0].AvatarID != "a1" {
		t.Fatalf("unexpected results: %+v", results)
	}
	var labels []string
	for _, f := range results[0].Files {
		labels = append(labels, f.Label)
	}
	want := []string{"VRM", "Thumbnail: PNG", "Texture: PNG"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected labels: got %v want %v", labels, want)
	}
	texture := results[0].Files[2]
	if texture.URL != env.server.URL+"/"+textureToken || texture.Filename != "skin.png" {
		t.Fatalf("unexpected texture descriptor: %+v", texture)
	}

	if _, _, err := runCLI(t, []string{"resolve", "zz"}, env.configPath); err == nil {
		t.Fatal("expected unknown avatar error")
	}
}

func TestDownloadWritesFilesAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(t.TempDir(), "avatars")

	out, _, err := runCLI(t, []string{"download", "a1", "--include", "model,images", "--dir", outDir}, env.configPath)
	if err != nil {
		t.Fatalf("download: %v\n%s", err, out)
	}
	requireContains(t, out, "Completed 3 of 3 (100%)")

	for name, want := range map[string]string{
		"Alpha/model.vrm": "alpha vrm",
		"Alpha/thumb.png": "alpha png",
		"Alpha/skin.png":  "alpha skin",
	} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Fatalf("unexpected %s content: %q", name, data)
		}
	}

	store, err := history.Open(env.cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	batches, err := store.ListBatches(context.Background(), 0)
	_ = store.Close()
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 || batches[0].Completed != 3 || batches[0].OverallPercent != 100 {
		t.Fatalf("unexpected history: %+v", batches)
	}

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, shortID(batches[0].ID))

	out, _, err = runCLI(t, []string{"history", "show", shortID(batches[0].ID)}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "Alpha/skin.png")
	requireContains(t, out, "3 of 3 complete")
}

func TestDownloadReportsFailuresAfterRetries(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(t.TempDir(), "avatars")

	out, _, err := runCLI(t, []string{"download", "a1", "b2", "--retries", "1", "--dir", outDir}, env.configPath)
	if err == nil {
		t.Fatalf("expected failure error, output:\n%s", out)
	}
	requireContains(t, err.Error(), "1 of 2 downloads failed")
	requireContains(t, out, "Retrying 1 failed downloads")
	requireContains(t, out, "HTTP 404")

	if got := env.hitCount("/b2/missing.vrm"); got != 2 {
		t.Fatalf("expected 2 attempts for the broken file, got %d", got)
	}
	if got := env.hitCount("/a1/model.vrm"); got != 1 {
		t.Fatalf("completed file must not be refetched, got %d", got)
	}
	if _, err := os.Stat(filepath.Join(outDir, "Alpha", "model.vrm")); err != nil {
		t.Fatalf("expected completed file despite failures: %v", err)
	}
}

func TestDownloadSelectsDescriptors(t *testing.T) {
	env := setupCLITestEnv(t)
	outDir := filepath.Join(t.TempDir(), "avatars")

	out, _, err := runCLI(t, []string{"resolve", "a1", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var results []resolvedAvatar
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode resolve output: %v", err)
	}
	thumbID := results[0].Files[1].ID

	if out, _, err = runCLI(t, []string{"download", "a1:" + thumbID, "--include", "all", "--dir", outDir, "-q"}, env.configPath); err != nil {
		t.Fatalf("download: %v\n%s", err, out)
	}
	requireContains(t, out, "Completed 1 of 1")
	if _, err := os.Stat(filepath.Join(outDir, "Alpha", "thumb.png")); err != nil {
		t.Fatalf("expected selected thumbnail: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "Alpha", "model.vrm")); !os.IsNotExist(err) {
		t.Fatalf("unselected model must not be written, stat err=%v", err)
	}
}

func TestDownloadOptionsFromIncludes(t *testing.T) {
	cfg := config.Default()
	opts, err := downloadOptions(&cfg, nil)
	if err != nil {
		t.Fatalf("downloadOptions: %v", err)
	}
	if !opts.IncludeModel || !opts.IncludeSecondaryFormat || opts.IncludeImages || opts.IncludeVariants {
		t.Fatalf("expected config defaults, got %+v", opts)
	}

	opts, err = downloadOptions(&cfg, []string{"variants", "images"})
	if err != nil {
		t.Fatalf("downloadOptions: %v", err)
	}
	if opts.IncludeModel || !opts.IncludeVariants || !opts.IncludeImages {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := downloadOptions(&cfg, []string{"sounds"}); err == nil {
		t.Fatal("expected error for unknown include")
	}
}

func TestParseSelection(t *testing.T) {
	sel, ids, err := parseSelection([]string{"a1", "b2:d1, d2", "b2:d3"})
	if err != nil {
		t.Fatalf("parseSelection: %v", err)
	}
	if strings.Join(ids, ",") != "a1,b2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if !sel.Includes("a1", "anything") {
		t.Fatal("bare avatar should include every descriptor")
	}
	if !sel.Includes("b2", "d3") || !sel.Includes("b2", "d1") || sel.Includes("b2", "d9") {
		t.Fatalf("unexpected descriptor selection: %v", sel.Descriptors("b2"))
	}
	if _, _, err := parseSelection([]string{":d1"}); err == nil {
		t.Fatal("expected error for missing avatar id")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "loaded from "+env.configPath)
	requireContains(t, out, env.server.URL)
}

func TestLogsFiltersByBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteText(t, env.cfg.LogPath(), strings.Join([]string{
		"2026-10-15T10:00:00Z INFO download: batch started batch_id=b-1 tasks=2",
		"2026-10-15T10:00:01Z INFO download: batch started batch_id=b-2 tasks=1",
		"2026-10-15T10:00:02Z INFO download: batch idle batch_id=b-1 completed=2",
	}, "\n")+"\n")

	out, _, err := runCLI(t, []string{"logs", "--batch", "b-1", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "2026-10-15T10:00:02Z INFO download: batch idle batch_id=b-1 completed=2" {
		t.Fatalf("unexpected logs output: %q", out)
	}
}
