package contentaddr_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"avatardl/internal/catalog"
	"avatardl/internal/contentaddr"
)

var tokenA = strings.Repeat("a", 40) + "_-1"

func TestTokenFromURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"gateway", "https://arweave.net/" + tokenA, tokenA, true},
		{"gateway trailing slash", "https://arweave.net/" + tokenA + "/", tokenA, true},
		{"ar scheme", "ar://" + tokenA, tokenA, true},
		{"named file", "https://cdn.example.com/models/a.vrm", "", false},
		{"short segment", "https://arweave.net/abc", "", false},
		{"unparseable", "http://[::1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := contentaddr.TokenFromURL(tt.raw)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("TokenFromURL(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestManifestLookupAndURL(t *testing.T) {
	m, err := contentaddr.NewManifest("https://gw.example.com/", map[string]map[string]string{
		"model":     {"A_vrm.vrm": tokenA},
		"thumbnail": {"thumb.png": "t1"},
	})
	if err != nil {
		t.Fatalf("NewManifest returned error: %v", err)
	}

	if id, ok := m.Lookup("dir/a_VRM.vrm", catalog.CategoryModel); !ok || id != tokenA {
		t.Fatalf("expected case-insensitive base-name match, got %q %v", id, ok)
	}
	if _, ok := m.Lookup("A_vrm.vrm", catalog.CategoryTexture); ok {
		t.Fatal("lookups must be scoped by category")
	}
	if got := m.URL(tokenA); got != "https://gw.example.com/"+tokenA {
		t.Fatalf("unexpected url: %q", got)
	}
	if m.Len() != 2 {
		t.Fatalf("unexpected manifest size: %d", m.Len())
	}
}

func TestManifestRejectsUnknownCategory(t *testing.T) {
	if _, err := contentaddr.NewManifest("", map[string]map[string]string{"audio": {"x": "y"}}); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestLoadManifestMissingFileIsEmpty(t *testing.T) {
	m, err := contentaddr.LoadManifest(filepath.Join(t.TempDir(), "missing.json"), "")
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty manifest, got %d", m.Len())
	}
	if got := m.URL("abc"); got != "ar://abc" {
		t.Fatalf("expected ar:// fallback without gateway, got %q", got)
	}
}

func TestLoadManifestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(`{"texture":{"skin.png":"tex-1"}}`), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := contentaddr.LoadManifest(path, "https://gw.example.com")
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if id, ok := m.Lookup("skin.png", catalog.CategoryTexture); !ok || id != "tex-1" {
		t.Fatalf("unexpected lookup: %q %v", id, ok)
	}
}

type countingLookup struct {
	calls int
}

func (c *countingLookup) Lookup(filename string, _ catalog.Category) (string, bool) {
	c.calls++
	if filename == "known.vrm" {
		return "id-known", true
	}
	return "", false
}

func (c *countingLookup) URL(id string) string { return "https://gw/" + id }

func TestCachedMemoisesHitsAndMisses(t *testing.T) {
	inner := &countingLookup{}
	lookup := contentaddr.NewCached(inner, time.Minute)

	for i := 0; i < 3; i++ {
		if id, ok := lookup.Lookup("known.vrm", catalog.CategoryModel); !ok || id != "id-known" {
			t.Fatalf("unexpected hit result: %q %v", id, ok)
		}
		if _, ok := lookup.Lookup("missing.vrm", catalog.CategoryModel); ok {
			t.Fatal("expected miss")
		}
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 inner calls, got %d", inner.calls)
	}
	if got := lookup.URL("x"); got != "https://gw/x" {
		t.Fatalf("unexpected url passthrough: %q", got)
	}
}

func TestNewCachedDisabled(t *testing.T) {
	inner := &countingLookup{}
	if got := contentaddr.NewCached(inner, 0); got != contentaddr.Lookup(inner) {
		t.Fatal("expected inner lookup when ttl is zero")
	}
}
