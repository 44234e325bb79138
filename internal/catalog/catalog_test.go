package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avatardl/internal/catalog"
)

const sampleCatalog = `{
  "avatars": [
    {
      "id": "a1",
      "name": "Avatar One",
      "model_file_url": "https://cdn.example.com/a1/model.vrm",
      "alternate_models": {"fbx": "https://cdn.example.com/a1/model.fbx"},
      "deployed": {"models": ["model.vrm"], "textures": ["skin.png"]}
    },
    {"id": "b2", "description": "no name"}
  ]
}`

func TestLoadObjectDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("unexpected record count: %d", cat.Len())
	}

	rec, ok := cat.Get("a1")
	if !ok {
		t.Fatal("expected record a1")
	}
	if rec.AlternateModels["fbx"] != "https://cdn.example.com/a1/model.fbx" {
		t.Fatalf("unexpected alternate map: %#v", rec.AlternateModels)
	}
	if got := rec.Deployed.For(catalog.CategoryTexture); len(got) != 1 || got[0] != "skin.png" {
		t.Fatalf("unexpected deployed textures: %#v", got)
	}

	b2, _ := cat.Get("b2")
	if b2.DisplayName() != "b2" {
		t.Fatalf("expected id fallback for display name, got %q", b2.DisplayName())
	}

	all := cat.All()
	if all[0].ID != "a1" || all[1].ID != "b2" {
		t.Fatalf("expected file order, got %q, %q", all[0].ID, all[1].ID)
	}
}

func TestParseBareArray(t *testing.T) {
	cat, err := catalog.Parse(strings.NewReader(`[{"id":"x"},{"id":"y"}]`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if ids := cat.IDs(); len(ids) != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestParseRejectsBadRecords(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"missing":   `[{"name":"no id"}]`,
		"duplicate": `[{"id":"x"},{"id":"x"}]`,
		"garbage":   `{"avatars": 4}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := catalog.Parse(strings.NewReader(input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := catalog.ParseCategory(" Thumbnail "); !ok || c != catalog.CategoryThumbnail {
		t.Fatalf("unexpected category: %q %v", c, ok)
	}
	if _, ok := catalog.ParseCategory("mesh"); ok {
		t.Fatal("expected unknown category to fail")
	}
}
