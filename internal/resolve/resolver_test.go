package resolve_test

import (
	"reflect"
	"strings"
	"testing"

	"avatardl/internal/catalog"
	"avatardl/internal/contentaddr"
	"avatardl/internal/resolve"
)

const gateway = "https://arweave.net"

var (
	tokVRM = strings.Repeat("V", 43)
	tokFBX = strings.Repeat("F", 43)
	tokTex = strings.Repeat("T", 43)
)

func newLookup(t *testing.T, entries map[string]map[string]string) contentaddr.Lookup {
	t.Helper()
	m, err := contentaddr.NewManifest(gateway, entries)
	if err != nil {
		t.Fatalf("NewManifest: %v", err)
	}
	return m
}

func labels(descriptors []resolve.FileDescriptor) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Label)
	}
	return out
}

func assertNoDuplicates(t *testing.T, descriptors []resolve.FileDescriptor) {
	t.Helper()
	urls := map[string]bool{}
	names := map[string]bool{}
	for _, d := range descriptors {
		if d.URL != "" {
			if urls[d.URL] {
				t.Fatalf("duplicate url %q in %#v", d.URL, descriptors)
			}
			urls[d.URL] = true
		}
		if name := resolve.CanonicalFilename(d.Filename); name != "" {
			if names[name] {
				t.Fatalf("duplicate filename %q in %#v", name, descriptors)
			}
			names[name] = true
		}
	}
}

func TestResolveAddressOnlyURLsCollapseWithDeployedFiles(t *testing.T) {
	rec := catalog.Record{
		ID:              "A",
		ModelFileURL:    gateway + "/" + tokVRM,
		AlternateModels: map[string]string{"fbx": gateway + "/" + tokFBX},
		Deployed:        catalog.DeployedFiles{Models: []string{"A_vrm.vrm", "A_fbx.fbx"}},
	}
	lookup := newLookup(t, map[string]map[string]string{
		"model": {"A_vrm.vrm": tokVRM, "A_fbx.fbx": tokFBX},
	})

	got := resolve.Resolve(rec, lookup)
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptors, got %d: %#v", len(got), got)
	}
	if got[0].Label != "VRM" || got[0].Filename != "A_vrm.vrm" || got[0].URL != gateway+"/"+tokVRM {
		t.Fatalf("unexpected first descriptor: %#v", got[0])
	}
	if got[1].Label != "FBX" || got[1].Filename != "A_fbx.fbx" {
		t.Fatalf("unexpected second descriptor: %#v", got[1])
	}
	if !got[0].Primary || got[1].Primary {
		t.Fatalf("expected only the first model to be primary: %#v", got)
	}
	assertNoDuplicates(t, got)
}

func TestResolveThumbnailAndPreviewSameURL(t *testing.T) {
	url := "https://cdn.example.com/b/thumb.png"
	rec := catalog.Record{
		ID:            "B",
		ThumbnailURL:  url,
		PreviewImages: map[string]string{"front": url},
	}

	got := resolve.ByCategory(resolve.Resolve(rec, nil), catalog.CategoryThumbnail)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 thumbnail, got %#v", got)
	}
	if got[0].Label != "Thumbnail: PNG" {
		t.Fatalf("unexpected label %q", got[0].Label)
	}
}

func TestResolveDedupsByFilenameCaseInsensitive(t *testing.T) {
	rec := catalog.Record{
		ID:              "C",
		ModelFileURL:    "https://a.example.com/x/Model.VRM",
		AlternateModels: map[string]string{"vrm": "https://b.example.com/y/model.vrm"},
	}
	got := resolve.Resolve(rec, nil)
	if len(got) != 1 {
		t.Fatalf("expected filename dedup to keep 1 descriptor, got %#v", got)
	}
	if got[0].URL != "https://a.example.com/x/Model.VRM" {
		t.Fatalf("expected first-seen to win, got %q", got[0].URL)
	}
}

func TestResolveInferredVariantNeedsCorroboration(t *testing.T) {
	base := catalog.Record{
		ID:           "D",
		ModelFileURL: "https://cdn.example.com/d/model.vrm",
		Description:  "A cute avatar",
	}

	t.Run("uncorroborated", func(t *testing.T) {
		got := resolve.Resolve(base, nil)
		if !reflect.DeepEqual(labels(got), []string{"VRM"}) {
			t.Fatalf("expected only the primary, got %v", labels(got))
		}
	})

	t.Run("partial word does not count", func(t *testing.T) {
		rec := base
		rec.Description = "fbxtools were not used"
		if got := resolve.Resolve(rec, nil); len(got) != 1 {
			t.Fatalf("expected only the primary, got %v", labels(got))
		}
	})

	t.Run("description mention", func(t *testing.T) {
		rec := base
		rec.Description = "Ships with an FBX version."
		got := resolve.Resolve(rec, nil)
		if !reflect.DeepEqual(labels(got), []string{"VRM", "FBX"}) {
			t.Fatalf("unexpected labels %v", labels(got))
		}
		if got[1].URL != "https://cdn.example.com/d/model.fbx" || got[1].Filename != "model.fbx" {
			t.Fatalf("unexpected inferred descriptor: %#v", got[1])
		}
	})

	t.Run("deployed match uses lookup url", func(t *testing.T) {
		rec := base
		rec.Deployed.Models = []string{"model.fbx"}
		lookup := newLookup(t, map[string]map[string]string{"model": {"model.fbx": tokFBX}})
		got := resolve.Resolve(rec, lookup)
		if len(got) != 2 {
			t.Fatalf("expected 2 descriptors, got %#v", got)
		}
		if got[1].URL != gateway+"/"+tokFBX {
			t.Fatalf("expected lookup url, got %q", got[1].URL)
		}
		assertNoDuplicates(t, got)
	})

	t.Run("alternate supplies format", func(t *testing.T) {
		rec := base
		rec.Description = "FBX included"
		rec.AlternateModels = map[string]string{"fbx": "https://other.example.com/d.fbx"}
		got := resolve.Resolve(rec, nil)
		if len(got) != 2 || got[1].URL != "https://other.example.com/d.fbx" {
			t.Fatalf("expected the alternate instead of an inferred guess, got %#v", got)
		}
	})
}

func TestResolveOrderingAndLabels(t *testing.T) {
	rec := catalog.Record{
		ID:           "E",
		ModelFileURL: "https://cdn.example.com/e/main.vrm",
		AlternateModels: map[string]string{
			"voxel": "https://cdn.example.com/e/main_voxel.vrm",
			"glb":   "https://cdn.example.com/e/main.glb",
			"fbx":   "https://cdn.example.com/e/main.fbx",
			"zzz":   "https://cdn.example.com/e/main.abc",
		},
		ThumbnailURL: "https://cdn.example.com/e/thumb.png",
		PreviewImages: map[string]string{
			"b": "https://cdn.example.com/e/b.jpg",
			"a": "https://cdn.example.com/e/a.webp",
		},
		Deployed: catalog.DeployedFiles{Textures: []string{"skin.png"}},
	}
	lookup := newLookup(t, map[string]map[string]string{"texture": {"skin.png": tokTex}})

	got := resolve.Resolve(rec, lookup)
	want := []string{
		"VRM", "FBX", "GLB", "Voxel VRM", "ABC",
		"Thumbnail: PNG", "Thumbnail: WebP", "Thumbnail: JPEG",
		"Texture: PNG",
	}
	if !reflect.DeepEqual(labels(got), want) {
		t.Fatalf("unexpected labels:\n got %v\nwant %v", labels(got), want)
	}
	if !got[3].Variant {
		t.Fatalf("expected voxel descriptor to be a variant: %#v", got[3])
	}
	if got[8].URL != gateway+"/"+tokTex || got[8].Filename != "skin.png" {
		t.Fatalf("unexpected texture descriptor: %#v", got[8])
	}
	assertNoDuplicates(t, got)
}

func TestResolveIsDeterministic(t *testing.T) {
	rec := catalog.Record{
		ID:              "F",
		ModelFileURL:    "https://cdn.example.com/f/m.vrm",
		AlternateModels: map[string]string{"obj": "https://cdn.example.com/f/m.obj", "gltf": "https://cdn.example.com/f/m.gltf"},
		PreviewImages:   map[string]string{"x": "https://cdn.example.com/f/x.gif", "y": "https://cdn.example.com/f/y.gif"},
	}
	first := resolve.Resolve(rec, nil)
	for i := 0; i < 10; i++ {
		if again := resolve.Resolve(rec, nil); !reflect.DeepEqual(first, again) {
			t.Fatalf("resolution changed between runs:\n%#v\n%#v", first, again)
		}
	}
}

func TestResolveDropsMalformedURLs(t *testing.T) {
	rec := catalog.Record{
		ID:              "G",
		ModelFileURL:    "http://[::1",
		AlternateModels: map[string]string{"fbx": "https://cdn.example.com/g/m.fbx", "glb": "not a url"},
		ThumbnailURL:    "ftp://cdn.example.com/thumb.png",
	}
	got := resolve.Resolve(rec, nil)
	if len(got) != 1 || got[0].Label != "FBX" || !got[0].Primary {
		t.Fatalf("expected only the fbx alternate to survive, got %#v", got)
	}
}

func TestResolveAddressOnlyWithoutMatchLeavesFilenameEmpty(t *testing.T) {
	rec := catalog.Record{ID: "H", ModelFileURL: "ar://" + tokVRM}
	got := resolve.Resolve(rec, newLookup(t, nil))
	if len(got) != 1 {
		t.Fatalf("expected 1 descriptor, got %#v", got)
	}
	if got[0].Filename != "" || got[0].URL != gateway+"/"+tokVRM || got[0].Label != "File" {
		t.Fatalf("unexpected descriptor: %#v", got[0])
	}
}

func TestResolveEmptyRecordAndUnknownDeployedFiles(t *testing.T) {
	if got := resolve.Resolve(catalog.Record{ID: "empty"}, nil); len(got) != 0 {
		t.Fatalf("expected no descriptors, got %#v", got)
	}
	rec := catalog.Record{ID: "I", Deployed: catalog.DeployedFiles{Textures: []string{"unknown.png"}}}
	if got := resolve.Resolve(rec, newLookup(t, nil)); len(got) != 0 {
		t.Fatalf("expected deployed file without an address to be dropped, got %#v", got)
	}
}

func TestFormatLabel(t *testing.T) {
	cases := map[string]string{"gltf": "glTF", ".JPG": "JPEG", "usdz": "USDZ", "": "File"}
	for in, want := range cases {
		if got := resolve.FormatLabel(in); got != want {
			t.Fatalf("FormatLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
