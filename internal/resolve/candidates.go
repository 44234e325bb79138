package resolve

import (
	"path"
	"sort"
	"strings"

	"avatardl/internal/catalog"
)

type channel string

const (
	channelPrimary   channel = "primary"
	channelAlternate channel = "alternate"
	channelInferred  channel = "inferred"
	channelDeployed  channel = "deployed"
	channelThumbnail channel = "thumbnail"
	channelPreview   channel = "preview"
)

type candidate struct {
	category catalog.Category
	channel  channel
	rawURL   string
	filename string
	// hint is the format implied by the channel (alternate map key, inferred format).
	hint    string
	variant bool
}

var alternateOrder = []string{"vrm", "fbx", "glb", "gltf", "obj", "voxel", "voxel_vrm", "voxel_fbx"}

// inferableFormats are guessed from the primary URL by swapping its extension.
var inferableFormats = []string{"vrm", "fbx"}

func alternateRank(key string) int {
	for i, known := range alternateOrder {
		if key == known {
			return i
		}
	}
	return len(alternateOrder)
}

type alternateEntry struct {
	key string
	url string
}

func sortedAlternates(m map[string]string) []alternateEntry {
	entries := make([]alternateEntry, 0, len(m))
	for key, url := range m {
		entries = append(entries, alternateEntry{key: strings.ToLower(strings.TrimSpace(key)), url: url})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := alternateRank(entries[i].key), alternateRank(entries[j].key)
		if ri != rj {
			return ri < rj
		}
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].url < entries[j].url
	})
	return entries
}

func alternateHint(key string) (string, bool) {
	if !strings.HasPrefix(key, "voxel") {
		return key, false
	}
	format := strings.TrimLeft(strings.TrimPrefix(key, "voxel"), "_-")
	if format == "" {
		format = "vrm"
	}
	return format, true
}

func modelCandidates(rec catalog.Record) []candidate {
	var out []candidate
	if strings.TrimSpace(rec.ModelFileURL) != "" {
		out = append(out, candidate{
			category: catalog.CategoryModel,
			channel:  channelPrimary,
			rawURL:   rec.ModelFileURL,
		})
	}

	alternates := sortedAlternates(rec.AlternateModels)
	supplied := make(map[string]struct{}, len(alternates))
	for _, alt := range alternates {
		supplied[alt.key] = struct{}{}
		if strings.TrimSpace(alt.url) == "" {
			continue
		}
		hint, variant := alternateHint(alt.key)
		out = append(out, candidate{
			category: catalog.CategoryModel,
			channel:  channelAlternate,
			rawURL:   alt.url,
			hint:     hint,
			variant:  variant,
		})
	}

	out = append(out, inferredCandidates(rec.ModelFileURL, supplied)...)

	for _, name := range rec.Deployed.Models {
		out = append(out, candidate{
			category: catalog.CategoryModel,
			channel:  channelDeployed,
			filename: name,
		})
	}
	return out
}

func inferredCandidates(primary string, supplied map[string]struct{}) []candidate {
	u, err := parseURL(primary)
	if err != nil || u.Scheme == "ar" {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if ext == "" {
		return nil
	}
	stem := strings.TrimSuffix(u.Path, path.Ext(u.Path))

	var out []candidate
	for _, format := range inferableFormats {
		if format == ext {
			continue
		}
		if _, ok := supplied[format]; ok {
			continue
		}
		guess := *u
		guess.Path = stem + "." + format
		guess.RawPath = ""
		out = append(out, candidate{
			category: catalog.CategoryModel,
			channel:  channelInferred,
			rawURL:   guess.String(),
			filename: path.Base(guess.Path),
			hint:     format,
		})
	}
	return out
}

func thumbnailCandidates(rec catalog.Record) []candidate {
	var out []candidate
	if strings.TrimSpace(rec.ThumbnailURL) != "" {
		out = append(out, candidate{
			category: catalog.CategoryThumbnail,
			channel:  channelThumbnail,
			rawURL:   rec.ThumbnailURL,
		})
	}

	keys := make([]string, 0, len(rec.PreviewImages))
	for key := range rec.PreviewImages {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.TrimSpace(rec.PreviewImages[key]) == "" {
			continue
		}
		out = append(out, candidate{
			category: catalog.CategoryThumbnail,
			channel:  channelPreview,
			rawURL:   rec.PreviewImages[key],
		})
	}

	for _, name := range rec.Deployed.Thumbnails {
		out = append(out, candidate{
			category: catalog.CategoryThumbnail,
			channel:  channelDeployed,
			filename: name,
		})
	}
	return out
}

func textureCandidates(rec catalog.Record) []candidate {
	out := make([]candidate, 0, len(rec.Deployed.Textures))
	for _, name := range rec.Deployed.Textures {
		out = append(out, candidate{
			category: catalog.CategoryTexture,
			channel:  channelDeployed,
			filename: name,
		})
	}
	return out
}
