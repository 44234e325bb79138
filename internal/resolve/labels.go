package resolve

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"avatardl/internal/catalog"
)

var formatLabels = map[string]string{
	"vrm":  "VRM",
	"fbx":  "FBX",
	"glb":  "GLB",
	"gltf": "glTF",
	"obj":  "OBJ",
	"png":  "PNG",
	"jpg":  "JPEG",
	"jpeg": "JPEG",
	"webp": "WebP",
	"gif":  "GIF",
}

var upper = cases.Upper(language.Und)

// FormatLabel maps a format to its display name.
func FormatLabel(format string) string {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		return "File"
	}
	if label, ok := formatLabels[format]; ok {
		return label
	}
	return upper.String(format)
}

func buildLabel(category catalog.Category, format string, variant bool) string {
	label := FormatLabel(format)
	if variant {
		label = "Voxel " + label
	}
	switch category {
	case catalog.CategoryThumbnail:
		return "Thumbnail: " + label
	case catalog.CategoryTexture:
		return "Texture: " + label
	default:
		return label
	}
}
