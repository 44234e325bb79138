package transfer

import (
	"mime"
	"slices"
	"strings"
)

var preferredExtensions = map[string]string{
	"image/png":         ".png",
	"image/jpeg":        ".jpg",
	"image/webp":        ".webp",
	"image/gif":         ".gif",
	"model/gltf-binary": ".glb",
	"model/gltf+json":   ".gltf",
	"model/obj":         ".obj",
	"model/vrm":         ".vrm",
	"model/fbx":         ".fbx",
}

// ExtensionForContentType maps a Content-Type header to a file extension,
// including the leading dot. Unknown or generic types yield ".bin".
func ExtensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return ".bin"
	}
	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	slices.Sort(exts)
	return exts[0]
}
