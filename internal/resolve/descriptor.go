package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"

	"avatardl/internal/catalog"
)

// FileDescriptor is one resolved, downloadable file.
type FileDescriptor struct {
	ID       string           `json:"id"`
	Category catalog.Category `json:"category"`
	Label    string           `json:"label"`
	// URL is empty when nothing retrievable was found.
	URL string `json:"url,omitempty"`
	// Filename is empty when the name must come from the response content type.
	Filename string `json:"filename,omitempty"`
	Variant  bool   `json:"variant,omitempty"`
	// Format is the lower-case extension (or format hint) without a dot.
	Format string `json:"format,omitempty"`
	// Primary marks the first non-variant model descriptor.
	Primary bool `json:"primary,omitempty"`
}

// CanonicalFilename returns the lower-cased base name used for dedup.
func CanonicalFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return strings.ToLower(base)
}

func descriptorID(category catalog.Category, key string) string {
	sum := sha256.Sum256([]byte(string(category) + "\x00" + key))
	return string(category) + "-" + hex.EncodeToString(sum[:])[:12]
}

// ByCategory returns the descriptors of one category in list order.
func ByCategory(descriptors []FileDescriptor, category catalog.Category) []FileDescriptor {
	var out []FileDescriptor
	for _, d := range descriptors {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Find returns the descriptor with the given ID.
func Find(descriptors []FileDescriptor, id string) (FileDescriptor, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return FileDescriptor{}, false
}
