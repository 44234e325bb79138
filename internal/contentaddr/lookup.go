package contentaddr

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"avatardl/internal/catalog"
)

// Lookup resolves deployed filenames to content identifiers.
type Lookup interface {
	// Lookup returns the identifier stored for filename in category.
	Lookup(filename string, category catalog.Category) (string, bool)
	// URL turns an identifier into a retrievable URL.
	URL(id string) string
}

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// IsToken reports whether value looks like a content-address identifier.
func IsToken(value string) bool {
	return tokenPattern.MatchString(value)
}

// TokenFromURL extracts the content-address identifier carried by raw.
// ar://<id> and gateway URLs whose last path segment is a bare identifier are
// recognised. URLs whose last segment has an extension are not address-only.
func TokenFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if strings.EqualFold(u.Scheme, "ar") {
		id := u.Host
		if id == "" {
			id = strings.Trim(u.Opaque, "/")
		}
		if IsToken(id) {
			return id, true
		}
		return "", false
	}
	segment := path.Base(u.Path)
	if segment == "." || segment == "/" || strings.Contains(segment, ".") {
		return "", false
	}
	if IsToken(segment) {
		return segment, true
	}
	return "", false
}

// Manifest is a static category → filename → identifier table.
type Manifest struct {
	gateway string
	entries map[catalog.Category]map[string]string
}

// NewManifest builds a manifest from raw entries keyed by category name.
// Filenames are matched case-insensitively on their base name.
func NewManifest(gateway string, entries map[string]map[string]string) (*Manifest, error) {
	m := &Manifest{
		gateway: strings.TrimRight(strings.TrimSpace(gateway), "/"),
		entries: make(map[catalog.Category]map[string]string, len(entries)),
	}
	for name, files := range entries {
		category, ok := catalog.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("manifest: unknown category %q", name)
		}
		table := m.entries[category]
		if table == nil {
			table = make(map[string]string, len(files))
			m.entries[category] = table
		}
		for filename, id := range files {
			key := normalizeFilename(filename)
			if key == "" {
				continue
			}
			table[key] = strings.TrimSpace(id)
		}
	}
	return m, nil
}

// LoadManifest reads a manifest JSON file. A blank path yields an empty
// manifest that still builds gateway URLs.
func LoadManifest(path, gateway string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return NewManifest(gateway, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(gateway, nil)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return NewManifest(gateway, raw)
}

func (m *Manifest) Lookup(filename string, category catalog.Category) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.entries[category][normalizeFilename(filename)]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (m *Manifest) URL(id string) string {
	id = strings.TrimSpace(id)
	if m == nil || id == "" {
		return ""
	}
	if m.gateway == "" {
		return "ar://" + id
	}
	return m.gateway + "/" + id
}

// Len reports how many filenames the manifest knows about.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, table := range m.entries {
		total += len(table)
	}
	return total
}

func normalizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	return strings.ToLower(path.Base(name))
}
