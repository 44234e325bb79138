package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Category groups files by role.
type Category string

const (
	CategoryModel     Category = "model"
	CategoryThumbnail Category = "thumbnail"
	CategoryTexture   Category = "texture"
)

// Categories lists every category in output order.
func Categories() []Category {
	return []Category{CategoryModel, CategoryThumbnail, CategoryTexture}
}

// ParseCategory converts user input into a Category.
func ParseCategory(value string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryModel:
		return CategoryModel, true
	case CategoryThumbnail:
		return CategoryThumbnail, true
	case CategoryTexture:
		return CategoryTexture, true
	default:
		return "", false
	}
}

// DeployedFiles holds the filenames as they were deployed to storage.
type DeployedFiles struct {
	Models     []string `json:"models,omitempty"`
	Thumbnails []string `json:"thumbnails,omitempty"`
	Textures   []string `json:"textures,omitempty"`
}

// For returns the deployed filenames recorded for a category.
func (d DeployedFiles) For(category Category) []string {
	switch category {
	case CategoryModel:
		return d.Models
	case CategoryThumbnail:
		return d.Thumbnails
	case CategoryTexture:
		return d.Textures
	default:
		return nil
	}
}

// Record is one avatar's raw metadata.
type Record struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	ModelFileURL    string            `json:"model_file_url,omitempty"`
	AlternateModels map[string]string `json:"alternate_models,omitempty"`
	ThumbnailURL    string            `json:"thumbnail_url,omitempty"`
	PreviewImages   map[string]string `json:"preview_images,omitempty"`
	Deployed        DeployedFiles     `json:"deployed,omitempty"`
}

// DisplayName returns the record name, falling back to its ID.
func (r Record) DisplayName() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return r.ID
}

type document struct {
	Avatars []Record `json:"avatars"`
}

// Catalog is an in-memory, read-only collection of records.
type Catalog struct {
	records []Record
	index   map[string]int
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog. Both {"avatars": [...]} and a bare array are accepted.
func Parse(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty catalog")
	}

	var records []Record
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
	} else {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		records = doc.Avatars
	}
	return New(records)
}

// New builds a catalog from records. IDs must be unique and non-empty.
func New(records []Record) (*Catalog, error) {
	cat := &Catalog{
		records: make([]Record, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for i, rec := range records {
		rec.ID = strings.TrimSpace(rec.ID)
		if rec.ID == "" {
			return nil, fmt.Errorf("record %d: missing id", i)
		}
		if _, dup := cat.index[rec.ID]; dup {
			return nil, fmt.Errorf("record %d: duplicate id %q", i, rec.ID)
		}
		cat.index[rec.ID] = len(cat.records)
		cat.records = append(cat.records, rec)
	}
	return cat, nil
}

// Get returns the record with the given ID.
func (c *Catalog) Get(id string) (Record, bool) {
	if c == nil {
		return Record{}, false
	}
	idx, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Record{}, false
	}
	return c.records[idx], true
}

// All returns every record in file order.
func (c *Catalog) All() []Record {
	if c == nil {
		return nil
	}
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len reports the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// IDs returns every record ID sorted lexically.
func (c *Catalog) IDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.records))
	for _, rec := range c.records {
		ids = append(ids, rec.ID)
	}
	sort.Strings(ids)
	return ids
}
