package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"avatardl/internal/catalog"
	"avatardl/internal/contentaddr"
	"avatardl/internal/logging"
	"avatardl/internal/services"
)

// Resolver resolves avatar records against a content-address lookup.
type Resolver struct {
	lookup contentaddr.Lookup
	logger *slog.Logger
}

// New constructs a resolver. Both arguments may be nil.
func New(lookup contentaddr.Lookup, logger *slog.Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve is a convenience wrapper around a throwaway Resolver.
func Resolve(rec catalog.Record, lookup contentaddr.Lookup) []FileDescriptor {
	return New(lookup, nil).Resolve(rec)
}

// Resolve returns the record's descriptors: models first, then thumbnails,
// then textures, each in gather order.
func (r *Resolver) Resolve(rec catalog.Record) []FileDescriptor {
	state := &resolution{
		resolver:  r,
		record:    rec,
		logger:    r.logger.With(logging.String(logging.FieldAvatarID, rec.ID)),
		seenURL:   make(map[string]struct{}),
		seenNames: make(map[string]struct{}),
	}

	var out []FileDescriptor
	for _, category := range catalog.Categories() {
		var candidates []candidate
		switch category {
		case catalog.CategoryModel:
			candidates = modelCandidates(rec)
		case catalog.CategoryThumbnail:
			candidates = thumbnailCandidates(rec)
		case catalog.CategoryTexture:
			candidates = textureCandidates(rec)
		}

		before := len(out)
		for _, c := range candidates {
			if d, ok := state.accept(c); ok {
				out = append(out, d)
			}
		}
		if len(out) == before {
			state.logger.Debug("resolution gap",
				logging.String("category", string(category)),
				logging.Int("candidates", len(candidates)),
			)
		}
	}

	for i := range out {
		if out[i].Category == catalog.CategoryModel && !out[i].Variant {
			out[i].Primary = true
			break
		}
	}
	return out
}

type resolution struct {
	resolver  *Resolver
	record    catalog.Record
	logger    *slog.Logger
	seenURL   map[string]struct{}
	seenNames map[string]struct{}
}

func (s *resolution) accept(c candidate) (FileDescriptor, bool) {
	if c.channel == channelInferred && !s.corroborate(&c) {
		s.logger.Debug("dropped uncorroborated inferred candidate", logging.String("url", c.rawURL))
		return FileDescriptor{}, false
	}

	var resolvedURL string
	if c.channel == channelDeployed {
		id, ok := s.lookupID(c.filename, c.category)
		if !ok {
			s.logger.Debug("deployed filename has no content address",
				logging.String("filename", c.filename),
				logging.String("category", string(c.category)),
			)
			return FileDescriptor{}, false
		}
		resolvedURL = s.resolver.lookup.URL(id)
	} else {
		normalized, filename, err := s.normalize(c)
		if err != nil {
			s.logger.Debug("dropped malformed candidate", logging.Error(err))
			return FileDescriptor{}, false
		}
		resolvedURL = normalized
		if c.filename == "" {
			c.filename = filename
		}
	}

	canonical := CanonicalFilename(c.filename)
	if resolvedURL != "" {
		if _, dup := s.seenURL[resolvedURL]; dup {
			return FileDescriptor{}, false
		}
	}
	if canonical != "" {
		if _, dup := s.seenNames[canonical]; dup {
			return FileDescriptor{}, false
		}
	}
	if resolvedURL != "" {
		s.seenURL[resolvedURL] = struct{}{}
	}
	if canonical != "" {
		s.seenNames[canonical] = struct{}{}
	}

	format := formatOf(c.filename, resolvedURL, c.hint)
	variant := c.variant || mentionsVoxel(variantSubject(c.filename, resolvedURL))
	key := resolvedURL
	if key == "" {
		key = canonical
	}
	filename := ""
	if c.filename != "" {
		filename = path.Base(strings.ReplaceAll(strings.TrimSpace(c.filename), "\\", "/"))
	}
	return FileDescriptor{
		ID:       descriptorID(c.category, key),
		Category: c.category,
		Label:    buildLabel(c.category, format, variant),
		URL:      resolvedURL,
		Filename: filename,
		Variant:  variant,
		Format:   format,
	}, true
}

// corroborate keeps an inferred candidate only when a deployed filename or a
// description mention backs it. A deployed match with a content address
// replaces the guessed URL.
func (s *resolution) corroborate(c *candidate) bool {
	want := CanonicalFilename(c.filename)
	for _, name := range s.record.Deployed.For(c.category) {
		if CanonicalFilename(name) != want {
			continue
		}
		if id, ok := s.lookupID(name, c.category); ok {
			c.rawURL = s.resolver.lookup.URL(id)
		}
		c.filename = name
		return true
	}
	return mentionsFormat(s.record.Description, c.hint)
}

func (s *resolution) lookupID(filename string, category catalog.Category) (string, bool) {
	if s.resolver.lookup == nil || strings.TrimSpace(filename) == "" {
		return "", false
	}
	return s.resolver.lookup.Lookup(filename, category)
}

var errUnsupportedScheme = errors.New("unsupported scheme")

func parseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return nil, errors.New("missing host")
		}
	case "ar":
		u.Scheme = "ar"
	default:
		return nil, fmt.Errorf("%w %q", errUnsupportedScheme, u.Scheme)
	}
	return u, nil
}

// normalize validates the candidate URL and recovers a filename for it.
func (s *resolution) normalize(c candidate) (string, string, error) {
	u, err := parseURL(c.rawURL)
	if err != nil {
		return "", "", services.Wrap(services.ErrMalformedSource, "resolve", string(c.channel), c.rawURL, err)
	}

	token, addressOnly := contentaddr.TokenFromURL(u.String())
	resolved := u.String()
	if u.Scheme == "ar" {
		if !addressOnly || s.resolver.lookup == nil {
			return "", "", services.Wrap(services.ErrMalformedSource, "resolve", string(c.channel), "unroutable address "+c.rawURL, nil)
		}
		resolved = s.resolver.lookup.URL(token)
	}

	if addressOnly {
		for _, name := range s.record.Deployed.For(c.category) {
			if id, ok := s.lookupID(name, c.category); ok && id == token {
				return resolved, name, nil
			}
		}
		return resolved, "", nil
	}

	segment := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	if segment == "." || segment == "/" || path.Ext(segment) == "" {
		return resolved, "", nil
	}
	return resolved, segment, nil
}

func formatOf(filename, rawURL, hint string) string {
	if ext := path.Ext(CanonicalFilename(filename)); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
				return strings.TrimPrefix(ext, ".")
			}
		}
	}
	return strings.ToLower(strings.TrimSpace(hint))
}

// variantSubject is the name the voxel naming convention is checked against:
// the filename, else the URL's last path segment.
func variantSubject(filename, rawURL string) string {
	if filename != "" {
		return CanonicalFilename(filename)
	}
	if u, err := url.Parse(rawURL); err == nil {
		return path.Base(u.Path)
	}
	return ""
}

func mentionsVoxel(value string) bool {
	return strings.Contains(strings.ToLower(value), "voxel")
}

// formatMentions holds one whole-word, case-insensitive pattern per inferable format.
var formatMentions = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(inferableFormats))
	for _, format := range inferableFormats {
		patterns[format] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(format) + `\b`)
	}
	return patterns
}()

func mentionsFormat(description, format string) bool {
	if strings.TrimSpace(description) == "" || format == "" {
		return false
	}
	pattern, ok := formatMentions[format]
	if !ok {
		return false
	}
	return pattern.MatchString(description)
}
