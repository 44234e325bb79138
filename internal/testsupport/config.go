package testsupport

import (
	"path/filepath"
	"testing"

	"avatardl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.json")
	cfgVal.Catalog.ManifestPath = filepath.Join(base, "manifest.json")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithConcurrency overrides the download worker count.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Download.Concurrency = n
	}
}

// WithGateway overrides the content-address gateway URL.
func WithGateway(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.GatewayURL = url
	}
}

// WithCatalogJSON writes the given document to the configured catalog path.
func WithCatalogJSON(doc string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Catalog.Path, doc)
	}
}

// WithManifestJSON writes the given document to the configured manifest path.
func WithManifestJSON(doc string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Catalog.ManifestPath, doc)
	}
}
