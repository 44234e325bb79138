package config

const (
	defaultOutputDir          = "~/Downloads/avatars"
	defaultStateDir           = "~/.local/share/avatardl"
	defaultLogDir             = "~/.local/share/avatardl/logs"
	defaultCatalogPath        = "~/.config/avatardl/catalog.json"
	defaultManifestPath       = "~/.config/avatardl/manifest.json"
	defaultGatewayURL         = "https://arweave.net"
	defaultConcurrency        = 3
	maxConcurrency            = 16
	defaultUserAgent          = "avatardl/dev"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLookupCacheSeconds = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Catalog: Catalog{
			Path:               defaultCatalogPath,
			ManifestPath:       defaultManifestPath,
			GatewayURL:         defaultGatewayURL,
			LookupCacheSeconds: defaultLookupCacheSeconds,
		},
		Download: Download{
			Concurrency:            defaultConcurrency,
			UserAgent:              defaultUserAgent,
			IncludeModel:           true,
			IncludeSecondaryFormat: true,
			IncludeVariants:        false,
			IncludeImages:          false,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
