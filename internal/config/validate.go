package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	parsed, err := url.Parse(c.Catalog.GatewayURL)
	if err != nil {
		return fmt.Errorf("catalog.gateway_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("catalog.gateway_url must be an http(s) URL, got %q", c.Catalog.GatewayURL)
	}
	if c.Catalog.LookupCacheSeconds < 0 {
		return errors.New("catalog.lookup_cache_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.Concurrency < 1 || c.Download.Concurrency > maxConcurrency {
		return fmt.Errorf("download.concurrency must be between 1 and %d", maxConcurrency)
	}
	if c.Download.TaskTimeoutSeconds < 0 {
		return errors.New("download.task_timeout_seconds must be >= 0")
	}
	if c.Download.MaxBytesPerSecond < 0 {
		return errors.New("download.max_bytes_per_second must be >= 0")
	}
	if !c.Download.IncludeModel && !c.Download.IncludeSecondaryFormat && !c.Download.IncludeVariants && !c.Download.IncludeImages {
		return errors.New("download: at least one include_* category must be enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
