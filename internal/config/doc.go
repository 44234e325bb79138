// Package config loads, normalizes, and validates avatardl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AVATARDL_OUTPUT_DIR. The Config type centralizes every knob the CLI and the
// download orchestrator need, so catalog locations, the content-address
// gateway, and transfer limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
