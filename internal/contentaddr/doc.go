// Package contentaddr maps deployed filenames to content-address identifiers
// and identifiers back to retrievable gateway URLs.
//
// Manifest is the file-backed implementation consumed by the CLI. Cached wraps
// any Lookup with a TTL memo so repeated resolution of the same avatar does
// not re-scan the manifest. TokenFromURL extracts the identifier embedded in
// an address-only URL so the resolver can match it against recomputed ids.
package contentaddr
