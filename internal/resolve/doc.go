// Package resolve turns one avatar record into the canonical, deduplicated
// list of files that can be downloaded for it.
//
// A record may describe the same physical file through four channels: the
// primary model URL, the alternate-format map, variants inferred from the
// primary URL's extension, and the deployed-filename lists resolved through a
// content-address lookup. Resolve gathers candidates from those channels in
// that order, drops inferred candidates nobody corroborates, recovers human
// filenames for address-only URLs and keeps the first candidate per URL or
// filename.
//
// Deployed filenames the lookup cannot map to an identifier are left out:
// without a URL there is nothing to download, so they never become
// descriptors.
//
// Resolution never fails. Malformed URLs and empty categories shorten the
// result and are logged at debug level.
package resolve
