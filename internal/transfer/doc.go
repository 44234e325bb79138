// Package transfer fetches file bytes over plain HTTP(S) GET.
//
// HTTPFetcher sets the configured User-Agent, turns non-2xx responses into
// services.ErrTransfer failures and optionally caps throughput with a
// token-bucket limiter shared by every concurrent transfer.
package transfer
