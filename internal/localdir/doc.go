// Package localdir provides the permission-scoped directory handle a batch
// writes into.
//
// A Directory holds an advisory flock on the folder for the lifetime of one
// batch session, re-validates write permission on demand, and writes each
// file through a temp file plus rename so an interrupted or failed transfer
// never leaves a partial file under its final name.
package localdir
