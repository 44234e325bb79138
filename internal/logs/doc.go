// Package logs reads the avatardl log file for the CLI: the last N lines,
// optionally narrowed to one batch, and a polling follow mode that stops when
// its context ends.
package logs
