// Package history journals download batches and task outcomes to SQLite.
//
// The journal is append-mostly: a batch row is written when the queue is
// built, task rows are updated on every status change, and the batch summary
// is refreshed whenever the pool goes idle. Recorder adapts the store to a
// download.Listener so the orchestrator never depends on persistence.
package history
