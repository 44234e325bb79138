// Package download runs batch downloads of resolved avatar files.
//
// An Orchestrator turns a selection of avatars into an ordered queue of
// tasks, one per selected descriptor that survives the category filters, and
// drives them through a bounded worker pool:
//
//	queued -> downloading -> complete | failed
//	failed -> queued   (Retry)
//	queued -> removed  (Cancel)
//
// A single coordinator goroutine per batch applies every status and progress
// change under the orchestrator mutex; workers only fetch and write and
// report back over a channel. Task failures stay on the task and never stop
// the rest of the batch. Only a missing or unwritable directory at start
// rejects a batch.
//
// Observers read consistent Snapshot values via Snapshot or Subscribe.
// Overall progress is the fraction of tasks complete and never decreases
// for the lifetime of one queue.
package download
