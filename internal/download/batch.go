package download

import (
	"context"
	"slices"

	"avatardl/internal/localdir"
)

type taskState struct {
	Task
	needsExtension bool
}

// batch is one queue instance. Fields other than the channels and ctx are
// guarded by Orchestrator.mu.
type batch struct {
	id     string
	dir    localdir.Handle
	ctx    context.Context
	cancel context.CancelFunc

	tasks   []*taskState
	index   map[string]*taskState
	running int

	results chan message
	wake    chan struct{}
	done    chan struct{}

	idle       chan struct{}
	idleClosed bool
}

func (b *batch) nextQueuedLocked() *taskState {
	for _, st := range b.tasks {
		if st.Status == StatusQueued {
			return st
		}
	}
	return nil
}

func (b *batch) idleLocked() bool {
	return b.running == 0 && b.nextQueuedLocked() == nil
}

// markIdleLocked closes the idle channel once nothing is left to do and
// reports whether this call did so.
func (b *batch) markIdleLocked() bool {
	if b.idleClosed || !b.idleLocked() {
		return false
	}
	close(b.idle)
	b.idleClosed = true
	return true
}

// reopenLocked arms a fresh idle channel after a task is re-queued.
func (b *batch) reopenLocked() {
	if b.idleClosed {
		b.idle = make(chan struct{})
		b.idleClosed = false
	}
}

func (b *batch) removeLocked(taskID string) {
	delete(b.index, taskID)
	b.tasks = slices.DeleteFunc(b.tasks, func(st *taskState) bool { return st.ID == taskID })
}

// signal nudges the coordinator without blocking.
func (b *batch) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *batch) snapshotLocked() Snapshot {
	snap := Snapshot{
		BatchID: b.id,
		Tasks:   make([]Task, 0, len(b.tasks)),
		Total:   len(b.tasks),
	}
	for _, st := range b.tasks {
		snap.Tasks = append(snap.Tasks, st.Task)
		switch st.Status {
		case StatusComplete:
			snap.Completed++
		case StatusFailed:
			snap.Failed++
		case StatusDownloading:
			snap.Downloading++
		case StatusQueued:
			snap.Queued++
		}
	}
	if snap.Total > 0 {
		snap.OverallPercent = float64(snap.Completed) / float64(snap.Total) * 100
	}
	return snap
}
