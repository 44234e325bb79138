package download

import (
	"time"

	"avatardl/internal/localdir"
	"avatardl/internal/logging"
	"avatardl/internal/services"
)

type message struct {
	taskID   string
	attempt  int
	progress bool
	written  int64
	total    int64
	output   string
	err      error
}

type job struct {
	taskID         string
	attempt        int
	avatarID       string
	url            string
	output         string
	needsExtension bool
	dir            localdir.Handle
}

// coordinate is the only goroutine that changes task state while the batch
// runs. Commands (Retry, Cancel, Clear) take the same mutex.
func (o *Orchestrator) coordinate(b *batch) {
	defer close(b.done)
	for {
		o.mu.Lock()
		if o.batch != b || b.ctx.Err() != nil {
			o.mu.Unlock()
			return
		}
		var events []Event
		for b.running < o.concurrency {
			st := b.nextQueuedLocked()
			if st == nil {
				break
			}
			st.Status = StatusDownloading
			st.Attempts++
			st.StartedAt = time.Now()
			b.running++
			j := job{
				taskID:         st.ID,
				attempt:        st.Attempts,
				avatarID:       st.AvatarID,
				url:            st.URL,
				output:         st.OutputPath,
				needsExtension: st.needsExtension,
				dir:            b.dir,
			}
			go o.runTask(b, j)
			events = append(events, Event{Kind: EventTaskChanged, BatchID: b.id, Task: st.Task})
		}
		becameIdle := b.markIdleLocked()
		snap := b.snapshotLocked()
		o.emitMu.Lock()
		o.mu.Unlock()
		for _, event := range events {
			event.Snapshot = snap
			o.emitLocked(event)
		}
		if becameIdle {
			o.emitLocked(Event{Kind: EventBatchIdle, BatchID: b.id, Snapshot: snap})
		}
		o.emitMu.Unlock()
		if becameIdle {
			o.logBatchIdle(snap)
		}

		select {
		case msg := <-b.results:
			o.apply(b, msg)
		case <-b.wake:
		case <-b.ctx.Done():
			return
		}
	}
}

// apply folds one worker message into the task list.
func (o *Orchestrator) apply(b *batch, msg message) {
	o.mu.Lock()
	st, ok := b.index[msg.taskID]
	if o.batch != b || !ok || st.Attempts != msg.attempt || st.Status != StatusDownloading {
		o.mu.Unlock()
		return
	}

	kind := EventTaskChanged
	if msg.progress {
		kind = EventTaskProgress
		st.BytesWritten = msg.written
		st.BytesTotal = msg.total
		if msg.total > 0 {
			pct := float64(msg.written) / float64(msg.total) * 100
			if pct > 99 {
				pct = 99
			}
			if pct > st.ProgressPercent {
				st.ProgressPercent = pct
			}
		}
	} else {
		b.running--
		st.FinishedAt = time.Now()
		if msg.output != "" {
			st.OutputPath = msg.output
		}
		st.BytesWritten = msg.written
		if msg.err != nil {
			st.Status = StatusFailed
			st.ErrorKind = services.KindOf(msg.err)
			st.ErrorMessage = services.Summary(msg.err)
		} else {
			st.Status = StatusComplete
			st.ProgressPercent = 100
			if st.BytesTotal < 0 {
				st.BytesTotal = msg.written
			}
		}
	}
	task := st.Task
	event := Event{Kind: kind, BatchID: b.id, Task: task, Snapshot: b.snapshotLocked()}
	o.emitMu.Lock()
	o.mu.Unlock()
	o.emitLocked(event)
	o.emitMu.Unlock()

	o.logTask(b.id, task, msg)
}

func (o *Orchestrator) logTask(batchID string, task Task, msg message) {
	attrs := []logging.Attr{
		logging.String(logging.FieldBatchID, batchID),
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldAvatarID, task.AvatarID),
		logging.String("display_name", task.DisplayName),
	}
	switch {
	case msg.progress:
		if o.sampler.ShouldLog(task.ID, task.ProgressPercent) {
			o.logger.Debug("task progress", logging.Args(append(attrs,
				logging.Float64("percent", task.ProgressPercent),
				logging.Int64("bytes", task.BytesWritten),
			)...)...)
		}
	case task.Status == StatusComplete:
		o.logger.Info("task complete", logging.Args(append(attrs,
			logging.String("output_path", task.OutputPath),
			logging.Int64("bytes", task.BytesWritten),
			logging.Int("attempts", task.Attempts),
		)...)...)
	case task.Status == StatusFailed:
		logging.WarnWithContext(o.logger, "task failed", "task_failed", append(attrs,
			logging.String("error_kind", string(task.ErrorKind)),
			logging.String(logging.FieldErrorHint, errorHint(task.ErrorKind)),
			logging.Error(msg.err),
		)...)
	}
}

func (o *Orchestrator) logBatchIdle(snap Snapshot) {
	o.logger.Info("batch idle",
		logging.String(logging.FieldBatchID, snap.BatchID),
		logging.Int("completed", snap.Completed),
		logging.Int("failed", snap.Failed),
		logging.Int("total", snap.Total),
		logging.Float64("overall_percent", snap.OverallPercent),
	)
}

func errorHint(kind services.Kind) string {
	switch kind {
	case services.KindPermission:
		return "grant write access to the output directory and retry"
	case services.KindWrite:
		return "check free disk space and retry"
	case services.KindTimeout:
		return "raise download.task_timeout_seconds or retry"
	default:
		return "check the source URL and retry"
	}
}
