package history

import (
	"context"
	"log/slog"
	"time"

	"avatardl/internal/download"
	"avatardl/internal/logging"
)

const recordTimeout = 5 * time.Second

// Recorder journals orchestrator events into a Store.
type Recorder struct {
	store     *Store
	logger    *slog.Logger
	directory string
}

// NewRecorder builds a recorder that labels batches with directory.
func NewRecorder(store *Store, directory string, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "history"),
		directory: directory,
	}
}

// Listener returns the download.Listener to pass to Orchestrator.Subscribe.
// Progress ticks are not journaled.
func (r *Recorder) Listener() download.Listener {
	return r.handle
}

func (r *Recorder) handle(event download.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var err error
	switch event.Kind {
	case download.EventBatchStarted:
		err = r.store.RecordBatch(ctx, event.Snapshot, r.directory)
	case download.EventTaskChanged:
		err = r.store.RecordTask(ctx, event.BatchID, event.Task)
	case download.EventTaskRemoved:
		err = r.store.MarkTaskRemoved(ctx, event.BatchID, event.Task.ID)
	case download.EventBatchIdle:
		err = r.store.UpdateSummary(ctx, event.Snapshot)
	case download.EventBatchCleared:
		err = r.store.MarkCleared(ctx, event.BatchID)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "history write failed", "history_write",
			logging.String(logging.FieldBatchID, event.BatchID),
			logging.String("event", string(event.Kind)),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or remove history.db"),
			logging.Error(err),
		)
	}
}
