package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"avatardl/internal/logging"
	"avatardl/internal/services"
	"avatardl/internal/transfer"
)

const (
	// DefaultConcurrency is the worker pool size when none is configured.
	DefaultConcurrency = 3
	// MaxConcurrency caps the worker pool regardless of configuration.
	MaxConcurrency = 16
)

// ErrBatchActive is returned by StartBatch while another batch still has work.
var ErrBatchActive = errors.New("a batch is still running")

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the worker pool size, clamped to [1, MaxConcurrency].
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		switch {
		case n <= 0:
			o.concurrency = DefaultConcurrency
		case n > MaxConcurrency:
			o.concurrency = MaxConcurrency
		default:
			o.concurrency = n
		}
	}
}

// WithTaskTimeout aborts a task attempt after d. Zero disables the timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d < 0 {
			d = 0
		}
		o.taskTimeout = d
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "download")
	}
}

// WithIDGenerator replaces the uuid-based batch and task ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Orchestrator owns at most one download queue at a time.
type Orchestrator struct {
	fetcher     transfer.Fetcher
	concurrency int
	taskTimeout time.Duration
	logger      *slog.Logger
	sampler     *logging.ProgressSampler
	newID       func() string

	mu    sync.Mutex
	batch *batch

	// emitMu serialises listener delivery in the order changes were applied.
	emitMu       sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

var _ Commander = (*Orchestrator)(nil)

// New constructs an orchestrator that fetches through fetcher.
func New(fetcher transfer.Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		logger:      logging.NewComponentLogger(nil, "download"),
		sampler:     logging.NewProgressSampler(25),
		newID:       uuid.NewString,
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Concurrency reports the worker pool size.
func (o *Orchestrator) Concurrency() int {
	return o.concurrency
}

// StartBatch validates the directory, builds the queue and starts the pool.
// ctx bounds the whole batch; cancelling it abandons in-flight transfers.
func (o *Orchestrator) StartBatch(ctx context.Context, req Request) (Snapshot, error) {
	if req.Directory == nil {
		return Snapshot{}, services.Wrap(services.ErrNoDirectory, "download", "start batch", "no directory handle", nil)
	}
	if err := req.Directory.CheckWritable(); err != nil {
		return Snapshot{}, services.Wrap(services.ErrNoDirectory, "download", "start batch", "directory not writable", err)
	}
	if o.fetcher == nil {
		return Snapshot{}, errors.New("download: orchestrator has no fetcher")
	}

	o.mu.Lock()
	if o.batch != nil && !o.batch.idleLocked() {
		o.mu.Unlock()
		return Snapshot{}, ErrBatchActive
	}
	if o.batch != nil {
		o.batch.cancel()
	}

	b := o.buildBatch(ctx, req)
	o.batch = b
	snap := b.snapshotLocked()
	o.emitMu.Lock()
	o.mu.Unlock()
	o.emitLocked(Event{Kind: EventBatchStarted, BatchID: b.id, Snapshot: snap})
	o.emitMu.Unlock()

	logging.WithContext(b.ctx, o.logger).Info("batch started",
		logging.Int("tasks", snap.Total),
		logging.Int("concurrency", o.concurrency),
		logging.String("directory", req.Directory.Root()),
	)

	go o.coordinate(b)
	return snap, nil
}

func (o *Orchestrator) buildBatch(parent context.Context, req Request) *batch {
	if parent == nil {
		parent = context.Background()
	}
	id := o.newID()
	ctx, cancel := context.WithCancel(services.WithBatchID(parent, id))
	b := &batch{
		id:      id,
		dir:     req.Directory,
		ctx:     ctx,
		cancel:  cancel,
		index:   make(map[string]*taskState),
		results: make(chan message, o.concurrency*2),
		wake:    make(chan struct{}, 1),
		idle:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	byID := make(map[string]AvatarFiles, len(req.Avatars))
	order := make([]string, 0, len(req.Avatars))
	for _, avatar := range req.Avatars {
		if _, dup := byID[avatar.AvatarID]; dup {
			continue
		}
		byID[avatar.AvatarID] = avatar
		order = append(order, avatar.AvatarID)
	}
	if !req.Selection.IsEmpty() {
		order = req.Selection.Avatars()
	}

	names := newNamer()
	for _, avatarID := range order {
		avatar, ok := byID[avatarID]
		if !ok {
			o.logger.Warn("selected avatar has no resolved files",
				logging.String(logging.FieldAvatarID, avatarID),
				logging.String(logging.FieldEventType, "avatar_unresolved"),
			)
			continue
		}
		name := avatar.Name
		if name == "" {
			name = avatar.AvatarID
		}
		var dir string
		for _, d := range avatar.Descriptors {
			if !req.Selection.IsEmpty() && !req.Selection.Includes(avatarID, d.ID) {
				continue
			}
			if !req.Options.Allows(d) {
				continue
			}
			if dir == "" {
				dir = names.avatarDir(avatarID, name)
			}
			output, needsExt := names.reserve(dir, d)
			st := &taskState{
				Task: Task{
					ID:           o.newID(),
					AvatarID:     avatarID,
					DescriptorID: d.ID,
					DisplayName:  fmt.Sprintf("%s / %s", name, d.Label),
					Category:     d.Category,
					URL:          d.URL,
					OutputPath:   output,
					Status:       StatusQueued,
					BytesTotal:   -1,
				},
				needsExtension: needsExt,
			}
			b.tasks = append(b.tasks, st)
			b.index[st.ID] = st
		}
	}
	if len(b.tasks) == 0 {
		close(b.idle)
		b.idleClosed = true
	}
	return b
}

// Retry re-queues a failed task. It returns false for any other status.
func (o *Orchestrator) Retry(taskID string) bool {
	o.mu.Lock()
	b := o.batch
	if b == nil {
		o.mu.Unlock()
		return false
	}
	st, ok := b.index[taskID]
	if !ok || st.Status != StatusFailed || b.ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	st.Status = StatusQueued
	st.ProgressPercent = 0
	st.ErrorMessage = ""
	st.ErrorKind = services.KindNone
	st.BytesWritten = 0
	st.BytesTotal = -1
	st.FinishedAt = time.Time{}
	b.reopenLocked()
	attempts := st.Attempts
	o.sampler.Reset(taskID)
	event := Event{Kind: EventTaskChanged, BatchID: b.id, Task: st.Task, Snapshot: b.snapshotLocked()}
	o.emitMu.Lock()
	o.mu.Unlock()
	o.emitLocked(event)
	o.emitMu.Unlock()

	b.signal()
	o.logger.Info("task requeued",
		logging.String(logging.FieldBatchID, b.id),
		logging.String(logging.FieldTaskID, taskID),
		logging.Int("attempts", attempts),
	)
	return true
}

// RetryFailed re-queues every failed task and returns how many were re-queued.
func (o *Orchestrator) RetryFailed() int {
	var ids []string
	for _, t := range o.Snapshot().Tasks {
		if t.Status == StatusFailed {
			ids = append(ids, t.ID)
		}
	}
	count := 0
	for _, id := range ids {
		if o.Retry(id) {
			count++
		}
	}
	return count
}

// Cancel removes a queued task. Tasks in any other status are left alone.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()
	b := o.batch
	if b == nil {
		o.mu.Unlock()
		return false
	}
	st, ok := b.index[taskID]
	if !ok || st.Status != StatusQueued {
		o.mu.Unlock()
		return false
	}
	b.removeLocked(taskID)
	event := Event{Kind: EventTaskRemoved, BatchID: b.id, Task: st.Task, Snapshot: b.snapshotLocked()}
	o.emitMu.Lock()
	o.mu.Unlock()
	o.emitLocked(event)
	o.emitMu.Unlock()

	b.signal()
	o.logger.Info("task cancelled",
		logging.String(logging.FieldBatchID, b.id),
		logging.String(logging.FieldTaskID, taskID),
	)
	return true
}

// Clear discards the queue and drops the directory reference. In-flight
// transfers are abandoned and their results ignored.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	b := o.batch
	o.batch = nil
	if b == nil {
		o.mu.Unlock()
		return
	}
	b.cancel()
	b.dir = nil
	if !b.idleClosed {
		close(b.idle)
		b.idleClosed = true
	}
	o.emitMu.Lock()
	o.mu.Unlock()
	o.emitLocked(Event{Kind: EventBatchCleared, BatchID: b.id})
	o.emitMu.Unlock()

	o.logger.Info("batch cleared", logging.String(logging.FieldBatchID, b.id))
}

// Snapshot returns a copy of the current queue. The zero Snapshot means no batch.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.batch == nil {
		return Snapshot{}
	}
	return o.batch.snapshotLocked()
}

// Wait blocks until the current queue has nothing queued or downloading, the
// queue is cleared, or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	b := o.batch
	if b == nil {
		o.mu.Unlock()
		return Snapshot{}, nil
	}
	idle := b.idle
	o.mu.Unlock()

	select {
	case <-idle:
		return o.Snapshot(), nil
	case <-ctx.Done():
		return o.Snapshot(), ctx.Err()
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (o *Orchestrator) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	o.emitMu.Lock()
	id := o.nextListener
	o.nextListener++
	o.listeners[id] = listener
	o.emitMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.emitMu.Lock()
			delete(o.listeners, id)
			o.emitMu.Unlock()
		})
	}
}

// emitLocked delivers an event. Callers hold emitMu.
func (o *Orchestrator) emitLocked(event Event) {
	for id := 0; id < o.nextListener; id++ {
		if listener, ok := o.listeners[id]; ok {
			listener(event)
		}
	}
}
