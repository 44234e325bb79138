package download

import (
	"time"

	"avatardl/internal/catalog"
	"avatardl/internal/localdir"
	"avatardl/internal/resolve"
	"avatardl/internal/selection"
	"avatardl/internal/services"
)

// Status represents the lifecycle of a download task.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusComplete    Status = "complete"
	StatusFailed      Status = "failed"
)

// IsTerminal reports whether the status ends a task attempt.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Task is one descriptor being transferred for one avatar.
type Task struct {
	ID           string           `json:"id"`
	AvatarID     string           `json:"avatar_id"`
	DescriptorID string           `json:"descriptor_id"`
	DisplayName  string           `json:"display_name"`
	Category     catalog.Category `json:"category"`
	URL          string           `json:"url"`
	// OutputPath is relative to the directory root.
	OutputPath      string        `json:"output_path"`
	Status          Status        `json:"status"`
	ProgressPercent float64       `json:"progress_percent"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	ErrorKind       services.Kind `json:"error_kind,omitempty"`
	Attempts        int           `json:"attempts"`
	BytesWritten    int64         `json:"bytes_written"`
	// BytesTotal is -1 while the size is unknown.
	BytesTotal int64     `json:"bytes_total"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Snapshot is a read-only, internally consistent view of one queue.
type Snapshot struct {
	BatchID        string  `json:"batch_id"`
	Tasks          []Task  `json:"tasks"`
	Completed      int     `json:"completed"`
	Failed         int     `json:"failed"`
	Downloading    int     `json:"downloading"`
	Queued         int     `json:"queued"`
	Total          int     `json:"total"`
	OverallPercent float64 `json:"overall_percent"`
}

// Idle reports whether nothing is queued or downloading.
func (s Snapshot) Idle() bool {
	return s.Queued == 0 && s.Downloading == 0
}

// Task returns the task with the given ID.
func (s Snapshot) Task(id string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Options selects which descriptor categories become tasks.
type Options struct {
	// IncludeModel covers the primary model file.
	IncludeModel bool
	// IncludeSecondaryFormat covers every other non-variant model file.
	IncludeSecondaryFormat bool
	IncludeVariants        bool
	// IncludeImages covers thumbnails, previews and textures.
	IncludeImages bool
}

// DefaultOptions includes every model format except variants.
func DefaultOptions() Options {
	return Options{IncludeModel: true, IncludeSecondaryFormat: true}
}

// Allows reports whether a descriptor passes the category filters.
func (o Options) Allows(d resolve.FileDescriptor) bool {
	switch d.Category {
	case catalog.CategoryModel:
		switch {
		case d.Variant:
			return o.IncludeVariants
		case d.Primary:
			return o.IncludeModel
		default:
			return o.IncludeSecondaryFormat
		}
	case catalog.CategoryThumbnail, catalog.CategoryTexture:
		return o.IncludeImages
	default:
		return false
	}
}

// AvatarFiles pairs an avatar with its resolved descriptors.
type AvatarFiles struct {
	AvatarID    string
	Name        string
	Descriptors []resolve.FileDescriptor
}

// Request describes a batch to start.
type Request struct {
	Avatars []AvatarFiles
	// Selection picks avatars and descriptors. An empty selection means every avatar.
	Selection selection.Selection
	Options   Options
	Directory localdir.Handle
}

// EventKind names the change an Event reports.
type EventKind string

const (
	EventBatchStarted EventKind = "batch_started"
	EventTaskChanged  EventKind = "task_changed"
	EventTaskProgress EventKind = "task_progress"
	EventTaskRemoved  EventKind = "task_removed"
	EventBatchIdle    EventKind = "batch_idle"
	EventBatchCleared EventKind = "batch_cleared"
)

// Event is delivered to listeners after a change has been applied.
type Event struct {
	Kind     EventKind
	BatchID  string
	Task     Task
	Snapshot Snapshot
}

// Listener observes orchestrator events. Listeners run synchronously and in
// order and must not call back into the Orchestrator; Event.Snapshot carries
// the state as of the change.
type Listener func(Event)

// Commander is the per-task command surface shared by the CLI and tests.
type Commander interface {
	Retry(taskID string) bool
	Cancel(taskID string) bool
	Clear()
}
