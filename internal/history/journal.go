package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"avatardl/internal/download"
)

// Batch is one journaled batch summary.
type Batch struct {
	ID             string
	Directory      string
	StartedAt      time.Time
	UpdatedAt      time.Time
	Total          int
	Completed      int
	Failed         int
	OverallPercent float64
	Cleared        bool
}

// Task is one journaled task row.
type Task struct {
	BatchID      string
	ID           string
	Position     int
	AvatarID     string
	DescriptorID string
	DisplayName  string
	Category     string
	URL          string
	OutputPath   string
	Status       download.Status
	ErrorKind    string
	ErrorMessage string
	Attempts     int
	BytesWritten int64
	Removed      bool
	UpdatedAt    time.Time
}

const upsertTaskSQL = `INSERT INTO tasks (
    batch_id, id, position, avatar_id, descriptor_id, display_name, category, url,
    output_path, status, error_kind, error_message, attempts, bytes_written, removed, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
ON CONFLICT(batch_id, id) DO UPDATE SET
    output_path = excluded.output_path,
    status = excluded.status,
    error_kind = excluded.error_kind,
    error_message = excluded.error_message,
    attempts = excluded.attempts,
    bytes_written = excluded.bytes_written,
    updated_at = excluded.updated_at`

func taskArgs(batchID string, position int, t download.Task, now time.Time) []any {
	return []any{
		batchID, t.ID, position, t.AvatarID, t.DescriptorID, t.DisplayName, string(t.Category), t.URL,
		t.OutputPath, string(t.Status), string(t.ErrorKind), t.ErrorMessage, t.Attempts, t.BytesWritten,
		formatTime(now),
	}
}

// RecordBatch inserts a new batch and all of its tasks.
func (s *Store) RecordBatch(ctx context.Context, snap download.Snapshot, directory string) error {
	ctx = ensureContext(ctx)
	if snap.BatchID == "" {
		return errors.New("record batch: missing batch id")
	}
	now := time.Now()
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (id, directory, started_at, updated_at, total, completed, failed, overall_percent)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.BatchID, directory, formatTime(now), formatTime(now),
			snap.Total, snap.Completed, snap.Failed, snap.OverallPercent,
		); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		for i, task := range snap.Tasks {
			if _, err := tx.ExecContext(ctx, upsertTaskSQL, taskArgs(snap.BatchID, i, task, now)...); err != nil {
				return fmt.Errorf("insert task %s: %w", task.ID, err)
			}
		}
		return tx.Commit()
	})
}

// RecordTask stores the latest state of one task.
func (s *Store) RecordTask(ctx context.Context, batchID string, task download.Task) error {
	position, err := s.nextPosition(ctx, batchID, task.ID)
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, upsertTaskSQL, taskArgs(batchID, position, task, time.Now())...); err != nil {
		return fmt.Errorf("record task %s: %w", task.ID, err)
	}
	return nil
}

func (s *Store) nextPosition(ctx context.Context, batchID, taskID string) (int, error) {
	var position int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COALESCE(
            (SELECT position FROM tasks WHERE batch_id = ? AND id = ?),
            (SELECT COUNT(1) FROM tasks WHERE batch_id = ?))`,
		batchID, taskID, batchID,
	).Scan(&position)
	if err != nil {
		return 0, fmt.Errorf("task position: %w", err)
	}
	return position, nil
}

// MarkTaskRemoved flags a cancelled task.
func (s *Store) MarkTaskRemoved(ctx context.Context, batchID, taskID string) error {
	_, err := s.exec(ctx, `UPDATE tasks SET removed = 1, updated_at = ? WHERE batch_id = ? AND id = ?`,
		formatTime(time.Now()), batchID, taskID)
	if err != nil {
		return fmt.Errorf("mark task removed: %w", err)
	}
	return nil
}

// UpdateSummary refreshes the batch aggregates from a snapshot.
func (s *Store) UpdateSummary(ctx context.Context, snap download.Snapshot) error {
	_, err := s.exec(ctx,
		`UPDATE batches SET total = ?, completed = ?, failed = ?, overall_percent = ?, updated_at = ? WHERE id = ?`,
		snap.Total, snap.Completed, snap.Failed, snap.OverallPercent, formatTime(time.Now()), snap.BatchID)
	if err != nil {
		return fmt.Errorf("update batch summary: %w", err)
	}
	return nil
}

// MarkCleared flags a batch whose queue was discarded.
func (s *Store) MarkCleared(ctx context.Context, batchID string) error {
	_, err := s.exec(ctx, `UPDATE batches SET cleared = 1, updated_at = ? WHERE id = ?`, formatTime(time.Now()), batchID)
	if err != nil {
		return fmt.Errorf("mark batch cleared: %w", err)
	}
	return nil
}

const batchColumns = "id, directory, started_at, updated_at, total, completed, failed, overall_percent, cleared"

func scanBatch(scanner interface{ Scan(dest ...any) error }) (*Batch, error) {
	var (
		b                Batch
		started, updated sql.NullString
		cleared          int
	)
	if err := scanner.Scan(&b.ID, &b.Directory, &started, &updated, &b.Total, &b.Completed, &b.Failed, &b.OverallPercent, &cleared); err != nil {
		return nil, err
	}
	b.StartedAt = parseTime(started)
	b.UpdatedAt = parseTime(updated)
	b.Cleared = cleared != 0
	return &b, nil
}

// ListBatches returns the most recent batches first. limit <= 0 returns all.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	query := "SELECT " + batchColumns + " FROM batches ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetBatch returns a batch by ID or unique ID prefix.
func (s *Store) GetBatch(ctx context.Context, id string) (*Batch, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+batchColumns+" FROM batches WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2",
		id, id+"%", id)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	defer rows.Close()

	var found []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		found = append(found, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("batch prefix %q is ambiguous", id)
	}
}

// Tasks returns a batch's tasks in queue order.
func (s *Store) Tasks(ctx context.Context, batchID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT batch_id, id, position, avatar_id, descriptor_id, display_name, category, url, output_path,
                status, error_kind, error_message, attempts, bytes_written, removed, updated_at
         FROM tasks WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t       Task
			status  string
			removed int
			updated sql.NullString
		)
		if err := rows.Scan(&t.BatchID, &t.ID, &t.Position, &t.AvatarID, &t.DescriptorID, &t.DisplayName, &t.Category,
			&t.URL, &t.OutputPath, &status, &t.ErrorKind, &t.ErrorMessage, &t.Attempts, &t.BytesWritten, &removed, &updated); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = download.Status(status)
		t.Removed = removed != 0
		t.UpdatedAt = parseTime(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}
