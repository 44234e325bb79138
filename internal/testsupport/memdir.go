package testsupport

import (
	"context"
	"io"
	"sort"
	"sync"

	"avatardl/internal/services"
)

// MemoryDir is an in-memory localdir.Handle whose write permission can be
// revoked mid-batch.
type MemoryDir struct {
	mu       sync.Mutex
	files    map[string][]byte
	revoked  bool
	released bool
	failWith error
}

// NewMemoryDir returns an empty writable directory.
func NewMemoryDir() *MemoryDir {
	return &MemoryDir{files: make(map[string][]byte)}
}

func (d *MemoryDir) Root() string { return "memory://" }

func (d *MemoryDir) CheckWritable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked || d.released {
		return services.Wrap(services.ErrPermission, "memorydir", "check", "write access revoked", nil)
	}
	return nil
}

func (d *MemoryDir) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := d.CheckWritable(); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), err
	}
	if err := ctx.Err(); err != nil {
		return int64(len(data)), err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failWith != nil {
		return 0, d.failWith
	}
	if d.revoked {
		return 0, services.Wrap(services.ErrPermission, "memorydir", "write", name, nil)
	}
	d.files[name] = data
	return int64(len(data)), nil
}

func (d *MemoryDir) Release() error {
	d.mu.Lock()
	d.released = true
	d.mu.Unlock()
	return nil
}

// Revoke denies every later permission check and write.
func (d *MemoryDir) Revoke() {
	d.mu.Lock()
	d.revoked = true
	d.mu.Unlock()
}

// Restore re-grants write permission.
func (d *MemoryDir) Restore() {
	d.mu.Lock()
	d.revoked = false
	d.mu.Unlock()
}

// FailWrites makes every later write fail with err. Nil clears it.
func (d *MemoryDir) FailWrites(err error) {
	d.mu.Lock()
	d.failWith = err
	d.mu.Unlock()
}

// Files returns the written file names sorted.
func (d *MemoryDir) Files() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Content returns a written file's bytes.
func (d *MemoryDir) Content(name string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[name]
	return data, ok
}
