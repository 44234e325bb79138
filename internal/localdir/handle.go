package localdir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"avatardl/internal/services"
)

// LockName is the advisory lock file created in every opened directory.
const LockName = ".avatardl.lock"

// ErrInUse is returned when another process holds the directory lock.
var ErrInUse = errors.New("directory is in use by another download session")

// Handle is a permission-scoped reference to one local folder.
type Handle interface {
	Root() string
	// CheckWritable re-validates write permission. Failures wrap services.ErrPermission.
	CheckWritable() error
	// Write stores r under the relative name and returns the bytes written.
	Write(ctx context.Context, name string, r io.Reader) (int64, error)
	Release() error
}

// Directory is a Handle backed by the local filesystem.
type Directory struct {
	root string
	lock *flock.Flock

	mu       sync.Mutex
	released bool
}

// Open creates root if needed and takes its session lock.
func Open(root string) (*Directory, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrNoDirectory, "localdir", "open", "empty path", nil)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, services.Wrap(services.ErrNoDirectory, "localdir", "open", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, services.Wrap(services.ErrNoDirectory, "localdir", "create", abs, err)
	}

	lock := flock.New(filepath.Join(abs, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrNoDirectory, "localdir", "lock", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", abs, ErrInUse)
	}
	return &Directory{root: abs, lock: lock}, nil
}

func (d *Directory) Root() string {
	return d.root
}

func (d *Directory) CheckWritable() error {
	d.mu.Lock()
	released := d.released
	d.mu.Unlock()
	if released {
		return services.Wrap(services.ErrPermission, "localdir", "check", "handle released", nil)
	}

	info, err := os.Stat(d.root)
	if err != nil {
		return services.Wrap(services.ErrPermission, "localdir", "check", d.root, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrPermission, "localdir", "check", d.root+" is not a directory", nil)
	}
	if err := unix.Access(d.root, unix.W_OK|unix.X_OK); err != nil {
		return services.Wrap(services.ErrPermission, "localdir", "check", "write access denied to "+d.root, err)
	}
	return nil
}

// Write streams r into root/name via a temp file in the same directory.
func (d *Directory) Write(ctx context.Context, name string, r io.Reader) (int64, error) {
	if err := d.CheckWritable(); err != nil {
		return 0, err
	}
	target, err := d.resolve(name)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, classifyWrite("mkdir", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return 0, classifyWrite("create", target, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	src := &sourceReader{ctx: ctx, r: r}
	written, err := io.Copy(tmp, src)
	if err != nil {
		if src.err != nil {
			return written, src.err
		}
		return written, classifyWrite("copy", target, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return written, classifyWrite("chmod", target, err)
	}
	if err := tmp.Close(); err != nil {
		return written, classifyWrite("close", target, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return written, classifyWrite("rename", target, err)
	}
	committed = true
	return written, nil
}

// Release drops the session lock. Later writes fail with a permission error.
func (d *Directory) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil
	}
	d.released = true
	if err := d.lock.Unlock(); err != nil {
		return fmt.Errorf("release directory lock: %w", err)
	}
	_ = os.Remove(d.lock.Path())
	return nil
}

func (d *Directory) resolve(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	if clean == "." || clean == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrWrite, "localdir", "write", fmt.Sprintf("invalid output name %q", name), nil)
	}
	if filepath.Base(clean) == LockName {
		return "", services.Wrap(services.ErrWrite, "localdir", "write", "reserved output name", nil)
	}
	return filepath.Join(d.root, clean), nil
}

func classifyWrite(operation, target string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return services.Wrap(services.ErrPermission, "localdir", operation, target, err)
	}
	return services.Wrap(services.ErrWrite, "localdir", operation, target, err)
}

// sourceReader separates read failures of the incoming stream from local
// write failures and stops copying once ctx is done.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.ctx != nil {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return 0, err
		}
	}
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}
