//go:build unix

package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrLocked indicates another process holds the directory lock
var ErrLocked = errors.New("directory is in use by another psqs process")

// LockFile is the lock file created inside a locked directory.
const LockFile = ".psqs.lock"

// Lock is an exclusive advisory lock on a directory. It must be closed to
// release the lock.
type Lock struct {
	file *os.File
	path string
}

// LockDir takes a non-blocking exclusive flock on dir/.psqs.lock, creating
// the directory and file as needed.
func LockDir(dir string) (*Lock, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, PermFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, StylePath(dir))
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &Lock{file: f, path: path}, nil
}

// Close releases the lock. The lock file stays behind.
func (l *Lock) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	// flock locks are released when the file is closed
	err := l.file.Close()
	l.file = nil
	return err
}
