//go:build !unix

package utils

import "errors"

// ErrLocked indicates another process holds the directory lock
var ErrLocked = errors.New("directory is in use by another psqs process")

// LockFile is the lock file created inside a locked directory.
const LockFile = ".psqs.lock"

// Lock is a no-op where flock is unavailable.
type Lock struct{}

func LockDir(dir string) (*Lock, error) {
	return &Lock{}, EnsureDir(dir)
}

func (l *Lock) Close() error { return nil }
