package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/hpungsan/timeless/internal/errors"
)

// LockFileName is the owner lock inside the base directory.
const LockFileName = "timeless.lock"

// Lock marks a process as the single owner of a base directory's store.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the owner lock for baseDir without blocking.
// A lock held by another process yields STORE_LOCKED.
func AcquireLock(baseDir string) (*Lock, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	path := filepath.Join(baseDir, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.NewStoreLocked(path)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
