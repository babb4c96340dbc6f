// Package runlock serializes runs that share a work directory. Materialized
// files and run scratch space live under the work dir, so two concurrent
// runs could claim the same output paths; an exclusive flock prevents that.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"siphon/internal/services"
)

// Lock is an exclusive advisory lock on a work directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the work directory's lock file without blocking. A held
// lock means another run owns the directory and is a hard error.
func Acquire(workDir string) (*Lock, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory %q: %w", workDir, err)
	}

	path := filepath.Join(workDir, "siphon.lock")
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "runlock", "acquire",
			fmt.Sprintf("another run holds %s", path), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Unlock()
	l.lock = nil
	return err
}
