package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the output directory.
var ErrLocked = errors.New("output directory is locked by another run")

const lockPollInterval = 100 * time.Millisecond

// AcquireLock takes the exclusive lock on dir, polling until timeout. The
// returned release function is always safe to call.
func AcquireLock(dir string, timeout time.Duration) (func(), error) {
	if err := EnsureDir(dir); err != nil {
		return func() {}, err
	}

	lockPath := filepath.Join(dir, LockFile)
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire lock %s: %w", lockPath, err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if !time.Now().Before(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s)", ErrLocked, lockPath)
		}
		time.Sleep(lockPollInterval)
	}
}
