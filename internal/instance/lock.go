// pattern: Imperative Shell

// Package instance keeps two sync runs from working on one workspace at once.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "reposync.lock"
	pidFileName  = "reposync.pid"
)

// ErrLocked means another run holds the workspace lock.
var ErrLocked = errors.New("another reposync run is using this workspace")

// Lock acquires an exclusive file lock on the workspace data directory and
// records the current PID. The caller must defer Cleanup.
func Lock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		if pid, ok := HolderPID(dataDir); ok {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		return nil, ErrLocked
	}

	if err := os.WriteFile(filepath.Join(dataDir, pidFileName), []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("writing pid file: %w", err)
	}
	return fl, nil
}

// HolderPID returns the PID recorded by the last run that took the lock.
func HolderPID(dataDir string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(dataDir, pidFileName))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// Cleanup removes the pid file and releases the file lock.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(filepath.Join(dataDir, pidFileName))
	if fl != nil {
		_ = fl.Unlock()
	}
}

// Unlock removes lock files left behind by a run that did not exit
// cleanly. It refuses while a live run still holds the lock.
func Unlock(dataDir string) (removed bool, err error) {
	lockPath := filepath.Join(dataDir, lockFileName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return false, nil
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to probe lock: %w", err)
	}
	if !locked {
		return false, ErrLocked
	}
	defer func() { _ = fl.Unlock() }()

	_ = os.Remove(filepath.Join(dataDir, pidFileName))
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("removing lock file: %w", err)
	}
	return true, nil
}
