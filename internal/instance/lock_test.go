package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLockAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".reposync")

	// First lock should succeed and create the data directory
	fl, err := Lock(dir)
	if err != nil {
		t.Fatalf("Lock() failed: %v", err)
	}
	if fl == nil {
		t.Fatal("Lock() returned nil flock")
	}

	pid, ok := HolderPID(dir)
	if !ok || pid != os.Getpid() {
		t.Fatalf("HolderPID() = %d, %v, want %d", pid, ok, os.Getpid())
	}

	// Second lock should fail
	_, err = Lock(dir)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("second Lock() = %v, want ErrLocked", err)
	}

	// Unlock refuses while the lock is held
	if _, err := Unlock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("Unlock() while held = %v, want ErrLocked", err)
	}

	Cleanup(dir, fl)

	if _, err := os.Stat(filepath.Join(dir, pidFileName)); !os.IsNotExist(err) {
		t.Fatal("pid file should have been removed after Cleanup")
	}

	// Lock should be available again
	fl2, err := Lock(dir)
	if err != nil {
		t.Fatalf("Lock() after Cleanup should succeed: %v", err)
	}
	Cleanup(dir, fl2)
}

func TestUnlock_RemovesStaleFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, lockFileName), nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, pidFileName), []byte("4242"), 0600); err != nil {
		t.Fatal(err)
	}

	removed, err := Unlock(dir)
	if err != nil || !removed {
		t.Fatalf("Unlock() = %v, %v", removed, err)
	}
	for _, name := range []string{lockFileName, pidFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", name)
		}
	}
}

func TestUnlock_NothingToRemove(t *testing.T) {
	removed, err := Unlock(t.TempDir())
	if err != nil || removed {
		t.Errorf("Unlock() = %v, %v, want false, nil", removed, err)
	}
}
