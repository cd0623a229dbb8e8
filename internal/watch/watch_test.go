package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) (<-chan struct{}, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { changes <- struct{}{} })
	}()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	return changes, cancel, done
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reposync.yaml")
	if err := os.WriteFile(path, []byte("policy: conservative\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes, cancel, done := startWatcher(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte("policy: aggressive\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported after writing the file")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWatcher_FiresOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reposync.yaml")

	changes, cancel, _ := startWatcher(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte("projects: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported after creating the file")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reposync.yaml")

	changes, cancel, _ := startWatcher(t, path)
	defer cancel()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
		t.Fatal("change reported for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
