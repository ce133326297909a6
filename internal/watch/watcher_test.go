package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	w, err := New([]string{dir}, 100*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A rapid burst of writes must debounce into a single callback.
	for i := 0; i < 10; i++ {
		name := filepath.Join(dir, fmt.Sprintf("file-%d.txt", i))
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	// Let any stray timer fire before counting.
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("callbacks = %d, want 1 for a coalesced burst", got)
	}
}

func TestWatcher_SkipsMissingDirs(t *testing.T) {
	existing := t.TempDir()
	missing := filepath.Join(existing, "does-not-exist")

	w, err := New([]string{existing, missing}, DefaultDebounce, func(ctx context.Context) {})
	if err != nil {
		t.Fatalf("New() error = %v, want missing directories skipped", err)
	}
	w.Close()
}

func TestWatcher_CloseStopsRun(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, DefaultDebounce, func(ctx context.Context) {})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
