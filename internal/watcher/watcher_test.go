package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeusData/cxxfacts/internal/store"
)

func TestSnapshotsEqual(t *testing.T) {
	now := time.Now()
	a := map[string]fileSnapshot{
		"main.c": {modTime: now, size: 100},
		"util.h": {modTime: now, size: 200},
	}
	tests := []struct {
		name string
		b    map[string]fileSnapshot
		want bool
	}{
		{"identical", map[string]fileSnapshot{"main.c": {now, 100}, "util.h": {now, 200}}, true},
		{"size", map[string]fileSnapshot{"main.c": {now, 101}, "util.h": {now, 200}}, false},
		{"mtime", map[string]fileSnapshot{"main.c": {now.Add(time.Second), 100}, "util.h": {now, 200}}, false},
		{"missing", map[string]fileSnapshot{"main.c": {now, 100}}, false},
		{"renamed", map[string]fileSnapshot{"main.c": {now, 100}, "util.hpp": {now, 200}}, false},
	}
	for _, tt := range tests {
		if got := snapshotsEqual(a, tt.b); got != tt.want {
			t.Errorf("%s: snapshotsEqual = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPollInterval(t *testing.T) {
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{2000, 5 * time.Second},
		{10000, 21 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := pollInterval(tt.files); got != tt.expected {
			t.Errorf("pollInterval(%d) = %v, want %v", tt.files, got, tt.expected)
		}
	}
}

func TestCaptureSnapshotSeesOnlySources(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "main.c"), "int main(void);\n")
	mustWrite(t, filepath.Join(dir, "notes.txt"), "hello\n")

	snap, err := captureSnapshot(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 file, got %d", len(snap))
	}
	s, ok := snap["main.c"]
	if !ok || s.size == 0 || s.modTime.IsZero() {
		t.Errorf("unexpected snapshot entry: %+v", s)
	}
}

func resetDue(w *Watcher) {
	for _, state := range w.roots {
		state.nextPoll = time.Time{}
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	mustWrite(t, src, "int main(void);\n")

	var indexCount atomic.Int32
	var seen Target
	w := New(Static(Target{Name: "demo", Root: dir}), func(_ context.Context, t Target) error {
		seen = t
		indexCount.Add(1)
		return nil
	})

	// First poll: baseline capture, no index
	w.pollAll()
	resetDue(w)
	w.pollAll()
	if indexCount.Load() != 0 {
		t.Fatalf("unchanged root should not be indexed, got %d", indexCount.Load())
	}

	now := time.Now().Add(time.Second)
	if err := os.Chtimes(src, now, now); err != nil {
		t.Fatal(err)
	}
	resetDue(w)
	w.pollAll()
	if indexCount.Load() != 1 || seen.Name != "demo" {
		t.Errorf("changed file should trigger one index, got %d (%+v)", indexCount.Load(), seen)
	}

	mustWrite(t, filepath.Join(dir, "extra.h"), "int extra;\n")
	resetDue(w)
	w.pollAll()
	if indexCount.Load() != 2 {
		t.Errorf("new file should trigger index, got %d", indexCount.Load())
	}
}

func TestWatcherRetriesFailedIndex(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	mustWrite(t, src, "int a;\n")

	var calls atomic.Int32
	w := New(Static(Target{Name: "r", Root: dir}), func(context.Context, Target) error {
		if calls.Add(1) == 1 {
			return os.ErrPermission
		}
		return nil
	})
	w.pollAll()
	mustWrite(t, src, "int a, b;\n")
	resetDue(w)
	w.pollAll()
	resetDue(w)
	w.pollAll()
	if calls.Load() != 2 {
		t.Errorf("failed index should be retried once, got %d calls", calls.Load())
	}
}

func TestWatcherFromRouter(t *testing.T) {
	r, err := store.NewRouterWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer r.CloseAll()

	root := t.TempDir()
	s, err := r.ForProject("proj")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertProject("proj", root); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ForProject("empty"); err != nil {
		t.Fatal(err)
	}

	targets, err := FromRouter(r)()
	if err != nil {
		t.Fatal(err)
	}
	if len(targets) != 1 || targets[0].Name != "proj" || targets[0].Root != root {
		t.Errorf("unexpected targets: %+v", targets)
	}
}

func TestWatcherCancellation(t *testing.T) {
	w := New(Static(), func(context.Context, Target) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestWatcherSkipsMissingRoot(t *testing.T) {
	var indexCount atomic.Int32
	w := New(Static(Target{Name: "ghost", Root: "/nonexistent/path"}), func(context.Context, Target) error {
		indexCount.Add(1)
		return nil
	})
	w.pollAll()
	resetDue(w)
	w.pollAll()
	if indexCount.Load() != 0 {
		t.Errorf("should not index missing root, got %d", indexCount.Load())
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
