// Package watcher re-indexes source roots when their C/C++ files change.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/DeusData/cxxfacts/internal/discover"
	"github.com/DeusData/cxxfacts/internal/store"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

type rootState struct {
	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// Target is one watched source root.
type Target struct {
	Name     string
	Root     string
	Discover *discover.Options
}

// ListFunc returns the roots to watch. It is called on every tick.
type ListFunc func() ([]Target, error)

// IndexFunc is the callback signature for triggering a re-index.
type IndexFunc func(ctx context.Context, t Target) error

// Watcher polls source roots for file changes and triggers re-indexing.
type Watcher struct {
	list    ListFunc
	indexFn IndexFunc
	roots   map[string]*rootState
	ctx     context.Context
}

// New creates a Watcher. indexFn is called when file changes are detected.
func New(list ListFunc, indexFn IndexFunc) *Watcher {
	return &Watcher{
		list:    list,
		indexFn: indexFn,
		roots:   make(map[string]*rootState),
		ctx:     context.Background(),
	}
}

// Static watches a fixed set of roots.
func Static(targets ...Target) ListFunc {
	return func() ([]Target, error) { return targets, nil }
}

// FromRouter watches every project database the router knows about that
// records a root path.
func FromRouter(r *store.StoreRouter) ListFunc {
	return func() ([]Target, error) {
		infos, err := r.ListProjects()
		if err != nil {
			return nil, err
		}
		targets := make([]Target, 0, len(infos))
		for _, info := range infos {
			if info.RootPath == "" {
				continue
			}
			targets = append(targets, Target{Name: info.Name, Root: info.RootPath})
		}
		return targets, nil
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling each
// root only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// pollAll lists the watched roots and polls each that is due.
func (w *Watcher) pollAll() {
	targets, err := w.list()
	if err != nil {
		slog.Warn("watcher.list", "err", err)
		return
	}

	now := time.Now()
	for _, t := range targets {
		state, exists := w.roots[t.Name]
		if !exists {
			state = &rootState{}
			w.roots[t.Name] = state
		}
		if exists && now.Before(state.nextPoll) {
			continue // not due yet
		}
		w.pollRoot(t, state)
	}
}

// pollRoot captures a snapshot of the file tree and compares with previous.
// First poll: captures baseline without triggering indexing.
// Subsequent polls: triggers indexFn if any file changed.
func (w *Watcher) pollRoot(t Target, state *rootState) {
	if _, err := os.Stat(t.Root); err != nil {
		slog.Warn("watcher.root_gone", "project", t.Name, "path", t.Root)
		state.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(w.ctx, t.Root, t.Discover)
	if err != nil {
		slog.Warn("watcher.snapshot", "project", t.Name, "err", err)
		state.nextPoll = time.Now().Add(state.interval)
		return
	}

	interval := pollInterval(len(snap))

	if state.snapshot == nil {
		slog.Debug("watcher.baseline", "project", t.Name, "files", len(snap))
		state.snapshot = snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(state.snapshot, snap) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "project", t.Name, "files", len(snap))
	if err := w.indexFn(w.ctx, t); err != nil {
		slog.Warn("watcher.index", "project", t.Name, "err", err)
		// Keep old snapshot so we retry next cycle
		state.nextPoll = time.Now().Add(interval)
		return
	}

	state.snapshot = snap
	state.interval = interval
	state.nextPoll = time.Now().Add(interval)
}

// captureSnapshot records mtime+size for every discovered C/C++ file.
func captureSnapshot(ctx context.Context, root string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok || !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at maxInterval.
func pollInterval(fileCount int) time.Duration {
	d := baseInterval + time.Duration(fileCount/500)*time.Second
	if d > maxInterval {
		d = maxInterval
	}
	return d
}
