package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ProjectInfo describes one project database in the router directory.
type ProjectInfo struct {
	Name      string `json:"name"`
	DBPath    string `json:"db_path"`
	RootPath  string `json:"root_path,omitempty"`
	IndexedAt string `json:"indexed_at,omitempty"`
	Files     int    `json:"files"`
}

// StoreRouter manages per-project SQLite databases.
// Each indexed root gets its own .db file in the cache directory.
type StoreRouter struct {
	dir    string            // ~/.cache/cxxfacts/
	stores map[string]*Store // project name → open Store (lazy)
	mu     sync.Mutex
}

// NewRouter creates a StoreRouter over the default cache directory.
func NewRouter() (*StoreRouter, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return &StoreRouter{dir: dir, stores: make(map[string]*Store)}, nil
}

// NewRouterWithDir creates a StoreRouter using a custom directory.
func NewRouterWithDir(dir string) (*StoreRouter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &StoreRouter{dir: dir, stores: make(map[string]*Store)}, nil
}

// ProjectName derives a database name from an absolute root path,
// e.g. /home/me/src/libfoo → home-me-src-libfoo.
func ProjectName(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.TrimLeft(strings.ReplaceAll(cleaned, "/", "-"), "-")
	name = strings.ReplaceAll(name, ":", "")
	if name == "" {
		return "root"
	}
	return name
}

// ForProject returns the Store for the given project, opening it lazily.
func (r *StoreRouter) ForProject(name string) (*Store, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid project name: %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		return s, nil
	}
	s, err := OpenInDir(r.dir, name)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", name, err)
	}
	r.stores[name] = s
	return s, nil
}

// ListProjects scans .db files and queries each for metadata.
func (r *StoreRouter) ListProjects() ([]*ProjectInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("readdir: %w", err)
	}

	result := make([]*ProjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".db")
		info := &ProjectInfo{Name: name, DBPath: filepath.Join(r.dir, e.Name())}

		s, err := r.ForProject(name)
		if err != nil {
			slog.Warn("router.list.open", "project", name, "err", err)
			result = append(result, info)
			continue
		}
		if projects, err := s.ListProjects(); err == nil && len(projects) > 0 {
			info.RootPath = projects[0].RootPath
			info.IndexedAt = projects[0].IndexedAt
		}
		if files, err := s.ListFiles(); err == nil {
			info.Files = len(files)
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// DeleteProject closes the Store connection and removes the .db + WAL/SHM files.
func (r *StoreRouter) DeleteProject(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[name]; ok {
		s.Close()
		delete(r.stores, name)
	}

	dbPath := filepath.Join(r.dir, name+".db")
	for _, suffix := range []string{"", "-wal", "-shm"} {
		p := dbPath + suffix
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	slog.Info("router.delete", "project", name)
	return nil
}

// HasProject checks if a .db file exists for the given project (without opening it).
func (r *StoreRouter) HasProject(name string) bool {
	_, err := os.Stat(filepath.Join(r.dir, name+".db"))
	return err == nil
}

// Dir returns the cache directory path.
func (r *StoreRouter) Dir() string {
	return r.dir
}

// CloseAll closes all open Store connections.
func (r *StoreRouter) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, s := range r.stores {
		if err := s.Close(); err != nil {
			slog.Warn("router.close", "project", name, "err", err)
		}
	}
	r.stores = make(map[string]*Store)
}
