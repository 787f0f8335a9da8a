package store

import (
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS projects (
	name TEXT PRIMARY KEY,
	indexed_at TEXT NOT NULL,
	root_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filepath TEXT UNIQUE NOT NULL,
	last_parsed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	content_hash TEXT DEFAULT '',
	language TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS namespaces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	parent_namespace_id INTEGER,
	file_id INTEGER NOT NULL,
	location TEXT NOT NULL,
	full_qualified_name TEXT NOT NULL UNIQUE,
	FOREIGN KEY (parent_namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE,
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_namespaces_name ON namespaces (name);
CREATE INDEX IF NOT EXISTS idx_namespaces_parent_id ON namespaces (parent_namespace_id);

CREATE TABLE IF NOT EXISTS macros (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	body TEXT,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_macro_name ON macros (name);

CREATE TABLE IF NOT EXISTS functions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	return_type TEXT,
	parameters TEXT,
	is_declaration INTEGER NOT NULL,
	is_static INTEGER DEFAULT 0,
	parent_kind TEXT,
	parent_name TEXT,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE,
	FOREIGN KEY (namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_func_name ON functions (name);
CREATE INDEX IF NOT EXISTS idx_func_parent ON functions (parent_name);

CREATE TABLE IF NOT EXISTS structs_unions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT,
	members TEXT,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE,
	FOREIGN KEY (namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_struct_name ON structs_unions (name);

CREATE TABLE IF NOT EXISTS enums (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	name TEXT,
	constants TEXT,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE,
	FOREIGN KEY (namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_enum_name ON enums (name);

CREATE TABLE IF NOT EXISTS typedefs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	underlying_type TEXT,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE,
	FOREIGN KEY (namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_typedef_name ON typedefs (name);

CREATE TABLE IF NOT EXISTS variables (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	namespace_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT,
	is_extern INTEGER DEFAULT 0,
	is_static INTEGER DEFAULT 0,
	has_initializer INTEGER DEFAULT 0,
	location TEXT,
	natural_key TEXT NOT NULL,
	UNIQUE (file_id, natural_key),
	FOREIGN KEY (file_id) REFERENCES files (id) ON DELETE CASCADE,
	FOREIGN KEY (namespace_id) REFERENCES namespaces (id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_var_name ON variables (name);
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaDDL)
	return err
}

// Summary contains store statistics.
type Summary struct {
	Files       int                 `json:"files"`
	Scopes      int                 `json:"scopes"`
	Facts       []KindCount         `json:"facts"`
	SampleNames map[string][]string `json:"sample_names"`
	SampleFQNs  []string            `json:"sample_scopes"`
}

// KindCount is a fact kind with its count.
type KindCount struct {
	Kind  FactKind `json:"kind"`
	Count int      `json:"count"`
}

// GetSummary returns counts per fact kind and a sample of names.
func (s *Store) GetSummary() (*Summary, error) {
	info := &Summary{SampleNames: map[string][]string{}}

	// the sentinel file and root scope are bookkeeping, not content
	if err := s.q.QueryRow("SELECT COUNT(*) FROM files WHERE filepath != ?", GlobalContextFile).Scan(&info.Files); err != nil {
		return nil, fmt.Errorf("summary files: %w", err)
	}
	if err := s.q.QueryRow("SELECT COUNT(*) FROM namespaces WHERE parent_namespace_id IS NOT NULL").Scan(&info.Scopes); err != nil {
		return nil, fmt.Errorf("summary scopes: %w", err)
	}
	counts, err := s.CountFacts(0)
	if err != nil {
		return nil, err
	}
	for _, k := range AllKinds {
		info.Facts = append(info.Facts, KindCount{Kind: k, Count: counts[k]})
		names, err := s.sampleNames(k, 20)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			info.SampleNames[string(k)] = names
		}
	}
	if info.SampleFQNs, err = s.sampleFQNs(10); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Store) sampleNames(kind FactKind, limit int) ([]string, error) {
	t := tables[kind]
	rows, err := s.q.Query(fmt.Sprintf("SELECT DISTINCT name FROM %s WHERE name IS NOT NULL ORDER BY name LIMIT ?", t.name), limit)
	if err != nil {
		return nil, fmt.Errorf("summary sample %s: %w", kind, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) sampleFQNs(limit int) ([]string, error) {
	rows, err := s.q.Query("SELECT full_qualified_name FROM namespaces WHERE parent_namespace_id IS NOT NULL ORDER BY full_qualified_name LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("summary sample scopes: %w", err)
	}
	defer rows.Close()
	var fqns []string
	for rows.Next() {
		var fqn string
		if err := rows.Scan(&fqn); err != nil {
			return nil, err
		}
		fqns = append(fqns, fqn)
	}
	return fqns, rows.Err()
}
