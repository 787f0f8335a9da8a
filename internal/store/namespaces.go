package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeusData/cxxfacts/internal/fqn"
)

const (
	// GlobalContextFile is the sentinel file that owns the root scope.
	GlobalContextFile = "(global_context)"
	// GlobalLocation is the location string stored for the root scope.
	GlobalLocation = "N/A"
)

// Scope is one row of the namespace directory.
type Scope struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id,omitempty"` // 0 for the root
	FileID   int64  `json:"file_id"`
	Location string `json:"location"`
	FQN      string `json:"fqn"`
}

const scopeColumns = "id, name, parent_namespace_id, file_id, location, full_qualified_name"

// Bootstrap seeds the sentinel file and the root scope. Safe to call repeatedly.
func (s *Store) Bootstrap() error {
	if _, err := s.q.Exec("INSERT OR IGNORE INTO files (filepath) VALUES (?)", GlobalContextFile); err != nil {
		return fmt.Errorf("bootstrap file: %w", err)
	}
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO namespaces (name, parent_namespace_id, file_id, location, full_qualified_name)
		SELECT ?, NULL, id, ?, ? FROM files WHERE filepath = ?`,
		fqn.Global, GlobalLocation, fqn.Global, GlobalContextFile)
	if err != nil {
		return fmt.Errorf("bootstrap scope: %w", err)
	}
	return nil
}

// GlobalScope returns the id of the root scope, or ErrNotBootstrapped.
func (s *Store) GlobalScope() (int64, error) {
	var id int64
	err := s.q.QueryRow("SELECT id FROM namespaces WHERE full_qualified_name = ?", fqn.Global).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotBootstrapped
	}
	if err != nil {
		return 0, fmt.Errorf("global scope: %w", err)
	}
	return id, nil
}

// ResolveOrCreate returns the id of the scope named fqnName, inserting it
// under parentID when absent. An existing row is returned unchanged.
func (s *Store) ResolveOrCreate(fqnName, localName string, parentID, fileID int64, location string) (int64, error) {
	var id int64
	err := s.q.QueryRow("SELECT id FROM namespaces WHERE full_qualified_name = ?", fqnName).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup scope %s: %w", fqnName, err)
	}

	// The unique FQN constraint backs up the single-writer rule: a racing
	// insert loses silently and the re-read below returns the winner.
	_, err = s.q.Exec(`
		INSERT INTO namespaces (name, parent_namespace_id, file_id, location, full_qualified_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(full_qualified_name) DO NOTHING`,
		localName, nullInt(parentID), fileID, location, fqnName)
	if err != nil {
		return 0, fmt.Errorf("insert scope %s: %w", fqnName, err)
	}
	if err := s.q.QueryRow("SELECT id FROM namespaces WHERE full_qualified_name = ?", fqnName).Scan(&id); err != nil {
		return 0, fmt.Errorf("reread scope %s: %w", fqnName, err)
	}
	slog.Debug("store.scope.created", "fqn", fqnName, "id", id)
	return id, nil
}

// ScopeByFQN returns a scope by its fully qualified name.
func (s *Store) ScopeByFQN(name string) (*Scope, error) {
	return scanScope(s.q.QueryRow("SELECT "+scopeColumns+" FROM namespaces WHERE full_qualified_name = ?", name))
}

// ScopeByID returns a scope by id.
func (s *Store) ScopeByID(id int64) (*Scope, error) {
	return scanScope(s.q.QueryRow("SELECT "+scopeColumns+" FROM namespaces WHERE id = ?", id))
}

// ListScopes returns every scope whose FQN matches the glob pattern (all
// scopes when pattern is empty), ordered by FQN.
func (s *Store) ListScopes(pattern string) ([]*Scope, error) {
	query := "SELECT " + scopeColumns + " FROM namespaces"
	var args []any
	if pattern != "" {
		query += " WHERE full_qualified_name LIKE ? ESCAPE '\\'"
		args = append(args, globToLike(pattern))
	}
	query += " ORDER BY full_qualified_name"
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()
	return scanScopes(rows)
}

// ChildScopes returns the direct children of a scope.
func (s *Store) ChildScopes(parentID int64) ([]*Scope, error) {
	rows, err := s.q.Query("SELECT "+scopeColumns+" FROM namespaces WHERE parent_namespace_id = ? ORDER BY full_qualified_name", parentID)
	if err != nil {
		return nil, fmt.Errorf("child scopes: %w", err)
	}
	defer rows.Close()
	return scanScopes(rows)
}

// ScopeChain returns the ancestry of id, root first. It fails on a dangling
// parent reference or a cycle.
func (s *Store) ScopeChain(id int64) ([]*Scope, error) {
	var chain []*Scope
	seen := map[int64]bool{}
	for cur := id; cur != 0; {
		if seen[cur] {
			return nil, fmt.Errorf("scope chain: cycle at %d", cur)
		}
		seen[cur] = true
		sc, err := s.ScopeByID(cur)
		if err != nil {
			return nil, fmt.Errorf("scope chain %d: %w", cur, err)
		}
		chain = append(chain, sc)
		cur = sc.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func scanScope(row *sql.Row) (*Scope, error) {
	var sc Scope
	var parent sql.NullInt64
	if err := row.Scan(&sc.ID, &sc.Name, &parent, &sc.FileID, &sc.Location, &sc.FQN); err != nil {
		return nil, err
	}
	sc.ParentID = parent.Int64
	return &sc, nil
}

func scanScopes(rows *sql.Rows) ([]*Scope, error) {
	var result []*Scope
	for rows.Next() {
		var sc Scope
		var parent sql.NullInt64
		if err := rows.Scan(&sc.ID, &sc.Name, &parent, &sc.FileID, &sc.Location, &sc.FQN); err != nil {
			return nil, err
		}
		sc.ParentID = parent.Int64
		result = append(result, &sc)
	}
	return result, rows.Err()
}
