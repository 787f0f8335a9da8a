package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// File is one processed source file.
type File struct {
	ID           int64  `json:"id"`
	Path         string `json:"path"`
	LastParsedAt string `json:"last_parsed_at"`
	ContentHash  string `json:"content_hash,omitempty"`
	Language     string `json:"language,omitempty"`
}

const fileColumns = "id, filepath, COALESCE(last_parsed_at, ''), COALESCE(content_hash, ''), COALESCE(language, '')"

// BeginFile registers path for (re-)processing. A known file gets a fresh
// timestamp and loses every fact it owned; scopes are left alone.
func (s *Store) BeginFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs %s: %w", path, err)
	}
	f, err := s.FileByPath(abs)
	switch {
	case err == nil:
		f.LastParsedAt = Now()
		if _, err := s.q.Exec("UPDATE files SET last_parsed_at = ? WHERE id = ?", f.LastParsedAt, f.ID); err != nil {
			return nil, fmt.Errorf("touch file: %w", err)
		}
		if err := s.ClearFacts(f.ID); err != nil {
			return nil, err
		}
		slog.Debug("store.begin_file", "path", abs, "id", f.ID, "existing", true)
		return f, nil
	case errors.Is(err, sql.ErrNoRows):
		now := Now()
		res, err := s.q.Exec("INSERT INTO files (filepath, last_parsed_at) VALUES (?, ?)", abs, now)
		if err != nil {
			return nil, fmt.Errorf("insert file: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		slog.Debug("store.begin_file", "path", abs, "id", id, "existing", false)
		return &File{ID: id, Path: abs, LastParsedAt: now}, nil
	default:
		return nil, fmt.Errorf("lookup file: %w", err)
	}
}

// SetFileHash records the content hash and language used for a file.
func (s *Store) SetFileHash(fileID int64, hash, language string) error {
	_, err := s.q.Exec("UPDATE files SET content_hash = ?, language = ? WHERE id = ?", hash, language, fileID)
	if err != nil {
		return fmt.Errorf("set file hash: %w", err)
	}
	return nil
}

// FileByPath looks a file up by absolute path. Returns sql.ErrNoRows when unknown.
func (s *Store) FileByPath(path string) (*File, error) {
	var f File
	err := s.q.QueryRow("SELECT "+fileColumns+" FROM files WHERE filepath = ?", path).
		Scan(&f.ID, &f.Path, &f.LastParsedAt, &f.ContentHash, &f.Language)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles returns all source files, excluding the sentinel, ordered by path.
func (s *Store) ListFiles() ([]*File, error) {
	rows, err := s.q.Query("SELECT "+fileColumns+" FROM files WHERE filepath != ? ORDER BY filepath", GlobalContextFile)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var result []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Path, &f.LastParsedAt, &f.ContentHash, &f.Language); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	return result, rows.Err()
}

// FileHashes returns path → content hash for every source file.
func (s *Store) FileHashes() (map[string]string, error) {
	files, err := s.ListFiles()
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(files))
	for _, f := range files {
		result[f.Path] = f.ContentHash
	}
	return result, nil
}

// DeleteFile removes a file and, by cascade, its facts. Scopes first
// created by the file are re-homed to the sentinel so the tree survives.
func (s *Store) DeleteFile(path string) error {
	if path == GlobalContextFile {
		return fmt.Errorf("delete file: %s is reserved", path)
	}
	f, err := s.FileByPath(path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup file: %w", err)
	}
	_, err = s.q.Exec(`
		UPDATE namespaces SET file_id = (SELECT id FROM files WHERE filepath = ?)
		WHERE file_id = ?`, GlobalContextFile, f.ID)
	if err != nil {
		return fmt.Errorf("rehome scopes: %w", err)
	}
	if _, err := s.q.Exec("DELETE FROM files WHERE id = ?", f.ID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	slog.Debug("store.delete_file", "path", path, "id", f.ID)
	return nil
}
