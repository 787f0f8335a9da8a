package store

// Project is an indexed source root recorded in its database.
type Project struct {
	Name      string `json:"name"`
	IndexedAt string `json:"indexed_at"`
	RootPath  string `json:"root_path"`
}

// UpsertProject creates or updates a project record.
func (s *Store) UpsertProject(name, rootPath string) error {
	_, err := s.q.Exec(`
		INSERT INTO projects (name, indexed_at, root_path) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path`,
		name, Now(), rootPath)
	return err
}

// GetProject returns a project by name.
func (s *Store) GetProject(name string) (*Project, error) {
	var p Project
	err := s.q.QueryRow("SELECT name, indexed_at, root_path FROM projects WHERE name=?", name).
		Scan(&p.Name, &p.IndexedAt, &p.RootPath)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects recorded in this database.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.q.Query("SELECT name, indexed_at, root_path FROM projects ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.Name, &p.IndexedAt, &p.RootPath); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}
