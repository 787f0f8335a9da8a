package store

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// FactQuery defines structured fact search parameters.
type FactQuery struct {
	Kinds       []FactKind // empty means all kinds
	NamePattern string     // regex, matched against the name
	FilePattern string     // glob on the path; relative globs match any trailing path
	ScopeFQN    string     // exact scope; empty means any
	// Recursive widens ScopeFQN to the scope and all of its descendants.
	Recursive bool
	Limit     int
	Offset    int
}

// FactSearch wraps search results with total count for pagination.
type FactSearch struct {
	Facts []*Fact `json:"facts"`
	Total int     `json:"total"`
}

// FindFacts executes a parameterized search query with pagination support.
func (s *Store) FindFacts(params FactQuery) (*FactSearch, error) {
	// Limit=0 means use default; use a high ceiling for SQL
	if params.Limit <= 0 {
		params.Limit = 100000
	}
	kinds := params.Kinds
	if len(kinds) == 0 {
		kinds = AllKinds
	}

	var re *regexp.Regexp
	if params.NamePattern != "" {
		var err error
		if re, err = regexp.Compile(params.NamePattern); err != nil {
			return nil, fmt.Errorf("invalid name pattern: %w", err)
		}
	}

	var all []*Fact
	for _, k := range kinds {
		t, ok := tables[k]
		if !ok {
			return nil, fmt.Errorf("unknown fact kind %q", k)
		}
		facts, err := s.findInTable(t, k, params)
		if err != nil {
			return nil, err
		}
		for _, f := range facts {
			if re != nil && !re.MatchString(f.Name) {
				continue
			}
			all = append(all, f)
		}
	}

	total := len(all)

	// Apply offset and limit
	start := max(params.Offset, 0)
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return &FactSearch{Facts: all[start:end], Total: total}, nil
}

func (s *Store) findInTable(t *table, k FactKind, params FactQuery) ([]*Fact, error) {
	var conditions []string
	var args []any

	if params.FilePattern != "" {
		conditions = append(conditions, "f.filepath LIKE ? ESCAPE '\\'")
		args = append(args, pathLike(params.FilePattern))
	}
	if params.ScopeFQN != "" {
		if !t.scoped {
			// macros live outside every scope
			return nil, nil
		}
		if params.Recursive {
			conditions = append(conditions, "(n.full_qualified_name = ? OR n.full_qualified_name LIKE ? ESCAPE '\\')")
			args = append(args, params.ScopeFQN, escapeLike(params.ScopeFQN)+"::%")
		} else {
			conditions = append(conditions, "n.full_qualified_name = ?")
			args = append(args, params.ScopeFQN)
		}
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	scopeJoin, scopeCol := "", "''"
	if t.scoped {
		scopeJoin = "LEFT JOIN namespaces n ON n.id = t.namespace_id"
		scopeCol = "COALESCE(n.full_qualified_name, '')"
	}
	query := fmt.Sprintf(`
		SELECT %s, f.filepath, %s
		FROM %s t
		JOIN files f ON f.id = t.file_id
		%s
		%s
		ORDER BY f.filepath, t.natural_key`, t.selectSQL(), scopeCol, t.name, scopeJoin, where)

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", k, err)
	}
	defer rows.Close()

	var result []*Fact
	for rows.Next() {
		var path, scope string
		f, err := t.scan(rows, k, &path, &scope)
		if err != nil {
			return nil, err
		}
		f.FilePath, f.ScopeFQN = path, scope
		result = append(result, f)
	}
	return result, rows.Err()
}

// globToLike converts a glob to a LIKE pattern for use with ESCAPE '\'.
// '*' and '**' become '%' and '?' becomes '_'. An inner "**/" also matches
// no directories at all; a leading one matches from any directory boundary.
// Literal LIKE wildcards are escaped.
func globToLike(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			start := i
			for i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
			}
			b.WriteByte('%')
			if i > start && i+1 < len(pattern) && pattern[i+1] == '/' {
				i++
				if start == 0 {
					b.WriteByte('/')
				}
			}
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// pathLike converts a file glob to a LIKE pattern over absolute paths. A
// relative glob such as "include/*.h" matches at any directory boundary.
func pathLike(pattern string) string {
	like := globToLike(filepath.ToSlash(pattern))
	if filepath.IsAbs(pattern) || strings.HasPrefix(like, "%") {
		return like
	}
	return "%/" + like
}

// escapeLike escapes LIKE wildcards so s matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}
