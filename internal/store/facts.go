package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// FactKind names one of the six fact tables.
type FactKind string

const (
	KindMacro         FactKind = "macro"
	KindFunction      FactKind = "function"
	KindStructOrUnion FactKind = "struct_or_union"
	KindEnum          FactKind = "enum"
	KindTypedef       FactKind = "typedef"
	KindVariable      FactKind = "variable"
)

// AllKinds lists the fact kinds in table order.
var AllKinds = []FactKind{KindMacro, KindFunction, KindStructOrUnion, KindEnum, KindTypedef, KindVariable}

// ParseFactKind maps a kind name (as used by AllKinds) back to its FactKind.
func ParseFactKind(s string) (FactKind, error) {
	k := FactKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tables[k]; !ok {
		return "", fmt.Errorf("unknown fact kind %q", s)
	}
	return k, nil
}

// Fact is one extracted symbol. Kind selects which of the kind-specific
// fields are meaningful; the others stay zero.
type Fact struct {
	ID       int64    `json:"id,omitempty"`
	Kind     FactKind `json:"kind"`
	FileID   int64    `json:"file_id"`
	ScopeID  int64    `json:"scope_id,omitempty"` // 0 for macros
	Name     string   `json:"name,omitempty"`     // empty for anonymous records and enums
	Location string   `json:"location"`
	Key      string   `json:"-"`

	// macro; empty when the definition has no replacement tokens
	Body string `json:"body,omitempty"`

	// function
	ReturnType    string `json:"return_type,omitempty"`
	Parameters    string `json:"parameters,omitempty"`
	Signature     string `json:"-"` // parameter types; identity only
	IsDeclaration bool   `json:"is_declaration,omitempty"`
	IsStatic      bool   `json:"is_static,omitempty"`
	ParentKind    string `json:"parent_kind,omitempty"`
	ParentName    string `json:"parent_name,omitempty"`

	// struct_or_union
	RecordKind string `json:"record_kind,omitempty"`
	Members    string `json:"members,omitempty"`

	// enum
	Constants string `json:"constants,omitempty"`

	// typedef
	UnderlyingType string `json:"underlying_type,omitempty"`

	// variable
	Type           string `json:"type,omitempty"`
	IsExtern       bool   `json:"is_extern,omitempty"`
	HasInitializer bool   `json:"has_initializer,omitempty"`

	// filled by FindFacts only
	FilePath string `json:"file,omitempty"`
	ScopeFQN string `json:"scope,omitempty"`
}

// NaturalKey is the identity of a fact within its file. Re-reconciling a
// fact with the same key updates the existing row instead of adding one.
func (f *Fact) NaturalKey() string {
	switch f.Kind {
	case KindMacro:
		return f.Name
	case KindFunction:
		return fmt.Sprintf("%d|%s|%s(%s)", f.ScopeID, f.ParentName, f.Name, f.Signature)
	case KindStructOrUnion:
		if f.Name == "" {
			return fmt.Sprintf("%d|%s|@%s", f.ScopeID, f.RecordKind, f.Location)
		}
		return fmt.Sprintf("%d|%s|%s", f.ScopeID, f.RecordKind, f.Name)
	case KindEnum:
		if f.Name == "" {
			return fmt.Sprintf("%d|@%s", f.ScopeID, f.Location)
		}
		return fmt.Sprintf("%d|%s", f.ScopeID, f.Name)
	default:
		return fmt.Sprintf("%d|%s", f.ScopeID, f.Name)
	}
}

// table describes how one fact kind maps onto its SQL table.
type table struct {
	name   string
	scoped bool     // has namespace_id
	cols   []string // kind-specific columns, in values/dest order
	// selects renders cols for reading; nullable text is coalesced
	selects []string
	values  func(f *Fact) []any
	dest    func(f *Fact) []any
	// merge is the DO UPDATE SET clause applied on a natural-key conflict
	merge string
}

var tables = map[FactKind]*table{
	KindMacro: {
		name:    "macros",
		cols:    []string{"name", "body"},
		selects: []string{"t.name", "COALESCE(t.body, '')"},
		values:  func(f *Fact) []any { return []any{f.Name, nullString(f.Body)} },
		dest:    func(f *Fact) []any { return []any{&f.Name, &f.Body} },
		merge:   "body = excluded.body, location = excluded.location",
	},
	KindFunction: {
		name:   "functions",
		scoped: true,
		cols:   []string{"name", "return_type", "parameters", "is_declaration", "is_static", "parent_kind", "parent_name"},
		selects: []string{"t.name", "COALESCE(t.return_type, '')", "COALESCE(t.parameters, '')",
			"t.is_declaration", "t.is_static", "COALESCE(t.parent_kind, '')", "COALESCE(t.parent_name, '')"},
		values: func(f *Fact) []any {
			return []any{f.Name, f.ReturnType, f.Parameters, boolInt(f.IsDeclaration), boolInt(f.IsStatic),
				nullString(f.ParentKind), nullString(f.ParentName)}
		},
		dest: func(f *Fact) []any {
			return []any{&f.Name, &f.ReturnType, &f.Parameters, &f.IsDeclaration, &f.IsStatic, &f.ParentKind, &f.ParentName}
		},
		// a definition, once seen, keeps its location and parameter names
		merge: `is_declaration = MIN(is_declaration, excluded.is_declaration),
			is_static = MAX(is_static, excluded.is_static),
			return_type = excluded.return_type,
			parent_kind = excluded.parent_kind,
			parent_name = excluded.parent_name,
			location = CASE WHEN excluded.is_declaration = 0 OR is_declaration = 1 THEN excluded.location ELSE location END,
			parameters = CASE WHEN excluded.is_declaration = 0 OR is_declaration = 1 THEN excluded.parameters ELSE parameters END`,
	},
	KindStructOrUnion: {
		name:    "structs_unions",
		scoped:  true,
		cols:    []string{"kind", "name", "members"},
		selects: []string{"t.kind", "COALESCE(t.name, '')", "COALESCE(t.members, '')"},
		values:  func(f *Fact) []any { return []any{f.RecordKind, nullString(f.Name), f.Members} },
		dest:    func(f *Fact) []any { return []any{&f.RecordKind, &f.Name, &f.Members} },
		merge:   "members = excluded.members, location = excluded.location",
	},
	KindEnum: {
		name:    "enums",
		scoped:  true,
		cols:    []string{"name", "constants"},
		selects: []string{"COALESCE(t.name, '')", "COALESCE(t.constants, '')"},
		values:  func(f *Fact) []any { return []any{nullString(f.Name), f.Constants} },
		dest:    func(f *Fact) []any { return []any{&f.Name, &f.Constants} },
		merge:   "constants = excluded.constants, location = excluded.location",
	},
	KindTypedef: {
		name:    "typedefs",
		scoped:  true,
		cols:    []string{"name", "underlying_type"},
		selects: []string{"t.name", "COALESCE(t.underlying_type, '')"},
		values:  func(f *Fact) []any { return []any{f.Name, f.UnderlyingType} },
		dest:    func(f *Fact) []any { return []any{&f.Name, &f.UnderlyingType} },
		merge:   "underlying_type = excluded.underlying_type, location = excluded.location",
	},
	KindVariable: {
		name:    "variables",
		scoped:  true,
		cols:    []string{"name", "type", "is_extern", "is_static", "has_initializer"},
		selects: []string{"t.name", "COALESCE(t.type, '')", "t.is_extern", "t.is_static", "t.has_initializer"},
		values: func(f *Fact) []any {
			return []any{f.Name, f.Type, boolInt(f.IsExtern), boolInt(f.IsStatic), boolInt(f.HasInitializer)}
		},
		dest: func(f *Fact) []any {
			return []any{&f.Name, &f.Type, &f.IsExtern, &f.IsStatic, &f.HasInitializer}
		},
		// a non-extern declaration is the definition and owns the location
		merge: `is_extern = MIN(is_extern, excluded.is_extern),
			is_static = MAX(is_static, excluded.is_static),
			has_initializer = MAX(has_initializer, excluded.has_initializer),
			type = excluded.type,
			location = CASE WHEN excluded.is_extern = 0 OR is_extern = 1 THEN excluded.location ELSE location END`,
	},
}

// upsertSQL builds the reconcile statement for t.
func (t *table) upsertSQL() string {
	cols := []string{"file_id"}
	if t.scoped {
		cols = append(cols, "namespace_id")
	}
	cols = append(cols, "natural_key", "location")
	cols = append(cols, t.cols...)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT(file_id, natural_key) DO UPDATE SET %s
		RETURNING id`, t.name, strings.Join(cols, ", "), marks, t.merge)
}

// selectSQL returns the column list for reading rows of t aliased as "t".
func (t *table) selectSQL() string {
	scope := "0"
	if t.scoped {
		scope = "t.namespace_id"
	}
	cols := append([]string{"t.id", "t.file_id", scope, "COALESCE(t.location, '')", "t.natural_key"}, t.selects...)
	return strings.Join(cols, ", ")
}

func (t *table) scan(sc interface{ Scan(...any) error }, kind FactKind, extra ...any) (*Fact, error) {
	f := &Fact{Kind: kind}
	dest := append([]any{&f.ID, &f.FileID, &f.ScopeID, &f.Location, &f.Key}, t.dest(f)...)
	dest = append(dest, extra...)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	return f, nil
}

// ReconcileFact inserts f, or merges it into the row of the same file with
// the same natural key. Returns the row id.
func (s *Store) ReconcileFact(f *Fact) (int64, error) {
	t, ok := tables[f.Kind]
	if !ok {
		return 0, fmt.Errorf("reconcile: unknown fact kind %q", f.Kind)
	}
	if t.scoped && f.ScopeID == 0 {
		return 0, fmt.Errorf("reconcile %s %q: missing scope", f.Kind, f.Name)
	}
	args := []any{f.FileID}
	if t.scoped {
		args = append(args, f.ScopeID)
	}
	args = append(args, f.NaturalKey(), nullString(f.Location))
	args = append(args, t.values(f)...)

	var id int64
	if err := s.q.QueryRow(t.upsertSQL(), args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("reconcile %s %q: %w", f.Kind, f.Name, err)
	}
	f.ID = id
	return id, nil
}

// ClearFacts deletes every fact owned by fileID across all kinds.
func (s *Store) ClearFacts(fileID int64) error {
	for _, k := range AllKinds {
		if _, err := s.q.Exec("DELETE FROM "+tables[k].name+" WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("clear %s: %w", tables[k].name, err)
		}
	}
	return nil
}

// FactsByFile returns the facts of one file grouped by kind, each group
// ordered by natural key.
func (s *Store) FactsByFile(fileID int64) ([]*Fact, error) {
	var result []*Fact
	for _, k := range AllKinds {
		t := tables[k]
		rows, err := s.q.Query(fmt.Sprintf("SELECT %s FROM %s t WHERE t.file_id = ? ORDER BY t.natural_key", t.selectSQL(), t.name), fileID)
		if err != nil {
			return nil, fmt.Errorf("facts by file: %w", err)
		}
		facts, err := scanFacts(rows, t, k)
		if err != nil {
			return nil, err
		}
		result = append(result, facts...)
	}
	return result, nil
}

func scanFacts(rows *sql.Rows, t *table, k FactKind) ([]*Fact, error) {
	defer rows.Close()
	var result []*Fact
	for rows.Next() {
		f, err := t.scan(rows, k)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// CountFacts returns per-kind fact counts, for one file or all files when
// fileID is 0.
func (s *Store) CountFacts(fileID int64) (map[FactKind]int, error) {
	counts := make(map[FactKind]int, len(AllKinds))
	for _, k := range AllKinds {
		query := "SELECT COUNT(*) FROM " + tables[k].name
		var args []any
		if fileID != 0 {
			query += " WHERE file_id = ?"
			args = append(args, fileID)
		}
		var n int
		if err := s.q.QueryRow(query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", k, err)
		}
		counts[k] = n
	}
	return counts, nil
}
