// Package extract walks a translation unit and records its symbols.
//
// The walker visits cursors depth-first in pre-order. Cursors located in
// another file (headers pulled in by #include) are pruned together with
// their subtrees. Namespaces open a scope: their fully qualified name is
// resolved to a scope id through the Sink and becomes the owner of every
// fact found below them. Every other cursor is classified and, when
// eligible, reconciled as exactly one fact.
//
// Attribute-level failures (an unavailable parameter list, an enumerator
// whose value cannot be computed) never abort the walk: the attribute is
// replaced by a placeholder and counted in Stats.Degraded. Sink errors
// abort the walk and are returned.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/format"
	"github.com/DeusData/cxxfacts/internal/fqn"
	"github.com/DeusData/cxxfacts/internal/store"
)

// Sink receives scopes and facts. *store.Store satisfies it.
type Sink interface {
	ResolveOrCreate(fqnName, localName string, parentID, fileID int64, location string) (int64, error)
	ReconcileFact(f *store.Fact) (int64, error)
}

// Stats summarizes one walk.
type Stats struct {
	Facts    map[store.FactKind]int `json:"facts"`
	Scopes   int                    `json:"scopes"`   // namespace cursors entered
	Pruned   int                    `json:"pruned"`   // subtrees skipped as foreign
	Degraded int                    `json:"degraded"` // attributes replaced by placeholders
}

// Total is the number of facts recorded.
func (s Stats) Total() int {
	n := 0
	for _, c := range s.Facts {
		n += c
	}
	return n
}

// Extractor records the facts of one file.
type Extractor struct {
	Sink       Sink
	FileID     int64
	TargetPath string
}

// New returns an Extractor for the file with the given id and path.
func New(sink Sink, fileID int64, targetPath string) *Extractor {
	return &Extractor{Sink: sink, FileID: fileID, TargetPath: filepath.Clean(targetPath)}
}

// work is one pending cursor together with the scope stack it is visited in.
type work struct {
	cursor ast.Cursor
	scopes fqn.Stack
}

// checkEvery is how many cursors are visited between context checks.
const checkEvery = 256

// ExtractAndStore walks root with initial as the enclosing scope stack.
// initial must not be empty; its top is the owner of file-level facts.
func (e *Extractor) ExtractAndStore(ctx context.Context, root ast.Cursor, initial fqn.Stack) (Stats, error) {
	stats := Stats{Facts: map[store.FactKind]int{}}
	if initial.Empty() {
		return stats, fmt.Errorf("extract %s: empty scope stack", e.TargetPath)
	}

	pending := []work{{cursor: root, scopes: initial}}
	visited := 0
	for len(pending) > 0 {
		item := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		visited++
		if visited%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		c := item.cursor
		if e.foreign(c) {
			stats.Pruned++
			continue
		}

		scopes := item.scopes
		if c.Kind().IsScope() {
			next, err := e.enterScope(c, scopes)
			if err != nil {
				return stats, err
			}
			stats.Scopes++
			scopes = next
		} else if f := e.classify(c, scopes.Top(), &stats); f != nil {
			if _, err := e.Sink.ReconcileFact(f); err != nil {
				return stats, fmt.Errorf("extract %s: %w", e.TargetPath, err)
			}
			stats.Facts[f.Kind]++
		}

		// reverse push keeps pre-order
		kids := c.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			pending = append(pending, work{cursor: kids[i], scopes: scopes})
		}
	}
	return stats, nil
}

// foreign reports whether c has a location in a file other than the target.
// Cursors without a location are kept.
func (e *Extractor) foreign(c ast.Cursor) bool {
	loc, ok := c.Location()
	if !ok || loc.File == "" {
		return false
	}
	return filepath.Clean(loc.File) != e.TargetPath
}

func (e *Extractor) enterScope(c ast.Cursor, scopes fqn.Stack) (fqn.Stack, error) {
	top := scopes.Top()
	name := c.Spelling()
	anonymous := name == ""
	loc, _ := c.Location()
	full := fqn.Compute(top.FQN, name, anonymous, e.TargetPath, loc)
	local := name
	if anonymous {
		local = fqn.AnonymousName
	}
	id, err := e.Sink.ResolveOrCreate(full, local, top.ScopeID, e.FileID, format.CursorLocation(c))
	if err != nil {
		return scopes, fmt.Errorf("extract %s: scope %s: %w", e.TargetPath, full, err)
	}
	return scopes.Push(fqn.Frame{ScopeID: id, FQN: full}), nil
}

// placement describes where a cursor sits relative to its semantic parent.
type placement struct {
	fileScope  bool // parent is the translation unit or a namespace
	classScope bool // parent is a class, struct or namespace
	parentKind ast.CursorKind
	parentName string
}

func placementOf(c ast.Cursor) placement {
	parent := c.SemanticParent()
	if parent == nil {
		return placement{}
	}
	pk := parent.Kind()
	p := placement{
		fileScope:  pk == ast.TranslationUnit || pk == ast.Namespace,
		classScope: pk == ast.ClassDecl || pk == ast.StructDecl || pk == ast.Namespace,
		parentKind: pk,
	}
	if p.classScope {
		p.parentName = parent.Spelling()
	}
	return p
}

// classify turns c into a fact owned by scope, or returns nil when c is not
// an eligible fact.
func (e *Extractor) classify(c ast.Cursor, scope fqn.Frame, stats *Stats) *store.Fact {
	kind := c.Kind()
	if kind == ast.MacroDefinition {
		return e.macro(c)
	}

	p := placementOf(c)
	switch {
	case kind.IsFunctionLike() && (p.fileScope || p.classScope):
		return e.function(c, scope, p, stats)
	case kind == ast.VarDecl && p.fileScope:
		return e.variable(c, scope)
	case kind.IsRecord() && p.fileScope && c.IsDefinition():
		return e.record(c, scope)
	case kind == ast.EnumDecl && p.fileScope && c.IsDefinition():
		return e.enum(c, scope, stats)
	case (kind == ast.TypedefDecl || kind == ast.TypeAliasDecl) && p.fileScope:
		return e.typedef(c, scope, stats)
	}
	return nil
}

func (e *Extractor) base(kind store.FactKind, c ast.Cursor, scope fqn.Frame) *store.Fact {
	return &store.Fact{
		Kind:     kind,
		FileID:   e.FileID,
		ScopeID:  scope.ScopeID,
		Name:     c.Spelling(),
		Location: format.CursorLocation(c),
	}
}

func (e *Extractor) macro(c ast.Cursor) *store.Fact {
	if c.Spelling() == "" {
		return nil
	}
	body, _ := format.MacroBody(c.Tokens())
	f := e.base(store.KindMacro, c, fqn.Frame{})
	f.Body = body
	return f
}

func (e *Extractor) function(c ast.Cursor, scope fqn.Frame, p placement, stats *Stats) *store.Fact {
	if c.Spelling() == "" {
		return nil
	}
	params := format.FunctionParams(c)
	if params.Degraded {
		e.degraded(stats, c, "parameters", params.Text)
	}
	f := e.base(store.KindFunction, c, scope)
	f.ReturnType = format.ReturnType(c, p.parentKind, p.parentName)
	f.Parameters = params.Text
	f.Signature = signature(c, params)
	f.IsDeclaration = !c.IsDefinition()
	f.IsStatic = c.StorageClass() == ast.StorageStatic
	if p.classScope {
		f.ParentKind = p.parentKind.String()
		f.ParentName = p.parentName
	}
	return f
}

// signature is the parameter type list used to tell overloads apart.
func signature(c ast.Cursor, params format.Params) string {
	types, err := c.Type().ArgTypes()
	if err != nil {
		return params.Text
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.Spelling()
	}
	return strings.Join(parts, ",")
}

func (e *Extractor) variable(c ast.Cursor, scope fqn.Frame) *store.Fact {
	if c.Spelling() == "" {
		return nil
	}
	f := e.base(store.KindVariable, c, scope)
	f.Type = c.Type().Spelling()
	f.IsExtern = c.StorageClass() == ast.StorageExtern
	f.IsStatic = c.StorageClass() == ast.StorageStatic
	f.HasInitializer = format.HasInitializer(c)
	return f
}

func (e *Extractor) record(c ast.Cursor, scope fqn.Frame) *store.Fact {
	f := e.base(store.KindStructOrUnion, c, scope)
	switch c.Kind() {
	case ast.UnionDecl:
		f.RecordKind = "union"
	case ast.ClassDecl:
		f.RecordKind = "class"
	default:
		f.RecordKind = "struct"
	}
	f.Members = format.StructMembers(c)
	return f
}

func (e *Extractor) enum(c ast.Cursor, scope fqn.Frame, stats *Stats) *store.Fact {
	f := e.base(store.KindEnum, c, scope)
	constants, unknown := format.EnumConstants(c)
	for i := 0; i < unknown; i++ {
		e.degraded(stats, c, "constants", format.UnknownValue)
	}
	f.Constants = constants
	return f
}

func (e *Extractor) typedef(c ast.Cursor, scope fqn.Frame, stats *Stats) *store.Fact {
	if c.Spelling() == "" {
		return nil
	}
	f := e.base(store.KindTypedef, c, scope)
	underlying, ok := format.UnderlyingType(c)
	if !ok {
		e.degraded(stats, c, "underlying_type", underlying)
	}
	f.UnderlyingType = underlying
	return f
}

func (e *Extractor) degraded(stats *Stats, c ast.Cursor, attr, placeholder string) {
	stats.Degraded++
	slog.Debug("extract.degraded",
		"file", e.TargetPath,
		"kind", c.Kind().String(),
		"name", c.Spelling(),
		"attr", attr,
		"placeholder", placeholder,
		"at", format.CursorLocation(c))
}
