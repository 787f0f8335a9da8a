package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/lang"
	"github.com/DeusData/cxxfacts/internal/parser"
)

// scope is the declaration context of the items being built.
type scope struct {
	parent     *cursor  // semantic parent of declarations here
	record     *cursor  // enclosing record when inside a class body
	path       []string // names of enclosing namespaces and records
	templated  bool     // the item is the body of a template declaration
	skipBodies bool
}

func (s scope) enter(parent *cursor, record *cursor, name string) scope {
	path := s.path
	if name != "" {
		path = append(append([]string(nil), s.path...), name)
	}
	return scope{parent: parent, record: record, path: path, skipBodies: s.skipBodies}
}

type enumResult struct {
	value int64
	err   error
}

type builder struct {
	ctx      context.Context
	opts     Options
	language lang.Language

	tu          *cursor
	diags       []ast.Diagnostic
	records     map[string]*cursor
	enumerators map[string]enumResult
	macros      map[string]string
	expanding   map[string]bool
	included    map[string]bool
	includes    []string
	depth       int
	err         error
}

func newBuilder(ctx context.Context, opts Options, path string) *builder {
	b := &builder{
		ctx:         ctx,
		opts:        opts,
		language:    opts.Language,
		tu:          &cursor{kind: ast.TranslationUnit, spelling: path},
		records:     make(map[string]*cursor),
		enumerators: make(map[string]enumResult),
		macros:      predefinedMacros(opts.Language, opts.Std),
		expanding:   make(map[string]bool),
		included:    map[string]bool{path: true},
	}
	return b
}

func (b *builder) diag(sev ast.Severity, loc ast.Location, format string, args ...any) {
	b.diags = append(b.diags, ast.Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...), Location: loc})
}

// commandLine turns -D style definitions into macro cursors located in the
// pseudo file <command line>.
func (b *builder) commandLine() []*cursor {
	var out []*cursor
	for i, def := range b.opts.Defines {
		name, value, ok := strings.Cut(def, "=")
		if !ok {
			value = "1"
		}
		line := "#define " + name + " " + value
		const col = len("#define ") + 1
		spelling, _, _ := strings.Cut(name, "(")
		if spelling == "" {
			continue
		}
		out = append(out, &cursor{
			kind:       ast.MacroDefinition,
			spelling:   spelling,
			loc:        ast.Location{File: CommandLineFile, Line: i + 1, Column: col},
			hasLoc:     true,
			parent:     b.tu,
			definition: true,
			tokens:     lexTokens(CommandLineFile, []byte(line), col-1, uint(len(line)), i+1, col),
		})
		b.macros[spelling] = value
	}
	return out
}

// parseFile parses one file of the unit and builds its items into sc.
func (b *builder) parseFile(path string, src []byte, sc scope) ([]*cursor, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	tree, err := parser.Parse(b.language, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &sourceFile{path: path, src: src}
	root := tree.RootNode()
	if root.HasError() {
		b.syntaxErrors(f, root)
	}
	return b.items(f, root, sc), nil
}

func (b *builder) syntaxErrors(f *sourceFile, root *tree_sitter.Node) {
	parser.Walk(root, func(n *tree_sitter.Node) bool {
		switch {
		case n.IsMissing():
			b.diag(ast.SeverityError, f.loc(n), "expected '%s'", n.Kind())
			return false
		case n.IsError():
			text := normalizeSpace(f.text(n))
			if len(text) > 32 {
				text = text[:32] + "..."
			}
			b.diag(ast.SeverityError, f.loc(n), "syntax error near '%s'", text)
			return false
		}
		return n.HasError()
	})
}

func (b *builder) items(f *sourceFile, container *tree_sitter.Node, sc scope) []*cursor {
	var out []*cursor
	for i := uint(0); i < container.NamedChildCount() && b.err == nil; i++ {
		if child := container.NamedChild(i); child != nil {
			out = append(out, b.item(f, child, sc)...)
		}
	}
	return out
}

func (b *builder) item(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	switch n.Kind() {
	case "preproc_def", "preproc_function_def":
		return []*cursor{b.macro(f, n)}
	case "preproc_call":
		if strings.TrimSpace(f.text(n.ChildByFieldName("directive"))) == "#undef" {
			delete(b.macros, strings.TrimSpace(f.text(n.ChildByFieldName("argument"))))
		}
	case "preproc_include":
		return b.include(f, n, sc)
	case "preproc_if", "preproc_ifdef", "preproc_elif", "preproc_elifdef", "preproc_else":
		return b.conditional(f, n, sc)
	case "namespace_definition":
		return b.namespace(f, n, sc)
	case "linkage_specification":
		return b.linkage(f, n, sc)
	case "template_declaration":
		var out []*cursor
		inner := sc
		inner.templated = true
		for i := uint(0); i < n.NamedChildCount(); i++ {
			ch := n.NamedChild(i)
			if ch != nil && ch.Kind() != "template_parameter_list" {
				out = append(out, b.item(f, ch, inner)...)
			}
		}
		return out
	case "function_definition":
		if fn := b.functionDefinition(f, n, sc); fn != nil {
			return []*cursor{fn}
		}
	case "declaration", "field_declaration":
		return b.declaration(f, n, sc)
	case "type_definition":
		return b.typedef(f, n, sc)
	case "alias_declaration":
		return []*cursor{b.alias(f, n, sc)}
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		return []*cursor{b.tag(f, n, sc, "")}
	}
	return nil
}

func (b *builder) macro(f *sourceFile, n *tree_sitter.Node) *cursor {
	nameNode := n.ChildByFieldName("name")
	name := f.text(nameNode)
	loc := f.loc(nameNode)
	b.macros[name] = strings.TrimSpace(f.text(n.ChildByFieldName("value")))
	return &cursor{
		kind:       ast.MacroDefinition,
		spelling:   name,
		loc:        loc,
		hasLoc:     true,
		parent:     b.tu,
		definition: true,
		tokens:     lexTokens(f.path, f.src, nameNode.StartByte(), n.EndByte(), loc.Line, loc.Column),
	}
}

// include emits the inclusion directive and splices the resolved header's
// items after it. Each header is spliced at most once per unit, which also
// breaks include cycles.
func (b *builder) include(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	name := strings.Trim(f.text(pathNode), "\"<>")
	directive := b.extent(f, n, &cursor{
		kind:     ast.InclusionDirective,
		spelling: name,
		loc:      f.loc(n),
		hasLoc:   true,
		parent:   sc.parent,
	})
	out := []*cursor{directive}

	quoted := pathNode.Kind() == "string_literal"
	resolved, ok := b.resolveInclude(f.path, name, quoted)
	if !ok {
		if quoted {
			b.diag(ast.SeverityError, directive.loc, "'%s' file not found", name)
		}
		return out
	}
	if b.included[resolved] {
		return out
	}
	if b.depth >= b.opts.MaxIncludeDepth {
		b.diag(ast.SeverityError, directive.loc, "#include nested depth %d exceeds maximum of %d", b.depth+1, b.opts.MaxIncludeDepth)
		return out
	}
	b.included[resolved] = true
	b.includes = append(b.includes, resolved)

	src, err := os.ReadFile(resolved)
	if err != nil {
		b.diag(ast.SeverityError, directive.loc, "cannot read '%s': %v", name, err)
		return out
	}
	b.depth++
	inner := sc
	inner.skipBodies = true
	inner.templated = false
	items, err := b.parseFile(resolved, src, inner)
	b.depth--
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			b.err = err
		} else {
			b.diag(ast.SeverityError, directive.loc, "%v", err)
		}
		return out
	}
	return append(out, items...)
}

func (b *builder) resolveInclude(from, name string, quoted bool) (string, bool) {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		if quoted {
			candidates = append(candidates, filepath.Join(filepath.Dir(from), name))
		}
		for _, dir := range b.opts.IncludePaths {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(c); err == nil {
			return filepath.Clean(abs), true
		}
	}
	return "", false
}

// conditional keeps the branch of a preprocessor conditional that the
// macros known so far select. Conditions that cannot be evaluated take the
// first branch.
func (b *builder) conditional(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	if !b.branchTaken(f, n) {
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			return b.item(f, alt, sc)
		}
		return nil
	}
	var out []*cursor
	for i := uint(0); i < n.ChildCount() && b.err == nil; i++ {
		ch := n.Child(i)
		if ch == nil || !ch.IsNamed() {
			continue
		}
		switch n.FieldNameForChild(uint32(i)) {
		case "name", "condition", "alternative":
			continue
		}
		out = append(out, b.item(f, ch, sc)...)
	}
	return out
}

func (b *builder) branchTaken(f *sourceFile, n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "preproc_else":
		return true
	case "preproc_ifdef", "preproc_elifdef":
		_, defined := b.macros[f.text(n.ChildByFieldName("name"))]
		directive := strings.TrimSpace(f.text(n.Child(0)))
		if strings.HasSuffix(directive, "ndef") {
			return !defined
		}
		return defined
	}
	ev := &evaluator{
		f: f,
		defined: func(name string) bool {
			_, ok := b.macros[name]
			return ok
		},
	}
	// undefined identifiers are 0 inside #if
	ev.lookup = func(name string) (int64, error) {
		body, ok := b.macros[name]
		if !ok || body == "" {
			return 0, nil
		}
		return b.macroValue(name, body, ev)
	}
	v, err := ev.eval(n.ChildByFieldName("condition"))
	if err != nil {
		return true
	}
	return v != 0
}

// macroValue evaluates the replacement list of an object-like macro as an
// integer constant expression. Identifiers in the body resolve through ev,
// so nested macros and enumerators behave as at the point of use.
func (b *builder) macroValue(name, body string, ev *evaluator) (int64, error) {
	if v, err := parseIntLiteral(body); err == nil {
		return v, nil
	}
	if body == "" || b.expanding[name] {
		return 0, fmt.Errorf("macro %q: %w", name, errNotConstant)
	}
	b.expanding[name] = true
	defer delete(b.expanding, name)

	src := []byte("#if " + body + "\n#endif\n")
	tree, err := parser.Parse(b.language, src)
	if err != nil {
		return 0, err
	}
	defer tree.Close()
	directive := tree.RootNode().NamedChild(0)
	if directive == nil || directive.Kind() != "preproc_if" || directive.HasError() {
		return 0, fmt.Errorf("macro %q: %w", name, errNotConstant)
	}
	inner := *ev
	inner.f = &sourceFile{path: name, src: src}
	return inner.eval(directive.ChildByFieldName("condition"))
}

func (b *builder) namespace(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	body := n.ChildByFieldName("body")
	nameNode := n.ChildByFieldName("name")

	var names []*tree_sitter.Node
	if nameNode != nil {
		parser.Walk(nameNode, func(id *tree_sitter.Node) bool {
			if id.Kind() == "namespace_identifier" || id.Kind() == "identifier" {
				names = append(names, id)
				return false
			}
			return true
		})
	}

	var outer, inner *cursor
	cur := sc
	if len(names) == 0 {
		// anonymous: clang locates the namespace at its opening brace
		at := n
		if body != nil {
			at = body
		}
		inner = &cursor{kind: ast.Namespace, loc: f.loc(at), hasLoc: true, parent: sc.parent, definition: true}
		outer = inner
		cur = sc.enter(inner, nil, "")
	}
	for _, id := range names {
		ns := &cursor{kind: ast.Namespace, spelling: f.text(id), loc: f.loc(id), hasLoc: true, parent: cur.parent, definition: true}
		if inner != nil {
			inner.add(ns)
		} else {
			outer = ns
		}
		inner = ns
		cur = cur.enter(ns, nil, ns.spelling)
	}
	b.extent(f, n, outer)
	if body != nil {
		inner.add(b.items(f, body, cur)...)
	}
	return []*cursor{outer}
}

// linkage specs are lexical containers only: their declarations keep the
// enclosing semantic parent.
func (b *builder) linkage(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	c := b.extent(f, n, &cursor{kind: ast.LinkageSpec, loc: f.loc(n), hasLoc: true, parent: sc.parent})
	body := n.ChildByFieldName("body")
	switch {
	case body == nil:
	case body.Kind() == "declaration_list":
		c.add(b.items(f, body, sc)...)
	default:
		c.add(b.item(f, body, sc)...)
	}
	return []*cursor{c}
}

func (b *builder) functionDefinition(f *sourceFile, n *tree_sitter.Node, sc scope) *cursor {
	declNode := n.ChildByFieldName("declarator")
	fd, nameNode := functionDeclarator(declNode)
	if fd == nil {
		return nil
	}
	base := b.baseType(f, n, n.ChildByFieldName("type"), nil)
	fn := b.function(f, n, declNode, fd, nameNode, base, storageClass(f, n), sc)
	fn.definition = true
	if body := n.ChildByFieldName("body"); body != nil && !sc.skipBodies {
		fn.add(b.body(f, body, fn, sc))
	}
	return fn
}

func (b *builder) function(f *sourceFile, holder, declNode, fd, nameNode *tree_sitter.Node, base string, storage ast.StorageClass, sc scope) *cursor {
	scopes, leaf := splitQualified(f, nameNode)
	name := nameText(f, leaf)
	parent, record := sc.parent, sc.record
	if len(scopes) > 0 {
		record = b.lookupRecord(sc.path, scopes)
		if record != nil {
			parent = record
		}
	}

	kind := ast.FunctionDecl
	if record != nil {
		switch {
		case strings.HasPrefix(name, "~"):
			kind = ast.Destructor
		case name == record.spelling && base == "":
			kind = ast.Constructor
		default:
			kind = ast.CXXMethod
		}
	}
	if sc.templated && kind != ast.Constructor && kind != ast.Destructor {
		kind = ast.FunctionTemplate
	}

	result := joinDeclarator(base, b.render(f, declNode, fd))
	sig := b.parameters(f, fd.ChildByFieldName("parameters"))
	typeResult := result
	if typeResult == "" {
		typeResult = "void"
	}

	fn := b.extent(f, holder, &cursor{
		kind:     kind,
		spelling: name,
		typ:      functionType(typeResult, sig.types, sig.variadic, sig.explicitVoid),
		result:   &cType{spelling: result},
		storage:  storage,
		loc:      f.loc(leaf),
		hasLoc:   true,
		parent:   parent,
	})
	for _, p := range sig.params {
		p.parent = fn
		fn.args = append(fn.args, p)
		fn.add(p)
	}
	if sig.err != nil {
		fn.argsErr = fmt.Errorf("arguments of %s: %w", name, sig.err)
	}
	return fn
}

// body builds the compound statement of a function definition. Only the
// declarations inside it are materialized; their semantic parent is the
// function.
func (b *builder) body(f *sourceFile, body *tree_sitter.Node, fn *cursor, sc scope) *cursor {
	cs := b.extent(f, body, &cursor{kind: ast.CompoundStmt, loc: f.loc(body), hasLoc: true, parent: fn})
	inner := sc.enter(fn, nil, "")
	parser.Walk(body, func(n *tree_sitter.Node) bool {
		if n.Id() == body.Id() {
			return true
		}
		switch n.Kind() {
		case "declaration", "type_definition", "alias_declaration",
			"struct_specifier", "union_specifier", "class_specifier", "enum_specifier",
			"preproc_def", "preproc_function_def":
			cs.add(b.item(f, n, inner)...)
			return false
		case "lambda_expression":
			return false
		}
		return true
	})
	return cs
}

func (b *builder) declaration(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	var out []*cursor
	typeNode := n.ChildByFieldName("type")
	var tag *cursor
	if isTagSpecifier(typeNode) && typeNode.ChildByFieldName("body") != nil {
		tag = b.tag(f, typeNode, sc, "")
		out = append(out, tag)
	}
	base := b.baseType(f, n, typeNode, tag)
	storage := storageClass(f, n)

	for _, d := range fieldChildren(n, "declarator") {
		if fd, nameNode := functionDeclarator(d); fd != nil {
			out = append(out, b.function(f, n, d, fd, nameNode, base, storage, sc))
			continue
		}
		if v := b.variable(f, n, d, base, storage, sc); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (b *builder) variable(f *sourceFile, holder, d *tree_sitter.Node, base string, storage ast.StorageClass, sc scope) *cursor {
	declarator, value := d, (*tree_sitter.Node)(nil)
	if d.Kind() == "init_declarator" {
		declarator, value = d.ChildByFieldName("declarator"), d.ChildByFieldName("value")
	}
	nameNode := declName(declarator)
	if nameNode == nil {
		return nil
	}
	scopes, leaf := splitQualified(f, nameNode)
	parent := sc.parent
	if len(scopes) > 0 {
		if r := b.lookupRecord(sc.path, scopes); r != nil {
			parent = r
		}
	}

	kind := ast.VarDecl
	if sc.record != nil && holder.Kind() == "field_declaration" && storage != ast.StorageStatic {
		kind = ast.FieldDecl
	}
	if value == nil {
		value = holder.ChildByFieldName("default_value")
	}
	v := b.extent(f, holder, &cursor{
		kind:       kind,
		spelling:   nameText(f, leaf),
		typ:        &cType{spelling: joinDeclarator(base, b.render(f, declarator, nil))},
		storage:    storage,
		loc:        f.loc(leaf),
		hasLoc:     true,
		parent:     parent,
		definition: storage != ast.StorageExtern || value != nil,
	})
	if value != nil {
		v.add(b.expression(f, value, v))
	}
	return v
}

func (b *builder) expression(f *sourceFile, n *tree_sitter.Node, parent *cursor) *cursor {
	kind := ast.Expression
	if n.Kind() == "initializer_list" {
		kind = ast.InitListExpr
	}
	return b.extent(f, n, &cursor{kind: kind, loc: f.loc(n), hasLoc: true, parent: parent})
}

// tag builds a struct, union, class or enum. typedefName names an anonymous
// tag introduced by a typedef.
func (b *builder) tag(f *sourceFile, n *tree_sitter.Node, sc scope, typedefName string) *cursor {
	var kind ast.CursorKind
	switch n.Kind() {
	case "struct_specifier":
		kind = ast.StructDecl
	case "union_specifier":
		kind = ast.UnionDecl
	case "class_specifier":
		kind = ast.ClassDecl
	default:
		kind = ast.EnumDecl
	}
	body := n.ChildByFieldName("body")
	nameNode := n.ChildByFieldName("name")
	_, leaf := splitQualified(f, nameNode)
	name := nameText(f, leaf)

	at := n
	if leaf != nil {
		at = leaf
	}
	c := b.extent(f, n, &cursor{
		kind:       kind,
		spelling:   name,
		loc:        f.loc(at),
		hasLoc:     true,
		parent:     sc.parent,
		definition: body != nil,
	})
	c.typ = &cType{spelling: tagSpelling(f, n, name, typedefName)}
	if body == nil {
		if kind != ast.EnumDecl && name != "" {
			key := qualify(sc.path, name)
			if _, ok := b.records[key]; !ok {
				b.records[key] = c
			}
		}
		return c
	}

	if kind == ast.EnumDecl {
		c.add(b.enumerators(f, body, c)...)
		return c
	}
	if name != "" {
		b.records[qualify(sc.path, name)] = c
	}
	c.add(b.items(f, body, sc.enter(c, c, name))...)
	return c
}

func (b *builder) enumerators(f *sourceFile, body *tree_sitter.Node, enum *cursor) []*cursor {
	ev := &evaluator{f: f}
	ev.lookup = func(name string) (int64, error) {
		if def, ok := b.macros[name]; ok {
			return b.macroValue(name, def, ev)
		}
		r, ok := b.enumerators[name]
		if !ok {
			return 0, fmt.Errorf("use of undeclared identifier %q", name)
		}
		return r.value, r.err
	}

	var out []*cursor
	var prev enumResult
	first := true
	for i := uint(0); i < body.NamedChildCount(); i++ {
		ch := body.NamedChild(i)
		if ch == nil || ch.Kind() != "enumerator" {
			continue
		}
		nameNode := ch.ChildByFieldName("name")
		value := ch.ChildByFieldName("value")

		var r enumResult
		switch {
		case value != nil:
			r.value, r.err = ev.eval(value)
		case first:
		case prev.err != nil:
			r.err = fmt.Errorf("implicit value follows unresolved enumerator: %w", prev.err)
		default:
			r.value = prev.value + 1
		}
		name := f.text(nameNode)
		ec := b.extent(f, ch, &cursor{
			kind:       ast.EnumConstantDecl,
			spelling:   name,
			typ:        enum.typ,
			loc:        f.loc(nameNode),
			hasLoc:     true,
			parent:     enum,
			definition: true,
			enumValue:  r.value,
			enumErr:    r.err,
		})
		if value != nil {
			ec.add(b.expression(f, value, ec))
		}
		b.enumerators[name] = r
		out = append(out, ec)
		prev, first = r, false
	}
	return out
}

func (b *builder) typedef(f *sourceFile, n *tree_sitter.Node, sc scope) []*cursor {
	var out []*cursor
	typeNode := n.ChildByFieldName("type")
	declarators := fieldChildren(n, "declarator")

	var tag *cursor
	if isTagSpecifier(typeNode) && typeNode.ChildByFieldName("body") != nil {
		firstName := ""
		if len(declarators) > 0 {
			firstName = nameText(f, declName(declarators[0]))
		}
		tag = b.tag(f, typeNode, sc, firstName)
		out = append(out, tag)
	}
	base := b.baseType(f, n, typeNode, tag)

	for _, d := range declarators {
		nameNode := declName(d)
		if nameNode == nil {
			continue
		}
		name := nameText(f, nameNode)
		td := b.extent(f, n, &cursor{
			kind:       ast.TypedefDecl,
			spelling:   name,
			typ:        &cType{spelling: name},
			loc:        f.loc(nameNode),
			hasLoc:     true,
			parent:     sc.parent,
			definition: true,
		})
		if base != "" && !typeNode.IsError() && !typeNode.IsMissing() {
			td.underlying = &cType{spelling: joinDeclarator(base, b.render(f, d, nil))}
		}
		out = append(out, td)
	}
	return out
}

func (b *builder) alias(f *sourceFile, n *tree_sitter.Node, sc scope) *cursor {
	nameNode := n.ChildByFieldName("name")
	name := f.text(nameNode)
	at := n
	if nameNode != nil {
		at = nameNode
	}
	c := b.extent(f, n, &cursor{
		kind:       ast.TypeAliasDecl,
		spelling:   name,
		typ:        &cType{spelling: name},
		loc:        f.loc(at),
		hasLoc:     true,
		parent:     sc.parent,
		definition: true,
	})
	if desc := n.ChildByFieldName("type"); desc != nil && !desc.HasError() {
		base := b.baseType(f, desc, desc.ChildByFieldName("type"), nil)
		if base != "" {
			c.underlying = &cType{spelling: joinDeclarator(base, b.render(f, desc.ChildByFieldName("declarator"), nil))}
		}
	}
	return c
}

// signature is a parsed parameter list.
type signature struct {
	params       []*cursor
	types        []*cType
	variadic     bool
	explicitVoid bool
	err          error
}

func (s signature) typeList() string {
	if s.explicitVoid {
		return "void"
	}
	parts := make([]string, 0, len(s.types)+1)
	for _, t := range s.types {
		parts = append(parts, t.spelling)
	}
	if s.variadic {
		parts = append(parts, "...")
	}
	return strings.Join(parts, ", ")
}

func (b *builder) parameters(f *sourceFile, list *tree_sitter.Node) signature {
	var sig signature
	if list == nil {
		return sig
	}
	if list.HasError() {
		sig.err = errors.New("parameter list contains syntax errors")
	}
	named := list.NamedChildCount()
	for i := uint(0); i < list.ChildCount(); i++ {
		ch := list.Child(i)
		if ch == nil {
			continue
		}
		switch ch.Kind() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			typeNode := ch.ChildByFieldName("type")
			decl := ch.ChildByFieldName("declarator")
			base := b.baseType(f, ch, typeNode, nil)
			if named == 1 && decl == nil && base == "void" {
				sig.explicitVoid = true
				continue
			}
			t := &cType{spelling: joinDeclarator(base, b.render(f, decl, nil))}
			p := b.extent(f, ch, &cursor{kind: ast.ParmDecl, typ: t, loc: f.loc(ch), hasLoc: true, definition: true})
			if nameNode := declName(decl); nameNode != nil {
				p.spelling = nameText(f, nameNode)
				p.loc = f.loc(nameNode)
			}
			sig.params = append(sig.params, p)
			sig.types = append(sig.types, t)
		case "variadic_parameter", "...":
			sig.variadic = true
		}
	}
	return sig
}

// extent records the token extent of c as the source range of n.
func (b *builder) extent(f *sourceFile, n *tree_sitter.Node, c *cursor) *cursor {
	p := n.StartPosition()
	c.tokenSrc = f
	c.start, c.end = n.StartByte(), n.EndByte()
	c.tokLine, c.tokCol = int(p.Row)+1, int(p.Column)+1
	return c
}

func (b *builder) lookupRecord(path, scopes []string) *cursor {
	q := strings.Join(scopes, "::")
	for i := len(path); i >= 0; i-- {
		key := q
		if i > 0 {
			key = strings.Join(path[:i], "::") + "::" + q
		}
		if r, ok := b.records[key]; ok {
			return r
		}
	}
	return nil
}

func qualify(path []string, name string) string {
	if len(path) == 0 {
		return name
	}
	return strings.Join(path, "::") + "::" + name
}

func fieldChildren(n *tree_sitter.Node, field string) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.FieldNameForChild(uint32(i)) == field {
			if ch := n.Child(i); ch != nil {
				out = append(out, ch)
			}
		}
	}
	return out
}

func storageClass(f *sourceFile, n *tree_sitter.Node) ast.StorageClass {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		ch := n.NamedChild(i)
		if ch == nil || ch.Kind() != "storage_class_specifier" {
			continue
		}
		switch f.text(ch) {
		case "extern":
			return ast.StorageExtern
		case "static":
			return ast.StorageStatic
		case "register":
			return ast.StorageRegister
		case "auto":
			return ast.StorageAuto
		}
	}
	return ast.StorageNone
}

// predefinedMacros seeds the macro table consulted by #if evaluation with
// the language version macros a compiler would define.
func predefinedMacros(l lang.Language, std string) map[string]string {
	m := map[string]string{}
	std = strings.ToLower(std)
	if l == lang.CPP {
		versions := map[string]string{
			"c++98": "199711L", "c++03": "199711L", "c++11": "201103L", "c++14": "201402L",
			"c++17": "201703L", "c++20": "202002L", "c++23": "202302L",
			"gnu++11": "201103L", "gnu++14": "201402L", "gnu++17": "201703L", "gnu++20": "202002L",
		}
		v, ok := versions[std]
		if !ok {
			v = "201103L"
		}
		m["__cplusplus"] = v
		return m
	}
	m["__STDC__"] = "1"
	versions := map[string]string{
		"c99": "199901L", "gnu99": "199901L", "c11": "201112L", "gnu11": "201112L",
		"c17": "201710L", "gnu17": "201710L", "c23": "202311L",
	}
	if v, ok := versions[std]; ok {
		m["__STDC_VERSION__"] = v
	}
	return m
}
