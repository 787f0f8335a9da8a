package frontend

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/parser"
)

// sourceFile is one parsed file of the translation unit.
type sourceFile struct {
	path string
	src  []byte
}

func (f *sourceFile) text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return parser.NodeText(n, f.src)
}

func (f *sourceFile) loc(n *tree_sitter.Node) ast.Location {
	p := n.StartPosition()
	return ast.Location{File: f.path, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// normalizeSpace collapses whitespace and tightens template brackets, so
// "std::vector< int >" reads "std::vector<int>".
func normalizeSpace(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, r := range [][2]string{{"< ", "<"}, {" >", ">"}, {" ,", ","}, {" ::", "::"}, {":: ", "::"}} {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}

// joinDeclarator appends an abstract declarator to a base type the way clang
// prints it: "int *", "char [16]", "int (*)(int)", "char *(void)".
func joinDeclarator(base, abstract string) string {
	switch {
	case abstract == "":
		return base
	case base == "":
		return abstract
	case strings.HasSuffix(base, "*") || strings.HasSuffix(base, "&"):
		return base + abstract
	}
	return base + " " + abstract
}

// canonicalSized renders a sized type specifier in clang's canonical word
// order: "unsigned" is "unsigned int", "long int" is "long".
func canonicalSized(text string) string {
	var unsigned, signed bool
	var longs, shorts int
	var rest []string
	for _, w := range strings.Fields(text) {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			longs++
		case "short":
			shorts++
		case "int":
		default:
			rest = append(rest, w)
		}
	}
	var core string
	switch {
	case len(rest) > 0 && rest[0] == "char":
		core = "char"
		if signed {
			core = "signed char"
		}
	case len(rest) > 0 && rest[0] == "double":
		core = "double"
		if longs > 0 {
			core = "long double"
		}
	case len(rest) > 0:
		core = strings.Join(rest, " ")
	case shorts > 0:
		core = "short"
	case longs == 1:
		core = "long"
	case longs >= 2:
		core = "long long"
	default:
		core = "int"
	}
	if unsigned {
		return "unsigned " + core
	}
	return core
}

func isTagSpecifier(n *tree_sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		return true
	}
	return false
}

func isNameNode(n *tree_sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "identifier", "field_identifier", "type_identifier", "qualified_identifier",
		"destructor_name", "operator_name", "template_function", "operator_cast":
		return true
	}
	return false
}

// innerDeclarator returns the declarator wrapped by d, if any.
func innerDeclarator(d *tree_sitter.Node) *tree_sitter.Node {
	if inner := d.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	switch d.Kind() {
	case "parenthesized_declarator", "reference_declarator",
		"abstract_parenthesized_declarator", "abstract_reference_declarator":
		for i := int(d.NamedChildCount()) - 1; i >= 0; i-- {
			ch := d.NamedChild(uint(i))
			if ch != nil && ch.Kind() != "type_qualifier" && ch.Kind() != "ms_call_modifier" {
				return ch
			}
		}
	}
	return nil
}

// declName finds the name node of a declarator chain.
func declName(d *tree_sitter.Node) *tree_sitter.Node {
	for d != nil {
		if isNameNode(d) {
			return d
		}
		switch d.Kind() {
		case "init_declarator", "pointer_declarator", "array_declarator", "function_declarator",
			"attributed_declarator", "parenthesized_declarator", "reference_declarator":
			d = innerDeclarator(d)
		default:
			return nil
		}
	}
	return nil
}

// functionDeclarator reports the function declarator that directly names a
// function, with the name node. Declarators of function pointers return nil.
func functionDeclarator(d *tree_sitter.Node) (fd, name *tree_sitter.Node) {
	for d != nil {
		switch d.Kind() {
		case "function_declarator":
			inner := d.ChildByFieldName("declarator")
			if isNameNode(inner) {
				return d, inner
			}
			d = inner
		case "init_declarator", "pointer_declarator", "reference_declarator",
			"parenthesized_declarator", "attributed_declarator":
			d = innerDeclarator(d)
		default:
			return nil, nil
		}
	}
	return nil, nil
}

// splitQualified flattens "a::B::f" into its scope names and the leaf.
func splitQualified(f *sourceFile, n *tree_sitter.Node) ([]string, *tree_sitter.Node) {
	var scopes []string
	for n != nil && n.Kind() == "qualified_identifier" {
		if s := n.ChildByFieldName("scope"); s != nil {
			if s.Kind() == "template_type" {
				scopes = append(scopes, f.text(s.ChildByFieldName("name")))
			} else {
				scopes = append(scopes, f.text(s))
			}
		}
		n = n.ChildByFieldName("name")
	}
	return scopes, n
}

// nameText renders the spelling of a name node.
func nameText(f *sourceFile, n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "destructor_name":
		return strings.ReplaceAll(f.text(n), " ", "")
	case "template_function", "template_type":
		return f.text(n.ChildByFieldName("name"))
	case "operator_name", "operator_cast":
		return normalizeSpace(f.text(n))
	}
	return f.text(n)
}

// render prints the abstract form of declarator d (the declarator with its
// name removed). hole, when set, is a function declarator rendered as empty,
// which yields the result type of the function it declares.
func (b *builder) render(f *sourceFile, d, hole *tree_sitter.Node) string {
	if d == nil {
		return ""
	}
	switch d.Kind() {
	case "init_declarator", "attributed_declarator":
		return b.render(f, d.ChildByFieldName("declarator"), hole)
	case "pointer_declarator", "abstract_pointer_declarator":
		var quals []string
		for i := uint(0); i < d.NamedChildCount(); i++ {
			if ch := d.NamedChild(i); ch != nil && ch.Kind() == "type_qualifier" {
				quals = append(quals, f.text(ch))
			}
		}
		s := "*" + strings.Join(quals, " ")
		inner := b.render(f, d.ChildByFieldName("declarator"), hole)
		if len(quals) > 0 && inner != "" {
			return s + " " + inner
		}
		return s + inner
	case "reference_declarator", "abstract_reference_declarator":
		op := "&"
		if first := d.Child(0); first != nil && f.text(first) == "&&" {
			op = "&&"
		}
		return op + b.render(f, innerDeclarator(d), hole)
	case "array_declarator", "abstract_array_declarator":
		return b.render(f, d.ChildByFieldName("declarator"), hole) +
			"[" + normalizeSpace(f.text(d.ChildByFieldName("size"))) + "]"
	case "function_declarator", "abstract_function_declarator":
		if hole != nil && d.Id() == hole.Id() {
			return ""
		}
		sig := b.parameters(f, d.ChildByFieldName("parameters"))
		return b.render(f, d.ChildByFieldName("declarator"), hole) + "(" + sig.typeList() + ")"
	case "parenthesized_declarator", "abstract_parenthesized_declarator":
		inner := b.render(f, innerDeclarator(d), hole)
		if inner == "" {
			return ""
		}
		return "(" + inner + ")"
	}
	return ""
}

// baseType spells the declaration specifiers of holder: qualifiers plus the
// type node. tag, when set, is the record or enum defined inline by typeNode.
func (b *builder) baseType(f *sourceFile, holder, typeNode *tree_sitter.Node, tag *cursor) string {
	if typeNode == nil {
		return ""
	}
	var quals []string
	seen := map[string]bool{}
	for i := uint(0); i < holder.NamedChildCount(); i++ {
		ch := holder.NamedChild(i)
		if ch == nil || ch.Kind() != "type_qualifier" {
			continue
		}
		q := f.text(ch)
		if q == "constexpr" {
			q = "const"
		}
		if (q == "const" || q == "volatile") && !seen[q] {
			seen[q] = true
			quals = append(quals, q)
		}
	}
	if len(quals) == 2 && quals[0] == "volatile" {
		quals[0], quals[1] = quals[1], quals[0]
	}

	var t string
	switch {
	case tag != nil:
		t = tag.typ.spelling
	case typeNode.Kind() == "sized_type_specifier":
		t = canonicalSized(f.text(typeNode))
	default:
		t = normalizeSpace(f.text(typeNode))
	}
	return strings.Join(append(quals, t), " ")
}

// tagSpelling names the type introduced by a record or enum specifier.
func tagSpelling(f *sourceFile, n *tree_sitter.Node, name, typedefName string) string {
	keyword := strings.TrimSuffix(n.Kind(), "_specifier")
	switch {
	case name != "":
		return keyword + " " + name
	case typedefName != "":
		return keyword + " " + typedefName
	}
	return fmt.Sprintf("%s (unnamed %s at %s)", keyword, keyword, f.loc(n))
}
