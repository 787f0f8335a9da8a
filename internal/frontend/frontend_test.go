package frontend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/lang"
)

func parseString(t *testing.T, name, src string, opts Options) *TranslationUnit {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	tu, err := Parse(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tu
}

// find returns the first cursor in pre-order with the given kind and spelling.
func find(root ast.Cursor, kind ast.CursorKind, spelling string) ast.Cursor {
	if root.Kind() == kind && root.Spelling() == spelling {
		return root
	}
	for _, ch := range root.Children() {
		if c := find(ch, kind, spelling); c != nil {
			return c
		}
	}
	return nil
}

func mustFind(t *testing.T, root ast.Cursor, kind ast.CursorKind, spelling string) ast.Cursor {
	t.Helper()
	c := find(root, kind, spelling)
	if c == nil {
		t.Fatalf("no %s %q in tree", kind, spelling)
	}
	return c
}

func TestMacroTokens(t *testing.T) {
	tu := parseString(t, "m.c", "#define MAX 100\n#define SQ(x) ((x)*(x))\n#define EMPTY\n", Options{})
	for name, want := range map[string][]string{
		"MAX":   {"MAX", "100"},
		"SQ":    {"SQ", "(", "x", ")", "(", "(", "x", ")", "*", "(", "x", ")", ")"},
		"EMPTY": {"EMPTY"},
	} {
		m := mustFind(t, tu.Root, ast.MacroDefinition, name)
		var got []string
		for _, tok := range m.Tokens() {
			got = append(got, tok.Spelling)
		}
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("%s tokens = %v, want %v", name, got, want)
		}
	}

	m := mustFind(t, tu.Root, ast.MacroDefinition, "MAX")
	loc, ok := m.Location()
	if !ok || loc.Line != 1 || loc.Column != 9 || loc.File != tu.Path {
		t.Errorf("MAX location = %v, %v", loc, ok)
	}
	toks := m.Tokens()
	if toks[0].End.Column != 12 || toks[1].Start.Column != 13 {
		t.Errorf("token extents = %+v", toks)
	}
}

func TestCommandLineDefines(t *testing.T) {
	tu := parseString(t, "d.c", "int x;\n", Options{Defines: []string{"DEBUG", "LEVEL=3"}})
	for _, name := range []string{"DEBUG", "LEVEL"} {
		m := mustFind(t, tu.Root, ast.MacroDefinition, name)
		loc, ok := m.Location()
		if !ok || loc.File != CommandLineFile {
			t.Errorf("%s location = %v", name, loc)
		}
	}
	toks := mustFind(t, tu.Root, ast.MacroDefinition, "LEVEL").Tokens()
	if len(toks) != 2 || toks[1].Spelling != "3" {
		t.Errorf("LEVEL tokens = %+v", toks)
	}
}

func TestNamespacesAndSemanticParents(t *testing.T) {
	tu := parseString(t, "n.cpp", "namespace a {\nnamespace b {\nint x;\n}\n}\n", Options{})
	a := mustFind(t, tu.Root, ast.Namespace, "a")
	b := mustFind(t, a, ast.Namespace, "b")
	x := mustFind(t, b, ast.VarDecl, "x")
	if x.SemanticParent() != b || b.SemanticParent() != a || a.SemanticParent().Kind() != ast.TranslationUnit {
		t.Error("unexpected semantic parent chain")
	}
	if x.Type().Spelling() != "int" {
		t.Errorf("x type = %q", x.Type().Spelling())
	}
}

func TestAnonymousNamespaceLocatedAtBrace(t *testing.T) {
	tu := parseString(t, "anon.cpp", "namespace {\nint hidden;\n}\n", Options{})
	ns := mustFind(t, tu.Root, ast.Namespace, "")
	loc, _ := ns.Location()
	if loc.Line != 1 || loc.Column != 11 {
		t.Errorf("anonymous namespace location = %v", loc)
	}
}

func TestRecordMembersAndTypes(t *testing.T) {
	src := `struct S {
	int a;
	float b;
	char name[16];
	const char *label;
};
`
	tu := parseString(t, "s.c", src, Options{})
	s := mustFind(t, tu.Root, ast.StructDecl, "S")
	if !s.IsDefinition() {
		t.Error("S should be a definition")
	}
	want := map[string]string{"a": "int", "b": "float", "name": "char [16]", "label": "const char *"}
	for name, typ := range want {
		f := mustFind(t, s, ast.FieldDecl, name)
		if f.Type().Spelling() != typ {
			t.Errorf("%s type = %q, want %q", name, f.Type().Spelling(), typ)
		}
		if f.SemanticParent() != s {
			t.Errorf("%s parent is not S", name)
		}
	}
}

func TestFunctionSignatures(t *testing.T) {
	src := `static int add(int a, int b) { int local = a; return local + b; }
int f(void);
char *dup(const char *s, ...);
unsigned long count;
`
	tu := parseString(t, "f.c", src, Options{})

	add := mustFind(t, tu.Root, ast.FunctionDecl, "add")
	if !add.IsDefinition() || add.StorageClass() != ast.StorageStatic {
		t.Error("add should be a static definition")
	}
	if add.ResultType().Spelling() != "int" || add.Type().Spelling() != "int (int, int)" {
		t.Errorf("add types: %q %q", add.ResultType().Spelling(), add.Type().Spelling())
	}
	args, err := add.Arguments()
	if err != nil || len(args) != 2 || args[1].Spelling() != "b" || args[1].Type().Spelling() != "int" {
		t.Errorf("add args = %v, %v", args, err)
	}
	local := mustFind(t, add, ast.VarDecl, "local")
	if local.SemanticParent() != add {
		t.Error("local should belong to add")
	}

	f := mustFind(t, tu.Root, ast.FunctionDecl, "f")
	if f.IsDefinition() {
		t.Error("f is a declaration")
	}
	if args, err := f.Arguments(); err != nil || len(args) != 0 {
		t.Errorf("f(void) args = %v, %v", args, err)
	}

	dup := mustFind(t, tu.Root, ast.FunctionDecl, "dup")
	if dup.ResultType().Spelling() != "char *" {
		t.Errorf("dup result = %q", dup.ResultType().Spelling())
	}
	types, err := dup.Type().ArgTypes()
	if err != nil || len(types) != 1 || types[0].Spelling() != "const char *" {
		t.Errorf("dup arg types = %v, %v", types, err)
	}

	count := mustFind(t, tu.Root, ast.VarDecl, "count")
	if count.Type().Spelling() != "unsigned long" {
		t.Errorf("count type = %q", count.Type().Spelling())
	}
}

func TestVariableInitializersAndStorage(t *testing.T) {
	tu := parseString(t, "v.c", "extern int e;\nstatic int s = 1;\nint arr[] = {1, 2};\n", Options{})
	e := mustFind(t, tu.Root, ast.VarDecl, "e")
	if e.StorageClass() != ast.StorageExtern || len(e.Children()) != 0 {
		t.Errorf("e: storage=%s children=%d", e.StorageClass(), len(e.Children()))
	}
	s := mustFind(t, tu.Root, ast.VarDecl, "s")
	if s.StorageClass() != ast.StorageStatic || len(s.Children()) != 1 || !s.Children()[0].Kind().IsExpression() {
		t.Error("s should be static with an initializer")
	}
	arr := mustFind(t, tu.Root, ast.VarDecl, "arr")
	if len(arr.Children()) != 1 || arr.Children()[0].Kind() != ast.InitListExpr {
		t.Error("arr should have an init list")
	}
}

func TestEnumValues(t *testing.T) {
	src := "enum Color { RED, GREEN = 5, BLUE, MASK = (1 << 4) | GREEN, NEG = -1 };\n"
	tu := parseString(t, "e.c", src, Options{})
	want := map[string]int64{"RED": 0, "GREEN": 5, "BLUE": 6, "MASK": 21, "NEG": -1}
	for name, v := range want {
		c := mustFind(t, tu.Root, ast.EnumConstantDecl, name)
		got, err := c.EnumValue()
		if err != nil || got != v {
			t.Errorf("%s = %d, %v; want %d", name, got, err, v)
		}
	}
}

func TestEnumValuesFromMacros(t *testing.T) {
	src := "#define BASE 10\n#define NEXT (BASE + 1)\n#define SELF SELF\n" +
		"enum { A = BASE, B = NEXT, C, D = NEXT * 2, E = SELF };\n"
	tu := parseString(t, "e.c", src, Options{})
	want := map[string]int64{"A": 10, "B": 11, "C": 12, "D": 22}
	for name, v := range want {
		got, err := mustFind(t, tu.Root, ast.EnumConstantDecl, name).EnumValue()
		if err != nil || got != v {
			t.Errorf("%s = %d, %v; want %d", name, got, err, v)
		}
	}
	if _, err := mustFind(t, tu.Root, ast.EnumConstantDecl, "E").EnumValue(); err == nil {
		t.Error("self-referential macro should not evaluate")
	}

	tu = parseString(t, "d.c", "enum { F = EXTRA | 1 };\n", Options{Defines: []string{"EXTRA=0x20"}})
	if got, err := mustFind(t, tu.Root, ast.EnumConstantDecl, "F").EnumValue(); err != nil || got != 33 {
		t.Errorf("F = %d, %v; want 33", got, err)
	}
}

func TestConditionalMacroExpressions(t *testing.T) {
	src := "#define V (2)\n#define W (V * 3)\n" +
		"#if V == 1\nint one;\n#elif W == 6\nint six;\n#else\nint other;\n#endif\n" +
		"#if UNDEFINED_NAME\nint undefined;\n#endif\n"
	tu := parseString(t, "c.c", src, Options{})
	mustFind(t, tu.Root, ast.VarDecl, "six")
	for _, name := range []string{"one", "other", "undefined"} {
		if find(tu.Root, ast.VarDecl, name) != nil {
			t.Errorf("inactive branch %q was built", name)
		}
	}
}

func TestUnresolvableEnumerator(t *testing.T) {
	tu := parseString(t, "e.c", "enum { A = sizeof(int), B };\n", Options{})
	for _, name := range []string{"A", "B"} {
		if _, err := mustFind(t, tu.Root, ast.EnumConstantDecl, name).EnumValue(); err == nil {
			t.Errorf("%s should not evaluate", name)
		}
	}
}

func TestTypedefUnderlying(t *testing.T) {
	src := "typedef unsigned int uint;\ntypedef int (*handler)(int);\ntypedef struct { int x; } Point;\n"
	tu := parseString(t, "t.c", src, Options{})
	for name, want := range map[string]string{
		"uint":    "unsigned int",
		"handler": "int (*)(int)",
		"Point":   "struct Point",
	} {
		td := mustFind(t, tu.Root, ast.TypedefDecl, name)
		u, err := td.UnderlyingType()
		if err != nil || u.Spelling() != want {
			t.Errorf("%s underlying = %v, %v; want %q", name, u, err, want)
		}
	}
}

func TestClassMembersAndOutOfLineDefinitions(t *testing.T) {
	src := `class Widget {
public:
	Widget();
	~Widget();
	int size() const;
};

Widget::Widget() {}
Widget::~Widget() {}
int Widget::size() const { return 0; }
`
	tu := parseString(t, "w.cpp", src, Options{})
	w := mustFind(t, tu.Root, ast.ClassDecl, "Widget")

	ctor := mustFind(t, w, ast.Constructor, "Widget")
	if ctor.ResultType().Spelling() != "" {
		t.Errorf("constructor result = %q", ctor.ResultType().Spelling())
	}
	mustFind(t, w, ast.Destructor, "~Widget")
	mustFind(t, w, ast.CXXMethod, "size")

	// out-of-line definitions are lexically top level but owned by Widget
	var defs int
	for _, ch := range tu.Root.Children() {
		if ch.Kind().IsFunctionLike() && ch.IsDefinition() {
			defs++
			if ch.SemanticParent() != w {
				t.Errorf("%s parent = %v", ch.Spelling(), ch.SemanticParent())
			}
		}
	}
	if defs != 3 {
		t.Errorf("expected 3 out-of-line definitions, got %d", defs)
	}
}

func TestIncludesAreSpliced(t *testing.T) {
	dir := t.TempDir()
	header := filepath.Join(dir, "inc", "api.h")
	if err := os.MkdirAll(filepath.Dir(header), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(header, []byte("#ifndef API_H\n#define API_H\nint api(void);\n#endif\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.c")
	src := "#include \"api.h\"\n#include \"api.h\"\n#include \"missing.h\"\n#include <stdio.h>\nint main(void) { return api(); }\n"
	if err := os.WriteFile(main, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	tu, err := Parse(context.Background(), main, Options{IncludePaths: []string{filepath.Join(dir, "inc")}})
	if err != nil {
		t.Fatal(err)
	}
	api := mustFind(t, tu.Root, ast.FunctionDecl, "api")
	loc, _ := api.Location()
	if loc.File != header {
		t.Errorf("api located in %q, want %q", loc.File, header)
	}
	if len(tu.Includes) != 1 {
		t.Errorf("header spliced %d times", len(tu.Includes))
	}

	errs := tu.Errors()
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "file not found") {
		t.Errorf("diagnostics = %v", tu.Diagnostics)
	}
}

func TestConditionalBranches(t *testing.T) {
	src := "#ifdef FEATURE\nint on;\n#else\nint off;\n#endif\n#if 0\nint never;\n#endif\n"
	tu := parseString(t, "c.c", src, Options{Defines: []string{"FEATURE"}})
	mustFind(t, tu.Root, ast.VarDecl, "on")
	if find(tu.Root, ast.VarDecl, "off") != nil || find(tu.Root, ast.VarDecl, "never") != nil {
		t.Error("inactive branches were built")
	}
}

func TestSyntaxErrorsAreDiagnosed(t *testing.T) {
	tu := parseString(t, "bad.c", "int ok;\nint broken( {\n", Options{})
	if !tu.HasErrors() {
		t.Fatal("expected error diagnostics")
	}
	mustFind(t, tu.Root, ast.VarDecl, "ok")
}

func TestSkipFunctionBodies(t *testing.T) {
	tu := parseString(t, "h.h", "static inline int twice(int v) { int r = v * 2; return r; }\n",
		Options{Language: lang.C, SkipFunctionBodies: true})
	fn := mustFind(t, tu.Root, ast.FunctionDecl, "twice")
	if !fn.IsDefinition() {
		t.Error("skipped body still defines the function")
	}
	if find(fn, ast.CompoundStmt, "") != nil {
		t.Error("body should not be built")
	}
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(context.Background(), filepath.Join(t.TempDir(), "nope.c"), Options{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ParseSource(ctx, "x.c", []byte("int x;"), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
