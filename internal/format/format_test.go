package format

import (
	"testing"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/ast/asttest"
)

func TestLocation(t *testing.T) {
	if got := Location(ast.Location{File: "/src/net/socket.c", Line: 12, Column: 5}, true); got != "socket.c:12:5" {
		t.Errorf("Location = %q", got)
	}
	if got := Location(ast.Location{}, false); got != UnknownLocation {
		t.Errorf("Location without position = %q", got)
	}
}

func TestMacroBody(t *testing.T) {
	tests := []struct {
		name   string
		tokens []ast.Token
		want   string
		ok     bool
	}{
		{"simple", asttest.Tokens("m.h", 1, 9, "MAX", "100"), "100", true},
		{"name only", asttest.Tokens("m.h", 1, 9, "GUARD"), "", false},
		{"empty", nil, "", false},
		{
			"adjacent tokens keep no gap",
			[]ast.Token{
				{Spelling: "SQ", Start: ast.Location{Column: 9}, End: ast.Location{Column: 11}},
				{Spelling: "(", Start: ast.Location{Column: 11}, End: ast.Location{Column: 12}},
				{Spelling: "x", Start: ast.Location{Column: 12}, End: ast.Location{Column: 13}},
				{Spelling: ")", Start: ast.Location{Column: 13}, End: ast.Location{Column: 14}},
				{Spelling: "x", Start: ast.Location{Column: 17}, End: ast.Location{Column: 18}},
			},
			"(x)   x",
			true,
		},
		{
			"continuation line joins",
			[]ast.Token{
				{Spelling: "LONG", Start: ast.Location{Line: 1, Column: 9}, End: ast.Location{Line: 1, Column: 13}},
				{Spelling: "a", Start: ast.Location{Line: 1, Column: 14}, End: ast.Location{Line: 1, Column: 15}},
				{Spelling: "+", Start: ast.Location{Line: 2, Column: 3}, End: ast.Location{Line: 2, Column: 4}},
				{Spelling: "b", Start: ast.Location{Line: 2, Column: 5}, End: ast.Location{Line: 2, Column: 6}},
			},
			"a+ b",
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MacroBody(tt.tokens)
			if got != tt.want || ok != tt.ok {
				t.Errorf("MacroBody = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func param(typ, name string) *asttest.Node {
	p := asttest.New(ast.ParmDecl, name)
	p.Typ = asttest.Type{Name: typ}
	return p
}

func TestFunctionParams(t *testing.T) {
	fn := asttest.New(ast.FunctionDecl, "f")
	fn.Args = []*asttest.Node{param("int", "a"), param("const char *", "b"), param("float", "")}
	if got := FunctionParams(fn); got.Text != "int a, const char * b, float" || got.Degraded {
		t.Errorf("FunctionParams = %+v", got)
	}

	fallback := asttest.New(ast.FunctionDecl, "g")
	fallback.ArgsErr = asttest.ErrUnavailable
	fallback.Typ = asttest.Type{Name: "int (int, char)", Args: []ast.Type{asttest.Type{Name: "int"}, asttest.Type{Name: "char"}}}
	if got := FunctionParams(fallback); got.Text != "int arg1, char arg2" || !got.Degraded {
		t.Errorf("fallback = %+v", got)
	}

	sentinel := asttest.New(ast.FunctionDecl, "h")
	sentinel.ArgsErr = asttest.ErrUnavailable
	sentinel.Typ = asttest.Type{ArgsErr: asttest.ErrUnavailable}
	if got := FunctionParams(sentinel); got.Text != UnknownParams || !got.Degraded {
		t.Errorf("sentinel = %+v", got)
	}

	none := asttest.New(ast.FunctionDecl, "v")
	if got := FunctionParams(none); got.Text != "" {
		t.Errorf("no params = %q", got.Text)
	}
}

func TestStructMembers(t *testing.T) {
	field := func(typ, name string) *asttest.Node {
		f := asttest.New(ast.FieldDecl, name)
		f.Typ = asttest.Type{Name: typ}
		return f
	}
	s := asttest.New(ast.StructDecl, "S").Add(
		field("int", "a"),
		asttest.New(ast.CXXMethod, "m"),
		field("float", "b"),
		asttest.New(ast.UnionDecl, ""),
	)
	if got := StructMembers(s); got != "int a; float b;" {
		t.Errorf("StructMembers = %q", got)
	}
}

func TestEnumConstants(t *testing.T) {
	c := func(name string, v int64, err error) *asttest.Node {
		n := asttest.New(ast.EnumConstantDecl, name)
		n.Value, n.ValueErr = v, err
		return n
	}
	e := asttest.New(ast.EnumDecl, "Color").Add(c("RED", 0, nil), c("GREEN", 5, nil), c("ODD", 0, asttest.ErrUnavailable))
	got, unknown := EnumConstants(e)
	if got != "RED=0, GREEN=5, ODD=?" || unknown != 1 {
		t.Errorf("EnumConstants = %q, %d", got, unknown)
	}
}

func TestUnderlyingType(t *testing.T) {
	td := asttest.New(ast.TypedefDecl, "u32")
	td.Underlying = &asttest.Type{Name: "unsigned int"}
	if got, ok := UnderlyingType(td); got != "unsigned int" || !ok {
		t.Errorf("UnderlyingType = %q", got)
	}
	broken := asttest.New(ast.TypedefDecl, "bad")
	if got, ok := UnderlyingType(broken); got != UnknownType || ok {
		t.Errorf("UnderlyingType sentinel = %q", got)
	}
}

func TestHasInitializer(t *testing.T) {
	plain := asttest.New(ast.VarDecl, "x")
	withExpr := asttest.New(ast.VarDecl, "y").Add(asttest.New(ast.Expression, ""))
	withList := asttest.New(ast.VarDecl, "z").Add(asttest.New(ast.InitListExpr, ""))
	if HasInitializer(plain) || !HasInitializer(withExpr) || !HasInitializer(withList) {
		t.Error("HasInitializer mismatch")
	}
}

func TestReturnType(t *testing.T) {
	ctor := asttest.New(ast.Constructor, "Widget")
	dtor := asttest.New(ast.Destructor, "~Widget")
	method := asttest.New(ast.CXXMethod, "size")
	method.Result = asttest.Type{Name: "int"}
	free := asttest.New(ast.FunctionDecl, "Widget")

	tests := []struct {
		c          ast.Cursor
		kind       ast.CursorKind
		parentName string
		want       string
	}{
		{ctor, ast.ClassDecl, "Widget", ConstructorTag},
		{dtor, ast.StructDecl, "Widget", DestructorTag},
		{method, ast.ClassDecl, "Widget", "int"},
		{free, ast.Namespace, "Widget", ""},
		{ctor, ast.UnionDecl, "Widget", ""},
	}
	for _, tt := range tests {
		if got := ReturnType(tt.c, tt.kind, tt.parentName); got != tt.want {
			t.Errorf("ReturnType(%s in %s) = %q, want %q", tt.c.Spelling(), tt.kind, got, tt.want)
		}
	}
}
