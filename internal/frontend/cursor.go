package frontend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DeusData/cxxfacts/internal/ast"
)

var (
	errNotFunction = errors.New("cursor is not function-like")
	errNotTypedef  = errors.New("cursor is not a typedef")
	errNotEnum     = errors.New("cursor is not an enumerator")
)

// cType is a spelled type. Function types also carry their parameter types.
type cType struct {
	spelling string
	function bool
	params   []*cType
	variadic bool
}

var emptyType = &cType{}

func (t *cType) Spelling() string { return t.spelling }

func (t *cType) ArgTypes() ([]ast.Type, error) {
	if !t.function {
		return nil, fmt.Errorf("type %q: %w", t.spelling, errNotFunction)
	}
	out := make([]ast.Type, len(t.params))
	for i, p := range t.params {
		out[i] = p
	}
	return out, nil
}

// functionType builds the clang-style spelling of a function type from its
// result and parameter types, e.g. "int (int, char)" or "char *(void)".
// An empty list is printed as "(void)" only when the source spelled it so.
func functionType(result string, params []*cType, variadic, explicitVoid bool) *cType {
	parts := make([]string, 0, len(params)+1)
	for _, p := range params {
		parts = append(parts, p.spelling)
	}
	if variadic {
		parts = append(parts, "...")
	}
	list := strings.Join(parts, ", ")
	if len(parts) == 0 && explicitVoid {
		list = "void"
	}
	return &cType{
		spelling: joinDeclarator(result, "("+list+")"),
		function: true,
		params:   params,
		variadic: variadic,
	}
}

// cursor is the front end's concrete ast.Cursor. The tree is fully
// materialized, so it stays valid after the tree-sitter tree is closed.
type cursor struct {
	kind       ast.CursorKind
	spelling   string
	typ        *cType
	result     *cType
	underlying *cType
	storage    ast.StorageClass
	definition bool

	loc    ast.Location
	hasLoc bool

	parent   *cursor
	children []*cursor

	args    []*cursor
	argsErr error

	enumValue int64
	enumErr   error

	// Tokens are lexed lazily from the extent unless set eagerly.
	tokens   []ast.Token
	tokenSrc *sourceFile
	start    uint
	end      uint
	tokLine  int
	tokCol   int
}

func (c *cursor) Kind() ast.CursorKind { return c.kind }
func (c *cursor) Spelling() string     { return c.spelling }

func (c *cursor) Type() ast.Type {
	if c.typ == nil {
		return emptyType
	}
	return c.typ
}

func (c *cursor) ResultType() ast.Type {
	if c.result == nil {
		return emptyType
	}
	return c.result
}

func (c *cursor) UnderlyingType() (ast.Type, error) {
	if c.kind != ast.TypedefDecl && c.kind != ast.TypeAliasDecl {
		return nil, fmt.Errorf("%s %q: %w", c.kind, c.spelling, errNotTypedef)
	}
	if c.underlying == nil {
		return nil, fmt.Errorf("underlying type of %q could not be resolved", c.spelling)
	}
	return c.underlying, nil
}

func (c *cursor) Children() []ast.Cursor {
	out := make([]ast.Cursor, len(c.children))
	for i, ch := range c.children {
		out[i] = ch
	}
	return out
}

func (c *cursor) Tokens() []ast.Token {
	if c.tokens != nil || c.tokenSrc == nil {
		return c.tokens
	}
	return lexTokens(c.tokenSrc.path, c.tokenSrc.src, c.start, c.end, c.tokLine, c.tokCol)
}

func (c *cursor) Location() (ast.Location, bool) { return c.loc, c.hasLoc }
func (c *cursor) StorageClass() ast.StorageClass { return c.storage }
func (c *cursor) IsDefinition() bool             { return c.definition }

func (c *cursor) SemanticParent() ast.Cursor {
	if c.parent == nil {
		return nil
	}
	return c.parent
}

func (c *cursor) Arguments() ([]ast.Cursor, error) {
	if !c.kind.IsFunctionLike() {
		return nil, fmt.Errorf("%s %q: %w", c.kind, c.spelling, errNotFunction)
	}
	if c.argsErr != nil {
		return nil, c.argsErr
	}
	out := make([]ast.Cursor, len(c.args))
	for i, a := range c.args {
		out[i] = a
	}
	return out, nil
}

func (c *cursor) EnumValue() (int64, error) {
	if c.kind != ast.EnumConstantDecl {
		return 0, fmt.Errorf("%s %q: %w", c.kind, c.spelling, errNotEnum)
	}
	return c.enumValue, c.enumErr
}

func (c *cursor) add(children ...*cursor) {
	c.children = append(c.children, children...)
}
