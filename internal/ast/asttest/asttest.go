// Package asttest provides hand-built cursor trees for tests.
package asttest

import (
	"errors"

	"github.com/DeusData/cxxfacts/internal/ast"
)

// ErrUnavailable is returned by introspection calls a Node is configured to
// fail.
var ErrUnavailable = errors.New("attribute unavailable")

// Type is a fixed ast.Type.
type Type struct {
	Name    string
	Args    []ast.Type
	ArgsErr error
}

func (t Type) Spelling() string { return t.Name }

func (t Type) ArgTypes() ([]ast.Type, error) {
	if t.ArgsErr != nil {
		return nil, t.ArgsErr
	}
	return t.Args, nil
}

// Node is a mutable ast.Cursor. Build trees with Add, which also sets the
// semantic parent of the child unless one was set explicitly.
type Node struct {
	K          ast.CursorKind
	Name       string
	Typ        Type
	Result     Type
	Underlying *Type
	Toks       []ast.Token
	Loc        *ast.Location
	Storage    ast.StorageClass
	Definition bool
	Parent     *Node
	Kids       []*Node
	Args       []*Node
	ArgsErr    error
	Value      int64
	ValueErr   error
}

// New returns a node of the given kind and spelling.
func New(kind ast.CursorKind, name string) *Node {
	return &Node{K: kind, Name: name}
}

// At sets the node's location and returns it.
func (n *Node) At(file string, line, col int) *Node {
	n.Loc = &ast.Location{File: file, Line: line, Column: col}
	return n
}

// Add appends children.
func (n *Node) Add(kids ...*Node) *Node {
	for _, k := range kids {
		if k.Parent == nil {
			k.Parent = n
		}
		n.Kids = append(n.Kids, k)
	}
	return n
}

func (n *Node) Kind() ast.CursorKind { return n.K }
func (n *Node) Spelling() string     { return n.Name }
func (n *Node) Type() ast.Type       { return n.Typ }
func (n *Node) ResultType() ast.Type { return n.Result }

func (n *Node) UnderlyingType() (ast.Type, error) {
	if n.Underlying == nil {
		return nil, ErrUnavailable
	}
	return *n.Underlying, nil
}

func (n *Node) Children() []ast.Cursor {
	out := make([]ast.Cursor, len(n.Kids))
	for i, k := range n.Kids {
		out[i] = k
	}
	return out
}

func (n *Node) Tokens() []ast.Token { return n.Toks }

func (n *Node) Location() (ast.Location, bool) {
	if n.Loc == nil {
		return ast.Location{}, false
	}
	return *n.Loc, true
}

func (n *Node) StorageClass() ast.StorageClass { return n.Storage }
func (n *Node) IsDefinition() bool             { return n.Definition }

func (n *Node) SemanticParent() ast.Cursor {
	if n.Parent == nil {
		return nil
	}
	return n.Parent
}

func (n *Node) Arguments() ([]ast.Cursor, error) {
	if n.ArgsErr != nil {
		return nil, n.ArgsErr
	}
	out := make([]ast.Cursor, len(n.Args))
	for i, a := range n.Args {
		out[i] = a
	}
	return out, nil
}

func (n *Node) EnumValue() (int64, error) { return n.Value, n.ValueErr }

// Tokens builds a single-line token stream starting at column col, with
// one space between tokens.
func Tokens(file string, line, col int, spellings ...string) []ast.Token {
	out := make([]ast.Token, 0, len(spellings))
	for _, s := range spellings {
		out = append(out, ast.Token{
			Spelling: s,
			Start:    ast.Location{File: file, Line: line, Column: col},
			End:      ast.Location{File: file, Line: line, Column: col + len(s)},
		})
		col += len(s) + 1
	}
	return out
}
