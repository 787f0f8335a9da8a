package fqn

import (
	"testing"

	"github.com/DeusData/cxxfacts/internal/ast"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		parent    string
		local     string
		anonymous bool
		file      string
		pos       ast.Location
		want      string
	}{
		{"root child", Global, "a", false, "/src/x.cpp", ast.Location{}, "(global)::a"},
		{"nested", "(global)::a", "b", false, "/src/x.cpp", ast.Location{}, "(global)::a::b"},
		{"empty parent treated as root", "", "a", false, "/src/x.cpp", ast.Location{}, "(global)::a"},
		{"anonymous", Global, "", true, "/src/x.cpp", ast.Location{Line: 3, Column: 1}, "(global)::(anonymous)_x.cpp_3_1"},
		{"anonymous ignores local", "(global)::a", "ignored", true, "/deep/dir/y.h", ast.Location{Line: 10, Column: 5}, "(global)::a::(anonymous)_y.h_10_5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.parent, tt.local, tt.anonymous, tt.file, tt.pos)
			if got != tt.want {
				t.Errorf("Compute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeDeterministic(t *testing.T) {
	pos := ast.Location{Line: 7, Column: 2}
	a := Compute(Global, "", true, "/a/f.cc", pos)
	b := Compute(Global, "", true, "/a/f.cc", pos)
	if a != b {
		t.Fatalf("expected identical results, got %q and %q", a, b)
	}
}

func TestAnonymousDisambiguation(t *testing.T) {
	sameLine := Compute(Global, "", true, "f.cc", ast.Location{Line: 4, Column: 1})
	otherCol := Compute(Global, "", true, "f.cc", ast.Location{Line: 4, Column: 30})
	otherLine := Compute(Global, "", true, "f.cc", ast.Location{Line: 9, Column: 1})
	if sameLine == otherCol || sameLine == otherLine || otherCol == otherLine {
		t.Fatalf("anonymous scopes collided: %q %q %q", sameLine, otherCol, otherLine)
	}
}

func TestSplitJoinParent(t *testing.T) {
	name := "(global)::a::b"
	parts := Split(name)
	if len(parts) != 3 || parts[0] != Global || parts[2] != "b" {
		t.Fatalf("Split = %v", parts)
	}
	if Join(parts...) != name {
		t.Errorf("Join = %q", Join(parts...))
	}
	if Parent(name) != "(global)::a" {
		t.Errorf("Parent = %q", Parent(name))
	}
	if Parent(Global) != "" {
		t.Errorf("Parent(root) = %q", Parent(Global))
	}
	if Split("") != nil {
		t.Error("Split of empty should be nil")
	}
}

func TestStackPersistence(t *testing.T) {
	root := NewStack(Frame{ScopeID: 1, FQN: Global})
	a := root.Push(Frame{ScopeID: 2, FQN: "(global)::a"})
	b := a.Push(Frame{ScopeID: 3, FQN: "(global)::a::b"})
	sibling := a.Push(Frame{ScopeID: 4, FQN: "(global)::a::c"})

	if root.Depth() != 1 || a.Depth() != 2 || b.Depth() != 3 {
		t.Fatalf("depths: %d %d %d", root.Depth(), a.Depth(), b.Depth())
	}
	if a.Top().ScopeID != 2 {
		t.Errorf("push mutated parent stack: top=%d", a.Top().ScopeID)
	}
	if b.Top().ScopeID != 3 || sibling.Top().ScopeID != 4 {
		t.Errorf("siblings interfered: %d %d", b.Top().ScopeID, sibling.Top().ScopeID)
	}
	if b.Pop().Top().ScopeID != 2 {
		t.Errorf("Pop top = %d", b.Pop().Top().ScopeID)
	}

	frames := b.Frames()
	if len(frames) != 3 || frames[0].FQN != Global || frames[2].FQN != "(global)::a::b" {
		t.Errorf("Frames = %+v", frames)
	}

	empty := root.Pop()
	if !empty.Empty() || empty.Top() != (Frame{}) {
		t.Errorf("expected empty stack, got %+v", empty.Top())
	}
}
