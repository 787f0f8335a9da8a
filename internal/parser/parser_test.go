package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/cxxfacts/internal/lang"
)

func TestParseC(t *testing.T) {
	source := []byte(`#define MAX 100

struct point { int x; int y; };

int add(int a, int b) {
	return a + b;
}
`)
	tree, err := Parse(lang.C, source)
	if err != nil {
		t.Fatalf("Parse C: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		t.Fatal("root node is nil")
	}
	if root.Kind() != "translation_unit" {
		t.Errorf("root kind = %s", root.Kind())
	}

	var funcCount, structCount, macroCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "struct_specifier":
			structCount++
		case "preproc_def":
			macroCount++
		}
		return true
	})
	if funcCount != 1 {
		t.Errorf("expected 1 function_definition, got %d", funcCount)
	}
	if structCount != 1 {
		t.Errorf("expected 1 struct_specifier, got %d", structCount)
	}
	if macroCount != 1 {
		t.Errorf("expected 1 preproc_def, got %d", macroCount)
	}
}

func TestParseCPP(t *testing.T) {
	source := []byte(`namespace a {
namespace b {
int x;
}
}

class Widget {
public:
	Widget();
	~Widget();
};
`)
	tree, err := Parse(lang.CPP, source)
	if err != nil {
		t.Fatalf("Parse C++: %v", err)
	}
	defer tree.Close()

	var nsCount, classCount int
	Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "namespace_definition":
			nsCount++
		case "class_specifier":
			classCount++
		}
		return true
	})
	if nsCount != 2 {
		t.Errorf("expected 2 namespace_definitions, got %d", nsCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_specifier, got %d", classCount)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	if _, err := Parse(lang.Language("cobol"), []byte("x")); err == nil {
		t.Error("expected error for unsupported language")
	}
	if _, err := GetLanguage(lang.Language("cobol")); err == nil {
		t.Error("expected error from GetLanguage")
	}
}

func TestNodeText(t *testing.T) {
	source := []byte("int x = 5;\n")
	tree, err := Parse(lang.C, source)
	if err != nil {
		t.Fatal(err)
	}
	defer tree.Close()

	decl := tree.RootNode().Child(0)
	if got := NodeText(decl, source); got != "int x = 5;" {
		t.Errorf("NodeText = %q", got)
	}
	if got := NodeText(decl.ChildByFieldName("type"), source); got != "int" {
		t.Errorf("type text = %q", got)
	}
}
