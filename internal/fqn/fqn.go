package fqn

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/DeusData/cxxfacts/internal/ast"
)

const (
	// Global is the FQN and local name of the root scope.
	Global = "(global)"
	// AnonymousName is the local name stored for anonymous scopes.
	AnonymousName = "(anonymous)"
	// Separator joins scope names.
	Separator = "::"
)

// Compute returns the fully qualified name of a scope declared inside parent.
// Format: <parent>::<name>
// Examples:
//   - (global)::net
//   - (global)::net::(anonymous)_socket.cpp_12_1
//
// Anonymous scopes get a position-derived local part so that two anonymous
// namespaces in one file never share an FQN unless they share file, line and
// column (possible only through macro expansion).
func Compute(parentFQN, localName string, anonymous bool, sourceFile string, pos ast.Location) string {
	part := localName
	if anonymous {
		part = AnonymousPart(sourceFile, pos)
	}
	if parentFQN == "" {
		parentFQN = Global
	}
	return parentFQN + Separator + part
}

// AnonymousPart renders the synthesized local part for an anonymous scope.
func AnonymousPart(sourceFile string, pos ast.Location) string {
	return fmt.Sprintf("%s_%s_%d_%d", AnonymousName, filepath.Base(sourceFile), pos.Line, pos.Column)
}

// Split breaks an FQN into its components, root first.
func Split(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

// Join is the inverse of Split.
func Join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// Parent returns the FQN of the enclosing scope, or "" for the root.
func Parent(name string) string {
	i := strings.LastIndex(name, Separator)
	if i < 0 {
		return ""
	}
	return name[:i]
}
