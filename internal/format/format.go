// Package format renders locations and the textual signatures stored with
// each fact.
package format

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DeusData/cxxfacts/internal/ast"
)

const (
	// UnknownLocation is rendered for cursors without a spelling location.
	UnknownLocation = "unknown"
	// UnknownType replaces an underlying type that cannot be resolved.
	UnknownType = "(unknown)"
	// UnknownValue replaces an enumerator value that cannot be evaluated.
	UnknownValue = "?"
	// UnknownParams replaces a parameter list when no type information is
	// available at all.
	UnknownParams = "..."

	ConstructorTag = "(constructor)"
	DestructorTag  = "(destructor)"
)

// Location renders basename:line:column.
func Location(loc ast.Location, ok bool) string {
	if !ok {
		return UnknownLocation
	}
	return filepath.Base(loc.File) + ":" + strconv.Itoa(loc.Line) + ":" + strconv.Itoa(loc.Column)
}

// CursorLocation is Location applied to a cursor.
func CursorLocation(c ast.Cursor) string {
	return Location(c.Location())
}

// MacroBody rebuilds the replacement text of a macro from its tokens. The
// first token is the macro name. Gaps between tokens are reproduced from
// their columns; tokens on a continuation line are joined without a gap.
// It reports false when the macro has no body.
func MacroBody(tokens []ast.Token) (string, bool) {
	if len(tokens) < 2 {
		return "", false
	}
	var b strings.Builder
	lastEnd := tokens[0].End.Column
	for _, tok := range tokens[1:] {
		if gap := tok.Start.Column - lastEnd; gap > 0 {
			b.WriteString(strings.Repeat(" ", gap))
		}
		b.WriteString(tok.Spelling)
		lastEnd = tok.End.Column
	}
	return strings.TrimSpace(b.String()), true
}

// Params is the parameter-list signature of a function-like cursor along
// with whether a fallback had to be used.
type Params struct {
	Text     string
	Degraded bool
}

// FunctionParams renders "type name" pairs joined by ", ". When the
// parameter declarations are unavailable it falls back to the function
// type's parameter types named arg1..argN, and to "..." when those are
// unavailable too.
func FunctionParams(c ast.Cursor) Params {
	args, err := c.Arguments()
	if err == nil {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, strings.TrimSpace(a.Type().Spelling()+" "+a.Spelling()))
		}
		return Params{Text: strings.Join(parts, ", ")}
	}
	types, err := c.Type().ArgTypes()
	if err != nil {
		return Params{Text: UnknownParams, Degraded: true}
	}
	parts := make([]string, 0, len(types))
	for i, t := range types {
		parts = append(parts, fmt.Sprintf("%s arg%d", t.Spelling(), i+1))
	}
	return Params{Text: strings.Join(parts, ", "), Degraded: true}
}

// StructMembers renders the direct fields of a record as "type name;"
// joined by a single space.
func StructMembers(c ast.Cursor) string {
	var parts []string
	for _, ch := range c.Children() {
		if ch.Kind() == ast.FieldDecl {
			parts = append(parts, ch.Type().Spelling()+" "+ch.Spelling()+";")
		}
	}
	return strings.Join(parts, " ")
}

// EnumConstants renders "name=value" for each enumerator, joined by ", ".
// The second result counts enumerators whose value was replaced by "?".
func EnumConstants(c ast.Cursor) (string, int) {
	var parts []string
	unknown := 0
	for _, ch := range c.Children() {
		if ch.Kind() != ast.EnumConstantDecl {
			continue
		}
		v, err := ch.EnumValue()
		val := strconv.FormatInt(v, 10)
		if err != nil {
			val = UnknownValue
			unknown++
		}
		parts = append(parts, ch.Spelling()+"="+val)
	}
	return strings.Join(parts, ", "), unknown
}

// UnderlyingType renders the aliased type of a typedef, or "(unknown)".
func UnderlyingType(c ast.Cursor) (string, bool) {
	t, err := c.UnderlyingType()
	if err != nil || t == nil || t.Spelling() == "" {
		return UnknownType, false
	}
	return t.Spelling(), true
}

// HasInitializer reports whether any immediate child is an expression or an
// initializer list.
func HasInitializer(c ast.Cursor) bool {
	for _, ch := range c.Children() {
		if ch.Kind().IsExpression() {
			return true
		}
	}
	return false
}

// ReturnType renders the result type of a function. A function without one
// that is named after its enclosing class or struct is tagged as a
// constructor, and ~Name as a destructor.
func ReturnType(c ast.Cursor, parentKind ast.CursorKind, parentName string) string {
	rt := c.ResultType().Spelling()
	if rt != "" || (parentKind != ast.ClassDecl && parentKind != ast.StructDecl) {
		return rt
	}
	switch c.Spelling() {
	case parentName:
		return ConstructorTag
	case "~" + parentName:
		return DestructorTag
	}
	return rt
}
