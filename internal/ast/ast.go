// Package ast defines the cursor view of a parsed C/C++ translation unit.
//
// A front end (see internal/frontend) produces the tree; the extraction
// engine only ever reads it through these interfaces. The shape mirrors the
// libclang cursor model: every node has a kind, a spelling, a type, a
// storage class, a semantic parent, children, a token stream and an
// optional source location.
package ast

import "fmt"

// CursorKind classifies a cursor.
type CursorKind int

const (
	Unexposed CursorKind = iota
	TranslationUnit
	Namespace
	LinkageSpec
	MacroDefinition
	InclusionDirective
	FunctionDecl
	CXXMethod
	Constructor
	Destructor
	FunctionTemplate
	StructDecl
	UnionDecl
	ClassDecl
	EnumDecl
	EnumConstantDecl
	FieldDecl
	TypedefDecl
	TypeAliasDecl
	VarDecl
	ParmDecl
	CompoundStmt
	Expression
	InitListExpr
)

var kindNames = map[CursorKind]string{
	Unexposed:          "UNEXPOSED",
	TranslationUnit:    "TRANSLATION_UNIT",
	Namespace:          "NAMESPACE",
	LinkageSpec:        "LINKAGE_SPEC",
	MacroDefinition:    "MACRO_DEFINITION",
	InclusionDirective: "INCLUSION_DIRECTIVE",
	FunctionDecl:       "FUNCTION_DECL",
	CXXMethod:          "CXX_METHOD",
	Constructor:        "CONSTRUCTOR",
	Destructor:         "DESTRUCTOR",
	FunctionTemplate:   "FUNCTION_TEMPLATE",
	StructDecl:         "STRUCT_DECL",
	UnionDecl:          "UNION_DECL",
	ClassDecl:          "CLASS_DECL",
	EnumDecl:           "ENUM_DECL",
	EnumConstantDecl:   "ENUM_CONSTANT_DECL",
	FieldDecl:          "FIELD_DECL",
	TypedefDecl:        "TYPEDEF_DECL",
	TypeAliasDecl:      "TYPE_ALIAS_DECL",
	VarDecl:            "VAR_DECL",
	ParmDecl:           "PARM_DECL",
	CompoundStmt:       "COMPOUND_STMT",
	Expression:         "EXPRESSION",
	InitListExpr:       "INIT_LIST_EXPR",
}

// String returns the libclang-style upper-case name of the kind. The
// function table stores it verbatim in parent_kind.
func (k CursorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("CursorKind(%d)", int(k))
}

// IsExpression reports whether the kind is an expression form.
func (k CursorKind) IsExpression() bool {
	return k == Expression || k == InitListExpr
}

// IsFunctionLike reports whether the kind declares a callable.
func (k CursorKind) IsFunctionLike() bool {
	switch k {
	case FunctionDecl, CXXMethod, Constructor, Destructor, FunctionTemplate:
		return true
	}
	return false
}

// IsRecord reports whether the kind is a struct, union or class.
func (k CursorKind) IsRecord() bool {
	return k == StructDecl || k == UnionDecl || k == ClassDecl
}

// IsScope reports whether the kind opens a namespace-like naming scope.
func (k CursorKind) IsScope() bool {
	return k == Namespace
}

// StorageClass is the declared storage class of a declaration.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageExtern
	StorageStatic
	StorageRegister
	StorageAuto
)

func (s StorageClass) String() string {
	switch s {
	case StorageExtern:
		return "extern"
	case StorageStatic:
		return "static"
	case StorageRegister:
		return "register"
	case StorageAuto:
		return "auto"
	}
	return "none"
}

// Location is a 1-based source position.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Token is one lexical token with its extent.
type Token struct {
	Spelling string
	Start    Location
	End      Location
}

// Type is a resolved type with a printable spelling.
type Type interface {
	Spelling() string
	// ArgTypes enumerates the parameter types of a function type.
	ArgTypes() ([]Type, error)
}

// Cursor is one node of the translation unit.
type Cursor interface {
	Kind() CursorKind
	Spelling() string
	Type() Type
	// ResultType is the return type of a function-like cursor. Constructors
	// and destructors report an empty spelling.
	ResultType() Type
	// UnderlyingType is the aliased type of a typedef or alias.
	UnderlyingType() (Type, error)
	Children() []Cursor
	Tokens() []Token
	// Location reports false when the cursor has no spelling location.
	Location() (Location, bool)
	StorageClass() StorageClass
	IsDefinition() bool
	// SemanticParent is nil for the translation unit.
	SemanticParent() Cursor
	// Arguments returns the parameter declarations of a function-like cursor.
	Arguments() ([]Cursor, error)
	// EnumValue is the integer value of an enumerator.
	EnumValue() (int64, error)
}

// Severity of a front-end diagnostic.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "ignored"
}

// Diagnostic is a message produced while building the translation unit.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location Location
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s at %s", d.Severity, d.Message, d.Location)
}
