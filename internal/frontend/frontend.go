// Package frontend builds an ast.Cursor tree for a C or C++ translation unit
// from tree-sitter syntax trees.
//
// The tree mirrors what libclang exposes for the same source: quoted
// includes are resolved and their declarations spliced into the unit with
// their own file locations, -D definitions appear as macros located in
// <command line>, types are spelled the way clang prints them, enumerator
// values are folded, and out-of-line member definitions are re-parented
// onto their record. There is no semantic analysis beyond that.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/lang"
)

// CommandLineFile is the pseudo file that owns -D definitions.
const CommandLineFile = "<command line>"

// DefaultMaxIncludeDepth bounds nested #include resolution.
const DefaultMaxIncludeDepth = 32

// ErrFileNotFound is returned when the main source file does not exist.
var ErrFileNotFound = errors.New("file not found")

// Options configures one translation-unit parse.
type Options struct {
	Language        lang.Language
	Std             string
	IncludePaths    []string
	Defines         []string
	MaxIncludeDepth int
	// SkipFunctionBodies leaves function definitions without a body cursor.
	// Included headers are always parsed this way.
	SkipFunctionBodies bool
}

// TranslationUnit is the result of a parse.
type TranslationUnit struct {
	Path        string
	Language    lang.Language
	Std         string
	Root        ast.Cursor
	Diagnostics []ast.Diagnostic
	// Includes lists the headers spliced into the unit, in inclusion order.
	Includes []string
}

// HasErrors reports whether any diagnostic is at least an error.
func (tu *TranslationUnit) HasErrors() bool {
	return len(tu.Errors()) > 0
}

// Errors returns the diagnostics of error or fatal severity.
func (tu *TranslationUnit) Errors() []ast.Diagnostic {
	var out []ast.Diagnostic
	for _, d := range tu.Diagnostics {
		if d.Severity >= ast.SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Parse reads and parses the file at path.
func Parse(ctx context.Context, path string, opts Options) (*TranslationUnit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseSource(ctx, abs, src, opts)
}

// ParseSource parses src as if it were the contents of path. Includes are
// still resolved against the file system relative to path.
func ParseSource(ctx context.Context, path string, src []byte, opts Options) (*TranslationUnit, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	abs = filepath.Clean(abs)
	if opts.Language == "" {
		if l, ok := lang.LanguageForExtension(filepath.Ext(abs)); ok {
			opts.Language = l
		} else {
			opts.Language = lang.CPP
		}
	}
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = DefaultMaxIncludeDepth
	}

	b := newBuilder(ctx, opts, abs)
	b.tu.add(b.commandLine()...)
	items, err := b.parseFile(abs, src, scope{parent: b.tu, skipBodies: opts.SkipFunctionBodies})
	if err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, b.err
	}
	b.tu.add(items...)

	return &TranslationUnit{
		Path:        abs,
		Language:    opts.Language,
		Std:         opts.Std,
		Root:        b.tu,
		Diagnostics: b.diags,
		Includes:    b.includes,
	}, nil
}
