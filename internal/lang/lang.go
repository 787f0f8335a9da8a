package lang

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Language represents a supported source language.
type Language string

const (
	C   Language = "c"
	CPP Language = "c++"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{C, CPP}
}

// ParseLanguage accepts the spellings used by --lang and the config file.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "c":
		return C, nil
	case "c++", "cpp", "cxx":
		return CPP, nil
	}
	return "", fmt.Errorf("unknown language %q (want c or c++)", s)
}

// Role tells whether a file is parsed as a header or an implementation file.
type Role int

const (
	Implementation Role = iota
	Header
)

func (r Role) String() string {
	if r == Header {
		return "header"
	}
	return "impl"
}

// ErrUnsupportedExtension is returned for files that are neither C/C++
// headers nor implementation files.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// LanguageSpec describes how files with a given extension are parsed.
type LanguageSpec struct {
	Language       Language
	Role           Role
	FileExtensions []string
	// DefaultStd is applied when no --std is given.
	DefaultStd string
	// SkipFunctionBodies mirrors the header policy of not descending into
	// function bodies.
	SkipFunctionBodies bool
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".hpp").
// Exact case is tried first so ".C" stays C++.
func ForExtension(ext string) *LanguageSpec {
	if spec := registry[ext]; spec != nil {
		return spec
	}
	return registry[strings.ToLower(ext)]
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := ForExtension(ext)
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Route is the resolved parse configuration for one file.
type Route struct {
	Language           Language
	Role               Role
	Std                string
	SkipFunctionBodies bool
}

// ForFile routes a path to its language and role. forced overrides the
// language guessed from the extension; std overrides the default standard.
func ForFile(path string, forced Language, std string) (Route, error) {
	ext := filepath.Ext(path)
	spec := ForExtension(ext)
	if spec == nil {
		return Route{}, fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	r := Route{
		Language:           spec.Language,
		Role:               spec.Role,
		Std:                spec.DefaultStd,
		SkipFunctionBodies: spec.SkipFunctionBodies,
	}
	if forced != "" && forced != r.Language {
		r.Language = forced
		r.Std = ForLanguage(forced, spec.Role).DefaultStd
	}
	if std != "" {
		r.Std = std
	}
	return r, nil
}

// ForLanguage returns the first registered spec for a language and role.
func ForLanguage(l Language, role Role) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l && spec.Role == role {
			return spec
		}
	}
	return &LanguageSpec{Language: l, Role: role}
}

// IsSource reports whether path has a routable extension.
func IsSource(path string) bool {
	return ForExtension(filepath.Ext(path)) != nil
}
