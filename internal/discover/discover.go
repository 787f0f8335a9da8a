// Package discover finds C and C++ source files under a root directory.
package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/DeusData/cxxfacts/internal/lang"
)

// IgnoreFileName is the per-root ignore file, in .gitignore syntax.
const IgnoreFileName = ".cxxfactsignore"

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".svn": true,
	".idea": true, ".vs": true, ".vscode": true, ".ccls-cache": true,
	".clangd": true, "CMakeFiles": true, "_deps": true,
	"bazel-bin": true, "bazel-out": true, "bazel-testlogs": true,
	"build": true, "cmake-build-debug": true, "cmake-build-release": true,
	"dist": true, "node_modules": true, "obj": true, "out": true,
	"target": true, "tmp": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = map[string]bool{
	".tmp": true, "~": true, ".orig": true, ".rej": true,
	".o": true, ".obj": true, ".a": true, ".so": true, ".dll": true,
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to root, slash separated
	Language lang.Language // detected language
	Role     lang.Role     // header or implementation
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string   // overrides <root>/.cxxfactsignore
	Patterns   []string // extra ignore patterns, .gitignore syntax
}

// Discover walks root and returns its C/C++ files sorted by RelPath. The
// root .gitignore, the ignore file and Options.Patterns are honoured.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	var matchers []*ignore.GitIgnore
	if gi := loadGitignore(filepath.Join(root, ".gitignore")); gi != nil {
		matchers = append(matchers, gi)
	}
	ignPath := opts.IgnoreFile
	if ignPath == "" {
		ignPath = filepath.Join(root, IgnoreFileName)
	}
	lines, _ := loadIgnoreFile(ignPath)
	lines = append(lines, opts.Patterns...)
	if len(lines) > 0 {
		matchers = append(matchers, ignore.CompileIgnoreLines(lines...))
	}
	ignored := func(rel string) bool {
		for _, m := range matchers {
			if m.MatchesPath(rel) {
				return true
			}
		}
		return false
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		// Check context cancellation periodically during walk
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if IGNORE_PATTERNS[d.Name()] || ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		for suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}
		if ignored(rel) {
			return nil
		}

		spec := lang.ForExtension(filepath.Ext(path))
		if spec == nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: spec.Language,
			Role:     spec.Role,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func loadGitignore(path string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
