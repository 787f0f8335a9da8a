// Package pipeline drives indexing: it routes files to a language, parses
// them into translation units, and reconciles the extracted facts into the
// store one file per transaction.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/config"
	"github.com/DeusData/cxxfacts/internal/discover"
	"github.com/DeusData/cxxfacts/internal/extract"
	"github.com/DeusData/cxxfacts/internal/fqn"
	"github.com/DeusData/cxxfacts/internal/frontend"
	"github.com/DeusData/cxxfacts/internal/lang"
	"github.com/DeusData/cxxfacts/internal/store"
)

// ErrParseErrors is returned in strict mode for a file whose parse
// produced error diagnostics. Its previous facts are left untouched.
var ErrParseErrors = errors.New("parse produced errors")

// Pipeline indexes files into one store.
type Pipeline struct {
	Store  *store.Store
	Config *config.Config
	// Force re-indexes files whose content hash is unchanged.
	Force bool
}

// New creates a Pipeline. A nil cfg means defaults.
func New(s *store.Store, cfg *config.Config) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Pipeline{Store: s, Config: cfg}
}

// FileResult describes the outcome for one file.
type FileResult struct {
	Path        string           `json:"path"`
	Language    lang.Language    `json:"language"`
	Role        string           `json:"role"`
	FileID      int64            `json:"file_id,omitempty"`
	Stats       extract.Stats    `json:"stats"`
	Diagnostics []ast.Diagnostic `json:"-"`
	Errors      int              `json:"errors"`
	Includes    []string         `json:"includes,omitempty"`
	Skipped     bool             `json:"skipped,omitempty"`
}

// FileError pairs a file with the reason it could not be indexed.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// RunResult summarises an IndexRepository run.
type RunResult struct {
	Project    string         `json:"project"`
	Root       string         `json:"root"`
	Discovered int            `json:"discovered"`
	Unchanged  int            `json:"unchanged"`
	Removed    int            `json:"removed"`
	Indexed    []*FileResult  `json:"indexed"`
	Failed     []FileError    `json:"failed,omitempty"`
	Elapsed    time.Duration  `json:"elapsed_ns"`
	Facts      map[string]int `json:"facts"`
}

// parsedFile is the output of the parse stage: everything needed to write
// a file, computed without touching the store.
type parsedFile struct {
	path  string
	route lang.Route
	hash  string
	tu    *frontend.TranslationUnit
	err   error
}

func (p *Pipeline) options(route lang.Route) frontend.Options {
	return frontend.Options{
		Language:           route.Language,
		Std:                route.Std,
		IncludePaths:       p.Config.IncludePaths,
		Defines:            p.Config.Defines,
		MaxIncludeDepth:    p.Config.EffectiveMaxIncludeDepth(),
		SkipFunctionBodies: route.SkipFunctionBodies,
	}
}

// parse routes, reads, hashes and parses one file. It is safe to call
// concurrently.
func (p *Pipeline) parse(ctx context.Context, path string) *parsedFile {
	pf := &parsedFile{path: path}
	forced, err := p.Config.EffectiveLanguage()
	if err != nil {
		pf.err = err
		return pf
	}
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = frontend.ErrFileNotFound
		}
		pf.err = fmt.Errorf("%s: %w", path, err)
		return pf
	}
	pf.route, err = lang.ForFile(path, forced, p.Config.Std)
	if err != nil {
		pf.err = fmt.Errorf("%s: %w", path, err)
		return pf
	}
	pf.hash = hashBytes(src)
	pf.tu, pf.err = frontend.ParseSource(ctx, path, src, p.options(pf.route))
	return pf
}

// write reconciles a parsed file inside a single transaction.
func (p *Pipeline) write(ctx context.Context, pf *parsedFile) (*FileResult, error) {
	tu := pf.tu
	res := &FileResult{
		Path:        tu.Path,
		Language:    pf.route.Language,
		Role:        pf.route.Role.String(),
		Diagnostics: tu.Diagnostics,
		Errors:      len(tu.Errors()),
		Includes:    tu.Includes,
	}
	logDiagnostics(tu)

	if res.Errors > 0 && p.Config.EffectiveStrict() {
		res.Skipped = true
		slog.Warn("pipeline.strict.skip", "path", tu.Path, "errors", res.Errors)
		return res, fmt.Errorf("%s: %d errors: %w", tu.Path, res.Errors, ErrParseErrors)
	}

	err := p.Store.WithTransaction(ctx, func(tx *store.Store) error {
		f, err := tx.BeginFile(tu.Path)
		if err != nil {
			return err
		}
		rootID, err := tx.GlobalScope()
		if err != nil {
			return err
		}
		stack := fqn.NewStack(fqn.Frame{ScopeID: rootID, FQN: fqn.Global})
		stats, err := extract.New(tx, f.ID, tu.Path).ExtractAndStore(ctx, tu.Root, stack)
		if err != nil {
			return fmt.Errorf("extract %s: %w", tu.Path, err)
		}
		res.FileID = f.ID
		res.Stats = stats
		return tx.SetFileHash(f.ID, pf.hash, string(pf.route.Language))
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("pipeline.file.done", "path", tu.Path, "facts", res.Stats.Total(), "scopes", res.Stats.Scopes)
	return res, nil
}

func logDiagnostics(tu *frontend.TranslationUnit) {
	for _, d := range tu.Diagnostics {
		switch {
		case d.Severity >= ast.SeverityError:
			slog.Warn("pipeline.diagnostic", "path", tu.Path, "severity", d.Severity.String(), "msg", d.Message, "at", d.Location.String())
		case d.Severity == ast.SeverityWarning:
			slog.Info("pipeline.diagnostic", "path", tu.Path, "severity", d.Severity.String(), "msg", d.Message, "at", d.Location.String())
		default:
			slog.Debug("pipeline.diagnostic", "path", tu.Path, "severity", d.Severity.String(), "msg", d.Message, "at", d.Location.String())
		}
	}
}

// IndexFile parses path and reconciles its facts. Unsupported extensions
// and missing files are reported before the store is touched.
func (p *Pipeline) IndexFile(ctx context.Context, path string) (*FileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if _, err := p.Store.GlobalScope(); err != nil {
		return nil, err
	}
	slog.Info("pipeline.index_file", "path", abs)
	pf := p.parse(ctx, abs)
	if pf.err != nil {
		return nil, pf.err
	}
	return p.write(ctx, pf)
}

// IndexRepository indexes every C/C++ file under root. Unchanged files are
// skipped unless Force is set; files that vanished from disk are deleted.
// A file that fails is listed in RunResult.Failed while the rest continue.
func (p *Pipeline) IndexRepository(ctx context.Context, root string) (*RunResult, error) {
	start := time.Now()
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := p.Store.GlobalScope(); err != nil {
		return nil, err
	}
	project := store.ProjectName(root)
	slog.Info("pipeline.start", "project", project, "path", root)

	files, err := discover.Discover(ctx, root, &discover.Options{Patterns: p.Config.Ignore})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	changed, unchanged, err := p.classifyFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	run := &RunResult{
		Project:    project,
		Root:       root,
		Discovered: len(files),
		Unchanged:  len(unchanged),
		Indexed:    []*FileResult{},
		Facts:      map[string]int{},
	}

	// Stage 1: parallel parse (CPU-bound, no DB)
	parsed := make([]*parsedFile, len(changed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Config.EffectiveWorkers())
	for i, f := range changed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = p.parse(gctx, f.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 2: sequential writes, one transaction per file
	for _, pf := range parsed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pf.err != nil {
			run.fail(pf.path, pf.err)
			continue
		}
		res, err := p.write(ctx, pf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			run.fail(pf.path, err)
			continue
		}
		run.Indexed = append(run.Indexed, res)
		for k, n := range res.Stats.Facts {
			run.Facts[string(k)] += n
		}
	}

	removed, err := p.removeDeletedFiles(root)
	if err != nil {
		return nil, err
	}
	run.Removed = removed

	if err := p.Store.UpsertProject(project, root); err != nil {
		return nil, fmt.Errorf("upsert project: %w", err)
	}
	run.Elapsed = time.Since(start)
	slog.Info("pipeline.done", "project", project,
		"indexed", len(run.Indexed), "unchanged", run.Unchanged,
		"failed", len(run.Failed), "removed", run.Removed, "elapsed", run.Elapsed)
	return run, nil
}

func (r *RunResult) fail(path string, err error) {
	slog.Warn("pipeline.file.err", "path", path, "err", err)
	r.Failed = append(r.Failed, FileError{Path: path, Err: err.Error()})
}

// classifyFiles splits files into changed and unchanged based on stored
// hashes and languages. File hashing is parallelized.
func (p *Pipeline) classifyFiles(ctx context.Context, files []discover.FileInfo) (changed, unchanged []discover.FileInfo, err error) {
	if p.Force {
		return files, nil, nil
	}
	known, err := p.Store.ListFiles()
	if err != nil {
		return nil, nil, err
	}
	if len(known) == 0 {
		return files, nil, nil
	}
	stored := make(map[string]*store.File, len(known))
	for _, f := range known {
		stored[f.Path] = f
	}
	forced, err := p.Config.EffectiveLanguage()
	if err != nil {
		return nil, nil, err
	}

	hashes := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Config.EffectiveWorkers())
	for i, f := range files {
		if stored[f.Path] == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := fileHash(f.Path)
			if err == nil {
				hashes[i] = h
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for i, f := range files {
		prev := stored[f.Path]
		language := f.Language
		if forced != "" {
			language = forced
		}
		if prev != nil && hashes[i] != "" && prev.ContentHash == hashes[i] && prev.Language == string(language) {
			unchanged = append(unchanged, f)
		} else {
			changed = append(changed, f)
		}
	}
	return changed, unchanged, nil
}

// removeDeletedFiles drops records of files under root that no longer
// exist on disk.
func (p *Pipeline) removeDeletedFiles(root string) (int, error) {
	known, err := p.Store.ListFiles()
	if err != nil {
		return 0, err
	}
	prefix := root + string(filepath.Separator)
	removed := 0
	for _, f := range known {
		if !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if _, err := os.Stat(f.Path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := p.Store.DeleteFile(f.Path); err != nil {
			return removed, err
		}
		slog.Info("pipeline.removed", "path", f.Path)
		removed++
	}
	return removed, nil
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashBytes(src []byte) string {
	h := xxh3.New()
	_, _ = h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}
