package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/config"
	"github.com/DeusData/cxxfacts/internal/pipeline"
	"github.com/DeusData/cxxfacts/internal/store"
)

// effectiveConfig layers the server's settings over the root's config file.
func (s *Server) effectiveConfig(root string) (*config.Config, error) {
	fileCfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return fileCfg.Merge(s.config), nil
}

// IndexRoot indexes root into its project store. It is shared by the
// index_repository tool and the watcher.
func (s *Server) IndexRoot(ctx context.Context, root string, force bool) (*pipeline.RunResult, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absPath)
	}
	cfg, err := s.effectiveConfig(absPath)
	if err != nil {
		return nil, err
	}
	st, err := s.router.ForProject(store.ProjectName(absPath))
	if err != nil {
		return nil, err
	}

	// Lock to prevent concurrent indexing with the watcher
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	p := pipeline.New(st, cfg)
	p.Force = force
	return p.IndexRepository(ctx, absPath)
}

func (s *Server) handleIndexRepository(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	repoPath := getStringArg(args, "repo_path")
	if repoPath == "" {
		return errResult("repo_path is required"), nil
	}

	run, err := s.IndexRoot(ctx, repoPath, getBoolArg(args, "force"))
	if err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":    run.Project,
		"root":       run.Root,
		"discovered": run.Discovered,
		"indexed":    len(run.Indexed),
		"unchanged":  run.Unchanged,
		"removed":    run.Removed,
		"failed":     run.Failed,
		"facts":      run.Facts,
		"elapsed_ms": run.Elapsed.Milliseconds(),
	}), nil
}

func (s *Server) handleIndexFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	// The file joins the project whose root contains it. A stray file gets
	// a project rooted at its own directory.
	var root, project string
	if name := getStringArg(args, "project"); name != "" {
		info, err := s.resolveProject(name)
		if err != nil {
			return errResult(err.Error()), nil
		}
		root, project = info.RootPath, info.Name
	} else if info, _ := s.projectForPath(absPath); info != nil {
		root, project = info.RootPath, info.Name
	} else {
		root = filepath.Dir(absPath)
		project = store.ProjectName(root)
	}

	cfg, err := s.effectiveConfig(root)
	if err != nil {
		return errResult(err.Error()), nil
	}
	st, err := s.router.ForProject(project)
	if err != nil {
		return errResult(err.Error()), nil
	}

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	res, err := pipeline.New(st, cfg).IndexFile(ctx, absPath)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if _, err := st.GetProject(project); err != nil {
		if err := st.UpsertProject(project, root); err != nil {
			return errResult(fmt.Sprintf("upsert project: %v", err)), nil
		}
	}

	return jsonResult(map[string]any{
		"project":     project,
		"file":        res.Path,
		"language":    res.Language,
		"role":        res.Role,
		"facts":       res.Stats.Facts,
		"scopes":      res.Stats.Scopes,
		"degraded":    res.Stats.Degraded,
		"errors":      res.Errors,
		"includes":    res.Includes,
		"diagnostics": diagnosticStrings(res),
	}), nil
}

func diagnosticStrings(res *pipeline.FileResult) []string {
	out := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		out = append(out, d.String())
	}
	return out
}
