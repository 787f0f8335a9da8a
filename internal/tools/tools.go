package tools

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/config"
	"github.com/DeusData/cxxfacts/internal/store"
)

// Version is reported to MCP clients. Overridden at link time.
var Version = "0.1.0"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp    *mcp.Server
	router *store.StoreRouter
	config *config.Config

	// indexMu serialises index runs against each other and the watcher.
	indexMu sync.Mutex
}

// NewServer creates a new MCP server with all tools registered. cfg holds
// the settings from the command line; each root's .cxxfacts.yaml is merged
// under it when that root is indexed.
func NewServer(r *store.StoreRouter, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := &Server{
		router: r,
		config: cfg,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "cxxfacts",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

const projectProp = `"project": {
					"type": "string",
					"description": "Project name from list_projects. May be omitted when exactly one project is indexed."
				}`

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_repository",
		Description: "Index every C/C++ file under a directory. Records macros, functions, structs/unions/classes, enums, typedefs and variables with their namespace scope. Unchanged files are skipped via content hashing; files deleted from disk are dropped.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"repo_path": {
					"type": "string",
					"description": "Absolute path to the source root"
				},
				"force": {
					"type": "boolean",
					"description": "Re-index files even when their content hash is unchanged"
				}
			},
			"required": ["repo_path"]
		}`),
	}, s.handleIndexRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_file",
		Description: "Parse one C/C++ translation unit and reconcile the facts it defines. Facts located in included headers are not attributed to this file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Absolute path to a .c/.cc/.cpp/.h/.hpp file"
				},
				` + projectProp + `
			},
			"required": ["path"]
		}`),
	}, s.handleIndexFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_symbols",
		Description: "Search extracted facts by kind, name regex, file glob and scope. Returns name, location, owning scope and kind-specific attributes (signature, members, enum constants, underlying type, ...).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"kind": {
					"type": "string",
					"description": "Fact kind filter",
					"enum": ["macro", "function", "struct_or_union", "enum", "typedef", "variable"]
				},
				"name_pattern": {
					"type": "string",
					"description": "Regex for the fact name (e.g. '^net_.*')"
				},
				"file_pattern": {
					"type": "string",
					"description": "Glob for the file path; relative globs match below any directory (e.g. 'src/**', 'include/*.h')"
				},
				"scope": {
					"type": "string",
					"description": "Fully qualified scope name, e.g. '(global)::net'"
				},
				"recursive": {
					"type": "boolean",
					"description": "Include facts of nested scopes (default false)"
				},
				"limit": {
					"type": "integer",
					"description": "Max results (default 50, max 500)"
				},
				"offset": {
					"type": "integer",
					"description": "Skip this many results"
				}
			}
		}`),
	}, s.handleFindSymbols)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_scopes",
		Description: "List namespace scopes by fully qualified name. Anonymous namespaces appear as (anonymous)_<file>_<line>_<col>.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"pattern": {
					"type": "string",
					"description": "Glob on the fully qualified name (e.g. '(global)::net*')"
				}
			}
		}`),
	}, s.handleListScopes)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "scope_tree",
		Description: "Walk the namespace tree below a scope breadth first. Returns each nested scope with its depth and direct fact count.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"scope": {
					"type": "string",
					"description": "Fully qualified root scope (default '(global)')"
				},
				"depth": {
					"type": "integer",
					"description": "Maximum depth (1-10, default 3)"
				},
				"max_results": {
					"type": "integer",
					"description": "Maximum scopes returned (default 200)"
				}
			}
		}`),
	}, s.handleScopeTree)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "file_facts",
		Description: "Return every fact owned by one source file, grouped by kind.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"path": {
					"type": "string",
					"description": "File path (absolute, or relative to the project root)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleFileFacts)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_summary",
		Description: "Summarise a project: file and scope counts, fact counts per kind, and sample names. Use first to see what was extracted.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `
			}
		}`),
	}, s.handleGetSummary)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_code_snippet",
		Description: "Show the source around a fact's location. The fact is looked up by name, optionally narrowed by kind and scope.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"name": {
					"type": "string",
					"description": "Exact fact name"
				},
				"kind": {
					"type": "string",
					"description": "Fact kind filter"
				},
				"scope": {
					"type": "string",
					"description": "Fully qualified scope name"
				},
				"context_lines": {
					"type": "integer",
					"description": "Lines to show after the location (default 15)"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleGetCodeSnippet)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_code",
		Description: "Search for text within the indexed source files. Returns matching lines with file paths and line numbers. Use for things facts do not capture, such as string literals or code inside function bodies.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"pattern": {
					"type": "string",
					"description": "Text to search for (literal string, or regex if regex=true)"
				},
				"file_pattern": {
					"type": "string",
					"description": "Glob pattern to filter files (e.g. '*.h', 'src/**')"
				},
				"regex": {
					"type": "boolean",
					"description": "Treat pattern as a regular expression (default: false)"
				},
				"max_results": {
					"type": "integer",
					"description": "Maximum number of matches to return (default 50, max 200)"
				}
			},
			"required": ["pattern"]
		}`),
	}, s.handleSearchCode)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "read_file",
		Description: "Read a file from an indexed project. Supports line range selection for large files.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				` + projectProp + `,
				"path": {
					"type": "string",
					"description": "File path (absolute, or relative to the project root)"
				},
				"start_line": {
					"type": "integer",
					"description": "Start reading from this line (1-based, optional)"
				},
				"end_line": {
					"type": "integer",
					"description": "Stop reading at this line (inclusive, optional)"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleReadFile)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_projects",
		Description: "List all indexed projects with their root path, indexed_at timestamp and file count.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListProjects)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Delete an indexed project and its database. This action is irreversible.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project_name": {
					"type": "string",
					"description": "Name of the project to delete"
				}
			},
			"required": ["project_name"]
		}`),
	}, s.handleDeleteProject)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// getBoolArg extracts a boolean argument from parsed args.
func getBoolArg(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		return false
	}
	return b
}

// resolveProject picks the project a query runs against. An empty name is
// accepted only when exactly one project exists.
func (s *Server) resolveProject(name string) (*store.ProjectInfo, error) {
	projects, err := s.router.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if name == "" {
		switch len(projects) {
		case 0:
			return nil, fmt.Errorf("no projects indexed, run index_repository first")
		case 1:
			return projects[0], nil
		}
		names := make([]string, len(projects))
		for i, p := range projects {
			names[i] = p.Name
		}
		return nil, fmt.Errorf("project is required, one of: %s", strings.Join(names, ", "))
	}
	for _, p := range projects {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project not found: %s", name)
}

// resolveStore opens the store of the resolved project.
func (s *Server) resolveStore(name string) (*store.Store, *store.ProjectInfo, error) {
	info, err := s.resolveProject(name)
	if err != nil {
		return nil, nil, err
	}
	st, err := s.router.ForProject(info.Name)
	if err != nil {
		return nil, nil, err
	}
	return st, info, nil
}

// projectForPath finds the indexed project whose root contains path.
// The longest matching root wins.
func (s *Server) projectForPath(path string) (*store.ProjectInfo, error) {
	projects, err := s.router.ListProjects()
	if err != nil {
		return nil, err
	}
	var best *store.ProjectInfo
	for _, p := range projects {
		if p.RootPath == "" {
			continue
		}
		rel, err := filepath.Rel(p.RootPath, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if best == nil || len(p.RootPath) > len(best.RootPath) {
			best = p
		}
	}
	return best, nil
}

// resolvePath makes path absolute, joining relative paths to the project root.
func resolvePath(info *store.ProjectInfo, path string) string {
	if filepath.IsAbs(path) || info == nil || info.RootPath == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return path
		}
		return abs
	}
	return filepath.Join(info.RootPath, path)
}
