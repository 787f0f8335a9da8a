package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/store"
)

type handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r, err := store.NewRouterWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.CloseAll)
	return NewServer(r, nil)
}

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "net", "socket.hpp"), `#pragma once
namespace net {
struct Endpoint { int port; };
int connect(const char *host, int port);
namespace {
int hidden;
}
}
`)
	writeFile(t, filepath.Join(dir, "net", "socket.cpp"), `#include "socket.hpp"
namespace net {
static int retries = 3;
int connect(const char *host, int port) {
	return port;
}
}
`)
	return dir
}

// call invokes h with args and decodes the JSON payload.
func call(t *testing.T, h handler, args map[string]any) (map[string]any, bool) {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if res.IsError {
		return map[string]any{"error": text}, false
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode %q: %v", text, err)
	}
	return out, true
}

func mustCall(t *testing.T, h handler, args map[string]any) map[string]any {
	t.Helper()
	out, ok := call(t, h, args)
	if !ok {
		t.Fatalf("tool error: %v", out["error"])
	}
	return out
}

func indexed(t *testing.T) (*Server, string) {
	t.Helper()
	srv := newTestServer(t)
	dir := setupRepo(t)
	out := mustCall(t, srv.handleIndexRepository, map[string]any{"repo_path": dir})
	if out["indexed"].(float64) != 2 {
		t.Fatalf("indexed = %v", out["indexed"])
	}
	return srv, dir
}

func TestIndexRepositoryTool(t *testing.T) {
	srv, dir := indexed(t)

	again := mustCall(t, srv.handleIndexRepository, map[string]any{"repo_path": dir})
	if again["unchanged"].(float64) != 2 || again["indexed"].(float64) != 0 {
		t.Errorf("second run = %v", again)
	}
	forced := mustCall(t, srv.handleIndexRepository, map[string]any{"repo_path": dir, "force": true})
	if forced["indexed"].(float64) != 2 {
		t.Errorf("forced run = %v", forced)
	}

	if _, ok := call(t, srv.handleIndexRepository, map[string]any{}); ok {
		t.Error("expected error without repo_path")
	}
	if _, ok := call(t, srv.handleIndexRepository, map[string]any{"repo_path": filepath.Join(dir, "nope")}); ok {
		t.Error("expected error for missing directory")
	}
}

func TestFindSymbols(t *testing.T) {
	srv, _ := indexed(t)

	out := mustCall(t, srv.handleFindSymbols, map[string]any{"kind": "function", "name_pattern": "^connect$"})
	if out["total"].(float64) != 2 {
		t.Fatalf("expected declaration and definition, got %v", out["total"])
	}
	for _, r := range out["results"].([]any) {
		fact := r.(map[string]any)
		if fact["scope"] != "(global)::net" {
			t.Errorf("scope = %v", fact["scope"])
		}
	}

	out = mustCall(t, srv.handleFindSymbols, map[string]any{"scope": "(global)::net", "recursive": true, "kind": "variable"})
	if out["total"].(float64) != 2 {
		t.Errorf("recursive variables = %v", out["total"])
	}

	out = mustCall(t, srv.handleFindSymbols, map[string]any{"limit": 1})
	if out["has_more"] != true || len(out["results"].([]any)) != 1 {
		t.Errorf("pagination = %v", out)
	}

	out = mustCall(t, srv.handleFindSymbols, map[string]any{"file_pattern": "net/*.cpp", "kind": "function"})
	if out["total"].(float64) != 1 {
		t.Errorf("relative file glob matched %v", out["total"])
	}

	if _, ok := call(t, srv.handleFindSymbols, map[string]any{"kind": "class"}); ok {
		t.Error("expected error for unknown kind")
	}
	if _, ok := call(t, srv.handleFindSymbols, map[string]any{"offset": -1}); ok {
		t.Error("expected error for negative offset")
	}
}

func TestScopeTools(t *testing.T) {
	srv, _ := indexed(t)

	out := mustCall(t, srv.handleListScopes, map[string]any{"pattern": "(global)::net*"})
	if out["count"].(float64) != 2 {
		t.Fatalf("scopes = %v", out["scopes"])
	}
	var anon bool
	for _, sc := range out["scopes"].([]any) {
		if strings.HasPrefix(sc.(map[string]any)["fqn"].(string), "(global)::net::(anonymous)_socket.hpp_") {
			anon = true
		}
	}
	if !anon {
		t.Errorf("anonymous namespace missing: %v", out["scopes"])
	}

	tree := mustCall(t, srv.handleScopeTree, map[string]any{})
	if tree["root"] != "(global)" {
		t.Errorf("root = %v", tree["root"])
	}
	hops := tree["scopes"].([]any)
	if len(hops) != 2 {
		t.Fatalf("hops = %v", hops)
	}
	first := hops[0].(map[string]any)
	if first["fqn"] != "(global)::net" || first["depth"].(float64) != 1 {
		t.Errorf("first hop = %v", first)
	}

	if _, ok := call(t, srv.handleScopeTree, map[string]any{"scope": "(global)::missing"}); ok {
		t.Error("expected error for unknown scope")
	}
}

func TestFileFactsAndSnippet(t *testing.T) {
	srv, _ := indexed(t)

	out := mustCall(t, srv.handleFileFacts, map[string]any{"path": "net/socket.cpp"})
	if out["total"].(float64) != 2 {
		t.Errorf("socket.cpp facts = %v", out["facts"])
	}
	if _, ok := call(t, srv.handleFileFacts, map[string]any{"path": "net/other.cpp"}); ok {
		t.Error("expected error for unindexed file")
	}

	snip := mustCall(t, srv.handleGetCodeSnippet, map[string]any{"name": "connect", "kind": "function", "context_lines": 2})
	if !strings.Contains(snip["source"].(string), "return port;") {
		t.Errorf("snippet should show the definition, got %q", snip["source"])
	}
	if snip["candidates"].(float64) != 2 {
		t.Errorf("candidates = %v", snip["candidates"])
	}

	read := mustCall(t, srv.handleReadFile, map[string]any{"path": "net/socket.cpp", "start_line": 3, "end_line": 3})
	if !strings.Contains(read["content"].(string), "static int retries = 3;") {
		t.Errorf("read_file content = %q", read["content"])
	}
}

func TestSearchCode(t *testing.T) {
	srv, _ := indexed(t)

	out := mustCall(t, srv.handleSearchCode, map[string]any{"pattern": "retries"})
	if out["total"].(float64) != 1 {
		t.Fatalf("matches = %v", out["matches"])
	}
	m := out["matches"].([]any)[0].(map[string]any)
	if m["file"] != "net/socket.cpp" || m["line"].(float64) != 3 {
		t.Errorf("match = %v", m)
	}

	out = mustCall(t, srv.handleSearchCode, map[string]any{"pattern": `int \w+\(`, "regex": true, "file_pattern": "*.hpp"})
	if out["total"].(float64) != 1 {
		t.Errorf("regex matches in headers = %v", out["matches"])
	}
}

func TestSummaryAndProjects(t *testing.T) {
	srv, dir := indexed(t)

	sum := mustCall(t, srv.handleGetSummary, map[string]any{})
	summary := sum["summary"].(map[string]any)
	if summary["files"].(float64) != 2 || summary["scopes"].(float64) != 2 {
		t.Errorf("summary = %v", summary)
	}

	raw := mustCallList(t, srv.handleListProjects)
	if len(raw) != 1 || raw[0]["root_path"] != dir || raw[0]["name"] != store.ProjectName(dir) {
		t.Fatalf("projects = %v", raw)
	}

	// A second project makes the project argument mandatory.
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "a.c"), "int a;\n")
	mustCall(t, srv.handleIndexRepository, map[string]any{"repo_path": other})
	if _, ok := call(t, srv.handleFindSymbols, map[string]any{}); ok {
		t.Error("expected ambiguity error with two projects")
	}
	out := mustCall(t, srv.handleFindSymbols, map[string]any{"project": store.ProjectName(other)})
	if out["total"].(float64) != 1 {
		t.Errorf("other project facts = %v", out["total"])
	}

	mustCall(t, srv.handleDeleteProject, map[string]any{"project_name": store.ProjectName(other)})
	if len(mustCallList(t, srv.handleListProjects)) != 1 {
		t.Error("project not deleted")
	}
	if _, ok := call(t, srv.handleDeleteProject, map[string]any{"project_name": "nope"}); ok {
		t.Error("expected error deleting unknown project")
	}
}

func TestIndexFileTool(t *testing.T) {
	srv, dir := indexed(t)

	writeFile(t, filepath.Join(dir, "net", "extra.cpp"), "namespace net { int extra_fn(); }\n")
	out := mustCall(t, srv.handleIndexFile, map[string]any{"path": filepath.Join(dir, "net", "extra.cpp")})
	if out["project"] != store.ProjectName(dir) {
		t.Errorf("file should join the enclosing project, got %v", out["project"])
	}
	if out["facts"].(map[string]any)["function"].(float64) != 1 {
		t.Errorf("facts = %v", out["facts"])
	}

	stray := t.TempDir()
	writeFile(t, filepath.Join(stray, "lone.c"), "#define LONE 1\n")
	out = mustCall(t, srv.handleIndexFile, map[string]any{"path": filepath.Join(stray, "lone.c")})
	if out["project"] != store.ProjectName(stray) {
		t.Errorf("stray project = %v", out["project"])
	}

	if _, ok := call(t, srv.handleIndexFile, map[string]any{"path": filepath.Join(stray, "x.py")}); ok {
		t.Error("expected error for unsupported extension")
	}
}

func mustCallList(t *testing.T, h handler) []map[string]any {
	t.Helper()
	res, err := h(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}})
	if err != nil || res.IsError {
		t.Fatalf("call failed: %v %v", err, res)
	}
	var out []map[string]any
	if err := json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestLocationLine(t *testing.T) {
	tests := []struct {
		loc  string
		line int
		ok   bool
	}{
		{"socket.cpp:12:5", 12, true},
		{"C:/src/a.c:3:1", 3, true},
		{"N/A", 0, false},
		{"a.c:x:1", 0, false},
	}
	for _, tt := range tests {
		line, ok := locationLine(tt.loc)
		if line != tt.line || ok != tt.ok {
			t.Errorf("locationLine(%q) = %d, %v", tt.loc, line, ok)
		}
	}
}
