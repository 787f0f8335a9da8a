package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/fqn"
)

func (s *Server) handleListScopes(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}

	scopes, err := st.ListScopes(getStringArg(args, "pattern"))
	if err != nil {
		return errResult(fmt.Sprintf("list scopes: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project": info.Name,
		"count":   len(scopes),
		"scopes":  scopes,
	}), nil
}

func (s *Server) handleScopeTree(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "scope")
	if name == "" {
		name = fqn.Global
	}
	depth := getIntArg(args, "depth", 3)
	if depth < 1 {
		depth = 1
	}
	if depth > 10 {
		depth = 10
	}
	maxResults := getIntArg(args, "max_results", 200)

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}

	root, err := st.ScopeByFQN(name)
	if errors.Is(err, sql.ErrNoRows) {
		return errResult(fmt.Sprintf("scope not found: %s", name)), nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("lookup scope: %v", err)), nil
	}

	tree, err := st.ScopeDescendants(root.ID, depth, maxResults)
	if err != nil {
		return errResult(fmt.Sprintf("traverse: %v", err)), nil
	}

	type hop struct {
		FQN   string `json:"fqn"`
		Depth int    `json:"depth"`
		Facts int    `json:"facts"`
	}
	hops := make([]hop, 0, len(tree.Visited))
	for _, h := range tree.Visited {
		hops = append(hops, hop{FQN: h.Scope.FQN, Depth: h.Hop, Facts: tree.Facts[h.Scope.ID]})
	}

	return jsonResult(map[string]any{
		"project":    info.Name,
		"root":       tree.Root.FQN,
		"root_facts": tree.Facts[tree.Root.ID],
		"scopes":     hops,
		"truncated":  len(hops) >= maxResults,
	}), nil
}
