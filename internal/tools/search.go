package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/store"
)

func (s *Server) handleFindSymbols(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	params := store.FactQuery{
		NamePattern: getStringArg(args, "name_pattern"),
		FilePattern: getStringArg(args, "file_pattern"),
		ScopeFQN:    getStringArg(args, "scope"),
		Recursive:   getBoolArg(args, "recursive"),
		Limit:       getIntArg(args, "limit", 50),
		Offset:      getIntArg(args, "offset", 0),
	}
	if params.Offset < 0 {
		return errResult("offset must not be negative"), nil
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 500 {
		params.Limit = 500
	}
	if kind := getStringArg(args, "kind"); kind != "" {
		k, err := store.ParseFactKind(kind)
		if err != nil {
			return errResult(err.Error()), nil
		}
		params.Kinds = []store.FactKind{k}
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}

	output, err := st.FindFacts(params)
	if err != nil {
		return errResult(fmt.Sprintf("search: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":  info.Name,
		"total":    output.Total,
		"limit":    params.Limit,
		"offset":   params.Offset,
		"has_more": params.Offset+params.Limit < output.Total,
		"results":  output.Facts,
	}), nil
}
