package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetSummary(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}

	summary, err := st.GetSummary()
	if err != nil {
		return errResult(fmt.Sprintf("summary: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":    info.Name,
		"root_path":  info.RootPath,
		"indexed_at": info.IndexedAt,
		"summary":    summary,
	}), nil
}
