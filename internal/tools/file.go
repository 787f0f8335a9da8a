package tools

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/store"
)

func (s *Server) handleFileFacts(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	filePath := getStringArg(args, "path")
	if filePath == "" {
		return errResult("path is required"), nil
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}
	absPath := resolvePath(info, filePath)

	f, err := st.FileByPath(absPath)
	if errors.Is(err, sql.ErrNoRows) {
		return errResult(fmt.Sprintf("file not indexed: %s", absPath)), nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("lookup file: %v", err)), nil
	}

	facts, err := st.FactsByFile(f.ID)
	if err != nil {
		return errResult(fmt.Sprintf("facts: %v", err)), nil
	}
	grouped := map[store.FactKind][]*store.Fact{}
	for _, fact := range facts {
		grouped[fact.Kind] = append(grouped[fact.Kind], fact)
	}

	return jsonResult(map[string]any{
		"project":        info.Name,
		"file":           f.Path,
		"language":       f.Language,
		"last_parsed_at": f.LastParsedAt,
		"total":          len(facts),
		"facts":          grouped,
	}), nil
}

func (s *Server) handleReadFile(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	filePath := getStringArg(args, "path")
	if filePath == "" {
		return errResult("path is required"), nil
	}

	startLine := getIntArg(args, "start_line", 0)
	endLine := getIntArg(args, "end_line", 0)

	// Relative paths are resolved against the project root
	var info *store.ProjectInfo
	if !filepath.IsAbs(filePath) {
		if info, err = s.resolveProject(getStringArg(args, "project")); err != nil {
			return errResult(fmt.Sprintf("resolve root: %v", err)), nil
		}
	}
	absPath := resolvePath(info, filePath)

	// Check file exists and is not a directory
	stat, err := os.Stat(absPath)
	if err != nil {
		return errResult(fmt.Sprintf("file not found: %s", absPath)), nil
	}
	if stat.IsDir() {
		return errResult("path is a directory"), nil
	}

	// Cap file size at 500KB
	if stat.Size() > 500*1024 {
		return errResult(fmt.Sprintf("file too large (%d bytes, max 500KB). Use start_line/end_line to read a portion", stat.Size())), nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return errResult(fmt.Sprintf("open: %v", err)), nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB line buffer
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if startLine > 0 && lineNum < startLine {
			continue
		}
		if endLine > 0 && lineNum > endLine {
			break
		}
		line := scanner.Text()
		if len(line) > 500 {
			line = line[:500] + "..."
		}
		lines = append(lines, fmt.Sprintf("%4d | %s", lineNum, line))
	}

	if err := scanner.Err(); err != nil {
		return errResult(fmt.Sprintf("read: %v", err)), nil
	}

	result := map[string]any{
		"path":        absPath,
		"total_lines": lineNum,
		"content":     strings.Join(lines, "\n"),
	}
	if startLine > 0 || endLine > 0 {
		result["range"] = fmt.Sprintf("%d-%d", startLine, endLine)
	}

	return jsonResult(result), nil
}
