package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/cxxfacts/internal/store"
)

func (s *Server) handleGetCodeSnippet(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	contextLines := getIntArg(args, "context_lines", 15)
	if contextLines < 0 {
		contextLines = 0
	}

	query := store.FactQuery{
		NamePattern: "^" + regexp.QuoteMeta(name) + "$",
		ScopeFQN:    getStringArg(args, "scope"),
		Limit:       20,
	}
	if kind := getStringArg(args, "kind"); kind != "" {
		k, err := store.ParseFactKind(kind)
		if err != nil {
			return errResult(err.Error()), nil
		}
		query.Kinds = []store.FactKind{k}
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}
	found, err := st.FindFacts(query)
	if err != nil {
		return errResult(fmt.Sprintf("search: %v", err)), nil
	}
	if found.Total == 0 {
		return errResult(fmt.Sprintf("fact not found: %s", name)), nil
	}

	// Prefer a definition when a function is both declared and defined.
	fact := found.Facts[0]
	for _, f := range found.Facts {
		if f.Kind == store.KindFunction && !f.IsDeclaration {
			fact = f
			break
		}
	}

	line, ok := locationLine(fact.Location)
	if !ok {
		return errResult(fmt.Sprintf("fact has no source location: %s", fact.Location)), nil
	}
	source, err := readLines(fact.FilePath, line, line+contextLines)
	if err != nil {
		return errResult(fmt.Sprintf("read file: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"project":    info.Name,
		"name":       fact.Name,
		"kind":       fact.Kind,
		"scope":      fact.ScopeFQN,
		"file_path":  fact.FilePath,
		"location":   fact.Location,
		"start_line": line,
		"candidates": found.Total,
		"source":     source,
	}), nil
}

// locationLine extracts the line from a file:line:col location.
func locationLine(loc string) (int, bool) {
	parts := strings.Split(loc, ":")
	if len(parts) < 3 {
		return 0, false
	}
	line, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || line <= 0 {
		return 0, false
	}
	return line, true
}

// readLines reads specific lines from a file, returning them with line numbers.
func readLines(path string, startLine, endLine int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum > endLine {
			break
		}
		if lineNum >= startLine {
			fmt.Fprintf(&sb, "%4d | %s\n", lineNum, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no lines found in range %d-%d (file has %d lines)", startLine, endLine, lineNum)
	}

	return sb.String(), nil
}
