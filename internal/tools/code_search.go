package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type codeMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (s *Server) handleSearchCode(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	pattern := getStringArg(args, "pattern")
	if pattern == "" {
		return errResult("pattern is required"), nil
	}

	fileGlob := getStringArg(args, "file_pattern")
	maxResults := getIntArg(args, "max_results", 50)
	if maxResults <= 0 {
		maxResults = 50
	}
	if maxResults > 200 {
		maxResults = 200
	}
	isRegex := getBoolArg(args, "regex")

	// Compile regex or prepare literal search
	var re *regexp.Regexp
	if isRegex {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return errResult(fmt.Sprintf("invalid regex: %v", err)), nil
		}
	}

	st, info, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("resolve store: %v", err)), nil
	}

	// Only indexed files are searched
	files, err := st.ListFiles()
	if err != nil {
		return errResult(fmt.Sprintf("list files: %v", err)), nil
	}
	var filePaths []string
	for _, f := range files {
		if fileGlob != "" {
			relPath := displayPath(info.RootPath, f.Path)
			matched, _ := filepath.Match(fileGlob, filepath.Base(f.Path))
			// Also try against the full relative path using double-star simulation
			if !matched {
				matched = globMatch(fileGlob, relPath)
			}
			if !matched {
				continue
			}
		}
		filePaths = append(filePaths, f.Path)
	}

	var matches []codeMatch
	for _, absPath := range filePaths {
		if len(matches) >= maxResults {
			break
		}
		fileMatches := searchFile(absPath, displayPath(info.RootPath, absPath), pattern, re, isRegex, maxResults-len(matches))
		matches = append(matches, fileMatches...)
	}

	return jsonResult(map[string]any{
		"project":     info.Name,
		"pattern":     pattern,
		"total":       len(matches),
		"truncated":   len(matches) >= maxResults,
		"matches":     matches,
		"files_count": len(filePaths),
	}), nil
}

func searchFile(absPath, relPath, pattern string, re *regexp.Regexp, isRegex bool, limit int) []codeMatch {
	f, err := os.Open(absPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var matches []codeMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		var found bool
		if isRegex {
			found = re.MatchString(line)
		} else {
			found = strings.Contains(line, pattern)
		}

		if found {
			content := strings.TrimSpace(line)
			if len(content) > 200 {
				content = content[:200] + "..."
			}
			matches = append(matches, codeMatch{
				File:    relPath,
				Line:    lineNum,
				Content: content,
			})
			if len(matches) >= limit {
				break
			}
		}
	}

	return matches
}

// globMatch does a simple glob match supporting ** patterns.
func globMatch(pattern, path string) bool {
	if strings.Contains(pattern, "**") {
		// Split pattern on **
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimRight(parts[0], "/")
		suffix := strings.TrimLeft(parts[1], "/")

		if prefix != "" && !strings.HasPrefix(path, prefix) {
			return false
		}
		if suffix != "" {
			matched, _ := filepath.Match(suffix, filepath.Base(path))
			return matched
		}
		return true
	}
	matched, _ := filepath.Match(pattern, path)
	return matched
}

// displayPath shows path relative to root when it lies below it.
func displayPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
