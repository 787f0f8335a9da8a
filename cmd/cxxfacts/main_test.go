package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// cli runs the command in-process against db and returns its exit code and
// both output streams.
func cli(t *testing.T, db string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{args[0], "--db", db, "--log-level", "error"}, args[1:]...)
	code := run(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestIndexSingleFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "facts.db")
	src := filepath.Join(dir, "main.c")
	writeFile(t, src, "#define LIMIT 4\nstatic int count;\nint main(void) { return count; }\n")

	code, out, errOut := cli(t, db, "index", src)
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if !strings.Contains(out, "indexed "+src) {
		t.Errorf("stdout = %q", out)
	}
	if !strings.Contains(out, "function=1") || !strings.Contains(out, "macro=1") || !strings.Contains(out, "variable=1") {
		t.Errorf("counts missing from %q", out)
	}
}

func TestIndexFailures(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "facts.db")
	good := filepath.Join(dir, "ok.c")
	writeFile(t, good, "int ok;\n")
	writeFile(t, filepath.Join(dir, "script.py"), "print(1)\n")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"unsupported extension", filepath.Join(dir, "script.py"), "unsupported file extension"},
		{"missing file", filepath.Join(dir, "gone.c"), "file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := cli(t, db, "index", tt.path, good)
			if code != 1 {
				t.Errorf("exit = %d", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr %q does not mention %q", errOut, tt.want)
			}
			// the sibling is still processed
			if !strings.Contains(out, "indexed "+good) {
				t.Errorf("stdout = %q", out)
			}
		})
	}
}

func TestIndexStrict(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "facts.db")
	bad := filepath.Join(dir, "bad.c")
	writeFile(t, bad, "int ok_before;\nint broken( {\n")

	code, _, errOut := cli(t, db, "index", bad)
	if code != 0 {
		t.Fatalf("best effort exit %d: %q", code, errOut)
	}
	if !strings.Contains(errOut, "parse errors") {
		t.Errorf("expected a parse error warning, got %q", errOut)
	}

	code, _, errOut = cli(t, db, "index", "--strict", bad)
	if code != 1 || !strings.Contains(errOut, "FAILED "+bad) {
		t.Errorf("strict exit %d, stderr %q", code, errOut)
	}
}

func TestIndexDirectoryAndQuery(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(t.TempDir(), "facts.db")
	writeFile(t, filepath.Join(dir, "net", "socket.hpp"), "#pragma once\nnamespace net {\nint connect(int port);\n}\n")
	writeFile(t, filepath.Join(dir, "net", "socket.cpp"), "#include \"socket.hpp\"\nnamespace net {\nint connect(int port) { return port; }\n}\n")

	code, out, errOut := cli(t, db, "index", dir)
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if !strings.Contains(out, "2 discovered, 2 indexed") {
		t.Errorf("stdout = %q", out)
	}

	code, out, _ = cli(t, db, "index", dir)
	if code != 0 || !strings.Contains(out, "0 indexed, 2 unchanged") {
		t.Errorf("second run exit %d: %q", code, out)
	}

	code, out, _ = cli(t, db, "facts", "--kind", "function", "--scope", "(global)::net", "--json")
	if code != 0 {
		t.Fatalf("facts exit %d", code)
	}
	var facts []map[string]any
	if err := json.Unmarshal([]byte(out), &facts); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(facts) != 2 {
		t.Errorf("expected declaration and definition, got %d", len(facts))
	}

	code, out, _ = cli(t, db, "facts", "--file", "net/*.hpp")
	if code != 0 || !strings.Contains(out, "1 facts") {
		t.Errorf("relative --file glob exit %d: %q", code, out)
	}

	code, _, errOut = cli(t, db, "facts", "--offset", "-1")
	if code != 1 || !strings.Contains(errOut, "must not be negative") {
		t.Errorf("negative offset exit %d: %q", code, errOut)
	}

	code, out, _ = cli(t, db, "facts", filepath.Join(dir, "net", "socket.cpp"))
	if code != 0 || !strings.Contains(out, "1 facts") {
		t.Errorf("file facts exit %d: %q", code, out)
	}

	code, out, _ = cli(t, db, "scopes")
	if code != 0 || !strings.Contains(out, "(global)::net") {
		t.Errorf("scopes exit %d: %q", code, out)
	}

	code, out, _ = cli(t, db, "summary")
	if code != 0 || !strings.Contains(out, `"files": 2`) {
		t.Errorf("summary exit %d: %q", code, out)
	}
}

func TestRejectsUnknownLanguage(t *testing.T) {
	db := filepath.Join(t.TempDir(), "facts.db")
	code, _, errOut := cli(t, db, "scopes", "--lang", "rust")
	if code != 1 || !strings.Contains(errOut, "Error:") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}
