// Command ast_debug prints the cursor tree the frontend builds for a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/frontend"
	"github.com/DeusData/cxxfacts/internal/lang"
)

func printCursor(c ast.Cursor, indent int) {
	if c == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	loc := "-"
	if l, ok := c.Location(); ok {
		loc = l.String()
	}
	typ := ""
	if t := c.Type(); t != nil && t.Spelling() != "" {
		typ = " type=" + t.Spelling()
	}
	def := ""
	if c.IsDefinition() {
		def = " def"
	}
	fmt.Printf("%s%s %q%s%s @ %s\n", prefix, c.Kind(), c.Spelling(), typ, def, loc)
	for _, child := range c.Children() {
		printCursor(child, indent+1)
	}
}

func main() {
	forced := flag.String("lang", "", "force language: c or c++")
	std := flag.String("std", "", "language standard")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug [-lang c|c++] [-std std] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	l, err := lang.ParseLanguage(*forced)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	route, err := lang.ForFile(path, l, *std)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	tu, err := frontend.Parse(context.Background(), path, frontend.Options{
		Language:           route.Language,
		Std:                route.Std,
		SkipFunctionBodies: route.SkipFunctionBodies,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	fmt.Printf("=== %s (%s, %s) ===\n", tu.Path, tu.Language, tu.Std)
	printCursor(tu.Root, 0)
	for _, d := range tu.Diagnostics {
		fmt.Println(d)
	}
}
