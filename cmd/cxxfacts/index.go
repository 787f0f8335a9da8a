package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeusData/cxxfacts/internal/ast"
	"github.com/DeusData/cxxfacts/internal/pipeline"
	"github.com/DeusData/cxxfacts/internal/store"
)

// errFailures signals that some inputs failed after their siblings were
// processed. The failures themselves were already printed.
var errFailures = errors.New("some files failed")

func (a *app) indexCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index <file|dir>...",
		Short: "Parse files or directories and record their facts",
		Long: `Parse each file as a translation unit and reconcile the facts it defines
into the database. A directory is indexed recursively; unchanged files are
skipped unless --force is given and records of deleted files are dropped.

Examples:
  cxxfacts index src/main.c
  cxxfacts index lib/net.cpp --lang c++ --std c++17 -I include
  cxxfacts index . --db out/facts.db --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndex(cmd, args, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-index files whose content is unchanged")
	return cmd
}

func (a *app) runIndex(cmd *cobra.Command, args []string, force bool) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	p := pipeline.New(s, a.cfg)
	p.Force = force
	ctx := cmd.Context()

	failed := 0
	for _, target := range args {
		info, statErr := os.Stat(target)
		if statErr == nil && info.IsDir() {
			run, err := p.IndexRepository(ctx, target)
			if err != nil {
				return err
			}
			a.printRun(run)
			failed += len(run.Failed)
			continue
		}
		res, err := p.IndexFile(ctx, target)
		if err != nil {
			if errors.Is(err, store.ErrNotBootstrapped) || ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "FAILED %s: %v\n", target, err)
			failed++
			continue
		}
		a.printFile(res)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d", errFailures, failed)
	}
	return nil
}

func (a *app) printFile(res *pipeline.FileResult) {
	fmt.Fprintf(a.stdout, "indexed %s (%s, %s): %s\n", res.Path, res.Language, res.Role, formatCounts(res.Stats.Facts))
	if res.Errors > 0 {
		fmt.Fprintf(a.stderr, "warning: %s: %d parse errors, results may be incomplete\n", res.Path, res.Errors)
		for _, d := range res.Diagnostics {
			if d.Severity >= ast.SeverityError {
				fmt.Fprintf(a.stderr, "  %s\n", d)
			}
		}
	}
}

func (a *app) printRun(run *pipeline.RunResult) {
	fmt.Fprintf(a.stdout, "indexed %s: %d discovered, %d indexed, %d unchanged, %d removed, %d failed in %s\n",
		run.Root, run.Discovered, len(run.Indexed), run.Unchanged, run.Removed, len(run.Failed), run.Elapsed.Round(time.Millisecond))
	if len(run.Facts) > 0 {
		fmt.Fprintf(a.stdout, "  facts: %s\n", formatCountMap(run.Facts))
	}
	for _, f := range run.Failed {
		fmt.Fprintf(a.stderr, "FAILED %s: %s\n", f.Path, f.Err)
	}
}

func formatCounts[K ~string](m map[K]int) string {
	plain := make(map[string]int, len(m))
	for k, v := range m {
		plain[string(k)] = v
	}
	return formatCountMap(plain)
}

func formatCountMap(m map[string]int) string {
	if len(m) == 0 {
		return "no facts"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
