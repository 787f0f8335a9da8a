package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DeusData/cxxfacts/internal/store"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) factsCmd() *cobra.Command {
	var (
		q      store.FactQuery
		kind   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "facts [file]",
		Short: "List recorded facts",
		Long: `List the facts owned by one file, or search all facts.

Examples:
  cxxfacts facts src/net/socket.cpp
  cxxfacts facts --kind function --name '^net_'
  cxxfacts facts --scope '(global)::net' --recursive --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Offset < 0 || q.Limit < 0 {
				return fmt.Errorf("--offset and --limit must not be negative")
			}
			if kind != "" {
				k, err := store.ParseFactKind(kind)
				if err != nil {
					return err
				}
				q.Kinds = []store.FactKind{k}
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var facts []*store.Fact
			if len(args) == 1 {
				facts, err = a.fileFacts(s, args[0])
			} else {
				var res *store.FactSearch
				res, err = s.FindFacts(q)
				if res != nil {
					facts = res.Facts
				}
			}
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(facts)
			}
			a.printFacts(facts)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&kind, "kind", "", "Fact kind: macro, function, struct_or_union, enum, typedef, variable")
	f.StringVar(&q.NamePattern, "name", "", "Regex on the fact name")
	f.StringVar(&q.FilePattern, "file", "", "Glob on the file path, e.g. 'src/**' or '/abs/dir/*.h'")
	f.StringVar(&q.ScopeFQN, "scope", "", "Fully qualified scope, e.g. (global)::net")
	f.BoolVar(&q.Recursive, "recursive", false, "Include nested scopes of --scope")
	f.IntVar(&q.Limit, "limit", 0, "Maximum results (0 for all)")
	f.IntVar(&q.Offset, "offset", 0, "Skip this many results")
	f.BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) fileFacts(s *store.Store, path string) ([]*store.Fact, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := s.FileByPath(abs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file not indexed: %s", abs)
	}
	if err != nil {
		return nil, err
	}
	return s.FactsByFile(f.ID)
}

func (a *app) printFacts(facts []*store.Fact) {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, f := range facts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Kind, displayName(f), f.Location, f.ScopeFQN, detail(f))
	}
	w.Flush()
	fmt.Fprintf(a.stdout, "%d facts\n", len(facts))
}

func displayName(f *store.Fact) string {
	if f.Name == "" {
		return "<anonymous>"
	}
	if f.ParentName != "" {
		return f.ParentName + "::" + f.Name
	}
	return f.Name
}

// detail is the one-line kind-specific summary of a fact.
func detail(f *store.Fact) string {
	switch f.Kind {
	case store.KindMacro:
		return f.Body
	case store.KindFunction:
		s := f.ReturnType + " (" + f.Parameters + ")"
		if f.IsDeclaration {
			s += " decl"
		}
		if f.IsStatic {
			s += " static"
		}
		return s
	case store.KindStructOrUnion:
		return f.RecordKind + " {" + f.Members + "}"
	case store.KindEnum:
		return "{" + f.Constants + "}"
	case store.KindTypedef:
		return f.UnderlyingType
	case store.KindVariable:
		s := f.Type
		if f.IsExtern {
			s += " extern"
		}
		if f.IsStatic {
			s += " static"
		}
		if f.HasInitializer {
			s += " init"
		}
		return s
	}
	return ""
}

func (a *app) scopesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scopes [pattern]",
		Short: "List namespace scopes",
		Long: `List namespace scopes by fully qualified name, optionally filtered by a
glob such as '(global)::net*'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			scopes, err := s.ListScopes(pattern)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(scopes)
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			for _, sc := range scopes {
				fmt.Fprintf(w, "%s\t%s\n", sc.FQN, sc.Location)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show fact counts and sample names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.GetSummary()
			if err != nil {
				return err
			}
			return a.printJSON(sum)
		},
	}
}
