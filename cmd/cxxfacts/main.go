// Command cxxfacts extracts scoped symbol facts from C and C++ sources into
// SQLite and serves them over MCP.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeusData/cxxfacts/internal/config"
	"github.com/DeusData/cxxfacts/internal/lang"
	"github.com/DeusData/cxxfacts/internal/store"
	"github.com/DeusData/cxxfacts/internal/tools"
)

var version = "dev"

// DefaultDatabase is used when neither --db nor the config names one.
const DefaultDatabase = "cxxfacts.db"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the global flags and output streams through the commands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	database   string
	includes   []string
	defines    []string
	language   string
	std        string
	strict     bool
	workers    int
	logLevel   string

	cfg *config.Config
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cxxfacts",
		Short: "Extract scoped C/C++ symbol facts into SQLite",
		Long: `cxxfacts parses C and C++ translation units and records every macro,
function, struct/union/class, enum, typedef and variable they define,
together with its namespace scope, in a SQLite database.

Examples:
  cxxfacts index src/net/socket.cpp -I include -D NDEBUG
  cxxfacts index . --workers 8
  cxxfacts facts --kind function --scope '(global)::net'
  cxxfacts serve --watch`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ./"+config.FileName+")")
	pf.StringVar(&a.database, "db", "", "SQLite database file (default "+DefaultDatabase+")")
	pf.StringArrayVarP(&a.includes, "include", "I", nil, "Add directory to the include search path")
	pf.StringArrayVarP(&a.defines, "define", "D", nil, "Define a macro, NAME or NAME=VALUE")
	pf.StringVar(&a.language, "lang", "", "Force language: c or c++")
	pf.StringVar(&a.std, "std", "", "Language standard, e.g. c11 or c++17")
	pf.BoolVar(&a.strict, "strict", false, "Skip files whose parse produced errors")
	pf.IntVar(&a.workers, "workers", 0, "Parallel parse workers (default: number of CPUs)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.indexCmd(),
		a.factsCmd(),
		a.scopesCmd(),
		a.summaryCmd(),
		a.serveCmd(),
		a.watchCmd(),
	)
	return root
}

// setup loads the config file, overlays the command-line flags and
// installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		base *config.Config
		err  error
	)
	if a.configPath != "" {
		base, err = config.LoadFile(a.configPath)
	} else {
		base, err = config.Load(".")
	}
	if err != nil {
		return err
	}

	if _, err := lang.ParseLanguage(a.language); err != nil {
		return err
	}
	flags := &config.Config{
		Database:     a.database,
		IncludePaths: a.includes,
		Defines:      a.defines,
		Language:     a.language,
		Std:          a.std,
		LogLevel:     a.logLevel,
	}
	if cmd.Flags().Changed("strict") {
		flags.Strict = &a.strict
	}
	if cmd.Flags().Changed("workers") {
		flags.Workers = &a.workers
	}
	a.cfg = base.Merge(flags)

	handler := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: a.cfg.EffectiveLogLevel()})
	slog.SetDefault(slog.New(handler))
	return nil
}

// openStore opens the database named by --db or the config.
func (a *app) openStore() (*store.Store, error) {
	path := a.cfg.Database
	if path == "" {
		path = DefaultDatabase
	}
	return store.OpenPath(path)
}

// newToolServer builds the MCP server over the per-project cache.
func (a *app) newToolServer(cacheDir string) (*tools.Server, *store.StoreRouter, error) {
	var (
		r   *store.StoreRouter
		err error
	)
	if cacheDir != "" {
		r, err = store.NewRouterWithDir(cacheDir)
	} else {
		r, err = store.NewRouter()
	}
	if err != nil {
		return nil, nil, err
	}
	tools.Version = version
	return tools.NewServer(r, a.cfg), r, nil
}
