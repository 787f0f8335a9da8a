package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/DeusData/cxxfacts/internal/discover"
	"github.com/DeusData/cxxfacts/internal/pipeline"
	"github.com/DeusData/cxxfacts/internal/store"
	"github.com/DeusData/cxxfacts/internal/watcher"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		cacheDir string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fact store over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout. Each indexed root gets its own
database under the cache directory (default ~/.cache/cxxfacts).

With --watch, every indexed root is polled and re-indexed when its C/C++
files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, router, err := a.newToolServer(cacheDir)
			if err != nil {
				return err
			}
			defer router.CloseAll()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if watch {
				w := watcher.New(watcher.FromRouter(router), func(ctx context.Context, t watcher.Target) error {
					_, err := srv.IndexRoot(ctx, t.Root, false)
					return err
				})
				go w.Run(ctx)
			}

			slog.Info("serve.start", "cache", router.Dir(), "watch", watch)
			return srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
		},
	}
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory holding per-project databases")
	cmd.Flags().BoolVar(&watch, "watch", false, "Re-index roots when their files change")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Index a directory, then re-index it whenever its files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(s, a.cfg)
			p.Force = force
			run, err := p.IndexRepository(ctx, root)
			if err != nil {
				return err
			}
			a.printRun(run)
			p.Force = false

			target := watcher.Target{
				Name:     store.ProjectName(root),
				Root:     root,
				Discover: &discover.Options{Patterns: a.cfg.Ignore},
			}
			w := watcher.New(watcher.Static(target), func(ctx context.Context, t watcher.Target) error {
				run, err := p.IndexRepository(ctx, t.Root)
				if err != nil {
					return err
				}
				a.printRun(run)
				return nil
			})
			fmt.Fprintf(a.stdout, "watching %s (Ctrl-C to stop)\n", root)
			w.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-index unchanged files on the first pass")
	return cmd
}
