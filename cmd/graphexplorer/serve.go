package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"graphexplorer/internal/service"
	"graphexplorer/internal/store"
	"graphexplorer/internal/tools"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, prefix, backend string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the graph API service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.ListenAddr = addr
			}
			if prefix != "" {
				a.cfg.APIPrefix = prefix
			}
			if backend != "" {
				a.cfg.Store = backend
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, closeStore, err := openStore(ctx, a)
			if err != nil {
				return err
			}
			defer closeStore()

			h := service.NewHandler(p, a.logger, service.WithFrontendURL(a.cfg.FrontendURL))
			srv := service.NewServer(a.cfg.ListenAddr, h.Routes(a.cfg.APIPrefix), a.logger)
			a.logger.Info("graph service starting", "addr", a.cfg.ListenAddr, "prefix", a.cfg.APIPrefix, "store", a.cfg.Store)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GRAPH_LISTEN_ADDR)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Path prefix for API routes (overrides GRAPH_API_PREFIX)")
	cmd.Flags().StringVar(&backend, "store", "", "Backend: neo4j, postgres or memory (overrides GRAPH_STORE)")
	return cmd
}

// openStore returns the provider selected by a.cfg.Store and a function
// releasing it.
func openStore(ctx context.Context, a *app) (store.Provider, func(), error) {
	var p store.Provider
	var err error
	switch a.cfg.Store {
	case "memory":
		return store.NewMemoryProvider(a.logger), func() {}, nil
	case "neo4j", "":
		a.applySecrets()
		p, err = store.NewNeo4jProvider(ctx, a.cfg, a.logger)
	case "postgres":
		a.applySecrets()
		p, err = store.NewPostgresProvider(ctx, a.cfg.PostgresDSN, a.logger)
	default:
		return nil, nil, fmt.Errorf("unknown store %q: want neo4j, postgres or memory", a.cfg.Store)
	}
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close(context.Background()) }, nil
}

func newMCPCmd(a *app) *cobra.Command {
	var addr string
	var stdio bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server exposing the graph operations as tools",
		Long: `mcp serves graph tools backed by the graph API at --base-url.
By default it listens for streamable HTTP; --stdio speaks MCP over stdin/stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			s := tools.NewServer(Version, tools.GraphTools(c, a.logger))

			if stdio {
				return server.ServeStdio(s)
			}

			if addr != "" {
				a.cfg.MCPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("mcp server starting", "addr", a.cfg.MCPAddr, "api", c.BaseURL())
			return service.NewServer(a.cfg.MCPAddr, tools.NewHTTPHandler(s), a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GRAPH_MCP_ADDR)")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve over stdin/stdout instead of HTTP")
	return cmd
}
