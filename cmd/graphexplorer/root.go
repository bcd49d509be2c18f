package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"graphexplorer/internal/config"
	"graphexplorer/internal/graphclient"
	"graphexplorer/internal/logging"
	"graphexplorer/internal/secrets"
	"graphexplorer/internal/telemetry"
)

// app carries the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	baseURL    string
	logLevel   string

	cfg      config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error

	openSecrets func() (*secrets.Store, error)
	traceOpts   []telemetry.Option
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(secrets.Open)
}

// newRootCmdWith builds the command tree with a custom credential store
// opener.
func newRootCmdWith(openSecrets func() (*secrets.Store, error)) *cobra.Command {
	cmd, _ := newCLI(openSecrets)
	return cmd
}

// newCLI builds the command tree and returns the state its commands share,
// so the caller can release it with execute.
func newCLI(openSecrets func() (*secrets.Store, error), traceOpts ...telemetry.Option) (*cobra.Command, *app) {
	a := &app{openSecrets: openSecrets, traceOpts: traceOpts}

	root := &cobra.Command{
		Use:           "graphexplorer",
		Short:         "Explore and edit a property graph over its HTTP API",
		Long:          `graphexplorer queries and edits a graph through the graph service API, exports and imports snapshots, and runs the reference service and the MCP tool server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Graph API base URL (overrides GRAPH_API_BASE_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newGraphCmd(a),
		newLabelsCmd(a),
		newSearchCmd(a),
		newExpandCmd(a),
		newNodeCmd(a),
		newRelCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newCredentialsCmd(a),
		newVersionCmd(),
	)
	return root, a
}

// shutdownTimeout bounds the final span flush.
const shutdownTimeout = 5 * time.Second

// execute runs cmd and then flushes telemetry, whether or not the command
// failed. The command's error wins over a flush error.
func execute(cmd *cobra.Command, a *app) error {
	err := cmd.Execute()
	if a.shutdown == nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	serr := a.shutdown(ctx)
	a.shutdown = nil
	if err != nil {
		if serr != nil && a.logger != nil {
			a.logger.Warn("failed to flush traces", "error", serr)
		}
		return err
	}
	return serr
}

// setup resolves configuration in increasing precedence: defaults, config
// file, .env and environment, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := config.DefaultConfig()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(a.configPath); err != nil {
			return err
		}
	}
	config.ApplyEnvOverrides(&cfg)
	if a.baseURL != "" {
		cfg.APIBaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	tp, err := telemetry.InitTracing(cmd.Context(), cfg, Version, a.traceOpts...)
	if err != nil {
		return err
	}
	a.shutdown = tp.Shutdown
	return nil
}

// applySecrets fills missing database credentials from the OS credential
// store. An unavailable store only costs a debug line.
func (a *app) applySecrets() {
	s, err := a.openSecrets()
	if err != nil {
		a.logger.Debug("credential store unavailable", "error", err)
		return
	}
	if err := s.Apply(&a.cfg); err != nil {
		a.logger.Warn("failed to read stored credentials", "error", err)
	}
}

func (a *app) client() (*graphclient.Client, error) {
	return graphclient.NewFromConfig(a.cfg, graphclient.WithLogger(a.logger))
}

// printResult writes a call result as indented JSON to the command output.
func printResult(cmd *cobra.Command, res *graphclient.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// parseProps decodes a --props flag value. An empty value yields nil.
func parseProps(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("--props must be a JSON object: %w", err)
	}
	return props, nil
}
