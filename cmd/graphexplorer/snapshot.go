package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/graphclient"
	"graphexplorer/internal/loader"
	"graphexplorer/internal/storage"
	"graphexplorer/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var output, nodesPath, edgesPath string
	var initOnly bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph served by the API as JSONL",
		Long: `export fetches the graph through the API and writes it as JSON lines.
With --output every node and edge goes to one file ("-" for stdout); with
--nodes and --edges they are split across two files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			split := nodesPath != "" || edgesPath != ""
			if split && (nodesPath == "" || edgesPath == "") {
				return errors.New("--nodes and --edges must be given together")
			}
			if split && output != "" {
				return errors.New("--output cannot be combined with --nodes/--edges")
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			g, err := graphclient.DecodeAs[graph.Graph](c.GetGraph(cmd.Context(), graphclient.WithInit(initOnly)))
			if err != nil {
				return err
			}

			var emitter storage.Emitter
			var closers []io.Closer
			if split {
				nf, err := os.Create(nodesPath)
				if err != nil {
					return err
				}
				ef, err := os.Create(edgesPath)
				if err != nil {
					_ = nf.Close()
					return err
				}
				closers = append(closers, nf, ef)
				emitter = storage.NewSplitJSONLEmitter(nf, ef)
			} else {
				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					closers = append(closers, f)
					w = f
				}
				emitter = storage.NewJSONLEmitter(w)
			}

			werr := storage.WriteGraph(emitter, &g)
			for _, c := range closers {
				if err := c.Close(); err != nil && werr == nil {
					werr = err
				}
			}
			if werr != nil {
				return werr
			}

			a.logger.Info("graph exported", "nodes", len(g.Nodes), "edges", len(g.Edges))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file for all elements ("-" or empty for stdout)`)
	cmd.Flags().StringVar(&nodesPath, "nodes", "", "Output file for nodes")
	cmd.Flags().StringVar(&edgesPath, "edges", "", "Output file for edges")
	cmd.Flags().BoolVar(&initOnly, "init-only", false, "Export only the initial view")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var input, nodesPath, edgesPath string
	var wipe bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSONL snapshot into Neo4j",
		Long: `import merges a JSON lines snapshot into Neo4j, keyed by each record's id.
Importing the same snapshot twice leaves the database unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(input, nodesPath, edgesPath)
			if err != nil {
				return err
			}

			a.applySecrets()
			p, err := store.NewNeo4jProvider(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close(cmd.Context()) }()

			l := loader.NewNeo4jLoader(p.Driver(), a.cfg.Neo4jDatabase, a.logger)
			if batchSize > 0 {
				l.BatchSize = batchSize
			}
			if wipe {
				if err := l.Wipe(cmd.Context()); err != nil {
					return err
				}
			}

			stats, err := l.Load(cmd.Context(), snap)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Imported %d nodes and %d relationships", stats.Nodes, stats.Edges)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSONL file holding nodes and edges")
	cmd.Flags().StringVar(&nodesPath, "nodes", "", "JSONL file holding nodes")
	cmd.Flags().StringVar(&edgesPath, "edges", "", "JSONL file holding edges")
	cmd.Flags().BoolVar(&wipe, "wipe", false, "Delete every node and relationship before loading")
	cmd.Flags().IntVar(&batchSize, "batch-size", loader.DefaultBatchSize, "Rows per UNWIND statement")
	return cmd
}

func readSnapshot(input, nodesPath, edgesPath string) (*storage.Snapshot, error) {
	switch {
	case input != "" && (nodesPath != "" || edgesPath != ""):
		return nil, errors.New("--input cannot be combined with --nodes/--edges")
	case input != "":
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return storage.ReadSnapshot(f)
	case nodesPath != "" && edgesPath != "":
		nf, err := os.Open(nodesPath)
		if err != nil {
			return nil, err
		}
		defer nf.Close()
		ef, err := os.Open(edgesPath)
		if err != nil {
			return nil, err
		}
		defer ef.Close()
		return storage.ReadSplitSnapshot(nf, ef)
	default:
		return nil, fmt.Errorf("either --input or both --nodes and --edges are required")
	}
}
