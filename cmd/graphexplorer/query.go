package main

import (
	"github.com/spf13/cobra"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/graphclient"
)

func newGraphCmd(a *app) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Fetch the initial graph view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.GetGraph(cmd.Context(), graphclient.WithInit(!full))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Fetch every node instead of the initial view")
	return cmd
}

func newLabelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List node labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.GetNodeLabels(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var label, keyword string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search nodes of a label by keyword and return their neighborhood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.SearchSubgraph(cmd.Context(), label, keyword)
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Node label to search")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Text to look for")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expand <node-id>",
		Short: "Fetch the direct neighbors of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.ExpandNode(cmd.Context(), graph.ID(args[0]))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
}
