package main

import (
	"errors"

	"github.com/spf13/cobra"

	"graphexplorer/internal/graph"
)

func newNodeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create, update or delete nodes",
	}

	var label, createProps string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProps(createProps)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.CreateNode(cmd.Context(), graph.NodePayload{Label: label, Properties: props})
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	create.Flags().StringVar(&label, "label", "", "Node label (the service defaults to Node)")
	create.Flags().StringVar(&createProps, "props", "", `Properties as a JSON object, e.g. '{"name":"Ann"}'`)

	var updateProps string
	update := &cobra.Command{
		Use:   "update <node-id>",
		Short: "Set properties on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProps(updateProps)
			if err != nil {
				return err
			}
			if len(props) == 0 {
				return errors.New("--props must name at least one property")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.UpdateNodeProperties(cmd.Context(), graph.ID(args[0]), graph.PropertyPatch(props))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	update.Flags().StringVar(&updateProps, "props", "", "Properties to set as a JSON object")
	_ = update.MarkFlagRequired("props")

	del := &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Delete a node and its relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.DeleteNode(cmd.Context(), graph.ID(args[0]))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}

func newRelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rel",
		Short: "Create or delete relationships",
	}

	var source, target, relType, props string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a relationship between two nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseProps(props)
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.CreateRelationship(cmd.Context(), graph.RelationshipPayload{
				Source:     graph.ID(source),
				Target:     graph.ID(target),
				Type:       relType,
				Properties: p,
			})
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
	create.Flags().StringVar(&source, "source", "", "Source node ID")
	create.Flags().StringVar(&target, "target", "", "Target node ID")
	create.Flags().StringVar(&relType, "type", "", "Relationship type (the service defaults to RELATED_TO)")
	create.Flags().StringVar(&props, "props", "", "Properties as a JSON object")
	_ = create.MarkFlagRequired("source")
	_ = create.MarkFlagRequired("target")

	del := &cobra.Command{
		Use:   "delete <relationship-id>",
		Short: "Delete a relationship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			res, err := c.DeleteRelationship(cmd.Context(), graph.ID(args[0]))
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}
