// Package storage reads and writes graph snapshots as JSON Lines.
package storage

import "graphexplorer/internal/graph"

// Emitter receives the elements of a graph one at a time.
type Emitter interface {
	EmitNode(node graph.Element) error
	EmitEdge(edge graph.Element) error
	Close() error
}

// NodeRecord is one node line of a snapshot. Label is the primary label and
// Labels every label, primary first.
type NodeRecord struct {
	ID         string
	Label      string
	Labels     []string
	Properties map[string]any
}

// EdgeRecord is one relationship line of a snapshot.
type EdgeRecord struct {
	ID         string
	Source     string
	Target     string
	Type       string
	Properties map[string]any
}

// Snapshot is a decoded snapshot file.
type Snapshot struct {
	Nodes []NodeRecord
	Edges []EdgeRecord
}

// WriteGraph emits every node of g and then every edge.
func WriteGraph(e Emitter, g *graph.Graph) error {
	for _, n := range g.Nodes {
		if err := e.EmitNode(n); err != nil {
			return err
		}
	}
	for _, edge := range g.Edges {
		if err := e.EmitEdge(edge); err != nil {
			return err
		}
	}
	return nil
}
