package store

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphexplorer/internal/graph"
)

// nodeElement converts a Neo4j node to an element. Properties are copied
// first so they cannot shadow "id" or "labels". A node with neither "name"
// nor "title" gets its first label, or "Node", as display name.
func nodeElement(n neo4j.Node) graph.Element {
	data := make(map[string]any, len(n.Props)+3)
	for k, v := range n.Props {
		data[k] = v
	}

	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	data["id"] = n.ElementId
	data["labels"] = labels

	_, hasName := data["name"]
	_, hasTitle := data["title"]
	if !hasName && !hasTitle {
		if len(labels) > 0 {
			data["name"] = labels[0]
		} else {
			data["name"] = "Node"
		}
	}
	return graph.Element{Data: data}
}

// relationshipElement converts a Neo4j relationship to an element whose
// "label" is the relationship type.
func relationshipElement(r neo4j.Relationship) graph.Element {
	data := make(map[string]any, len(r.Props)+4)
	for k, v := range r.Props {
		data[k] = v
	}
	data["id"] = r.ElementId
	data["source"] = r.StartElementId
	data["target"] = r.EndElementId
	data["label"] = r.Type
	return graph.Element{Data: data}
}

// collector accumulates nodes and edges in first-seen order, dropping
// duplicates.
type collector struct {
	g         *graph.Graph
	seenNodes map[string]bool
	seenEdges map[string]bool
}

func newCollector() *collector {
	return &collector{
		g:         graph.NewGraph(),
		seenNodes: make(map[string]bool),
		seenEdges: make(map[string]bool),
	}
}

func (c *collector) addNode(n neo4j.Node) bool {
	if c.seenNodes[n.ElementId] {
		return false
	}
	c.seenNodes[n.ElementId] = true
	c.g.Nodes = append(c.g.Nodes, nodeElement(n))
	return true
}

func (c *collector) addEdge(r neo4j.Relationship) {
	if c.seenEdges[r.ElementId] {
		return
	}
	c.seenEdges[r.ElementId] = true
	c.g.Edges = append(c.g.Edges, relationshipElement(r))
}
