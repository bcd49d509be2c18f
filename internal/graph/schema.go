package graph

import "strconv"

// ID identifies a node or relationship. Values come from earlier service
// responses and are treated as opaque handles.
type ID string

// NumericID converts a numeric handle into an ID.
func NumericID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

func (id ID) String() string {
	return string(id)
}

// NodePayload is the body of a node creation request.
type NodePayload struct {
	Label      string         `json:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RelationshipPayload is the body of a relationship creation request.
type RelationshipPayload struct {
	Source     ID             `json:"source"`
	Target     ID             `json:"target"`
	Type       string         `json:"type,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// PropertyPatch maps property names to their new values.
type PropertyPatch map[string]any

// Element is a single node or edge in the Cytoscape-style shape the service
// answers with: all attributes live under "data".
type Element struct {
	Data map[string]any `json:"data"`
}

// ID returns the element's "id" attribute, or "" when absent.
func (e Element) ID() ID {
	switch v := e.Data["id"].(type) {
	case string:
		return ID(v)
	case nil:
		return ""
	default:
		return ID(stringify(v))
	}
}

// Graph is a set of node and edge elements.
type Graph struct {
	Nodes []Element `json:"nodes"`
	Edges []Element `json:"edges"`
}

// NewGraph returns a Graph whose slices encode as [] rather than null.
func NewGraph() *Graph {
	return &Graph{Nodes: []Element{}, Edges: []Element{}}
}

// Subgraph is a search result: the matched center nodes plus their
// neighborhood.
type Subgraph struct {
	Nodes         []Element `json:"nodes"`
	Edges         []Element `json:"edges"`
	CenterNodeIDs []ID      `json:"center_node_ids"`
}

func stringify(v any) string {
	switch n := v.(type) {
	case interface{ String() string }:
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}
