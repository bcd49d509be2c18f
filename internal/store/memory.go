package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/logging"
)

// MemoryProvider is a Provider that keeps the graph in process memory. It
// mirrors Neo4jProvider's semantics and serves demos and tests that have no
// database at hand.
type MemoryProvider struct {
	mu        sync.RWMutex
	nodes     map[string]neo4j.Node
	rels      map[string]neo4j.Relationship
	nodeOrder []string
	relOrder  []string
	logger    *slog.Logger
}

// NewMemoryProvider returns an empty in-memory store.
func NewMemoryProvider(logger *slog.Logger) *MemoryProvider {
	return &MemoryProvider{
		nodes:  make(map[string]neo4j.Node),
		rels:   make(map[string]neo4j.Relationship),
		logger: logging.Component(logger, "memstore"),
	}
}

func (m *MemoryProvider) Close(ctx context.Context) error {
	return nil
}

func (m *MemoryProvider) Graph(ctx context.Context, initOnly bool) (*graph.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := newCollector()
	ids := make(map[string]bool)
	for _, id := range m.nodeOrder {
		n := m.nodes[id]
		if initOnly && !isInitNode(n) {
			continue
		}
		c.addNode(n)
		ids[id] = true
	}
	m.collectNeighborhood(c, ids)
	return c.g, nil
}

func isInitNode(n neo4j.Node) bool {
	switch v := n.Props["init"].(type) {
	case string:
		return v == "1"
	case int64:
		return v == 1
	case int:
		return v == 1
	case float64:
		return v == 1
	default:
		return false
	}
}

// collectNeighborhood adds every relationship touching ids, with both of
// its endpoints. The caller holds the read lock.
func (m *MemoryProvider) collectNeighborhood(c *collector, ids map[string]bool) {
	for _, relID := range m.relOrder {
		r := m.rels[relID]
		if !ids[r.StartElementId] && !ids[r.EndElementId] {
			continue
		}
		c.addNode(m.nodes[r.StartElementId])
		c.addNode(m.nodes[r.EndElementId])
		c.addEdge(r)
	}
}

func (m *MemoryProvider) Labels(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	labels := []string{}
	for _, id := range m.nodeOrder {
		for _, l := range m.nodes[id].Labels {
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	return labels, nil
}

func (m *MemoryProvider) Search(ctx context.Context, label, keyword string) (*graph.Subgraph, error) {
	label = strings.TrimSpace(label)
	keyword = strings.TrimSpace(keyword)
	if label == "" || keyword == "" {
		return nil, newError(ErrInvalid, "Label and keyword parameters are required.")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	prop := searchProperty(label)
	needle := strings.ToLower(keyword)

	c := newCollector()
	centers := make([]graph.ID, 0)
	ids := make(map[string]bool)
	for _, id := range m.nodeOrder {
		n := m.nodes[id]
		if !hasLabel(n, label) {
			continue
		}
		v, ok := n.Props[prop]
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			c.addNode(n)
			centers = append(centers, graph.ID(id))
			ids[id] = true
		}
	}
	if len(ids) > 0 {
		m.collectNeighborhood(c, ids)
	}
	return &graph.Subgraph{Nodes: c.g.Nodes, Edges: c.g.Edges, CenterNodeIDs: centers}, nil
}

func hasLabel(n neo4j.Node, label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (m *MemoryProvider) Expand(ctx context.Context, nodeID graph.ID) (*graph.Graph, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required.")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id := string(nodeID)
	c := newCollector()
	for _, relID := range m.relOrder {
		r := m.rels[relID]
		switch id {
		case r.StartElementId:
			c.addNode(m.nodes[r.EndElementId])
		case r.EndElementId:
			c.addNode(m.nodes[r.StartElementId])
		default:
			continue
		}
		c.addEdge(r)
	}
	return c.g, nil
}

func (m *MemoryProvider) CreateNode(ctx context.Context, payload graph.NodePayload) (*graph.Element, error) {
	label, props := prepareNode(payload)
	n := neo4j.Node{
		ElementId: uuid.NewString(),
		Labels:    []string{label},
		Props:     props,
	}

	m.mu.Lock()
	m.nodes[n.ElementId] = n
	m.nodeOrder = append(m.nodeOrder, n.ElementId)
	m.mu.Unlock()

	m.logger.Debug("created node", "label", label, "id", n.ElementId)
	el := nodeElement(n)
	return &el, nil
}

func (m *MemoryProvider) CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*graph.Element, error) {
	if payload.Source == "" || payload.Target == "" {
		return nil, newError(ErrInvalid, "Source and target node IDs are mandatory")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[string(payload.Source)]; !ok {
		return nil, newError(ErrNotFound, "Failed to create relationship. Source node not found.")
	}
	if _, ok := m.nodes[string(payload.Target)]; !ok {
		return nil, newError(ErrNotFound, "Failed to create relationship. Target node not found.")
	}

	props := make(map[string]any, len(payload.Properties))
	for k, v := range payload.Properties {
		props[k] = v
	}
	r := neo4j.Relationship{
		ElementId:      uuid.NewString(),
		StartElementId: string(payload.Source),
		EndElementId:   string(payload.Target),
		Type:           relationshipType(payload.Type),
		Props:          props,
	}
	m.rels[r.ElementId] = r
	m.relOrder = append(m.relOrder, r.ElementId)

	el := relationshipElement(r)
	return &el, nil
}

func (m *MemoryProvider) UpdateNode(ctx context.Context, nodeID graph.ID, patch graph.PropertyPatch) (*graph.Element, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required")
	}
	if len(patch) == 0 {
		return nil, newError(ErrInvalid, "No properties provided for update")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[string(nodeID)]
	if !ok {
		return nil, newError(ErrNotFound, "Node not found or update failed")
	}

	props := make(map[string]any, len(n.Props)+len(patch))
	for k, v := range n.Props {
		props[k] = v
	}
	for k, v := range patch {
		// Setting a property to null removes it, as in Cypher.
		if v == nil {
			delete(props, k)
			continue
		}
		props[k] = v
	}
	n.Props = props
	m.nodes[n.ElementId] = n

	el := nodeElement(n)
	return &el, nil
}

func (m *MemoryProvider) DeleteNode(ctx context.Context, nodeID graph.ID) error {
	if nodeID == "" {
		return newError(ErrInvalid, "Node ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := string(nodeID)
	if _, ok := m.nodes[id]; !ok {
		return nil
	}
	delete(m.nodes, id)
	m.nodeOrder = without(m.nodeOrder, id)

	kept := m.relOrder[:0]
	for _, relID := range m.relOrder {
		r := m.rels[relID]
		if r.StartElementId == id || r.EndElementId == id {
			delete(m.rels, relID)
			continue
		}
		kept = append(kept, relID)
	}
	m.relOrder = kept
	return nil
}

func (m *MemoryProvider) DeleteRelationship(ctx context.Context, relID graph.ID) error {
	if relID == "" {
		return newError(ErrInvalid, "Relationship ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := string(relID)
	if _, ok := m.rels[id]; ok {
		delete(m.rels, id)
		m.relOrder = without(m.relOrder, id)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
