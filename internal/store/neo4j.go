package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphexplorer/internal/config"
	"graphexplorer/internal/graph"
	"graphexplorer/internal/logging"
)

// Neo4jProvider implements Provider using the official Neo4j Go driver.
type Neo4jProvider struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewNeo4jProvider creates a new connection to Neo4j and verifies it.
func NewNeo4jProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Neo4jProvider, error) {
	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify connectivity to neo4j: %w", err)
	}

	return NewNeo4jProviderWithDriver(driver, cfg.Neo4jDatabase, logger), nil
}

// NewNeo4jProviderWithDriver wraps an existing driver. An empty database
// name selects the server default.
func NewNeo4jProviderWithDriver(driver neo4j.DriverWithContext, database string, logger *slog.Logger) *Neo4jProvider {
	return &Neo4jProvider{
		driver:   driver,
		database: database,
		logger:   logging.Component(logger, "store"),
	}
}

// Driver exposes the underlying driver, e.g. for the snapshot loader.
func (p *Neo4jProvider) Driver() neo4j.DriverWithContext {
	return p.driver
}

// Close closes the Neo4j driver connection.
func (p *Neo4jProvider) Close(ctx context.Context) error {
	return p.driver.Close(ctx)
}

func (p *Neo4jProvider) read(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return p.execute(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

func (p *Neo4jProvider) write(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return p.execute(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (p *Neo4jProvider) execute(ctx context.Context, query string, params map[string]any, routing neo4j.ExecuteQueryConfigurationOption) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, p.driver, query, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(p.database), routing)
	if err != nil {
		if neo4j.IsConnectivityError(err) {
			return nil, &Error{Kind: ErrUnavailable, Message: "Database connection error", Cause: err}
		}
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return result, nil
}

// Graph returns the initial view: nodes flagged with init = '1' or 1 (or
// every node when initOnly is false) plus their one-hop relationships.
func (p *Neo4jProvider) Graph(ctx context.Context, initOnly bool) (*graph.Graph, error) {
	result, err := p.read(ctx, buildGraphNodesQuery(initOnly), nil)
	if err != nil {
		return nil, err
	}

	c := newCollector()
	ids := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "n")
		if err != nil {
			continue
		}
		if c.addNode(node) {
			ids = append(ids, node.ElementId)
		}
	}
	if len(ids) == 0 {
		return c.g, nil
	}

	if err := p.collectNeighborhood(ctx, c, ids); err != nil {
		return nil, err
	}

	p.logger.Info("loaded graph", "init_only", initOnly, "nodes", len(c.g.Nodes), "edges", len(c.g.Edges))
	return c.g, nil
}

func (p *Neo4jProvider) collectNeighborhood(ctx context.Context, c *collector, ids []string) error {
	result, err := p.read(ctx, buildNeighborhoodQuery(), map[string]any{"node_ids": ids})
	if err != nil {
		return err
	}

	for _, record := range result.Records {
		start, _, err := neo4j.GetRecordValue[neo4j.Node](record, "start_n")
		if err != nil {
			continue
		}
		rel, _, err := neo4j.GetRecordValue[neo4j.Relationship](record, "r")
		if err != nil {
			continue
		}
		end, _, err := neo4j.GetRecordValue[neo4j.Node](record, "end_n")
		if err != nil {
			continue
		}
		c.addNode(start)
		c.addNode(end)
		c.addEdge(rel)
	}
	return nil
}

// Labels lists every node label in the database.
func (p *Neo4jProvider) Labels(ctx context.Context) ([]string, error) {
	result, err := p.read(ctx, buildLabelsQuery(), nil)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		label, _, err := neo4j.GetRecordValue[string](record, "label")
		if err != nil {
			continue
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// Search finds nodes of label whose searchable property contains keyword,
// case-insensitively, and returns them with their one-hop neighborhood.
func (p *Neo4jProvider) Search(ctx context.Context, label, keyword string) (*graph.Subgraph, error) {
	label = strings.TrimSpace(label)
	keyword = strings.TrimSpace(keyword)
	if label == "" || keyword == "" {
		return nil, newError(ErrInvalid, "Label and keyword parameters are required.")
	}

	result, err := p.read(ctx, buildSearchQuery(label, searchProperty(label)), map[string]any{"keyword": keyword})
	if err != nil {
		return nil, err
	}

	c := newCollector()
	centers := make([]graph.ID, 0)
	ids := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		node, _, err := neo4j.GetRecordValue[neo4j.Node](record, "n")
		if err != nil {
			continue
		}
		if c.addNode(node) {
			centers = append(centers, graph.ID(node.ElementId))
			ids = append(ids, node.ElementId)
		}
	}

	if len(ids) > 0 {
		if err := p.collectNeighborhood(ctx, c, ids); err != nil {
			return nil, err
		}
	}

	p.logger.Info("search", "label", label, "keyword", keyword, "nodes", len(c.g.Nodes), "edges", len(c.g.Edges))
	return &graph.Subgraph{Nodes: c.g.Nodes, Edges: c.g.Edges, CenterNodeIDs: centers}, nil
}

// Expand returns the neighbors of a node and the relationships linking them
// to it. The node itself is not part of the result.
func (p *Neo4jProvider) Expand(ctx context.Context, nodeID graph.ID) (*graph.Graph, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required.")
	}

	result, err := p.read(ctx, buildExpandQuery(), map[string]any{"node_id": string(nodeID)})
	if err != nil {
		return nil, err
	}

	c := newCollector()
	for _, record := range result.Records {
		rel, _, err := neo4j.GetRecordValue[neo4j.Relationship](record, "r")
		if err != nil {
			continue
		}
		neighbor, _, err := neo4j.GetRecordValue[neo4j.Node](record, "neighbor")
		if err != nil {
			continue
		}
		c.addNode(neighbor)
		c.addEdge(rel)
	}

	p.logger.Info("expanded node", "node_id", nodeID, "nodes", len(c.g.Nodes), "edges", len(c.g.Edges))
	return c.g, nil
}

// CreateNode creates a node labelled payload.Label ("Node" when blank). A
// node given neither a name nor a title is named "New <label>".
func (p *Neo4jProvider) CreateNode(ctx context.Context, payload graph.NodePayload) (*graph.Element, error) {
	label, props := prepareNode(payload)

	result, err := p.write(ctx, buildCreateNodeQuery(label), map[string]any{"props": props})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("failed to create node in DB")
	}

	node, _, err := neo4j.GetRecordValue[neo4j.Node](result.Records[0], "n")
	if err != nil {
		return nil, fmt.Errorf("failed to read created node: %w", err)
	}

	p.logger.Info("created node", "label", label, "id", node.ElementId)
	el := nodeElement(node)
	return &el, nil
}

func prepareNode(payload graph.NodePayload) (string, map[string]any) {
	label := strings.TrimSpace(payload.Label)
	if label == "" {
		label = "Node"
	}

	props := make(map[string]any, len(payload.Properties)+1)
	for k, v := range payload.Properties {
		props[k] = v
	}
	if isBlank(props["name"]) && isBlank(props["title"]) {
		props["name"] = "New " + label
	}
	return label, props
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case bool:
		return !s
	default:
		return false
	}
}

// CreateRelationship links two existing nodes. The type is upper-cased and
// defaults to RELATED_TO.
func (p *Neo4jProvider) CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*graph.Element, error) {
	if payload.Source == "" || payload.Target == "" {
		return nil, newError(ErrInvalid, "Source and target node IDs are mandatory")
	}
	relType := relationshipType(payload.Type)

	props := make(map[string]any, len(payload.Properties))
	for k, v := range payload.Properties {
		props[k] = v
	}

	result, err := p.write(ctx, buildCreateRelationshipQuery(relType), map[string]any{
		"source_id": string(payload.Source),
		"target_id": string(payload.Target),
		"props":     props,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Records) > 0 {
		rel, _, err := neo4j.GetRecordValue[neo4j.Relationship](result.Records[0], "r")
		if err != nil {
			return nil, fmt.Errorf("failed to read created relationship: %w", err)
		}
		p.logger.Info("created relationship", "type", relType, "id", rel.ElementId)
		el := relationshipElement(rel)
		return &el, nil
	}

	// Nothing matched: report which endpoint is missing.
	detail := "Ensure both source and target nodes exist."
	if ok, err := p.nodeExists(ctx, payload.Source); err == nil && !ok {
		detail = "Source node not found."
	} else if ok, err := p.nodeExists(ctx, payload.Target); err == nil && !ok {
		detail = "Target node not found."
	}
	p.logger.Warn("relationship not created", "source", payload.Source, "target", payload.Target, "detail", detail)
	return nil, newError(ErrNotFound, "Failed to create relationship. "+detail)
}

func relationshipType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return "RELATED_TO"
	}
	return t
}

func (p *Neo4jProvider) nodeExists(ctx context.Context, id graph.ID) (bool, error) {
	result, err := p.read(ctx, buildNodeExistsQuery(), map[string]any{"id": string(id)})
	if err != nil {
		return false, err
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	exists, _, err := neo4j.GetRecordValue[bool](result.Records[0], "exists")
	return exists, err
}

// UpdateNode merges patch into the node's properties.
func (p *Neo4jProvider) UpdateNode(ctx context.Context, nodeID graph.ID, patch graph.PropertyPatch) (*graph.Element, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required")
	}
	if len(patch) == 0 {
		return nil, newError(ErrInvalid, "No properties provided for update")
	}

	result, err := p.write(ctx, buildUpdateNodeQuery(), map[string]any{
		"node_id": string(nodeID),
		"props":   map[string]any(patch),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, newError(ErrNotFound, "Node not found or update failed")
	}

	node, _, err := neo4j.GetRecordValue[neo4j.Node](result.Records[0], "n")
	if err != nil {
		return nil, fmt.Errorf("failed to read updated node: %w", err)
	}
	el := nodeElement(node)
	return &el, nil
}

// DeleteNode removes a node and all of its relationships. Deleting a
// missing node is not an error.
func (p *Neo4jProvider) DeleteNode(ctx context.Context, nodeID graph.ID) error {
	if nodeID == "" {
		return newError(ErrInvalid, "Node ID is required")
	}
	_, err := p.write(ctx, buildDeleteNodeQuery(), map[string]any{"node_id": string(nodeID)})
	if err == nil {
		p.logger.Info("deleted node", "id", nodeID)
	}
	return err
}

// DeleteRelationship removes a single relationship. Deleting a missing
// relationship is not an error.
func (p *Neo4jProvider) DeleteRelationship(ctx context.Context, relID graph.ID) error {
	if relID == "" {
		return newError(ErrInvalid, "Relationship ID is required")
	}
	_, err := p.write(ctx, buildDeleteRelationshipQuery(), map[string]any{"rel_id": string(relID)})
	if err == nil {
		p.logger.Info("deleted relationship", "id", relID)
	}
	return err
}
