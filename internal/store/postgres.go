package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/logging"
)

// PostgresProvider stores the graph in two PostgreSQL tables, with labels
// as a text array and properties as jsonb. Element IDs are the bigserial
// row IDs.
type PostgresProvider struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
	id     bigserial PRIMARY KEY,
	labels text[] NOT NULL,
	props  jsonb NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS graph_relationships (
	id     bigserial PRIMARY KEY,
	source bigint NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
	target bigint NOT NULL REFERENCES graph_nodes(id) ON DELETE CASCADE,
	type   text NOT NULL,
	props  jsonb NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS graph_relationships_source_idx ON graph_relationships (source);
CREATE INDEX IF NOT EXISTS graph_relationships_target_idx ON graph_relationships (target);
`

// NewPostgresProvider connects to dsn, pings the server and creates the
// graph tables if they are missing.
func NewPostgresProvider(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresProvider, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &Error{Kind: ErrUnavailable, Message: "Database connection error", Cause: err}
	}

	p := &PostgresProvider{pool: pool, logger: logging.Component(logger, "pgstore")}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create graph tables: %w", err)
	}
	return p, nil
}

func (p *PostgresProvider) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

// wrap classifies a pgx error the way Neo4jProvider does.
func (p *PostgresProvider) wrap(err error) error {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return &Error{Kind: ErrUnavailable, Message: "Database connection error", Cause: err}
	}
	return fmt.Errorf("query failed: %w", err)
}

const (
	nodeColumns     = "n.id, n.labels, n.props"
	neighborhoodSQL = `
		SELECT r.id, r.source, r.target, r.type, r.props,
		       s.id, s.labels, s.props, t.id, t.labels, t.props
		FROM graph_relationships r
		JOIN graph_nodes s ON s.id = r.source
		JOIN graph_nodes t ON t.id = r.target
		WHERE r.source = ANY($1) OR r.target = ANY($1)
		ORDER BY r.id`
)

func (p *PostgresProvider) Graph(ctx context.Context, initOnly bool) (*graph.Graph, error) {
	q := "SELECT " + nodeColumns + " FROM graph_nodes n"
	if initOnly {
		q += " WHERE n.props->>'init' = '1'"
	}
	q += " ORDER BY n.id"

	nodes, err := p.queryNodes(ctx, q)
	if err != nil {
		return nil, err
	}

	c := newCollector()
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		c.addNode(n)
		id, _ := parseRowID(n.ElementId)
		ids = append(ids, id)
	}
	if err := p.collectNeighborhood(ctx, c, ids, 0); err != nil {
		return nil, err
	}
	return c.g, nil
}

// collectNeighborhood adds the relationships touching ids with their
// endpoints. With only set, the node only is skipped and just its
// neighbors are added.
func (p *PostgresProvider) collectNeighborhood(ctx context.Context, c *collector, ids []int64, only int64) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := p.pool.Query(ctx, neighborhoodSQL, ids)
	if err != nil {
		return p.wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var relID, source, target, startID, endID int64
		var relType string
		var relProps, startProps, endProps []byte
		var startLabels, endLabels []string
		if err := rows.Scan(&relID, &source, &target, &relType, &relProps,
			&startID, &startLabels, &startProps, &endID, &endLabels, &endProps); err != nil {
			return p.wrap(err)
		}

		start, err := pgNode(startID, startLabels, startProps)
		if err != nil {
			return err
		}
		end, err := pgNode(endID, endLabels, endProps)
		if err != nil {
			return err
		}
		rel, err := pgRelationship(relID, source, target, relType, relProps)
		if err != nil {
			return err
		}

		if only == 0 || startID != only {
			c.addNode(start)
		}
		if only == 0 || endID != only {
			c.addNode(end)
		}
		c.addEdge(rel)
	}
	if err := rows.Err(); err != nil {
		return p.wrap(err)
	}
	return nil
}

func (p *PostgresProvider) Labels(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT l FROM graph_nodes, unnest(labels) AS l
		GROUP BY l ORDER BY min(id)`)
	if err != nil {
		return nil, p.wrap(err)
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, p.wrap(err)
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

func (p *PostgresProvider) Search(ctx context.Context, label, keyword string) (*graph.Subgraph, error) {
	label = strings.TrimSpace(label)
	keyword = strings.TrimSpace(keyword)
	if label == "" || keyword == "" {
		return nil, newError(ErrInvalid, "Label and keyword parameters are required.")
	}

	nodes, err := p.queryNodes(ctx, `
		SELECT `+nodeColumns+` FROM graph_nodes n
		WHERE $1 = ANY(n.labels)
		  AND strpos(lower(n.props->>$2), lower($3)) > 0
		ORDER BY n.id`, label, searchProperty(label), keyword)
	if err != nil {
		return nil, err
	}

	c := newCollector()
	centers := make([]graph.ID, 0, len(nodes))
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		c.addNode(n)
		centers = append(centers, graph.ID(n.ElementId))
		id, _ := parseRowID(n.ElementId)
		ids = append(ids, id)
	}
	if err := p.collectNeighborhood(ctx, c, ids, 0); err != nil {
		return nil, err
	}
	return &graph.Subgraph{Nodes: c.g.Nodes, Edges: c.g.Edges, CenterNodeIDs: centers}, nil
}

func (p *PostgresProvider) Expand(ctx context.Context, nodeID graph.ID) (*graph.Graph, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required.")
	}
	c := newCollector()
	id, ok := parseRowID(string(nodeID))
	if !ok {
		return c.g, nil
	}
	if err := p.collectNeighborhood(ctx, c, []int64{id}, id); err != nil {
		return nil, err
	}
	return c.g, nil
}

func (p *PostgresProvider) CreateNode(ctx context.Context, payload graph.NodePayload) (*graph.Element, error) {
	label, props := prepareNode(payload)
	data, err := json.Marshal(props)
	if err != nil {
		return nil, newError(ErrInvalid, fmt.Sprintf("properties are not serializable: %v", err))
	}

	var id int64
	err = p.pool.QueryRow(ctx,
		"INSERT INTO graph_nodes (labels, props) VALUES ($1, $2::jsonb) RETURNING id",
		[]string{label}, string(data)).Scan(&id)
	if err != nil {
		return nil, p.wrap(err)
	}

	p.logger.Debug("created node", "label", label, "id", id)
	el := nodeElement(neo4j.Node{ElementId: strconv.FormatInt(id, 10), Labels: []string{label}, Props: props})
	return &el, nil
}

func (p *PostgresProvider) CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*graph.Element, error) {
	if payload.Source == "" || payload.Target == "" {
		return nil, newError(ErrInvalid, "Source and target node IDs are mandatory")
	}

	source, err := p.existingNode(ctx, payload.Source)
	if err != nil {
		return nil, err
	}
	if source == 0 {
		return nil, newError(ErrNotFound, "Failed to create relationship. Source node not found.")
	}
	target, err := p.existingNode(ctx, payload.Target)
	if err != nil {
		return nil, err
	}
	if target == 0 {
		return nil, newError(ErrNotFound, "Failed to create relationship. Target node not found.")
	}

	props := make(map[string]any, len(payload.Properties))
	for k, v := range payload.Properties {
		props[k] = v
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, newError(ErrInvalid, fmt.Sprintf("properties are not serializable: %v", err))
	}

	relType := relationshipType(payload.Type)
	var id int64
	err = p.pool.QueryRow(ctx, `
		INSERT INTO graph_relationships (source, target, type, props)
		VALUES ($1, $2, $3, $4::jsonb) RETURNING id`,
		source, target, relType, string(data)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, newError(ErrNotFound, "Failed to create relationship. Ensure both source and target nodes exist.")
		}
		return nil, p.wrap(err)
	}

	rel, _ := pgRelationship(id, source, target, relType, nil)
	rel.Props = props
	el := relationshipElement(rel)
	return &el, nil
}

// existingNode returns the row ID of nodeID, or 0 when no such node exists.
func (p *PostgresProvider) existingNode(ctx context.Context, nodeID graph.ID) (int64, error) {
	id, ok := parseRowID(string(nodeID))
	if !ok {
		return 0, nil
	}
	var found int64
	err := p.pool.QueryRow(ctx, "SELECT id FROM graph_nodes WHERE id = $1", id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, p.wrap(err)
	}
	return found, nil
}

func (p *PostgresProvider) UpdateNode(ctx context.Context, nodeID graph.ID, patch graph.PropertyPatch) (*graph.Element, error) {
	if nodeID == "" {
		return nil, newError(ErrInvalid, "Node ID is required")
	}
	if len(patch) == 0 {
		return nil, newError(ErrInvalid, "No properties provided for update")
	}
	id, ok := parseRowID(string(nodeID))
	if !ok {
		return nil, newError(ErrNotFound, "Node not found or update failed")
	}

	set, remove := splitPatch(patch)
	data, err := json.Marshal(set)
	if err != nil {
		return nil, newError(ErrInvalid, fmt.Sprintf("properties are not serializable: %v", err))
	}

	nodes, err := p.queryNodes(ctx, `
		UPDATE graph_nodes n SET props = (n.props || $2::jsonb) - $3::text[]
		WHERE n.id = $1
		RETURNING `+nodeColumns, id, string(data), remove)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, newError(ErrNotFound, "Node not found or update failed")
	}
	el := nodeElement(nodes[0])
	return &el, nil
}

// splitPatch separates the properties to set from those a nil value
// removes.
func splitPatch(patch graph.PropertyPatch) (map[string]any, []string) {
	set := make(map[string]any, len(patch))
	remove := []string{}
	for k, v := range patch {
		if v == nil {
			remove = append(remove, k)
			continue
		}
		set[k] = v
	}
	return set, remove
}

func (p *PostgresProvider) DeleteNode(ctx context.Context, nodeID graph.ID) error {
	if nodeID == "" {
		return newError(ErrInvalid, "Node ID is required")
	}
	id, ok := parseRowID(string(nodeID))
	if !ok {
		return nil
	}
	if _, err := p.pool.Exec(ctx, "DELETE FROM graph_nodes WHERE id = $1", id); err != nil {
		return p.wrap(err)
	}
	return nil
}

func (p *PostgresProvider) DeleteRelationship(ctx context.Context, relID graph.ID) error {
	if relID == "" {
		return newError(ErrInvalid, "Relationship ID is required")
	}
	id, ok := parseRowID(string(relID))
	if !ok {
		return nil
	}
	if _, err := p.pool.Exec(ctx, "DELETE FROM graph_relationships WHERE id = $1", id); err != nil {
		return p.wrap(err)
	}
	return nil
}

func (p *PostgresProvider) queryNodes(ctx context.Context, sql string, args ...any) ([]neo4j.Node, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, p.wrap(err)
	}
	defer rows.Close()

	var nodes []neo4j.Node
	for rows.Next() {
		var id int64
		var labels []string
		var props []byte
		if err := rows.Scan(&id, &labels, &props); err != nil {
			return nil, p.wrap(err)
		}
		n, err := pgNode(id, labels, props)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, p.wrap(err)
	}
	return nodes, nil
}

// parseRowID accepts only positive decimal IDs. Anything else cannot name
// a row.
func parseRowID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pgNode(id int64, labels []string, props []byte) (neo4j.Node, error) {
	m, err := decodeProps(props)
	if err != nil {
		return neo4j.Node{}, err
	}
	return neo4j.Node{ElementId: strconv.FormatInt(id, 10), Labels: labels, Props: m}, nil
}

func pgRelationship(id, source, target int64, relType string, props []byte) (neo4j.Relationship, error) {
	m, err := decodeProps(props)
	if err != nil {
		return neo4j.Relationship{}, err
	}
	return neo4j.Relationship{
		ElementId:      strconv.FormatInt(id, 10),
		StartElementId: strconv.FormatInt(source, 10),
		EndElementId:   strconv.FormatInt(target, 10),
		Type:           relType,
		Props:          m,
	}, nil
}

// decodeProps reads a jsonb column, keeping integers as int64.
func decodeProps(data []byte) (map[string]any, error) {
	props := map[string]any{}
	if len(data) == 0 {
		return props, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return graph.NormalizeProperties(props), nil
}
