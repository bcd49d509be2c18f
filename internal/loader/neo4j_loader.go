// Package loader imports graph snapshots into Neo4j.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphexplorer/internal/logging"
	"graphexplorer/internal/storage"
)

// ImportKey is the property nodes and relationships are merged on. It holds
// the element ID the record had in the exporting database.
const ImportKey = "import_id"

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 1000

// Neo4jLoader handles batch loading of snapshot data into Neo4j.
type Neo4jLoader struct {
	Driver    neo4j.DriverWithContext
	DBName    string
	BatchSize int
	logger    *slog.Logger
}

// Stats counts the rows a Load sent to the database.
type Stats struct {
	Nodes int
	Edges int
}

// NewNeo4jLoader creates a new loader instance.
func NewNeo4jLoader(driver neo4j.DriverWithContext, dbName string, logger *slog.Logger) *Neo4jLoader {
	return &Neo4jLoader{
		Driver:    driver,
		DBName:    dbName,
		BatchSize: DefaultBatchSize,
		logger:    logging.Component(logger, "loader"),
	}
}

// Load applies constraints, then merges every node and every edge of snap.
// Loading the same snapshot twice leaves the database unchanged.
func (l *Neo4jLoader) Load(ctx context.Context, snap *storage.Snapshot) (Stats, error) {
	if err := l.ApplyConstraints(ctx, nodeLabels(snap.Nodes)); err != nil {
		return Stats{}, err
	}
	if err := l.BatchLoadNodes(ctx, snap.Nodes); err != nil {
		return Stats{}, err
	}
	if err := l.BatchLoadEdges(ctx, snap.Edges, snap.Nodes); err != nil {
		return Stats{Nodes: len(snap.Nodes)}, err
	}
	l.logger.Info("snapshot loaded", "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	return Stats{Nodes: len(snap.Nodes), Edges: len(snap.Edges)}, nil
}

// BatchLoadNodes loads nodes using UNWIND, one statement per label set and
// chunk. Nodes are merged on their primary label and carry every other label.
func (l *Neo4jLoader) BatchLoadNodes(ctx context.Context, nodes []storage.NodeRecord) error {
	if len(nodes) == 0 {
		return nil
	}

	batches := groupNodesByLabels(nodes)

	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	for _, key := range sortedKeys(batches) {
		labels := splitKey(key)
		query := buildNodeQuery(labels[0], labels[1:]...)
		for _, chunk := range chunkRows(batches[key], l.batchSize()) {
			_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return tx.Run(ctx, query, map[string]any{"batch": chunk})
			})
			if err != nil {
				return fmt.Errorf("failed to load nodes for labels %s: %w", strings.Join(labels, ":"), err)
			}
		}
		l.logger.Debug("loaded nodes", "labels", labels, "count", len(batches[key]))
	}

	return nil
}

// BatchLoadEdges loads edges using UNWIND. Endpoints are matched on
// ImportKey under their primary label when nodes holds them, so nodes must be
// loaded first.
func (l *Neo4jLoader) BatchLoadEdges(ctx context.Context, edges []storage.EdgeRecord, nodes []storage.NodeRecord) error {
	if len(edges) == 0 {
		return nil
	}

	batches := groupEdges(edges, primaryLabels(nodes))

	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	for _, key := range sortedKeys(batches) {
		parts := splitKey(key)
		relType := parts[0]
		query := buildEdgeQuery(relType, parts[1], parts[2])
		for _, chunk := range chunkRows(batches[key], l.batchSize()) {
			_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return tx.Run(ctx, query, map[string]any{"batch": chunk})
			})
			if err != nil {
				return fmt.Errorf("failed to load edges for type %s: %w", relType, err)
			}
		}
		l.logger.Debug("loaded edges", "type", relType, "count", len(batches[key]))
	}

	return nil
}

// Wipe deletes all data from the database.
func (l *Neo4jLoader) Wipe(ctx context.Context) error {
	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, buildWipeQuery(), nil)
	})
	if err == nil {
		l.logger.Warn("database wiped", "database", l.DBName)
	}
	return err
}

// ApplyConstraints creates an index on ImportKey for every label so the
// MERGE statements stay fast on large snapshots.
func (l *Neo4jLoader) ApplyConstraints(ctx context.Context, labels []string) error {
	session := l.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: l.DBName})
	defer session.Close(ctx)

	for _, label := range labels {
		query := buildIndexQuery(label)
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, query, nil)
		})
		if err != nil {
			return fmt.Errorf("failed to apply index '%s': %w", query, err)
		}
	}
	return nil
}

func (l *Neo4jLoader) batchSize() int {
	if l.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return l.BatchSize
}

// Helpers extracted for testing

// keySep joins the parts of a batch key.
const keySep = "\x00"

func splitKey(key string) []string {
	return strings.Split(key, keySep)
}

// nodeLabelSet returns the primary label of n first, then its other labels
// without duplicates. An unlabelled record becomes a Node.
func nodeLabelSet(n storage.NodeRecord) []string {
	primary := strings.TrimSpace(n.Label)
	if primary == "" && len(n.Labels) > 0 {
		primary = strings.TrimSpace(n.Labels[0])
	}
	if primary == "" {
		primary = "Node"
	}
	set := []string{primary}
	seen := map[string]bool{primary: true}
	for _, l := range n.Labels {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		set = append(set, l)
	}
	return set
}

func groupNodesByLabels(nodes []storage.NodeRecord) map[string][]map[string]any {
	batches := make(map[string][]map[string]any)
	for _, n := range nodes {
		key := strings.Join(nodeLabelSet(n), keySep)

		props := make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			props[k] = v
		}

		batches[key] = append(batches[key], map[string]any{
			"key":   n.ID,
			"props": props,
		})
	}
	return batches
}

// primaryLabels maps each node ID to the label it is merged on.
func primaryLabels(nodes []storage.NodeRecord) map[string]string {
	out := make(map[string]string, len(nodes))
	for _, n := range nodes {
		out[n.ID] = nodeLabelSet(n)[0]
	}
	return out
}

// nodeLabels lists the primary labels in use, which are the ones indexed.
func nodeLabels(nodes []storage.NodeRecord) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, n := range nodes {
		l := nodeLabelSet(n)[0]
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	sort.Strings(labels)
	return labels
}

func buildNodeQuery(label string, extra ...string) string {
	var set strings.Builder
	for _, l := range extra {
		set.WriteString(":")
		set.WriteString(quoteIdentifier(l))
	}
	setLabels := ""
	if set.Len() > 0 {
		setLabels = "\n\t\t\tSET n" + set.String()
	}
	return fmt.Sprintf(`
			UNWIND $batch AS row
			MERGE (n:%s {%s: row.key})%s
			SET n += row.props
		`, quoteIdentifier(label), ImportKey, setLabels)
}

// groupEdges batches edges by relationship type and endpoint labels. An
// endpoint missing from labelsByID gets an empty label.
func groupEdges(edges []storage.EdgeRecord, labelsByID map[string]string) map[string][]map[string]any {
	batches := make(map[string][]map[string]any)
	for _, e := range edges {
		relType := strings.ToUpper(strings.TrimSpace(e.Type))
		if relType == "" {
			relType = "RELATED_TO"
		}

		props := make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			props[k] = v
		}

		key := e.ID
		if key == "" {
			key = e.Source + "->" + e.Target + ":" + relType
		}

		batch := strings.Join([]string{relType, labelsByID[e.Source], labelsByID[e.Target]}, keySep)
		batches[batch] = append(batches[batch], map[string]any{
			"key":      key,
			"sourceId": e.Source,
			"targetId": e.Target,
			"props":    props,
		})
	}
	return batches
}

// buildEdgeQuery matches endpoints through their label so the ImportKey
// index applies. An empty label matches any node.
func buildEdgeQuery(relType, sourceLabel, targetLabel string) string {
	return fmt.Sprintf(`
			UNWIND $batch AS row
			MATCH (source%[3]s {%[2]s: row.sourceId})
			MATCH (target%[4]s {%[2]s: row.targetId})
			MERGE (source)-[r:%[1]s {%[2]s: row.key}]->(target)
			SET r += row.props
		`, quoteIdentifier(relType), ImportKey, labelPattern(sourceLabel), labelPattern(targetLabel))
}

func labelPattern(label string) string {
	if label == "" {
		return ""
	}
	return ":" + quoteIdentifier(label)
}

func buildIndexQuery(label string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.%s)", quoteIdentifier(label), ImportKey)
}

func buildWipeQuery() string {
	return "MATCH (n) DETACH DELETE n"
}

func chunkRows(rows []map[string]any, size int) [][]map[string]any {
	var chunks [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

func sortedKeys(m map[string][]map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sanitizeLabel(label string) string {
	return strings.ReplaceAll(label, "`", "")
}

func quoteIdentifier(name string) string {
	return "`" + sanitizeLabel(name) + "`"
}
