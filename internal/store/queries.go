package store

import (
	"fmt"
	"strings"
)

// searchableProperties maps a capitalized label to the property matched by
// keyword search.
var searchableProperties = map[string]string{
	"Movie":        "title",
	"Person":       "name",
	"Organization": "name",
}

const defaultSearchProperty = "name"

// searchProperty picks the property searched for label. The lookup ignores
// case beyond the first letter: "person" and "PERSON" both match "Person".
func searchProperty(label string) string {
	if prop, ok := searchableProperties[capitalize(label)]; ok {
		return prop
	}
	return defaultSearchProperty
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func buildGraphNodesQuery(initOnly bool) string {
	if initOnly {
		return "MATCH (n) WHERE n.init = '1' OR n.init = 1 RETURN n"
	}
	return "MATCH (n) RETURN n"
}

func buildNeighborhoodQuery() string {
	return `
		MATCH (start_n)-[r]-(end_n)
		WHERE elementId(start_n) IN $node_ids
		RETURN start_n, r, end_n
	`
}

func buildSearchQuery(label, property string) string {
	return fmt.Sprintf(`
		MATCH (n:%s)
		WHERE toLower(toString(n.%s)) CONTAINS toLower($keyword)
		RETURN n
	`, quoteIdentifier(label), quoteIdentifier(property))
}

func buildExpandQuery() string {
	return `
		MATCH (start_n)-[r]-(neighbor)
		WHERE elementId(start_n) = $node_id
		RETURN r, neighbor
	`
}

func buildLabelsQuery() string {
	return "CALL db.labels() YIELD label RETURN label"
}

func buildCreateNodeQuery(label string) string {
	return fmt.Sprintf("CREATE (n:%s) SET n = $props RETURN n", quoteIdentifier(label))
}

func buildUpdateNodeQuery() string {
	return `
		MATCH (n) WHERE elementId(n) = $node_id
		SET n += $props
		RETURN n
	`
}

func buildDeleteNodeQuery() string {
	return "MATCH (n) WHERE elementId(n) = $node_id DETACH DELETE n"
}

func buildCreateRelationshipQuery(relType string) string {
	return fmt.Sprintf(`
		MATCH (a), (b)
		WHERE elementId(a) = $source_id AND elementId(b) = $target_id
		CREATE (a)-[r:%s]->(b)
		SET r = $props
		RETURN r
	`, quoteIdentifier(relType))
}

func buildNodeExistsQuery() string {
	return "MATCH (n) WHERE elementId(n) = $id RETURN count(n) > 0 AS exists"
}

func buildDeleteRelationshipQuery() string {
	return "MATCH ()-[r]->() WHERE elementId(r) = $rel_id DELETE r"
}

func sanitizeLabel(label string) string {
	return strings.ReplaceAll(label, "`", "")
}

// quoteIdentifier makes a label, type or property name safe to splice into
// Cypher.
func quoteIdentifier(name string) string {
	return "`" + sanitizeLabel(name) + "`"
}
