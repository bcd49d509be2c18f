package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchProperty(t *testing.T) {
	tests := map[string]string{
		"Movie":        "title",
		"movie":        "title",
		"MOVIE":        "title",
		"Person":       "name",
		"organization": "name",
		"Genre":        "name",
		"":             "name",
	}
	for label, want := range tests {
		assert.Equal(t, want, searchProperty(label), "label %q", label)
	}
}

func TestBuildGraphNodesQuery(t *testing.T) {
	assert.Contains(t, buildGraphNodesQuery(true), "n.init = '1' OR n.init = 1")
	assert.NotContains(t, buildGraphNodesQuery(false), "init")
}

func TestBuildSearchQueryQuotesIdentifiers(t *testing.T) {
	q := buildSearchQuery("Movie", "title")
	assert.Contains(t, q, "MATCH (n:`Movie`)")
	assert.Contains(t, q, "toLower(toString(n.`title`)) CONTAINS toLower($keyword)")

	q = buildSearchQuery("Evil`) DETACH DELETE n //", "name")
	assert.Equal(t, 4, strings.Count(q, "`"), "injected backticks must be stripped")
	assert.Contains(t, q, "MATCH (n:`Evil) DETACH DELETE n //`)")
}

func TestBuildCreateQueries(t *testing.T) {
	assert.Equal(t, "CREATE (n:`Person`) SET n = $props RETURN n", buildCreateNodeQuery("Person"))

	q := buildCreateRelationshipQuery("ACTED_IN")
	assert.Contains(t, q, "CREATE (a)-[r:`ACTED_IN`]->(b)")
	assert.Contains(t, q, "$source_id")
	assert.Contains(t, q, "$target_id")
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`Person`", quoteIdentifier("Person"))
	assert.Equal(t, "`Bad Label`", quoteIdentifier("Bad` Label"))
}
