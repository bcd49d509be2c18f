package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/internal/config"
	"graphexplorer/internal/graph"
)

func getProvider(t *testing.T) *Neo4jProvider {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set, skipping integration test")
	}

	cfg := config.Config{
		Neo4jURI:      uri,
		Neo4jUser:     os.Getenv("NEO4J_USER"),
		Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		Neo4jDatabase: os.Getenv("NEO4J_DATABASE"),
	}

	provider, err := NewNeo4jProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	t.Cleanup(func() {
		cleanup(t, provider)
		provider.Close(context.Background())
	})
	return provider
}

func cleanup(t *testing.T, p *Neo4jProvider) {
	_, err := neo4j.ExecuteQuery(context.Background(), p.driver,
		"MATCH (n) WHERE n.fixture = 'store_test' DETACH DELETE n",
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(p.database))
	if err != nil {
		t.Logf("Failed to cleanup: %v", err)
	}
}

func createFixture(t *testing.T, p *Neo4jProvider, label string, props map[string]any) string {
	t.Helper()
	props["fixture"] = "store_test"
	el, err := p.CreateNode(context.Background(), graph.NodePayload{Label: label, Properties: props})
	require.NoError(t, err)
	return el.Data["id"].(string)
}

func TestNeo4jConnection(t *testing.T) {
	getProvider(t)
}

func TestCreateAndExpand(t *testing.T) {
	p := getProvider(t)
	ctx := context.Background()

	alice := createFixture(t, p, "StoreTestPerson", map[string]any{"name": "Alice Store"})
	movie := createFixture(t, p, "StoreTestMovie", map[string]any{"title": "Store Movie"})

	rel, err := p.CreateRelationship(ctx, graph.RelationshipPayload{
		Source: graph.ID(alice),
		Target: graph.ID(movie),
		Type:   "acted_in",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACTED_IN", rel.Data["label"])
	assert.Equal(t, alice, rel.Data["source"])
	assert.Equal(t, movie, rel.Data["target"])

	g, err := p.Expand(ctx, graph.ID(alice))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, movie, g.Nodes[0].Data["id"])
	require.Len(t, g.Edges, 1)
	assert.Equal(t, rel.Data["id"], g.Edges[0].Data["id"])
}

func TestCreateNodeDefaultsName(t *testing.T) {
	p := getProvider(t)

	el, err := p.CreateNode(context.Background(), graph.NodePayload{
		Label:      "StoreTestThing",
		Properties: map[string]any{"fixture": "store_test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New StoreTestThing", el.Data["name"])
	assert.Equal(t, []string{"StoreTestThing"}, el.Data["labels"])
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	p := getProvider(t)

	id := createFixture(t, p, "StoreTestPerson", map[string]any{"name": "Keanu Storetest"})

	sub, err := p.Search(context.Background(), "StoreTestPerson", "KEANU")
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{graph.ID(id)}, sub.CenterNodeIDs)
	require.Len(t, sub.Nodes, 1)
}

func TestUpdateNodeMergesProperties(t *testing.T) {
	p := getProvider(t)
	ctx := context.Background()

	id := createFixture(t, p, "StoreTestPerson", map[string]any{"name": "Bob", "born": int64(1964)})

	el, err := p.UpdateNode(ctx, graph.ID(id), graph.PropertyPatch{"born": int64(1965)})
	require.NoError(t, err)
	assert.Equal(t, "Bob", el.Data["name"])
	assert.Equal(t, int64(1965), el.Data["born"])

	_, err = p.UpdateNode(ctx, "4:missing:0", graph.PropertyPatch{"x": 1})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateRelationshipMissingTarget(t *testing.T) {
	p := getProvider(t)

	id := createFixture(t, p, "StoreTestPerson", map[string]any{"name": "Lonely"})

	_, err := p.CreateRelationship(context.Background(), graph.RelationshipPayload{
		Source: graph.ID(id),
		Target: "4:missing:0",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "Target node not found")
}

func TestDeleteNodeIsIdempotent(t *testing.T) {
	p := getProvider(t)
	ctx := context.Background()

	id := createFixture(t, p, "StoreTestPerson", map[string]any{"name": "Gone"})

	require.NoError(t, p.DeleteNode(ctx, graph.ID(id)))
	require.NoError(t, p.DeleteNode(ctx, graph.ID(id)))

	g, err := p.Expand(ctx, graph.ID(id))
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
}

func TestValidationWithoutDatabase(t *testing.T) {
	p := &Neo4jProvider{}
	ctx := context.Background()

	_, err := p.UpdateNode(ctx, "1", nil)
	assert.True(t, errors.Is(err, ErrInvalid))

	_, err = p.CreateRelationship(ctx, graph.RelationshipPayload{Source: "1"})
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, "Source and target node IDs are mandatory", err.Error())

	_, err = p.Search(ctx, " ", "x")
	assert.True(t, errors.Is(err, ErrInvalid))

	assert.True(t, errors.Is(p.DeleteNode(ctx, ""), ErrInvalid))
	assert.True(t, errors.Is(p.DeleteRelationship(ctx, ""), ErrInvalid))
}

func TestPrepareNode(t *testing.T) {
	tests := []struct {
		name      string
		payload   graph.NodePayload
		wantLabel string
		wantName  any
	}{
		{"defaults", graph.NodePayload{}, "Node", "New Node"},
		{"trimmed label", graph.NodePayload{Label: "  Person "}, "Person", "New Person"},
		{"keeps name", graph.NodePayload{Label: "Person", Properties: map[string]any{"name": "Ann"}}, "Person", "Ann"},
		{"title suffices", graph.NodePayload{Label: "Movie", Properties: map[string]any{"title": "Heat"}}, "Movie", nil},
		{"blank name replaced", graph.NodePayload{Label: "Person", Properties: map[string]any{"name": ""}}, "Person", "New Person"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, props := prepareNode(tt.payload)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantName, props["name"])
		})
	}
}

func TestPrepareNodeDoesNotMutatePayload(t *testing.T) {
	in := map[string]any{"born": 1}
	_, props := prepareNode(graph.NodePayload{Label: "Person", Properties: in})
	assert.Equal(t, "New Person", props["name"])
	assert.NotContains(t, in, "name")
}

func TestRelationshipType(t *testing.T) {
	assert.Equal(t, "RELATED_TO", relationshipType(""))
	assert.Equal(t, "RELATED_TO", relationshipType("   "))
	assert.Equal(t, "KNOWS", relationshipType(" knows "))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: ErrUnavailable, Message: "Database connection error", Cause: errors.New("dial tcp")}
	assert.Equal(t, "Database connection error: dial tcp", err.Error())
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))
}
