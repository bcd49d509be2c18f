package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/internal/graph"
)

func getPostgresProvider(t *testing.T) *PostgresProvider {
	dsn := os.Getenv("GRAPH_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GRAPH_POSTGRES_DSN not set, skipping integration test")
	}

	p, err := NewPostgresProvider(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	t.Cleanup(func() {
		_, err := p.pool.Exec(context.Background(), "DELETE FROM graph_nodes WHERE props->>'fixture' = 'store_test'")
		if err != nil {
			t.Logf("Failed to cleanup: %v", err)
		}
		p.Close(context.Background())
	})
	return p
}

func TestPostgresLifecycle(t *testing.T) {
	p := getPostgresProvider(t)
	ctx := context.Background()

	create := func(label string, props map[string]any) graph.ID {
		props["fixture"] = "store_test"
		el, err := p.CreateNode(ctx, graph.NodePayload{Label: label, Properties: props})
		require.NoError(t, err)
		return el.ID()
	}
	ann := create("PgTestPerson", map[string]any{"name": "Ann Pg", "init": int64(1), "born": int64(1970)})
	film := create("PgTestMovie", map[string]any{"title": "Pg Movie"})

	rel, err := p.CreateRelationship(ctx, graph.RelationshipPayload{Source: ann, Target: film, Type: "acted_in"})
	require.NoError(t, err)
	assert.Equal(t, "ACTED_IN", rel.Data["label"])

	g, err := p.Expand(ctx, ann)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, film, g.Nodes[0].ID())

	g, err = p.Graph(ctx, true)
	require.NoError(t, err)
	assert.Contains(t, elementIDs(g.Nodes), ann)
	assert.Contains(t, elementIDs(g.Nodes), film)

	sub, err := p.Search(ctx, "PgTestPerson", "ann pg")
	require.NoError(t, err)
	assert.Equal(t, []graph.ID{ann}, sub.CenterNodeIDs)

	el, err := p.UpdateNode(ctx, ann, graph.PropertyPatch{"born": nil, "city": "Lyon"})
	require.NoError(t, err)
	assert.Equal(t, "Lyon", el.Data["city"])
	assert.NotContains(t, el.Data, "born")
	assert.Equal(t, int64(1), el.Data["init"])

	labels, err := p.Labels(ctx)
	require.NoError(t, err)
	assert.Contains(t, labels, "PgTestPerson")

	require.NoError(t, p.DeleteNode(ctx, film))
	g, err = p.Expand(ctx, ann)
	require.NoError(t, err)
	assert.Empty(t, g.Edges)
}

func TestPostgresMissingEndpoints(t *testing.T) {
	p := getPostgresProvider(t)
	ctx := context.Background()

	el, err := p.CreateNode(ctx, graph.NodePayload{Properties: map[string]any{"fixture": "store_test"}})
	require.NoError(t, err)

	_, err = p.CreateRelationship(ctx, graph.RelationshipPayload{Source: el.ID(), Target: "999999999"})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Failed to create relationship. Target node not found.", err.Error())

	_, err = p.UpdateNode(ctx, "not-a-number", graph.PropertyPatch{"x": 1})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseRowID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"4:abc:12", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRowID(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestSplitPatch(t *testing.T) {
	set, remove := splitPatch(graph.PropertyPatch{"a": 1, "b": nil, "c": "x"})
	assert.Equal(t, map[string]any{"a": 1, "c": "x"}, set)
	assert.Equal(t, []string{"b"}, remove)

	_, remove = splitPatch(graph.PropertyPatch{"a": 1})
	assert.NotNil(t, remove)
}

func TestDecodeProps(t *testing.T) {
	props, err := decodeProps([]byte(`{"n": 3, "f": 1.5, "s": "x", "nested": {"k": 7}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), props["n"])
	assert.Equal(t, 1.5, props["f"])
	assert.Equal(t, map[string]any{"k": int64(7)}, props["nested"])

	props, err = decodeProps(nil)
	require.NoError(t, err)
	assert.Empty(t, props)

	_, err = decodeProps([]byte("not json"))
	assert.Error(t, err)
}

var _ Provider = (*PostgresProvider)(nil)
