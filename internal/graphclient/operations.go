package graphclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"graphexplorer/internal/graph"
)

type graphOptions struct {
	init bool
}

// GraphOption tunes GetGraph.
type GraphOption func(*graphOptions)

// SkipInit asks the service for the whole graph instead of running its
// initial-view selection.
func SkipInit() GraphOption {
	return func(o *graphOptions) { o.init = false }
}

// WithInit sets the initialization flag explicitly; false is SkipInit.
func WithInit(init bool) GraphOption {
	return func(o *graphOptions) { o.init = init }
}

// GetGraph fetches the initial graph. The query string init=false is sent
// only when initialization is skipped.
func (c *Client) GetGraph(ctx context.Context, opts ...GraphOption) (*Result, error) {
	o := graphOptions{init: true}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint := "/graph"
	if !o.init {
		endpoint += "?init=false"
	}
	return c.Do(ctx, http.MethodGet, endpoint, nil)
}

// GetNodeLabels lists the node labels known to the service.
func (c *Client) GetNodeLabels(ctx context.Context) (*Result, error) {
	return c.Do(ctx, http.MethodGet, "/schema/labels", nil)
}

// SearchSubgraph finds nodes of label matching keyword, with their
// neighborhood.
func (c *Client) SearchSubgraph(ctx context.Context, label, keyword string) (*Result, error) {
	endpoint := "/search?label=" + escape(label) + "&keyword=" + escape(keyword)
	return c.Do(ctx, http.MethodGet, endpoint, nil)
}

// ExpandNode fetches the one-hop neighborhood of a node.
func (c *Client) ExpandNode(ctx context.Context, id graph.ID) (*Result, error) {
	return c.Do(ctx, http.MethodGet, "/expand/"+escape(string(id)), nil)
}

// CreateNode creates a node from payload.
func (c *Client) CreateNode(ctx context.Context, payload graph.NodePayload) (*Result, error) {
	return c.Do(ctx, http.MethodPost, "/nodes", payload)
}

// CreateRelationship creates a relationship from payload.
func (c *Client) CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*Result, error) {
	return c.Do(ctx, http.MethodPost, "/relationships", payload)
}

type updateBody struct {
	Properties graph.PropertyPatch `json:"properties"`
}

// UpdateNodeProperties sends patch as {"properties": patch}.
func (c *Client) UpdateNodeProperties(ctx context.Context, id graph.ID, patch graph.PropertyPatch) (*Result, error) {
	return c.Do(ctx, http.MethodPut, nodePath(id), updateBody{Properties: patch})
}

// DeleteNode deletes a node and its relationships.
func (c *Client) DeleteNode(ctx context.Context, id graph.ID) (*Result, error) {
	return c.Do(ctx, http.MethodDelete, nodePath(id), nil)
}

// DeleteRelationship deletes a single relationship.
func (c *Client) DeleteRelationship(ctx context.Context, id graph.ID) (*Result, error) {
	return c.Do(ctx, http.MethodDelete, "/relationships/"+escape(string(id)), nil)
}

func nodePath(id graph.ID) string {
	return "/nodes/" + escape(string(id))
}

// escape percent-encodes s for use as a path segment or query value. Spaces
// become %20 and every reserved character is escaped.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
