package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/graphclient"
	"graphexplorer/internal/logging"
)

// GraphAPI is the subset of *graphclient.Client the tools call.
type GraphAPI interface {
	GetGraph(ctx context.Context, opts ...graphclient.GraphOption) (*graphclient.Result, error)
	GetNodeLabels(ctx context.Context) (*graphclient.Result, error)
	SearchSubgraph(ctx context.Context, label, keyword string) (*graphclient.Result, error)
	ExpandNode(ctx context.Context, id graph.ID) (*graphclient.Result, error)
	CreateNode(ctx context.Context, payload graph.NodePayload) (*graphclient.Result, error)
	CreateRelationship(ctx context.Context, payload graph.RelationshipPayload) (*graphclient.Result, error)
	UpdateNodeProperties(ctx context.Context, id graph.ID, patch graph.PropertyPatch) (*graphclient.Result, error)
	DeleteNode(ctx context.Context, id graph.ID) (*graphclient.Result, error)
	DeleteRelationship(ctx context.Context, id graph.ID) (*graphclient.Result, error)
}

var _ GraphAPI = (*graphclient.Client)(nil)

// GraphTools returns the registrations for every graph tool.
func GraphTools(api GraphAPI, logger *slog.Logger) []Registration {
	logger = logging.Component(logger, "tools")
	return []Registration{
		graphGet(api, logger),
		graphLabels(api, logger),
		graphSearch(api, logger),
		graphExpand(api, logger),
		graphCreateNode(api, logger),
		graphCreateRelationship(api, logger),
		graphUpdateNode(api, logger),
		graphDeleteNode(api, logger),
		graphDeleteRelationship(api, logger),
	}
}

// callFunc performs one client call for a tool.
type callFunc func(ctx context.Context) (*graphclient.Result, error)

// respond runs call and converts its outcome into a tool result.
func respond(ctx context.Context, logger *slog.Logger, name string, params map[string]any, call callFunc) *mcp.CallToolResult {
	start := time.Now()
	res, err := call(ctx)
	logCall(logger, name, params, err, start)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return JSONResult(res)
}

func requireArg(req mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	v := req.GetString(name, "")
	if v == "" {
		return "", ErrorResult(name + " is required")
	}
	return v, nil
}

func graphGet(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_get",
		mcp.WithDescription("Fetch the initial graph view: nodes flagged for the initial view and their relationships. Set full to fetch every node."),
		mcp.WithBoolean("full",
			mcp.Description("Skip the initial-view selection and fetch the whole graph (default: false)"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		full := req.GetBool("full", false)
		params := map[string]any{"full": full}
		return respond(ctx, logger, "graph_get", params, func(ctx context.Context) (*graphclient.Result, error) {
			return api.GetGraph(ctx, graphclient.WithInit(!full))
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphLabels(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_labels",
		mcp.WithDescription("List every node label in the graph."),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return respond(ctx, logger, "graph_labels", map[string]any{}, api.GetNodeLabels), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphSearch(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_search",
		mcp.WithDescription("Find nodes of a label whose display property contains a keyword (case-insensitive) and return them with their direct neighbors."),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Node label, e.g. Person or Movie"),
		),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Text to look for"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label, errResult := requireArg(req, "label")
		if errResult != nil {
			return errResult, nil
		}
		keyword, errResult := requireArg(req, "keyword")
		if errResult != nil {
			return errResult, nil
		}

		params := map[string]any{"label": label, "keyword": keyword}
		return respond(ctx, logger, "graph_search", params, func(ctx context.Context) (*graphclient.Result, error) {
			return api.SearchSubgraph(ctx, label, keyword)
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphExpand(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_expand",
		mcp.WithDescription("Return the direct neighbors of a node and the relationships linking them."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID as returned by earlier graph tools"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireArg(req, "id")
		if errResult != nil {
			return errResult, nil
		}

		return respond(ctx, logger, "graph_expand", map[string]any{"id": id}, func(ctx context.Context) (*graphclient.Result, error) {
			return api.ExpandNode(ctx, graph.ID(id))
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphCreateNode(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_create_node",
		mcp.WithDescription("Create a node. Without a name or title property the node is named \"New <label>\"."),
		mcp.WithString("label",
			mcp.Description("Node label (default: Node)"),
		),
		mcp.WithString("properties",
			mcp.Description("Optional JSON object of node properties, e.g. {\"name\":\"Ann\"}"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		label := req.GetString("label", "")
		rawProps := req.GetString("properties", "")
		params := map[string]any{"label": label, "properties": rawProps}

		props, err := parseObject("properties", rawProps)
		if err != nil {
			logCall(logger, "graph_create_node", params, err, time.Now())
			return ErrorResult(err.Error()), nil
		}

		payload := graph.NodePayload{Label: label, Properties: props}
		return respond(ctx, logger, "graph_create_node", params, func(ctx context.Context) (*graphclient.Result, error) {
			return api.CreateNode(ctx, payload)
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphCreateRelationship(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_create_relationship",
		mcp.WithDescription("Create a directed relationship between two existing nodes."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Source node ID"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target node ID"),
		),
		mcp.WithString("type",
			mcp.Description("Relationship type (default: RELATED_TO)"),
		),
		mcp.WithString("properties",
			mcp.Description("Optional JSON object of relationship properties"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		source, errResult := requireArg(req, "source")
		if errResult != nil {
			return errResult, nil
		}
		target, errResult := requireArg(req, "target")
		if errResult != nil {
			return errResult, nil
		}
		relType := req.GetString("type", "")
		rawProps := req.GetString("properties", "")
		params := map[string]any{"source": source, "target": target, "type": relType, "properties": rawProps}

		props, err := parseObject("properties", rawProps)
		if err != nil {
			logCall(logger, "graph_create_relationship", params, err, time.Now())
			return ErrorResult(err.Error()), nil
		}

		payload := graph.RelationshipPayload{
			Source:     graph.ID(source),
			Target:     graph.ID(target),
			Type:       relType,
			Properties: props,
		}
		return respond(ctx, logger, "graph_create_relationship", params, func(ctx context.Context) (*graphclient.Result, error) {
			return api.CreateRelationship(ctx, payload)
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphUpdateNode(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_update_node",
		mcp.WithDescription("Set properties on an existing node. Properties not mentioned are left untouched."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
		mcp.WithString("properties",
			mcp.Required(),
			mcp.Description("JSON object of properties to set, e.g. {\"born\":1964}"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireArg(req, "id")
		if errResult != nil {
			return errResult, nil
		}
		rawProps := req.GetString("properties", "")
		params := map[string]any{"id": id, "properties": rawProps}

		props, err := parseObject("properties", rawProps)
		if err == nil && len(props) == 0 {
			err = errors.New("properties must be a non-empty JSON object")
		}
		if err != nil {
			logCall(logger, "graph_update_node", params, err, time.Now())
			return ErrorResult(err.Error()), nil
		}

		return respond(ctx, logger, "graph_update_node", params, func(ctx context.Context) (*graphclient.Result, error) {
			return api.UpdateNodeProperties(ctx, graph.ID(id), graph.PropertyPatch(props))
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphDeleteNode(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_delete_node",
		mcp.WithDescription("Delete a node together with all of its relationships."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireArg(req, "id")
		if errResult != nil {
			return errResult, nil
		}

		return respond(ctx, logger, "graph_delete_node", map[string]any{"id": id}, func(ctx context.Context) (*graphclient.Result, error) {
			return api.DeleteNode(ctx, graph.ID(id))
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

func graphDeleteRelationship(api GraphAPI, logger *slog.Logger) Registration {
	tool := mcp.NewTool("graph_delete_relationship",
		mcp.WithDescription("Delete a single relationship."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Relationship ID"),
		),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireArg(req, "id")
		if errResult != nil {
			return errResult, nil
		}

		return respond(ctx, logger, "graph_delete_relationship", map[string]any{"id": id}, func(ctx context.Context) (*graphclient.Result, error) {
			return api.DeleteRelationship(ctx, graph.ID(id))
		}), nil
	}

	return Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}
