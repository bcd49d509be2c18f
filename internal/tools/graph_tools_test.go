package tools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphexplorer/internal/graphclient"
)

type recordedRequest struct {
	Method string
	URI    string
	Body   string
}

// fakeAPI records requests and answers each with the configured status and
// body.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, URI: r.URL.RequestURI(), Body: string(data)})
	f.mu.Unlock()

	if f.status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func setup(t *testing.T, status int, body string) (*fakeAPI, map[string]Registration) {
	t.Helper()
	api := &fakeAPI{status: status, body: body}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := graphclient.New(srv.URL+"/api", graphclient.WithDoer(srv.Client()), graphclient.WithLogger(logger))

	regs := make(map[string]Registration)
	for _, r := range GraphTools(client, logger) {
		regs[r.Tool.Name] = r
	}
	return api, regs
}

func call(t *testing.T, reg Registration, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := reg.Handler(context.Background(), req)
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "first content entry is %T", result.Content[0])
	return tc.Text
}

func TestGraphToolsNames(t *testing.T) {
	_, regs := setup(t, http.StatusOK, `{}`)

	want := []string{
		"graph_get", "graph_labels", "graph_search", "graph_expand",
		"graph_create_node", "graph_create_relationship", "graph_update_node",
		"graph_delete_node", "graph_delete_relationship",
	}
	assert.Len(t, regs, len(want))
	for _, name := range want {
		assert.Contains(t, regs, name)
	}

	search := regs["graph_search"].Tool
	assert.ElementsMatch(t, []string{"label", "keyword"}, search.InputSchema.Required)
}

func TestToolRequests(t *testing.T) {
	tests := []struct {
		name       string
		tool       string
		args       map[string]any
		wantMethod string
		wantURI    string
		wantBody   string
	}{
		{"initial graph", "graph_get", nil, http.MethodGet, "/api/graph", ""},
		{"full graph", "graph_get", map[string]any{"full": true}, http.MethodGet, "/api/graph?init=false", ""},
		{"labels", "graph_labels", nil, http.MethodGet, "/api/schema/labels", ""},
		{"search", "graph_search", map[string]any{"label": "Person", "keyword": "a b"}, http.MethodGet, "/api/search?label=Person&keyword=a%20b", ""},
		{"expand", "graph_expand", map[string]any{"id": "4:x:1"}, http.MethodGet, "/api/expand/4%3Ax%3A1", ""},
		{"create node", "graph_create_node", map[string]any{"label": "Person", "properties": `{"name":"Ann","born":1964}`}, http.MethodPost, "/api/nodes", `{"label":"Person","properties":{"born":1964,"name":"Ann"}}`},
		{"create relationship", "graph_create_relationship", map[string]any{"source": "1", "target": "2", "type": "KNOWS"}, http.MethodPost, "/api/relationships", `{"source":"1","target":"2","type":"KNOWS"}`},
		{"update node", "graph_update_node", map[string]any{"id": "42", "properties": `{"name":"Ann"}`}, http.MethodPut, "/api/nodes/42", `{"properties":{"name":"Ann"}}`},
		{"delete node", "graph_delete_node", map[string]any{"id": "42"}, http.MethodDelete, "/api/nodes/42", ""},
		{"delete relationship", "graph_delete_relationship", map[string]any{"id": "7"}, http.MethodDelete, "/api/relationships/7", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, regs := setup(t, http.StatusOK, `{"ok":true}`)

			res := call(t, regs[tt.tool], tt.args)
			assert.False(t, res.IsError, resultText(t, res))

			got := api.last(t)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.Equal(t, tt.wantURI, got.URI)
			if tt.wantBody == "" {
				assert.Empty(t, got.Body)
			} else {
				assert.JSONEq(t, tt.wantBody, got.Body)
			}
		})
	}
}

func TestToolResultIsIndentedBody(t *testing.T) {
	_, regs := setup(t, http.StatusOK, `{"nodes":[],"edges":[],"count":12345678901234567890}`)

	text := resultText(t, call(t, regs["graph_get"], nil))
	assert.Contains(t, text, "\n  \"nodes\": []")
	assert.Contains(t, text, "12345678901234567890")
}

func TestToolNoContentIsSuccessEnvelope(t *testing.T) {
	_, regs := setup(t, http.StatusNoContent, "")

	text := resultText(t, call(t, regs["graph_delete_relationship"], map[string]any{"id": "7"}))
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, map[string]any{"success": true}, out)
}

func TestToolServerErrorMessage(t *testing.T) {
	_, regs := setup(t, http.StatusBadRequest, `{"error":"duplicate"}`)

	res := call(t, regs["graph_create_node"], map[string]any{"label": "Person"})
	assert.True(t, res.IsError)
	assert.Equal(t, "error: duplicate", resultText(t, res))
}

func TestToolArgumentValidation(t *testing.T) {
	api, regs := setup(t, http.StatusOK, `{}`)

	tests := []struct {
		tool    string
		args    map[string]any
		wantErr string
	}{
		{"graph_search", map[string]any{"label": "Person"}, "keyword is required"},
		{"graph_expand", map[string]any{}, "id is required"},
		{"graph_create_relationship", map[string]any{"source": "1"}, "target is required"},
		{"graph_create_node", map[string]any{"properties": "{nope"}, "parse properties JSON"},
		{"graph_update_node", map[string]any{"id": "1", "properties": "{}"}, "non-empty JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			res := call(t, regs[tt.tool], tt.args)
			assert.True(t, res.IsError)
			assert.True(t, strings.Contains(resultText(t, res), tt.wantErr), resultText(t, res))
		})
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Empty(t, api.requests, "invalid arguments must not reach the service")
}

func TestNewServerRegistersTools(t *testing.T) {
	_, regs := setup(t, http.StatusOK, `{}`)

	list := make([]Registration, 0, len(regs))
	for _, r := range regs {
		list = append(list, r)
	}
	s := NewServer("test", list)
	require.NotNil(t, s)
	assert.NotNil(t, NewHTTPHandler(s))
}
