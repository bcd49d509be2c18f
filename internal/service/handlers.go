// Package service implements the graph HTTP API on top of a store.Provider.
// It is the server side of the contract graphclient speaks.
package service

import (
	"log/slog"
	"net/http"
	"strings"

	"graphexplorer/internal/graph"
	"graphexplorer/internal/logging"
	"graphexplorer/internal/store"
)

// Handler serves the graph API.
type Handler struct {
	store       store.Provider
	logger      *slog.Logger
	frontendURL string
}

// Option configures a Handler.
type Option func(*Handler)

// WithFrontendURL sets the frontend that launch redirects point at.
func WithFrontendURL(u string) Option {
	return func(h *Handler) { h.frontendURL = u }
}

// NewHandler returns a Handler backed by p.
func NewHandler(p store.Provider, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{store: p, logger: logging.Component(logger, "service")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts every endpoint under prefix (e.g. "/api") and wraps the mux
// with request logging and tracing. The launch entry points stay at the root.
func (h *Handler) Routes(prefix string) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/graph", h.getGraph)
	mux.HandleFunc("GET "+prefix+"/schema/labels", h.getLabels)
	mux.HandleFunc("GET "+prefix+"/search", h.search)
	mux.HandleFunc("GET "+prefix+"/expand/{nodeId}", h.expand)
	mux.HandleFunc("POST "+prefix+"/nodes", h.createNode)
	mux.HandleFunc("PUT "+prefix+"/nodes/{nodeId}", h.updateNode)
	mux.HandleFunc("DELETE "+prefix+"/nodes/{nodeId}", h.deleteNode)
	mux.HandleFunc("POST "+prefix+"/relationships", h.createRelationship)
	mux.HandleFunc("DELETE "+prefix+"/relationships/{relId}", h.deleteRelationship)
	mux.HandleFunc("GET "+prefix+"/healthz", h.healthz)
	mux.HandleFunc("GET /{$}", h.directAccess)
	mux.HandleFunc("POST /lti_launch", h.ltiLaunch)

	return RequestLogger(h.logger)(Tracing(mux))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err, "request_id", RequestID(r.Context()))
	}
	writeError(w, status, msg)
}

// getGraph answers the initial view. A missing init parameter means true;
// any value other than "true" (an empty one included) returns the full graph.
func (h *Handler) getGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	initOnly := !q.Has("init") || strings.EqualFold(q.Get("init"), "true")

	g, err := h.store.Graph(r.Context(), initOnly)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) getLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.store.Labels(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, labels)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	label := strings.TrimSpace(q.Get("label"))
	keyword := strings.TrimSpace(q.Get("keyword"))
	if label == "" || keyword == "" {
		writeError(w, http.StatusBadRequest, "Label and keyword parameters are required.")
		return
	}

	sub, err := h.store.Search(r.Context(), label, keyword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) expand(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(r.PathValue("nodeId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Node ID is required.")
		return
	}

	g, err := h.store.Expand(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) createNode(w http.ResponseWriter, r *http.Request) {
	var payload graph.NodePayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	payload.Properties = graph.NormalizeProperties(payload.Properties)

	el, err := h.store.CreateNode(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

type updateRequest struct {
	Properties map[string]any `json:"properties"`
}

func (h *Handler) updateNode(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(r.PathValue("nodeId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Node ID is required")
		return
	}

	var body updateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.Properties) == 0 {
		writeError(w, http.StatusBadRequest, "No properties provided for update")
		return
	}

	el, err := h.store.UpdateNode(r.Context(), id, graph.PropertyPatch(graph.NormalizeProperties(body.Properties)))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

func (h *Handler) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(r.PathValue("nodeId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Node ID is required")
		return
	}

	if err := h.store.DeleteNode(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Node " + id.String() + " and its relationships deleted successfully"})
}

func (h *Handler) createRelationship(w http.ResponseWriter, r *http.Request) {
	var payload graph.RelationshipPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Source == "" || payload.Target == "" {
		writeError(w, http.StatusBadRequest, "Source and target node IDs are mandatory")
		return
	}
	payload.Properties = graph.NormalizeProperties(payload.Properties)

	el, err := h.store.CreateRelationship(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

func (h *Handler) deleteRelationship(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(r.PathValue("relId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Relationship ID is required")
		return
	}

	if err := h.store.DeleteRelationship(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Relationship " + id.String() + " deleted successfully"})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
