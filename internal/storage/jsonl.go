package storage

import (
	"encoding/json"
	"io"
	"sync"

	"graphexplorer/internal/graph"
)

// JSONLEmitter writes nodes and edges interleaved into one JSONL stream.
type JSONLEmitter struct {
	w       io.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONLEmitter creates a new JSONLEmitter writing to w.
func NewJSONLEmitter(w io.Writer) *JSONLEmitter {
	return &JSONLEmitter{
		w:       w,
		encoder: json.NewEncoder(w),
	}
}

// SplitJSONLEmitter implements Emitter for writing nodes and edges to separate files.
type SplitJSONLEmitter struct {
	nodeEncoder *json.Encoder
	edgeEncoder *json.Encoder
	nodeCloser  io.Closer
	edgeCloser  io.Closer
}

// NewSplitJSONLEmitter creates a new SplitJSONLEmitter.
func NewSplitJSONLEmitter(nodeW, edgeW io.Writer) *SplitJSONLEmitter {
	s := &SplitJSONLEmitter{
		nodeEncoder: json.NewEncoder(nodeW),
		edgeEncoder: json.NewEncoder(edgeW),
	}
	if c, ok := nodeW.(io.Closer); ok {
		s.nodeCloser = c
	}
	if c, ok := edgeW.(io.Closer); ok {
		s.edgeCloser = c
	}
	return s
}

func (e *SplitJSONLEmitter) EmitNode(node graph.Element) error {
	return e.nodeEncoder.Encode(nodeLine(node))
}

func (e *SplitJSONLEmitter) EmitEdge(edge graph.Element) error {
	return e.edgeEncoder.Encode(edgeLine(edge))
}

func (e *SplitJSONLEmitter) Close() error {
	var first error
	if e.nodeCloser != nil {
		first = e.nodeCloser.Close()
	}
	if e.edgeCloser != nil {
		if err := e.edgeCloser.Close(); first == nil {
			first = err
		}
	}
	return first
}

// EmitNode writes a node as a flat object:
// - data["id"] -> "id"
// - data["labels"] -> "labels", and its first entry -> "type"
// - remaining attributes -> flattened into the root object
//
// A placeholder display name is not a stored property and is left out.
func (e *JSONLEmitter) EmitNode(node graph.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(nodeLine(node))
}

// EmitEdge writes an edge as a flat object with "id", "source", "target",
// "type" (the relationship type) and its properties.
func (e *JSONLEmitter) EmitEdge(edge graph.Element) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encoder.Encode(edgeLine(edge))
}

// Close closes the underlying writer if it implements io.Closer.
func (e *JSONLEmitter) Close() error {
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func nodeLine(node graph.Element) map[string]any {
	labels := labelList(node.Data["labels"])
	out := make(map[string]any, len(node.Data)+1)
	for k, v := range node.Data {
		if k == "labels" {
			continue
		}
		out[k] = v
	}
	if isDisplayName(node.Data, labels) {
		delete(out, "name")
	}
	out["id"] = node.ID().String()
	out["type"] = ""
	if len(labels) > 0 {
		out["type"] = labels[0]
	}
	out["labels"] = labels
	return out
}

// isDisplayName reports whether data["name"] is the placeholder the service
// fills in for nodes with neither name nor title: the first label, or "Node".
func isDisplayName(data map[string]any, labels []string) bool {
	if _, ok := data["title"]; ok {
		return false
	}
	name, ok := data["name"].(string)
	if !ok {
		return false
	}
	if len(labels) == 0 {
		return name == "Node"
	}
	return name == labels[0]
}

func edgeLine(edge graph.Element) map[string]any {
	out := make(map[string]any, len(edge.Data))
	for k, v := range edge.Data {
		if k == "label" {
			continue
		}
		out[k] = v
	}
	out["id"] = edge.ID().String()
	out["type"], _ = edge.Data["label"].(string)
	return out
}

func labelList(v any) []string {
	switch labels := v.(type) {
	case []string:
		return append([]string{}, labels...)
	case []any:
		out := make([]string, 0, len(labels))
		for _, l := range labels {
			if s, ok := l.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
