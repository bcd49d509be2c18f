package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"graphexplorer/internal/graph"
)

// maxLineBytes bounds a single snapshot line.
const maxLineBytes = 16 << 20

// ReadSnapshot decodes a JSONL stream written by an Emitter. A line with both
// "source" and "target" is an edge; every other line is a node. Blank lines
// are skipped. Numbers come back as int64 or float64.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := readLines(r, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ReadSplitSnapshot decodes a node stream and an edge stream written by a
// SplitJSONLEmitter.
func ReadSplitSnapshot(nodes, edges io.Reader) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := readLines(nodes, snap); err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	if err := readLines(edges, snap); err != nil {
		return nil, fmt.Errorf("edges: %w", err)
	}
	return snap, nil
}

func readLines(r io.Reader, snap *Snapshot) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		row = graph.NormalizeProperties(row)

		if isEdge(row) {
			snap.Edges = append(snap.Edges, edgeRecord(row))
		} else {
			snap.Nodes = append(snap.Nodes, nodeRecord(row))
		}
	}
	return scanner.Err()
}

func isEdge(row map[string]any) bool {
	_, hasSource := row["source"]
	_, hasTarget := row["target"]
	return hasSource && hasTarget
}

func nodeRecord(row map[string]any) NodeRecord {
	rec := NodeRecord{
		ID:         stringField(row, "id"),
		Label:      stringField(row, "type"),
		Labels:     labelList(row["labels"]),
		Properties: make(map[string]any, len(row)),
	}
	if rec.Label == "" && len(rec.Labels) > 0 {
		rec.Label = rec.Labels[0]
	}
	if len(rec.Labels) == 0 && rec.Label != "" {
		rec.Labels = []string{rec.Label}
	}
	for k, v := range row {
		switch k {
		case "id", "type", "labels":
			continue
		}
		rec.Properties[k] = v
	}
	return rec
}

func edgeRecord(row map[string]any) EdgeRecord {
	rec := EdgeRecord{
		ID:         stringField(row, "id"),
		Source:     stringField(row, "source"),
		Target:     stringField(row, "target"),
		Type:       stringField(row, "type"),
		Properties: make(map[string]any, len(row)),
	}
	for k, v := range row {
		switch k {
		case "id", "source", "target", "type":
			continue
		}
		rec.Properties[k] = v
	}
	return rec
}

func stringField(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
