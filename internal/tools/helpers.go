package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONResult marshals v to indented JSON and returns an mcp.CallToolResult.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("error marshaling result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// ErrorResult returns an mcp.CallToolResult that describes an error condition.
func ErrorResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("error: %s", msg))
}

// logCall records a tool invocation, silently ignoring a nil logger.
func logCall(logger *slog.Logger, toolName string, params map[string]any, err error, start time.Time) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("tool call failed", "tool", toolName, "params", params, "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("tool call", "tool", toolName, "params", params, "duration", time.Since(start))
}

// parseObject decodes an optional JSON object argument. Numbers keep their
// literal form so they reach the service unchanged.
func parseObject(name, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("parse %s JSON: %w", name, err)
	}
	return out, nil
}
