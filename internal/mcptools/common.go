package mcptools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aaltonen/chanflow/internal/store"
)

// errResult wraps a tool-validation failure as a JSON result instead of
// a transport-level error: an invalid tool input surfaces as
// {"status":"error","error":"..."} without throwing through the MCP
// transport.
func errResult(msg string) *mcp.CallToolResult {
	return mcp.NewToolResultText(toJSON(map[string]string{"status": "error", "error": msg}))
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"status":"error","error":"internal: marshal failed"}`
	}
	return string(b)
}

func storeReadOptions(since string, limit int, agent string) store.ReadOptions {
	return store.ReadOptions{Since: since, Limit: limit, Agent: agent}
}
