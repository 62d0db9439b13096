package tools

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
)

// getOptionalFloat extracts an optional numeric argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

// requireID reads a positive whole-number argument. JSON numbers arrive as
// float64; anything fractional or non-positive is rejected.
func requireID(req mcp.CallToolRequest, key string) (int64, *mcp.CallToolResult) {
	v, ok := getOptionalFloat(req, key)
	if !ok {
		return 0, NewErrorResult("invalid_argument", fmt.Sprintf("%s is required and must be a number", key))
	}
	if v <= 0 || v != math.Trunc(v) || v > math.MaxInt64 {
		return 0, NewErrorResult("invalid_argument", fmt.Sprintf("%s must be a positive integer", key))
	}
	return int64(v), nil
}

// optionalInt reads an optional whole-number argument, falling back to def.
func optionalInt(req mcp.CallToolRequest, key string, def int) int {
	v, ok := getOptionalFloat(req, key)
	if !ok || v != math.Trunc(v) {
		return def
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
