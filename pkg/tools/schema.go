package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorResponse is used for consistent error reporting
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// stringArg returns a trimmed string argument, or defaultVal when the key
// is missing, not a string, or blank.
func stringArg(req mcp.CallToolRequest, key, defaultVal string) string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return defaultVal
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultVal
	}
	return v
}

// floatArg extracts a numeric argument. JSON numbers arrive as float64;
// numeric strings are accepted as well. present is false when the key is
// absent or null.
func floatArg(req mcp.CallToolRequest, key string) (value float64, present bool, err error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, true, fmt.Errorf("%s must be a number, got %q", key, v)
		}
		return f, true, nil
	}
	return 0, true, fmt.Errorf("%s must be a number, got %T", key, raw)
}
