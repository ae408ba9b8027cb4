package testutil

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// CallToolRequest builds a tool call request the way the transport
// delivers it to a handler.
func CallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// ResultText concatenates the text content of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var text string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return text
}

// ResultBlob returns the first embedded blob resource of a tool result.
func ResultBlob(result *mcp.CallToolResult) (mcp.BlobResourceContents, bool) {
	if result == nil {
		return mcp.BlobResourceContents{}, false
	}
	for _, content := range result.Content {
		er, ok := content.(mcp.EmbeddedResource)
		if !ok {
			continue
		}
		if blob, ok := er.Resource.(mcp.BlobResourceContents); ok {
			return blob, true
		}
	}
	return mcp.BlobResourceContents{}, false
}
