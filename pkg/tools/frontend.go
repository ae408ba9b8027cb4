package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GeoJSONMIMEType is the MIME type of the frontend resource
const GeoJSONMIMEType = "application/json"

// GetParkingDataForFrontendTool returns a tool definition for the GeoJSON export
func GetParkingDataForFrontendTool() mcp.Tool {
	return mcp.NewTool(ToolGetParkingDataForFrontend,
		mcp.WithDescription("Return all saved parking features as a GeoJSON feature collection"),
	)
}

// HandleGetParkingDataForFrontend returns every stored feature as a
// base64-encoded GeoJSON feature collection inside a data: URI resource.
func (r *Registry) HandleGetParkingDataForFrontend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", ToolGetParkingDataForFrontend)

	if err := r.deps.Store.EnsureSchema(ctx); err != nil {
		return r.fail(ctx, logger, serviceDatabase, err), nil
	}
	fc, err := r.deps.Store.ReadAllEnrichedFeatures(ctx)
	if err != nil {
		return r.fail(ctx, logger, serviceDatabase, err), nil
	}

	data, err := json.Marshal(fc)
	if err != nil {
		logger.Error("failed to marshal feature collection", "error", err)
		return ErrorResponse("Failed to generate result"), nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	logger.Info("exported parking features", "count", len(fc.Features), "bytes", len(data))
	return mcp.NewToolResultResource(
		fmt.Sprintf("GeoJSON feature collection with %d parking features", len(fc.Features)),
		mcp.BlobResourceContents{
			URI:      "data:" + GeoJSONMIMEType + ";base64," + encoded,
			MIMEType: GeoJSONMIMEType,
			Blob:     encoded,
		},
	), nil
}
