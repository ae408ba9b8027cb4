package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/parkmcp/pkg/parking"
	"github.com/NERVsystems/parkmcp/pkg/search"
)

// SaveParkingInfoTool returns a tool definition for web-search enrichment
func SaveParkingInfoTool() mcp.Tool {
	return mcp.NewTool(ToolSaveParkingInfo,
		mcp.WithDescription("Search the web for parking in a neighborhood and save the listings"),
		mcp.WithString("neighborhood",
			mcp.Required(),
			mcp.Description("Neighborhood name, e.g. \"Mission District, San Francisco\""),
		),
	)
}

// HandleSaveParkingInfo searches for parking listings and upserts them as
// candidates. A response without results is reported without touching the
// store.
func (r *Registry) HandleSaveParkingInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", ToolSaveParkingInfo)

	neighborhood := stringArg(req, "neighborhood", "")
	if neighborhood == "" {
		return r.invalid(ctx, logger, "neighborhood is required"), nil
	}
	logger = logger.With("neighborhood", neighborhood)

	raw, err := r.deps.Search.Search(ctx, search.ParkingQuery(neighborhood))
	if err != nil {
		return r.fail(ctx, logger, serviceSearch, err), nil
	}

	candidates, err := parking.NormalizeSearchResults(raw, neighborhood).Unwrap()
	if err != nil {
		return r.fail(ctx, logger, serviceSearch, err), nil
	}
	if len(candidates) == 0 {
		logger.Info("search returned no parking results")
		return mcp.NewToolResultText(fmt.Sprintf("No parking data found for %s", neighborhood)), nil
	}

	if err := r.deps.Store.EnsureSchema(ctx); err != nil {
		return r.fail(ctx, logger, serviceSearch, err), nil
	}
	n, err := r.deps.Store.UpsertParkingCandidates(ctx, candidates)
	if err != nil {
		return r.fail(ctx, logger, serviceSearch, err), nil
	}

	logger.Info("saved parking candidates", "count", n)
	return mcp.NewToolResultText(fmt.Sprintf("Saved %d parking records for %s", n, neighborhood)), nil
}
