package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/parkmcp/pkg/geo"
	"github.com/NERVsystems/parkmcp/pkg/osm"
	"github.com/NERVsystems/parkmcp/pkg/parking"
)

const (
	// DefaultRadius is the search radius in meters when none is given
	DefaultRadius = 500.0

	// MaxRadius bounds the Overpass search area in meters
	MaxRadius = 5000.0
)

// FetchOverpassDataTool returns a tool definition for Overpass ingestion
func FetchOverpassDataTool() mcp.Tool {
	return mcp.NewTool(ToolFetchOverpassData,
		mcp.WithDescription("Fetch parking amenities from OpenStreetMap around a point and save them"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("The latitude coordinate of the center point"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("The longitude coordinate of the center point"),
		),
		mcp.WithNumber("radius",
			mcp.Description(fmt.Sprintf("Search radius in meters (max %.0f)", MaxRadius)),
			mcp.DefaultNumber(DefaultRadius),
		),
	)
}

// parseArea validates the center point and radius of an area query.
func parseArea(req mcp.CallToolRequest) (geo.Location, float64, error) {
	lat, ok, err := floatArg(req, "latitude")
	if err != nil {
		return geo.Location{}, 0, err
	}
	if !ok {
		return geo.Location{}, 0, fmt.Errorf("latitude is required")
	}
	lon, ok, err := floatArg(req, "longitude")
	if err != nil {
		return geo.Location{}, 0, err
	}
	if !ok {
		return geo.Location{}, 0, fmt.Errorf("longitude is required")
	}
	if err := geo.ValidateCoords(lat, lon); err != nil {
		return geo.Location{}, 0, err
	}

	radius, ok, err := floatArg(req, "radius")
	if err != nil {
		return geo.Location{}, 0, err
	}
	if !ok {
		radius = DefaultRadius
	}
	if err := geo.ValidateRadius(radius, MaxRadius); err != nil {
		return geo.Location{}, 0, err
	}

	return geo.Location{Latitude: lat, Longitude: lon}, radius, nil
}

// HandleFetchOverpassData ingests parking amenities around a point.
func (r *Registry) HandleFetchOverpassData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", ToolFetchOverpassData)

	center, radius, err := parseArea(req)
	if err != nil {
		return r.invalid(ctx, logger, err.Error()), nil
	}
	logger = logger.With("center", center.String(), "radius", radius)

	raw, err := r.deps.Overpass.FetchParking(ctx, center, radius)
	if err != nil {
		return r.fail(ctx, logger, serviceOverpass, err), nil
	}

	features, err := parking.NormalizeGeospatial(raw, osm.SourceOverpass, r.deps.Now()).Unwrap()
	if err != nil {
		return r.fail(ctx, logger, serviceOverpass, err), nil
	}

	if err := r.deps.Store.EnsureSchema(ctx); err != nil {
		return r.fail(ctx, logger, serviceOverpass, err), nil
	}
	n, err := r.deps.Store.UpsertEnrichedFeatures(ctx, features)
	if err != nil {
		return r.fail(ctx, logger, serviceOverpass, err), nil
	}

	logger.Info("saved parking features", "count", n)
	return mcp.NewToolResultText(fmt.Sprintf("Saved %d parking features from Overpass", n)), nil
}
