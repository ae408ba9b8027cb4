// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterParkingPrompts registers all parking-related prompts with the MCP server
func RegisterParkingPrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt("parking_workflow",
		mcp.WithPromptDescription("Instructions for collecting, saving and displaying parking data"),
	), ParkingWorkflowPromptHandler)

	s.AddPrompt(mcp.NewPrompt("fetch_overpass_examples",
		mcp.WithPromptDescription("Examples of properly formed fetchOverpassData calls"),
	), FetchOverpassExamplesHandler)
}

// ParkingWorkflowPromptHandler returns the main prompt for the parking tools
func ParkingWorkflowPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	systemPrompt := `You have access to tools that collect parking information and store it for a map frontend.
Use them in this order:

1. If the user speaks, call speechToText with the base64 audio and its file_type (default "wav").
2. To collect mapped parking near a point, call fetchOverpassData with latitude, longitude and an
   optional radius in meters (default 500, max 5000). Only point features are saved.
3. To collect prices and opening hours for a neighborhood, call saveParkingInfo with the
   neighborhood name. "No parking data found" means the search returned nothing; nothing was saved.
4. To show results on a map, call getParkingDataForFrontend. It returns every saved feature as a
   GeoJSON FeatureCollection in a data:application/json;base64 resource.
5. To answer aloud, call textToSpeech with the reply text and an optional voice (default "alloy").

Calling fetchOverpassData or saveParkingInfo again for the same area is safe: records are
updated in place, never duplicated.

ERROR HANDLING GUIDELINES:
1. Validation errors mean the arguments were wrong and nothing was fetched. Fix them and retry.
2. Overpass rate limit errors clear after about a minute.
3. Database errors mean nothing from that call was saved.`

	return mcp.NewGetPromptResult(
		"Parking Tool Usage Guidelines",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(systemPrompt),
			),
		},
	), nil
}

// FetchOverpassExamplesHandler returns examples for fetchOverpassData
func FetchOverpassExamplesHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	examplesPrompt := `EXAMPLES OF EFFECTIVE FETCHOVERPASSDATA USAGE:

User: "Find parking near the Ferry Building"
AI: *uses fetchOverpassData with latitude: 37.7955, longitude: -122.3937*

User: "Any garages within a kilometer of Union Square?"
AI: *uses fetchOverpassData with latitude: 37.7880, longitude: -122.4075, radius: 1000*

ERROR CORRECTION PATTERN:
1. Convert DMS coordinates to decimal degrees before calling
2. Ensure latitude is between -90 and 90 and longitude between -180 and 180
3. If the radius is rejected, use a value between 1 and 5000 meters`

	return mcp.NewGetPromptResult(
		"Fetch Overpass Data Examples",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(examplesPrompt),
			),
		},
	), nil
}
