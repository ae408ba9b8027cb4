// Package tools provides the parking MCP tool implementations.
//
// Every handler converts failures into an MCP error result; none returns a
// Go error to the protocol layer.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/parkmcp/pkg/store"
)

// Tool names as exposed to clients.
const (
	ToolSpeechToText              = "speechToText"
	ToolTextToSpeech              = "textToSpeech"
	ToolSaveParkingInfo           = "saveParkingInfo"
	ToolFetchOverpassData         = "fetchOverpassData"
	ToolGetParkingDataForFrontend = "getParkingDataForFrontend"
)

// Upstream names used in error messages.
const (
	serviceOverpass = "Overpass"
	serviceSearch   = "Search"
	serviceSpeech   = "Speech"
	serviceDatabase = "Database"
)

// Deps are the collaborators the tools call. Each is constructed once at
// process start and shared by every call.
type Deps struct {
	Overpass OverpassFetcher
	Search   WebSearcher
	Speech   SpeechConverter
	Store    store.Store
	Logger   *slog.Logger

	// Now stamps ingested records; defaults to time.Now.
	Now func() time.Time
}

// Registry holds all MCP tool registrations for the parking service.
type Registry struct {
	deps   Deps
	logger *slog.Logger
}

// NewRegistry creates a new MCP tool registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Registry{
		deps:   deps,
		logger: deps.Logger,
	}
}

// ToolDefinition represents a parking MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     server.ToolHandlerFunc
}

// GetToolDefinitions returns all parking MCP tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Speech Tools
		{
			Name:        ToolSpeechToText,
			Description: "Transcribe base64-encoded audio to text",
			Tool:        SpeechToTextTool(),
			Handler:     r.HandleSpeechToText,
		},
		{
			Name:        ToolTextToSpeech,
			Description: "Synthesize speech audio from text",
			Tool:        TextToSpeechTool(),
			Handler:     r.HandleTextToSpeech,
		},

		// Ingestion Tools
		{
			Name:        ToolSaveParkingInfo,
			Description: "Search the web for parking in a neighborhood and save the listings",
			Tool:        SaveParkingInfoTool(),
			Handler:     r.HandleSaveParkingInfo,
		},
		{
			Name:        ToolFetchOverpassData,
			Description: "Fetch parking amenities from OpenStreetMap around a point and save them",
			Tool:        FetchOverpassDataTool(),
			Handler:     r.HandleFetchOverpassData,
		},

		// Output Tools
		{
			Name:        ToolGetParkingDataForFrontend,
			Description: "Return all saved parking features as a GeoJSON feature collection",
			Tool:        GetParkingDataForFrontendTool(),
			Handler:     r.HandleGetParkingDataForFrontend,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}

// fail logs err with the tool's context and converts it to an error result.
func (r *Registry) fail(ctx context.Context, logger *slog.Logger, service string, err error) *mcp.CallToolResult {
	apiErr := classify(service, err)
	logger.ErrorContext(ctx, "tool call failed",
		"service", apiErr.Service,
		"status", apiErr.StatusCode,
		"error", err)
	return ErrorWithGuidance(apiErr)
}

// invalid logs a rejected input and converts it to an error result.
func (r *Registry) invalid(ctx context.Context, logger *slog.Logger, message string) *mcp.CallToolResult {
	logger.WarnContext(ctx, "invalid tool input", "reason", message)
	return ErrorWithGuidance(ValidationError(message))
}
