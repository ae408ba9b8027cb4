package tools

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
	"github.com/NERVsystems/parkmcp/pkg/parking"
	"github.com/NERVsystems/parkmcp/pkg/store"
)

// APIError represents an error that occurred while serving a tool call,
// with information to help users recover.
type APIError struct {
	Service     string // The failing service (e.g., "Overpass", "Database", "Validation")
	StatusCode  int    // HTTP status code, or the closest equivalent
	Message     string // Error message
	Recoverable bool   // Whether the error can be recovered from
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface and provides a formatted error message.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s error (%d): %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Common error guidance messages
const (
	// Overpass guidance
	GuidanceOverpassTimeout   = "Consider reducing the search radius."
	GuidanceOverpassRateLimit = "The Overpass API is currently experiencing high load. Please try again in a minute."
	GuidanceOverpassGeneral   = "Try a smaller search radius or try again later."

	// Search guidance
	GuidanceSearchAuth    = "Check that SEARCH_API_KEY is set to a valid key."
	GuidanceSearchGeneral = "Try a different neighborhood name or try again later."

	// Speech guidance
	GuidanceSpeechAuth    = "Check that OPENAI_API_KEY is set to a valid key."
	GuidanceSpeechFormat  = "Check that the audio is base64 encoded and the file type matches its format."
	GuidanceSpeechGeneral = "Please try again later."

	// Database guidance
	GuidanceDatabase = "Nothing was saved by this call. Please try again later."

	// Generic guidance
	GuidanceGeneral      = "Please try again later or modify your request parameters."
	GuidanceNetworkError = "Check your internet connection and try again."
	GuidanceDataError    = "The data received was incomplete or malformed. Try different search parameters."
)

// NewAPIError creates a new APIError with appropriate guidance based on status code.
func NewAPIError(service string, statusCode int, message, guidance string) *APIError {
	if guidance == "" {
		switch statusCode {
		case http.StatusTooManyRequests:
			guidance = "Rate limit exceeded. Please try again in a few moments."
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			guidance = "The request timed out. Try reducing the search area or simplifying the query."
		case http.StatusBadRequest:
			guidance = "The request was invalid. Check your parameters and try again."
		case http.StatusUnauthorized, http.StatusForbidden:
			guidance = "The service rejected the credentials. Check the configured API key."
		case http.StatusInternalServerError:
			guidance = "The server encountered an error. This is likely temporary, please try again later."
		case http.StatusServiceUnavailable:
			guidance = "The service is temporarily unavailable. Please try again later."
		default:
			guidance = GuidanceGeneral
		}
	}

	return &APIError{
		Service:     service,
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}

// ErrorWithGuidance returns a properly formatted error response with user guidance.
func ErrorWithGuidance(err *APIError) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s\n\nGuidance: %s", err.Message, err.Guidance)
	return mcp.NewToolResultError(errorText)
}

// ValidationError creates an error for invalid tool input.
func ValidationError(message string) *APIError {
	return &APIError{
		Service:     "Validation",
		StatusCode:  http.StatusBadRequest,
		Message:     message,
		Recoverable: true,
		Guidance:    "Please correct the parameters and try again.",
	}
}

// classify maps an error from the fetch, normalize or persist stage to an
// APIError. service names the upstream the tool was talking to.
func classify(service string, err error) *APIError {
	var (
		fe *fetch.FetchError
		me *parking.MalformedError
		pe *store.PersistenceError
	)
	switch {
	case errors.As(err, &pe):
		return NewAPIError(serviceDatabase, http.StatusInternalServerError,
			fmt.Sprintf("database %s failed", pe.Op), GuidanceDatabase)

	case errors.As(err, &me):
		return NewAPIError(service, http.StatusBadGateway,
			fmt.Sprintf("unexpected response from %s: %s", service, me.Reason), GuidanceDataError)

	case errors.As(err, &fe):
		if errors.Is(fe, fetch.ErrMissingAPIKey) {
			return NewAPIError(service, http.StatusUnauthorized,
				fmt.Sprintf("%s API key is not configured", service), authGuidance(service))
		}
		if fe.Status == 0 {
			return NewAPIError(service, http.StatusServiceUnavailable,
				fmt.Sprintf("request to %s failed: %v", service, fe.Cause), GuidanceNetworkError)
		}
		return NewAPIError(service, fe.Status,
			fmt.Sprintf("%s returned HTTP %d", service, fe.Status), statusGuidance(service, fe.Status))
	}

	return NewAPIError(service, http.StatusInternalServerError, err.Error(), GuidanceGeneral)
}

func authGuidance(service string) string {
	if service == serviceSpeech {
		return GuidanceSpeechAuth
	}
	return GuidanceSearchAuth
}

func statusGuidance(service string, status int) string {
	switch service {
	case serviceOverpass:
		switch status {
		case http.StatusTooManyRequests:
			return GuidanceOverpassRateLimit
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return GuidanceOverpassTimeout
		}
		return GuidanceOverpassGeneral
	case serviceSearch:
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return GuidanceSearchAuth
		}
		return GuidanceSearchGeneral
	case serviceSpeech:
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return GuidanceSpeechAuth
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return GuidanceSpeechFormat
		}
		return GuidanceSpeechGeneral
	}
	return ""
}
