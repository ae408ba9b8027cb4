// Package search queries a web-search API for parking listings.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
)

const (
	// DefaultBaseURL is the Tavily-compatible search endpoint
	DefaultBaseURL = "https://api.tavily.com/search"

	// DefaultMaxResults is the number of results requested per query
	DefaultMaxResults = 10
)

// Client issues web-search queries.
type Client struct {
	client     *fetch.Client
	baseURL    string
	apiKey     string
	maxResults int
	logger     *slog.Logger
}

// NewClient creates a search client. An empty baseURL selects DefaultBaseURL.
func NewClient(client *fetch.Client, baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:     client,
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxResults: DefaultMaxResults,
		logger:     logger.With("component", "search"),
	}
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

// ParkingQuery returns the query text used to look up paid parking in a neighborhood.
func ParkingQuery(neighborhood string) string {
	return fmt.Sprintf("parking garages and lots in %s hourly rates and hours", neighborhood)
}

// Search returns the raw JSON response for query. Exactly one request is made.
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &fetch.FetchError{Service: fetch.ServiceSearch, Cause: fetch.ErrMissingAPIKey}
	}

	payload, err := json.Marshal(searchRequest{
		Query:       query,
		MaxResults:  c.maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		return nil, &fetch.FetchError{Service: fetch.ServiceSearch, Cause: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &fetch.FetchError{Service: fetch.ServiceSearch, Cause: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("searching", "query", query)

	return c.client.Do(ctx, fetch.ServiceSearch, req)
}
