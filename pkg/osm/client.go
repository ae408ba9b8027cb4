// Package osm fetches parking data from the OpenStreetMap Overpass API.
package osm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
	"github.com/NERVsystems/parkmcp/pkg/geo"
	"github.com/NERVsystems/parkmcp/pkg/osm/queries"
)

const (
	// OverpassBaseURL is the public Overpass interpreter endpoint
	OverpassBaseURL = "https://overpass-api.de/api/interpreter"

	// SourceOverpass identifies records ingested through this package
	SourceOverpass = "overpass"
)

// Fetcher issues Overpass queries for parking amenities.
type Fetcher struct {
	client  *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// NewFetcher creates an Overpass fetcher. An empty baseURL selects OverpassBaseURL.
func NewFetcher(client *fetch.Client, baseURL string, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = OverpassBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  client,
		baseURL: baseURL,
		logger:  logger.With("component", "overpass"),
	}
}

// FetchParking returns the raw Overpass JSON for parking amenities within
// radiusMeters of center. Exactly one request is made.
func (f *Fetcher) FetchParking(ctx context.Context, center geo.Location, radiusMeters float64) ([]byte, error) {
	query := queries.ParkingAround(center.Latitude, center.Longitude, radiusMeters)

	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &fetch.FetchError{Service: fetch.ServiceOverpass, Cause: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	f.logger.Debug("querying overpass", "center", center.String(), "radius", radiusMeters)

	return f.client.Do(ctx, fetch.ServiceOverpass, req)
}
