package tools

import (
	"context"

	"github.com/NERVsystems/parkmcp/pkg/geo"
)

// OverpassFetcher returns raw Overpass JSON for parking near a point.
type OverpassFetcher interface {
	FetchParking(ctx context.Context, center geo.Location, radiusMeters float64) ([]byte, error)
}

// WebSearcher returns the raw JSON response for a search query.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]byte, error)
}

// SpeechConverter converts between audio and text.
type SpeechConverter interface {
	Transcribe(ctx context.Context, audio []byte, fileType string) (string, error)
	Synthesize(ctx context.Context, text, voice string) ([]byte, string, error)
}
