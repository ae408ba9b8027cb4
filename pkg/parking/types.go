// Package parking defines the parking records handled by the server and
// normalizes raw Overpass and web-search payloads into them.
package parking

import "time"

// DefaultConfidence is stamped on every feature ingested from Overpass.
// It does not vary with data completeness.
const DefaultConfidence = 0.8

// Candidate is a parking listing extracted from a web-search result.
// SourceURL is its unique key.
type Candidate struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	HourlyRate   *float64 `json:"hourly_rate"`
	Hours        *string  `json:"hours"`
	Neighborhood string   `json:"neighborhood"`
	SourceURL    string   `json:"source_url"`
}

// Feature is a point parking amenity ingested from OpenStreetMap.
// ID is the OSM node id and its unique key.
type Feature struct {
	ID          int64             `json:"id"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Name        *string           `json:"name"`
	Amenity     *string           `json:"amenity"`
	Source      string            `json:"source"`
	RetrievedAt time.Time         `json:"retrieved_at"`
	Confidence  float64           `json:"confidence"`
	OtherTags   map[string]string `json:"other_tags"`
}
