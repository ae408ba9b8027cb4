// Package queries provides utilities for building OpenStreetMap API queries.
package queries

import (
	"fmt"
	"sort"
	"strings"
)

// OverpassBuilder provides a fluent interface for building Overpass API queries.
// It allows for composing queries with proper syntax and formatting.
type OverpassBuilder struct {
	buf        strings.Builder
	hasElement bool
}

// NewOverpassBuilder creates a new Overpass query builder.
// All queries request JSON output; a positive timeout (seconds) is added
// as a server-side limit.
func NewOverpassBuilder(timeoutSeconds int) *OverpassBuilder {
	b := &OverpassBuilder{}
	b.buf.WriteString("[out:json]")
	if timeoutSeconds > 0 {
		fmt.Fprintf(&b.buf, "[timeout:%d]", timeoutSeconds)
	}
	b.buf.WriteString(";")
	return b
}

// WithNode adds a node query around a point with specified radius and tags.
func (b *OverpassBuilder) WithNode(lat, lon, radius float64, tags map[string]string) *OverpassBuilder {
	b.addElement(fmt.Sprintf("node(around:%f,%f,%f)", radius, lat, lon), tags)
	return b
}

// WithWay adds a way query around a point with specified radius and tags.
func (b *OverpassBuilder) WithWay(lat, lon, radius float64, tags map[string]string) *OverpassBuilder {
	b.addElement(fmt.Sprintf("way(around:%f,%f,%f)", radius, lat, lon), tags)
	return b
}

// WithAmenity is a convenience method to search for nodes and ways with the amenity tag.
func (b *OverpassBuilder) WithAmenity(value string, lat, lon, radius float64) *OverpassBuilder {
	tags := map[string]string{
		"amenity": value,
	}
	return b.WithNode(lat, lon, radius, tags).
		WithWay(lat, lon, radius, tags)
}

// Begin starts a group of queries with parentheses.
func (b *OverpassBuilder) Begin() *OverpassBuilder {
	if !b.hasElement {
		b.buf.WriteString("(")
		b.hasElement = true
	}
	return b
}

// WithOutput closes the group and adds the output statement.
// Common options include 'body', 'center', 'geom'.
func (b *OverpassBuilder) WithOutput(outputType string) *OverpassBuilder {
	if b.hasElement {
		fmt.Fprintf(&b.buf, ");out %s;", outputType)
		b.hasElement = false
	}
	return b
}

// Build returns the complete Overpass query string.
func (b *OverpassBuilder) Build() string {
	return b.buf.String()
}

// addElement adds a query element with tags to the builder.
// Tag filters are emitted in key order so identical inputs build identical queries.
func (b *OverpassBuilder) addElement(baseQuery string, tags map[string]string) {
	if !b.hasElement {
		b.Begin()
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.buf.WriteString(baseQuery)
	for _, key := range keys {
		if value := tags[key]; value == "" {
			fmt.Fprintf(&b.buf, "[%s]", key)
		} else {
			fmt.Fprintf(&b.buf, "[%s=%s]", key, value)
		}
	}
	b.buf.WriteString(";")
}

// ParkingAround returns the query used for parking ingestion: every node and
// way tagged amenity=parking within radius meters, with full geometry so the
// normalizer can tell points from areas.
func ParkingAround(lat, lon, radius float64) string {
	return NewOverpassBuilder(25).
		Begin().
		WithAmenity("parking", lat, lon, radius).
		WithOutput("geom").
		Build()
}
