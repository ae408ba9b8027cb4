// Package geo provides common geographic types and coordinate validation.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Location represents a geographic coordinate (latitude and longitude)
// with standardized JSON field names.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String returns the coordinate as "lat,lon" with Overpass precision.
func (l Location) String() string {
	return fmt.Sprintf("%f,%f", l.Latitude, l.Longitude)
}

var (
	ErrNotFinite         = errors.New("coordinate must be a finite number")
	ErrLatitudeRange     = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange    = errors.New("longitude must be between -180 and 180")
	ErrRadiusNotPositive = errors.New("radius must be a positive finite number")
)

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateCoords checks that lat/lon are finite and inside WGS-84 bounds.
func ValidateCoords(lat, lon float64) error {
	if !IsFinite(lat) || !IsFinite(lon) {
		return ErrNotFinite
	}
	if lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	if lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// ValidateRadius checks a search radius in meters against an upper bound.
// A maxMeters of zero disables the upper bound.
func ValidateRadius(radius, maxMeters float64) error {
	if !IsFinite(radius) || radius <= 0 {
		return ErrRadiusNotPositive
	}
	if maxMeters > 0 && radius > maxMeters {
		return fmt.Errorf("radius %.0f exceeds maximum of %.0f meters", radius, maxMeters)
	}
	return nil
}
