package geo

import (
	"errors"
	"math"
	"testing"
)

func TestValidateCoords(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr error
	}{
		{name: "valid coordinates", lat: 40.7128, lon: -74.0060},
		{name: "valid coordinates at boundaries", lat: 90.0, lon: 180.0},
		{name: "valid coordinates at negative boundaries", lat: -90.0, lon: -180.0},
		{name: "invalid latitude too high", lat: 91.0, lon: -74.0060, wantErr: ErrLatitudeRange},
		{name: "invalid latitude too low", lat: -91.0, lon: -74.0060, wantErr: ErrLatitudeRange},
		{name: "invalid longitude too high", lat: 40.7128, lon: 181.0, wantErr: ErrLongitudeRange},
		{name: "invalid longitude too low", lat: 40.7128, lon: -181.0, wantErr: ErrLongitudeRange},
		{name: "NaN latitude", lat: math.NaN(), lon: 0, wantErr: ErrNotFinite},
		{name: "infinite longitude", lat: 0, lon: math.Inf(1), wantErr: ErrNotFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoords(tt.lat, tt.lon)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCoords(%v, %v) error = %v, want %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRadius(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		max     float64
		wantErr bool
	}{
		{name: "default radius", radius: 500, max: 5000},
		{name: "at maximum", radius: 5000, max: 5000},
		{name: "above maximum", radius: 5001, max: 5000, wantErr: true},
		{name: "zero", radius: 0, max: 5000, wantErr: true},
		{name: "negative", radius: -10, max: 5000, wantErr: true},
		{name: "NaN", radius: math.NaN(), max: 5000, wantErr: true},
		{name: "no upper bound", radius: 1e6, max: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRadius(tt.radius, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRadius(%v, %v) error = %v, wantErr %v", tt.radius, tt.max, err, tt.wantErr)
			}
		})
	}
}
