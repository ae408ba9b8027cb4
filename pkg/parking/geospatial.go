package parking

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/parkmcp/pkg/geo"
)

type overpassResponse struct {
	Elements []json.RawMessage `json:"elements"`
	Remark   string            `json:"remark"`
}

type overpassCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      *float64          `json:"lat"`
	Lon      *float64          `json:"lon"`
	Geometry []overpassCoord   `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

// geometry translates the element's native representation. Nodes become
// points, ways with inline geometry become line strings or polygons when
// closed, everything else has no geometry.
func (e overpassElement) geometry() orb.Geometry {
	switch e.Type {
	case "node":
		if e.Lat == nil || e.Lon == nil {
			return nil
		}
		return orb.Point{*e.Lon, *e.Lat}
	case "way":
		if len(e.Geometry) < 2 {
			return nil
		}
		ls := make(orb.LineString, 0, len(e.Geometry))
		for _, c := range e.Geometry {
			ls = append(ls, orb.Point{c.Lon, c.Lat})
		}
		if len(ls) >= 4 && ls[0].Equal(ls[len(ls)-1]) {
			return orb.Polygon{orb.Ring(ls)}
		}
		return ls
	}
	return nil
}

// toGeoJSON converts an element into a GeoJSON feature carrying its tags.
func (e overpassElement) toGeoJSON() *geojson.Feature {
	f := geojson.NewFeature(e.geometry())
	f.ID = e.ID
	for k, v := range e.Tags {
		f.Properties[k] = v
	}
	return f
}

// DecodeOverpass parses an Overpass JSON response into GeoJSON features.
// Elements that fail to decode are skipped.
func DecodeOverpass(raw []byte) ParseResult[[]*geojson.Feature] {
	var resp overpassResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Malformed[[]*geojson.Feature]("decode overpass response: %v", err)
	}
	if resp.Elements == nil {
		if resp.Remark != "" {
			return Malformed[[]*geojson.Feature]("overpass remark: %s", resp.Remark)
		}
		return Malformed[[]*geojson.Feature]("overpass response has no elements")
	}

	features := make([]*geojson.Feature, 0, len(resp.Elements))
	for i, rawElem := range resp.Elements {
		var e overpassElement
		if err := json.Unmarshal(rawElem, &e); err != nil {
			slog.Debug("skipping undecodable overpass element", "index", i, "error", err)
			continue
		}
		features = append(features, e.toGeoJSON())
	}
	return Ok(features)
}

// NormalizeGeospatial converts an Overpass response into parking features.
// Only point geometries survive; every record is stamped with source, the
// retrieval time now and DefaultConfidence.
func NormalizeGeospatial(raw []byte, source string, now time.Time) ParseResult[[]Feature] {
	decoded := DecodeOverpass(raw)
	gjFeatures, ok := decoded.Get()
	if !ok {
		return Malformed[[]Feature]("%s", decoded.Reason())
	}

	retrievedAt := now.UTC()
	out := make([]Feature, 0, len(gjFeatures))
	for _, f := range gjFeatures {
		rec, ok := featureFromGeoJSON(f)
		if !ok {
			continue
		}
		rec.Source = source
		rec.RetrievedAt = retrievedAt
		rec.Confidence = DefaultConfidence
		out = append(out, rec)
	}
	return Ok(out)
}

// featureFromGeoJSON keeps point features with a usable id and splits their
// properties into the named fields and the residual tag map.
func featureFromGeoJSON(f *geojson.Feature) (Feature, bool) {
	pt, isPoint := f.Geometry.(orb.Point)
	if !isPoint {
		return Feature{}, false
	}
	if geo.ValidateCoords(pt.Lat(), pt.Lon()) != nil {
		return Feature{}, false
	}
	id, ok := f.ID.(int64)
	if !ok || id <= 0 {
		return Feature{}, false
	}

	rec := Feature{
		ID:        id,
		Latitude:  pt.Lat(),
		Longitude: pt.Lon(),
		OtherTags: make(map[string]string, len(f.Properties)),
	}
	for k, v := range f.Properties {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "name":
			rec.Name = &s
		case "amenity":
			rec.Amenity = &s
		default:
			rec.OtherTags[k] = s
		}
	}
	return rec, true
}
