package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// featureRow is one parking_features row as read by either backend.
// Empty Name/Amenity mean NULL.
type featureRow struct {
	ID          int64
	Latitude    float64
	Longitude   float64
	Name        string
	Amenity     string
	Source      string
	RetrievedAt time.Time
	Confidence  float64
	OtherTags   []byte
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r featureRow) toGeoJSON() (*geojson.Feature, error) {
	tags := map[string]string{}
	if len(r.OtherTags) > 0 {
		if err := json.Unmarshal(r.OtherTags, &tags); err != nil {
			return nil, fmt.Errorf("decode other_tags of feature %d: %w", r.ID, err)
		}
	}

	f := geojson.NewFeature(orb.Point{r.Longitude, r.Latitude})
	f.ID = r.ID
	f.Properties["id"] = r.ID
	f.Properties["name"] = nullable(r.Name)
	f.Properties["amenity"] = nullable(r.Amenity)
	f.Properties["source"] = r.Source
	f.Properties["retrieved_at"] = r.RetrievedAt.UTC().Format(time.RFC3339Nano)
	f.Properties["confidence"] = r.Confidence
	f.Properties["other_tags"] = tags
	return f, nil
}

// collection assembles rows into a feature collection. An empty input
// yields a collection with zero features.
func collection(rows []featureRow) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f, err := r.toGeoJSON()
		if err != nil {
			return nil, &PersistenceError{Op: "read features", Cause: err}
		}
		fc.Append(f)
	}
	return fc, nil
}

func encodeTags(tags map[string]string) ([]byte, error) {
	if tags == nil {
		tags = map[string]string{}
	}
	return json.Marshal(tags)
}
