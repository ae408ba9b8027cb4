package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
	"github.com/NERVsystems/parkmcp/pkg/geo"
	"github.com/NERVsystems/parkmcp/pkg/parking"
	"github.com/NERVsystems/parkmcp/pkg/store"
	"github.com/NERVsystems/parkmcp/pkg/testutil"
)

const overpassPayload = `{
  "elements": [
    {"type": "node", "id": 101, "lat": 37.7793, "lon": -122.4193,
     "tags": {"amenity": "parking", "name": "Civic Center Garage", "fee": "yes"}},
    {"type": "node", "id": 102, "lat": 37.7801, "lon": -122.4150,
     "tags": {"amenity": "parking"}},
    {"type": "way", "id": 201,
     "geometry": [{"lat": 37.1, "lon": -122.1}, {"lat": 37.2, "lon": -122.2}],
     "tags": {"amenity": "parking"}}
  ]
}`

const searchPayload = `{
  "results": [
    {"title": "Mission Garage", "url": "https://example.com/a",
     "content": "Covered parking, $4.50/hr. Open 6am-11pm daily."},
    {"title": "Valencia Lot", "url": "https://example.com/b", "content": "Surface lot"},
    {"title": "No URL", "content": "$3/hr"}
  ]
}`

type fakeOverpass struct {
	payload []byte
	err     error
	calls   int
	center  geo.Location
	radius  float64
}

func (f *fakeOverpass) FetchParking(_ context.Context, center geo.Location, radius float64) ([]byte, error) {
	f.calls++
	f.center = center
	f.radius = radius
	return f.payload, f.err
}

type fakeSearch struct {
	payload []byte
	err     error
	query   string
	calls   int
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]byte, error) {
	f.calls++
	f.query = query
	return f.payload, f.err
}

type fakeSpeech struct {
	transcript string
	audio      []byte
	err        error
	gotAudio   []byte
	gotType    string
	gotVoice   string
}

func (f *fakeSpeech) Transcribe(_ context.Context, audio []byte, fileType string) (string, error) {
	f.gotAudio = audio
	f.gotType = fileType
	return f.transcript, f.err
}

func (f *fakeSpeech) Synthesize(_ context.Context, _ string, voice string) ([]byte, string, error) {
	f.gotVoice = voice
	return f.audio, "audio/mpeg", f.err
}

// fakeStore records calls and fails with err when set.
type fakeStore struct {
	mu         sync.Mutex
	err        error
	calls      int
	features   []parking.Feature
	candidates []parking.Candidate
}

func (s *fakeStore) record() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *fakeStore) EnsureSchema(context.Context) error { return s.record() }

func (s *fakeStore) UpsertParkingCandidates(_ context.Context, records []parking.Candidate) (int, error) {
	if err := s.record(); err != nil {
		return 0, err
	}
	s.candidates = append(s.candidates, records...)
	return len(records), nil
}

func (s *fakeStore) UpsertEnrichedFeatures(_ context.Context, records []parking.Feature) (int, error) {
	if err := s.record(); err != nil {
		return 0, err
	}
	s.features = append(s.features, records...)
	return len(records), nil
}

func (s *fakeStore) ReadAllEnrichedFeatures(context.Context) (*geojson.FeatureCollection, error) {
	if err := s.record(); err != nil {
		return nil, err
	}
	return geojson.NewFeatureCollection(), nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

var fixedNow = time.Date(2026, 10, 17, 16, 0, 0, 0, time.UTC)

func newTestRegistry(deps Deps) *Registry {
	deps.Logger = testutil.DiscardLogger()
	deps.Now = func() time.Time { return fixedNow }
	return NewRegistry(deps)
}

func TestToolDefinitions(t *testing.T) {
	r := newTestRegistry(Deps{})
	defs := r.GetToolDefinitions()

	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
		assert.Equal(t, def.Name, def.Tool.Name)
		assert.NotNil(t, def.Handler)
	}
	assert.ElementsMatch(t, []string{
		ToolSpeechToText, ToolTextToSpeech, ToolSaveParkingInfo, ToolFetchOverpassData, ToolGetParkingDataForFrontend,
	}, names)
}

func TestFetchOverpassDataValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "missing latitude", args: map[string]any{"longitude": -122.4}, want: "latitude is required"},
		{name: "missing longitude", args: map[string]any{"latitude": 37.7}, want: "longitude is required"},
		{name: "latitude out of range", args: map[string]any{"latitude": 91.0, "longitude": 0.0}, want: "latitude must be between"},
		{name: "longitude out of range", args: map[string]any{"latitude": 0.0, "longitude": -181.0}, want: "longitude must be between"},
		{name: "not finite", args: map[string]any{"latitude": "NaN", "longitude": 0.0}, want: "finite"},
		{name: "not a number", args: map[string]any{"latitude": "north", "longitude": 0.0}, want: "must be a number"},
		{name: "wrong type", args: map[string]any{"latitude": true, "longitude": 0.0}, want: "must be a number"},
		{name: "zero radius", args: map[string]any{"latitude": 37.7, "longitude": -122.4, "radius": 0.0}, want: "radius must be"},
		{name: "negative radius", args: map[string]any{"latitude": 37.7, "longitude": -122.4, "radius": -10.0}, want: "radius must be"},
		{name: "radius too large", args: map[string]any{"latitude": 37.7, "longitude": -122.4, "radius": 6000.0}, want: "exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overpass := &fakeOverpass{payload: []byte(overpassPayload)}
			st := &fakeStore{}
			r := newTestRegistry(Deps{Overpass: overpass, Store: st})

			result, err := r.HandleFetchOverpassData(context.Background(),
				testutil.CallToolRequest(ToolFetchOverpassData, tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)

			text := testutil.ResultText(result)
			assert.Contains(t, text, tt.want)
			assert.Contains(t, text, "Guidance:")
			assert.Zero(t, overpass.calls, "no request for invalid input")
			assert.Zero(t, st.calls, "no database access for invalid input")
		})
	}
}

func TestFetchOverpassDataSavesPoints(t *testing.T) {
	overpass := &fakeOverpass{payload: []byte(overpassPayload)}
	st := &fakeStore{}
	r := newTestRegistry(Deps{Overpass: overpass, Store: st})

	result, err := r.HandleFetchOverpassData(context.Background(),
		testutil.CallToolRequest(ToolFetchOverpassData, map[string]any{
			"latitude":  37.7793,
			"longitude": -122.4193,
		}))
	require.NoError(t, err)
	require.False(t, result.IsError, testutil.ResultText(result))

	assert.Equal(t, "Saved 2 parking features from Overpass", testutil.ResultText(result))
	assert.Equal(t, DefaultRadius, overpass.radius)
	assert.Equal(t, geo.Location{Latitude: 37.7793, Longitude: -122.4193}, overpass.center)
	assert.Equal(t, 2, st.calls, "schema then upsert")

	require.Len(t, st.features, 2)
	for _, f := range st.features {
		assert.Equal(t, "overpass", f.Source)
		assert.Equal(t, fixedNow, f.RetrievedAt)
	}
}

func TestFetchOverpassDataFailures(t *testing.T) {
	tests := []struct {
		name     string
		overpass *fakeOverpass
		store    *fakeStore
		want     string
	}{
		{
			name:     "rate limited",
			overpass: &fakeOverpass{err: &fetch.FetchError{Service: fetch.ServiceOverpass, Status: http.StatusTooManyRequests, Cause: errors.New("busy")}},
			store:    &fakeStore{},
			want:     GuidanceOverpassRateLimit,
		},
		{
			name:     "transport failure",
			overpass: &fakeOverpass{err: &fetch.FetchError{Service: fetch.ServiceOverpass, Cause: errors.New("connection refused")}},
			store:    &fakeStore{},
			want:     GuidanceNetworkError,
		},
		{
			name:     "malformed payload",
			overpass: &fakeOverpass{payload: []byte(`{"remark":"runtime error: Query timed out"}`)},
			store:    &fakeStore{},
			want:     GuidanceDataError,
		},
		{
			name:     "persistence failure",
			overpass: &fakeOverpass{payload: []byte(overpassPayload)},
			store:    &fakeStore{err: &store.PersistenceError{Op: "upsert features", Cause: errors.New("deadlock")}},
			want:     GuidanceDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(Deps{Overpass: tt.overpass, Store: tt.store})

			result, err := r.HandleFetchOverpassData(context.Background(),
				testutil.CallToolRequest(ToolFetchOverpassData, map[string]any{
					"latitude": 37.7793, "longitude": -122.4193, "radius": 250.0,
				}))
			require.NoError(t, err, "failures never cross the protocol boundary")
			assert.True(t, result.IsError)
			assert.Contains(t, testutil.ResultText(result), tt.want)
			assert.Empty(t, tt.store.features)
		})
	}
}

func TestSaveParkingInfo(t *testing.T) {
	searcher := &fakeSearch{payload: []byte(searchPayload)}
	st := &fakeStore{}
	r := newTestRegistry(Deps{Search: searcher, Store: st})

	result, err := r.HandleSaveParkingInfo(context.Background(),
		testutil.CallToolRequest(ToolSaveParkingInfo, map[string]any{"neighborhood": " Mission "}))
	require.NoError(t, err)
	require.False(t, result.IsError, testutil.ResultText(result))

	assert.Equal(t, "Saved 2 parking records for Mission", testutil.ResultText(result))
	assert.Contains(t, searcher.query, "Mission")

	require.Len(t, st.candidates, 2)
	first := st.candidates[0]
	assert.Equal(t, "Mission", first.Neighborhood)
	require.NotNil(t, first.HourlyRate)
	assert.Equal(t, 4.5, *first.HourlyRate)
	require.NotNil(t, first.Hours)
	assert.Equal(t, "6am-11pm daily", *first.Hours)
	assert.Nil(t, st.candidates[1].HourlyRate)
}

func TestSaveParkingInfoNoResultsSkipsStore(t *testing.T) {
	payloads := []string{`{"results": []}`, `{"query": "parking"}`, `{"results": null}`}

	for _, payload := range payloads {
		searcher := &fakeSearch{payload: []byte(payload)}
		st := &fakeStore{err: errors.New("store must not be called")}
		r := newTestRegistry(Deps{Search: searcher, Store: st})

		result, err := r.HandleSaveParkingInfo(context.Background(),
			testutil.CallToolRequest(ToolSaveParkingInfo, map[string]any{"neighborhood": "Mission"}))
		require.NoError(t, err)
		assert.False(t, result.IsError, payload)
		assert.Equal(t, "No parking data found for Mission", testutil.ResultText(result))
		assert.Zero(t, st.calls, payload)
	}
}

func TestSaveParkingInfoErrors(t *testing.T) {
	t.Run("missing neighborhood", func(t *testing.T) {
		searcher := &fakeSearch{}
		r := newTestRegistry(Deps{Search: searcher, Store: &fakeStore{}})

		result, err := r.HandleSaveParkingInfo(context.Background(),
			testutil.CallToolRequest(ToolSaveParkingInfo, map[string]any{"neighborhood": "   "}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testutil.ResultText(result), "neighborhood is required")
		assert.Zero(t, searcher.calls)
	})

	t.Run("missing api key", func(t *testing.T) {
		searcher := &fakeSearch{err: &fetch.FetchError{Service: fetch.ServiceSearch, Cause: fetch.ErrMissingAPIKey}}
		r := newTestRegistry(Deps{Search: searcher, Store: &fakeStore{}})

		result, err := r.HandleSaveParkingInfo(context.Background(),
			testutil.CallToolRequest(ToolSaveParkingInfo, map[string]any{"neighborhood": "Mission"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testutil.ResultText(result), GuidanceSearchAuth)
	})

	t.Run("not json", func(t *testing.T) {
		searcher := &fakeSearch{payload: []byte(`<html>`)}
		st := &fakeStore{}
		r := newTestRegistry(Deps{Search: searcher, Store: st})

		result, err := r.HandleSaveParkingInfo(context.Background(),
			testutil.CallToolRequest(ToolSaveParkingInfo, map[string]any{"neighborhood": "Mission"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, testutil.ResultText(result), GuidanceDataError)
		assert.Zero(t, st.calls)
	})
}

func TestSpeechToText(t *testing.T) {
	sp := &fakeSpeech{transcript: "find parking near the ballpark"}
	r := newTestRegistry(Deps{Speech: sp})

	audio := []byte("RIFF....WAVE")
	result, err := r.HandleSpeechToText(context.Background(),
		testutil.CallToolRequest(ToolSpeechToText, map[string]any{
			"audio": base64.StdEncoding.EncodeToString(audio),
		}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "find parking near the ballpark", testutil.ResultText(result))
	assert.Equal(t, audio, sp.gotAudio)
	assert.Equal(t, "wav", sp.gotType)

	result, err = r.HandleSpeechToText(context.Background(),
		testutil.CallToolRequest(ToolSpeechToText, map[string]any{"audio": "%%%"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(result), "not valid base64")
}

func TestTextToSpeech(t *testing.T) {
	sp := &fakeSpeech{audio: []byte{0xff, 0xfb, 0x90, 0x00}}
	r := newTestRegistry(Deps{Speech: sp})

	result, err := r.HandleTextToSpeech(context.Background(),
		testutil.CallToolRequest(ToolTextToSpeech, map[string]any{"text": "Garage on Fifth"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "alloy", sp.gotVoice)

	blob, ok := testutil.ResultBlob(result)
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", blob.MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(blob.Blob)
	require.NoError(t, err)
	assert.Equal(t, sp.audio, decoded)
	assert.True(t, strings.HasPrefix(blob.URI, "data:audio/mpeg;base64,"))

	sp.err = &fetch.FetchError{Service: fetch.ServiceSpeech, Status: http.StatusUnauthorized, Cause: errors.New("bad key")}
	result, err = r.HandleTextToSpeech(context.Background(),
		testutil.CallToolRequest(ToolTextToSpeech, map[string]any{"text": "hello", "voice": "nova"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "nova", sp.gotVoice)
	assert.Contains(t, testutil.ResultText(result), GuidanceSpeechAuth)
}

func decodeFrontend(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	blob, ok := testutil.ResultBlob(result)
	require.True(t, ok, "result carries a blob resource")
	assert.Equal(t, GeoJSONMIMEType, blob.MIMEType)

	const prefix = "data:application/json;base64,"
	require.True(t, strings.HasPrefix(blob.URI, prefix))
	assert.Equal(t, blob.Blob, strings.TrimPrefix(blob.URI, prefix))

	data, err := base64.StdEncoding.DecodeString(blob.Blob)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestGetParkingDataForFrontendRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(ctx, filepath.Join(t.TempDir(), "parking.db"), testutil.DiscardLogger())
	require.NoError(t, err)
	defer st.Close()

	r := newTestRegistry(Deps{Overpass: &fakeOverpass{payload: []byte(overpassPayload)}, Store: st})

	result, err := r.HandleGetParkingDataForFrontend(ctx, testutil.CallToolRequest(ToolGetParkingDataForFrontend, nil))
	require.NoError(t, err)
	require.False(t, result.IsError, testutil.ResultText(result))
	empty := decodeFrontend(t, result)
	assert.Equal(t, "FeatureCollection", empty["type"])
	assert.Equal(t, []any{}, empty["features"])

	args := map[string]any{"latitude": 37.7793, "longitude": -122.4193}
	for i := 0; i < 2; i++ {
		result, err = r.HandleFetchOverpassData(ctx, testutil.CallToolRequest(ToolFetchOverpassData, args))
		require.NoError(t, err)
		require.False(t, result.IsError, testutil.ResultText(result))
	}

	result, err = r.HandleGetParkingDataForFrontend(ctx, testutil.CallToolRequest(ToolGetParkingDataForFrontend, nil))
	require.NoError(t, err)
	fc := decodeFrontend(t, result)
	features, ok := fc["features"].([]any)
	require.True(t, ok)
	assert.Len(t, features, 2, "re-ingestion does not duplicate")

	first := features[0].(map[string]any)
	geometry := first["geometry"].(map[string]any)
	assert.Equal(t, "Point", geometry["type"])
	assert.Equal(t, []any{-122.4193, 37.7793}, geometry["coordinates"])
	props := first["properties"].(map[string]any)
	assert.Equal(t, "Civic Center Garage", props["name"])
	assert.Equal(t, map[string]any{"fee": "yes"}, props["other_tags"])
}

func TestGetParkingDataForFrontendStoreError(t *testing.T) {
	st := &fakeStore{err: &store.PersistenceError{Op: "read features", Cause: errors.New("connection reset")}}
	r := newTestRegistry(Deps{Store: st})

	result, err := r.HandleGetParkingDataForFrontend(context.Background(),
		testutil.CallToolRequest(ToolGetParkingDataForFrontend, nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, testutil.ResultText(result), "database read features failed")
}
