package osm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
	"github.com/NERVsystems/parkmcp/pkg/geo"
	"github.com/NERVsystems/parkmcp/pkg/osm/queries"
	"github.com/NERVsystems/parkmcp/pkg/testutil"
)

func newFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := fetch.NewClient(
		fetch.WithHTTPClient(srv.Client()),
		fetch.WithRateLimiter(fetch.NewRateLimiter(map[string]fetch.Limit{fetch.ServiceOverpass: {}})),
		fetch.WithLogger(testutil.DiscardLogger()),
	)
	return NewFetcher(client, srv.URL, testutil.DiscardLogger())
}

func TestFetchParking(t *testing.T) {
	const payload = `{"elements":[{"type":"node","id":1,"lat":37.5,"lon":-122.25,"tags":{"amenity":"parking"}}]}`

	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, queries.ParkingAround(37.5, -122.25, 500), r.PostForm.Get("data"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	})

	body, err := f.FetchParking(context.Background(), geo.Location{Latitude: 37.5, Longitude: -122.25}, 500)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(body))
}

func TestFetchParkingUpstreamError(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runtime error: Query timed out", http.StatusGatewayTimeout)
	})

	_, err := f.FetchParking(context.Background(), geo.Location{Latitude: 1, Longitude: 2}, 100)

	var fe *fetch.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusGatewayTimeout, fe.Status)
	assert.Equal(t, fetch.ServiceOverpass, fe.Service)
}
