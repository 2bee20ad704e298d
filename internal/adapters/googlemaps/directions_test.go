package googlemaps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"

	"github.com/samirrijal/maproute/internal/core/domain"
	"github.com/samirrijal/maproute/internal/core/ports"
)

var (
	bilbao = domain.GeoPoint{Lat: 43.26271, Lng: -2.92528}
	getxo  = domain.GeoPoint{Lat: 43.35689, Lng: -3.01146}
)

func newStub(t *testing.T, handler http.HandlerFunc) *Directions {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d, err := New(Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return d
}

func TestDirections_OK(t *testing.T) {
	poly := maps.Encode([]maps.LatLng{{Lat: bilbao.Lat, Lng: bilbao.Lng}, {Lat: getxo.Lat, Lng: getxo.Lng}})

	d := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/directions/json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "driving", r.URL.Query().Get("mode"))
		assert.Contains(t, r.URL.Query().Get("origin"), "43.262710")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"status": "OK",
			"routes": [{
				"summary": "BI-637",
				"overview_polyline": {"points": %q},
				"bounds": {
					"northeast": {"lat": 43.35689, "lng": -2.92528},
					"southwest": {"lat": 43.26271, "lng": -3.01146}
				},
				"legs": [{
					"distance": {"text": "14 km", "value": 14000},
					"duration": {"text": "18 mins", "value": 1080}
				}]
			}]
		}`, poly)
	})

	res, err := d.Directions(context.Background(), bilbao, getxo)
	require.NoError(t, err)
	assert.Equal(t, ports.StatusOK, res.Status)
	assert.Equal(t, poly, res.EncodedPolyline)
	assert.Equal(t, "BI-637", res.Summary)
	require.NotNil(t, res.Bounds)
	assert.InDelta(t, 43.35689, res.Bounds.NorthEast.Lat, 1e-9)
	require.Len(t, res.Legs, 1)
	assert.Equal(t, 14000, res.Legs[0].DistanceMeters)
	assert.Equal(t, 1080, res.Legs[0].DurationSeconds)
}

func TestDirections_ZeroResults(t *testing.T) {
	d := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ZERO_RESULTS", "routes": []}`)
	})

	res, err := d.Directions(context.Background(), bilbao, domain.GeoPoint{Lat: 40.7128, Lng: -74.006})
	require.NoError(t, err)
	assert.Equal(t, ports.StatusZeroResults, res.Status)
	assert.Empty(t, res.EncodedPolyline)
}

func TestDirections_StatusError(t *testing.T) {
	d := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`)
	})

	res, err := d.Directions(context.Background(), bilbao, getxo)
	require.NoError(t, err)
	assert.Equal(t, "REQUEST_DENIED", res.Status)
	assert.Equal(t, "The provided API key is invalid.", res.ErrorMessage)
}

func TestDirections_ContextDeadline(t *testing.T) {
	d := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Directions(ctx, bilbao, getxo)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseStatusError(t *testing.T) {
	status, msg, ok := parseStatusError(fmt.Errorf("maps: OVER_QUERY_LIMIT - quota"))
	assert.True(t, ok)
	assert.Equal(t, "OVER_QUERY_LIMIT", status)
	assert.Equal(t, "quota", msg)

	_, _, ok = parseStatusError(fmt.Errorf("maps: origin missing"))
	assert.False(t, ok)

	_, _, ok = parseStatusError(fmt.Errorf("dial tcp: connection refused"))
	assert.False(t, ok)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
