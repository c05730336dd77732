package httpapi_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whenwx/forecast-timing-service/internal/adapter/httpapi"
	"github.com/whenwx/forecast-timing-service/internal/adapter/rediscache"
	"github.com/whenwx/forecast-timing-service/internal/adapter/store"
	"github.com/whenwx/forecast-timing-service/internal/domain"
)

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httpapi.QueryResponse {
	t.Helper()
	var resp httpapi.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestQuery_EventSuccess(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	srv := newTestServer(httpapi.Dependencies{
		Provider:  provider,
		Timezones: fixedTimezone{},
	})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing&now=2026-08-30T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)

	require.NotNil(t, resp.Event)
	assert.Equal(t, "freezing", resp.Event.ID)

	assert.Equal(t, 48.85, resp.Location.Lat)
	assert.Equal(t, "Europe/Paris", resp.Location.Timezone)

	assert.Equal(t, "2t", resp.Condition.Variable)
	assert.Equal(t, -10.0, resp.Condition.Threshold)
	assert.Equal(t, "lt", resp.Condition.Operator)
	assert.Equal(t, "°C", resp.Condition.Unit)

	require.NotNil(t, resp.Timing.FirstBreachTime)
	assert.True(t, resp.Timing.FirstBreachTime.Equal(testInitTime.Add(time.Hour)))
	require.NotNil(t, resp.Timing.DurationHours)
	assert.Equal(t, 2.0, *resp.Timing.DurationHours)
	assert.Nil(t, resp.Timing.NextBreachTime)

	assert.True(t, resp.ForecastInitTime.Equal(testInitTime))
	assert.True(t, resp.QueryTime.Equal(testInitTime))
	assert.Equal(t, "ECMWF IFS 15-day forecast", resp.DataSource)

	require.Len(t, resp.TimeSeries, 4)
	assert.InDelta(t, 265-273.15, resp.TimeSeries[0].Value, 1e-9, "series should be in display units")
	assert.True(t, resp.TimeSeries[1].Time.Equal(testInitTime.Add(time.Hour)))
}

func TestQuery_AdhocCondition(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	srv := newTestServer(httpapi.Dependencies{Provider: provider})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&variable=2t&threshold=-11&operator=lt&now=2026-08-30T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Event)
	assert.Equal(t, -11.0, resp.Condition.Threshold, "threshold should echo in display units")

	require.NotNil(t, resp.Timing.FirstBreachTime)
	assert.True(t, resp.Timing.FirstBreachTime.Equal(testInitTime.Add(time.Hour)))
	require.NotNil(t, resp.Timing.DurationHours)
	assert.Equal(t, 2.0, *resp.Timing.DurationHours)
}

func TestQuery_NoBreach(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 270, 271, 272)}
	srv := newTestServer(httpapi.Dependencies{Provider: provider})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing&now=2026-08-30T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Timing.FirstBreachTime)
	assert.Nil(t, resp.Timing.DurationHours)
}

func TestQuery_RolloverReportsNextWindow(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 262, 262, 265, 262, 265)}
	srv := newTestServer(httpapi.Dependencies{Provider: provider})

	// The first cold spell ends at 02:00; querying at 03:00 should keep the
	// historical first window and surface the 03:00 spell as next.
	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing&now=2026-08-30T03:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Timing.FirstBreachTime)
	assert.True(t, resp.Timing.FirstBreachTime.Equal(testInitTime))
	require.NotNil(t, resp.Timing.NextBreachTime)
	assert.True(t, resp.Timing.NextBreachTime.Equal(testInitTime.Add(3*time.Hour)))
	require.NotNil(t, resp.Timing.NextDurationHours)
	assert.Equal(t, 1.0, *resp.Timing.NextDurationHours)
}

func TestQuery_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"missing lat", "/v1/query?lon=2.35&event=freezing", "invalid_request"},
		{"lat out of range", "/v1/query?lat=95&lon=2.35&event=freezing", "invalid_request"},
		{"lon out of range", "/v1/query?lat=48.85&lon=200&event=freezing", "invalid_request"},
		{"bad operator", "/v1/query?lat=48.85&lon=2.35&variable=2t&threshold=0&operator=between", "invalid_request"},
		{"no condition", "/v1/query?lat=48.85&lon=2.35", "invalid_request"},
		{"event mixed with variable", "/v1/query?lat=48.85&lon=2.35&event=freezing&variable=2t", "invalid_request"},
		{"bad now", "/v1/query?lat=48.85&lon=2.35&event=freezing&now=tomorrow", "invalid_request"},
		{"unknown event", "/v1/query?lat=48.85&lon=2.35&event=blizzard", "unknown_event"},
		{"unknown variable", "/v1/query?lat=48.85&lon=2.35&variable=precip&threshold=1&operator=gt", "unknown_variable"},
	}

	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{pt: kelvinSeries(t, 270)}})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestQuery_NoDataReturns404(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{err: store.ErrNoData}})

	rec := doRequest(srv, "/v1/query?lat=89&lon=0&event=freezing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no_data", body.Error.Code)
}

func TestQuery_StoreUnavailableReturns502(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{err: store.ErrUnavailable}})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upstream_unavailable", body.Error.Code)
}

func TestQuery_SecondRequestServedFromCache(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(testInitTime.Add(30 * time.Minute)))
	t.Cleanup(func() { domain.SetClock(nil) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	srv := newTestServer(httpapi.Dependencies{
		Provider: provider,
		Cache:    rediscache.NewQueryCache(client, 5*time.Minute),
	})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeResponse(t, rec)

	rec = doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing")
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeResponse(t, rec)

	assert.Equal(t, 1, provider.calls, "second request should not reach the store")
	assert.Equal(t, first.Timing, second.Timing)
}

func TestQuery_ExplicitNowBypassesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	srv := newTestServer(httpapi.Dependencies{
		Provider: provider,
		Cache:    rediscache.NewQueryCache(client, 5*time.Minute),
	})

	target := "/v1/query?lat=48.85&lon=2.35&event=freezing&now=2026-08-30T00:00:00Z"
	require.Equal(t, http.StatusOK, doRequest(srv, target).Code)
	require.Equal(t, http.StatusOK, doRequest(srv, target).Code)

	assert.Equal(t, 2, provider.calls, "pinned reference times must not be cached")
}

func TestQuery_PlaceResolvesThroughGeocoder(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	geocoder := &fakeGeocoder{forward: domain.GeocodingResult{
		Lat:              48.8566,
		Lon:              2.3522,
		FormattedAddress: "Paris, France",
	}}
	srv := newTestServer(httpapi.Dependencies{Provider: provider, Geocoder: geocoder})

	rec := doRequest(srv, "/v1/query?place=Paris&event=freezing&now=2026-08-30T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.Equal(t, []string{"Paris"}, geocoder.places)
	assert.Equal(t, 48.8566, resp.Location.Lat)
	assert.Equal(t, 2.3522, resp.Location.Lon)
	assert.Equal(t, "Paris, France", resp.Location.Place)
	require.NotNil(t, resp.Timing.FirstBreachTime)
}

func TestQuery_PlaceNotFound(t *testing.T) {
	geocoder := &fakeGeocoder{}
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}, Geocoder: geocoder})

	rec := doRequest(srv, "/v1/query?place=xqzzt&event=freezing")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "place_not_found", apiErr.Error.Code)
}

func TestQuery_PlaceGeocodeError(t *testing.T) {
	geocoder := &fakeGeocoder{forwardErr: errors.New("mapbox down")}
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}, Geocoder: geocoder})

	rec := doRequest(srv, "/v1/query?place=Paris&event=freezing")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "geocode_failed", apiErr.Error.Code)
}

func TestQuery_PlaceWithoutGeocoder(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}})

	rec := doRequest(srv, "/v1/query?place=Paris&event=freezing")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "place_not_supported", apiErr.Error.Code)
}

func TestQuery_PlaceCombinedWithCoords(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}, Geocoder: &fakeGeocoder{}})

	rec := doRequest(srv, "/v1/query?place=Paris&lat=48.85&lon=2.35&event=freezing")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "invalid_request", apiErr.Error.Code)
}

func TestQuery_ReverseGeocodeLabelsCoordQueries(t *testing.T) {
	provider := &fakeProvider{pt: kelvinSeries(t, 265, 262, 261, 264)}
	geocoder := &fakeGeocoder{reverse: domain.GeocodingResult{FormattedAddress: "Paris, France"}}
	srv := newTestServer(httpapi.Dependencies{Provider: provider, Geocoder: geocoder})

	rec := doRequest(srv, "/v1/query?lat=48.85&lon=2.35&event=freezing&now=2026-08-30T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	assert.Equal(t, "Paris, France", resp.Location.Place)
	assert.Empty(t, geocoder.places, "coord queries must not forward geocode")
}
