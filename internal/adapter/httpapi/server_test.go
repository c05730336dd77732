package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whenwx/forecast-timing-service/internal/adapter/httpapi"
	"github.com/whenwx/forecast-timing-service/internal/config"
	"github.com/whenwx/forecast-timing-service/internal/domain"
	"github.com/whenwx/forecast-timing-service/internal/observability"
)

var testInitTime = time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

type fakeProvider struct {
	pt    domain.PointSeries
	err   error
	calls int
}

func (f *fakeProvider) Series(_ context.Context, _, _ float64, _ string) (domain.PointSeries, error) {
	f.calls++
	if f.err != nil {
		return domain.PointSeries{}, f.err
	}
	return f.pt, nil
}

type fakeGeocoder struct {
	forward    domain.GeocodingResult
	forwardErr error
	reverse    domain.GeocodingResult
	places     []string
}

func (g *fakeGeocoder) ForwardGeocode(_ context.Context, place string) (domain.GeocodingResult, error) {
	g.places = append(g.places, place)
	return g.forward, g.forwardErr
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	return g.reverse, nil
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type fixedTimezone struct{}

func (fixedTimezone) Resolve(_, _ float64) string { return "Europe/Paris" }

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:           ":0",
		CORSOrigins:        []string{"*"},
		RateLimitPerMinute: 5,
	}
}

func newTestServer(deps httpapi.Dependencies) *httpapi.Server {
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return httpapi.NewServer(testConfig(), deps)
}

// kelvinSeries builds an hourly 2t point series starting at testInitTime.
func kelvinSeries(t *testing.T, values ...float64) domain.PointSeries {
	t.Helper()
	leads := make([]float64, len(values))
	for i := range leads {
		leads[i] = float64(i)
	}
	series, err := domain.NewForecastSeries("2t", "K", testInitTime, leads, values)
	require.NoError(t, err)
	return domain.PointSeries{Geo: domain.Geo{Lat: 48.85, Lon: 2.35}, Series: series}
}

func doRequest(srv *httpapi.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}})

	rec := doRequest(srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}, Ready: &mockReadiness{}})

	rec := doRequest(srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{
		Provider: &fakeProvider{},
		Ready:    &mockReadiness{err: fmt.Errorf("redis not reachable")},
	})

	rec := doRequest(srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "redis")
}

func TestEventsListsRegistry(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}})

	rec := doRequest(srv, "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []httpapi.EventSummary `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 3)
	assert.Equal(t, "freezing", body.Events[0].ID)
	assert.Equal(t, -10.0, body.Events[0].Threshold)
	assert.Equal(t, "°C", body.Events[0].Unit)
	assert.Equal(t, "gale", body.Events[1].ID)
	assert.Equal(t, "km/h", body.Events[1].Unit)
	assert.Equal(t, "heat", body.Events[2].ID)
}

func TestVariablesListsRegistry(t *testing.T) {
	srv := newTestServer(httpapi.Dependencies{Provider: &fakeProvider{}})

	rec := doRequest(srv, "/v1/variables")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Variables []httpapi.VariableSummary `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Variables, 2)
	assert.Equal(t, "2t", body.Variables[0].ID)
	assert.False(t, body.Variables[0].Derived)
	assert.Equal(t, "wind_speed", body.Variables[1].ID)
	assert.True(t, body.Variables[1].Derived)
}
