package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/whenwx/forecast-timing-service/internal/adapter/rediscache"
	"github.com/whenwx/forecast-timing-service/internal/adapter/store"
	"github.com/whenwx/forecast-timing-service/internal/domain"
)

// queryParams is the parsed and validated query string of GET /v1/query.
// Either Event or the Variable/Threshold/Operator triple must be set.
type queryParams struct {
	Lat       float64 `validate:"gte=-90,lte=90"`
	Lon       float64 `validate:"gte=-180,lte=180"`
	Place     string
	Event     string
	Variable  string
	Threshold float64
	Operator  string `validate:"omitempty,oneof=lt gt lte gte eq"`

	// Now overrides the evaluation reference time; zero means the wall clock.
	Now time.Time
}

// handleQuery answers "when will this condition occur at this point".
//
// Resolution order: cache, then the forecast store, then the occurrence
// engine. Results are cached unless the caller pinned an explicit reference
// time, since rollover makes those answers time-dependent.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.deps.Metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	params, errMsg := parseQueryParams(r)
	if errMsg == "" {
		if err := s.validate.Struct(params); err != nil {
			errMsg = "lat must be in [-90,90], lon in [-180,180], operator one of lt, gt, lte, gte, eq"
		}
	}
	if errMsg != "" {
		s.deps.Metrics.QueriesServed.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "invalid_request", errMsg)
		return
	}

	var placeName string
	if params.Place != "" {
		if s.deps.Geocoder == nil {
			s.deps.Metrics.QueriesServed.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, "place_not_supported", "place queries require geocoding, which is not enabled")
			return
		}
		result, err := s.deps.Geocoder.ForwardGeocode(r.Context(), params.Place)
		if err != nil {
			s.deps.Metrics.QueriesServed.WithLabelValues("upstream_error").Inc()
			s.logger.Warn("forward geocode failed", "place", params.Place, "error", err)
			writeError(w, http.StatusBadGateway, "geocode_failed", "could not resolve place "+strconv.Quote(params.Place))
			return
		}
		if result.FormattedAddress == "" {
			s.deps.Metrics.QueriesServed.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "place_not_found", "no location found for "+strconv.Quote(params.Place))
			return
		}
		params.Lat = result.Lat
		params.Lon = result.Lon
		placeName = result.FormattedAddress
	}

	varCfg, cond, event, ok := s.resolveCondition(w, params)
	if !ok {
		return
	}

	explicitNow := !params.Now.IsZero()
	cacheKey := rediscache.QueryKey(params.Lat, params.Lon, cond.Variable, cond.Value, string(cond.Operator))

	if s.deps.Cache != nil && !explicitNow {
		var cached QueryResponse
		found, err := s.deps.Cache.Get(r.Context(), cacheKey, &cached)
		switch {
		case err != nil:
			s.deps.Metrics.QueryCache.WithLabelValues("error").Inc()
			s.logger.Warn("query cache read failed", "error", err)
		case found:
			s.deps.Metrics.QueryCache.WithLabelValues("hit").Inc()
			s.deps.Metrics.QueriesServed.WithLabelValues("ok").Inc()
			writeJSON(w, http.StatusOK, cached)
			return
		default:
			s.deps.Metrics.QueryCache.WithLabelValues("miss").Inc()
		}
	} else {
		s.deps.Metrics.QueryCache.WithLabelValues("bypass").Inc()
	}

	pt, err := s.deps.Provider.Series(r.Context(), params.Lat, params.Lon, varCfg.ID)
	if err != nil {
		s.respondSeriesError(w, err)
		return
	}

	now := params.Now
	if now.IsZero() {
		now = domain.Now()
	}

	timing, err := domain.ComputeTiming(pt.Series, cond, now)
	if err != nil {
		s.deps.Metrics.QueriesServed.WithLabelValues("upstream_error").Inc()
		s.logger.Error("timing computation failed", "error", err, "variable", cond.Variable)
		writeError(w, http.StatusBadGateway, "upstream_error", "forecast data could not be evaluated")
		return
	}

	resp := s.buildResponse(r, params, placeName, varCfg, cond, event, pt, timing, now)

	if s.deps.Cache != nil && !explicitNow {
		if err := s.deps.Cache.Set(r.Context(), cacheKey, resp); err != nil {
			s.logger.Warn("query cache write failed", "error", err)
		}
	}

	s.deps.Metrics.QueriesServed.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func parseQueryParams(r *http.Request) (queryParams, string) {
	q := r.URL.Query()
	var params queryParams

	params.Place = q.Get("place")
	if params.Place != "" {
		if q.Get("lat") != "" || q.Get("lon") != "" {
			return params, "place cannot be combined with lat and lon"
		}
	} else {
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return params, "lat is required and must be a number"
		}
		lon, err := strconv.ParseFloat(q.Get("lon"), 64)
		if err != nil {
			return params, "lon is required and must be a number"
		}
		params.Lat = lat
		params.Lon = lon
	}

	params.Event = q.Get("event")
	params.Variable = q.Get("variable")
	params.Operator = q.Get("operator")

	if params.Event == "" {
		if params.Variable == "" || params.Operator == "" || q.Get("threshold") == "" {
			return params, "either event or variable, threshold, and operator must be provided"
		}
		threshold, err := strconv.ParseFloat(q.Get("threshold"), 64)
		if err != nil {
			return params, "threshold must be a number"
		}
		params.Threshold = threshold
	} else if params.Variable != "" || params.Operator != "" || q.Get("threshold") != "" {
		return params, "event cannot be combined with variable, threshold, or operator"
	}

	if nowStr := q.Get("now"); nowStr != "" {
		now, err := time.Parse(time.RFC3339, nowStr)
		if err != nil {
			return params, "now must be an RFC 3339 timestamp"
		}
		params.Now = now
	}

	return params, ""
}

// resolveCondition turns the request into a storage-unit threshold condition.
// Ad hoc thresholds arrive in display units and are converted here.
func (s *Server) resolveCondition(w http.ResponseWriter, params queryParams) (domain.VariableConfig, domain.ThresholdCondition, *domain.WeatherEvent, bool) {
	if params.Event != "" {
		event, ok := domain.LookupEvent(params.Event)
		if !ok {
			s.deps.Metrics.QueriesServed.WithLabelValues("invalid").Inc()
			writeError(w, http.StatusBadRequest, "unknown_event", "unknown event "+strconv.Quote(params.Event))
			return domain.VariableConfig{}, domain.ThresholdCondition{}, nil, false
		}
		varCfg, _ := domain.LookupVariable(event.Variable)
		return varCfg, event.Condition(), &event, true
	}

	varCfg, ok := domain.LookupVariable(params.Variable)
	if !ok {
		s.deps.Metrics.QueriesServed.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "unknown_variable", "unknown variable "+strconv.Quote(params.Variable))
		return domain.VariableConfig{}, domain.ThresholdCondition{}, nil, false
	}

	cond := domain.ThresholdCondition{
		Variable: varCfg.ID,
		Operator: domain.Operator(params.Operator),
		Value:    varCfg.ToStorage(params.Threshold),
	}
	return varCfg, cond, nil, true
}

func (s *Server) respondSeriesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNoData):
		s.deps.Metrics.QueriesServed.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, "no_data", "no forecast data for this location")
	case errors.Is(err, store.ErrUnavailable):
		s.deps.Metrics.QueriesServed.WithLabelValues("upstream_error").Inc()
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "forecast store is unavailable")
	default:
		s.deps.Metrics.QueriesServed.WithLabelValues("upstream_error").Inc()
		s.logger.Error("series fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "forecast data could not be loaded")
	}
}

func (s *Server) buildResponse(
	r *http.Request,
	params queryParams,
	placeName string,
	varCfg domain.VariableConfig,
	cond domain.ThresholdCondition,
	event *domain.WeatherEvent,
	pt domain.PointSeries,
	timing domain.EventTiming,
	now time.Time,
) QueryResponse {
	location := LocationInfo{Lat: params.Lat, Lon: params.Lon, Place: placeName}

	if s.deps.Timezones != nil {
		location.Timezone = s.deps.Timezones.Resolve(params.Lat, params.Lon)
	}
	if placeName == "" && s.deps.Geocoder != nil {
		result, err := s.deps.Geocoder.ReverseGeocode(r.Context(), params.Lat, params.Lon)
		if err != nil {
			s.logger.Warn("reverse geocode failed", "error", err)
		} else {
			location.Place = result.FormattedAddress
		}
	}

	condition := ConditionInfo{
		Variable:  varCfg.ID,
		Label:     varCfg.Label,
		Threshold: varCfg.ToDisplay(cond.Value),
		Operator:  string(cond.Operator),
		Unit:      varCfg.DisplayUnit,
	}

	var eventInfo *EventInfo
	if event != nil {
		eventInfo = &EventInfo{ID: event.ID, Name: event.Name, Description: event.Description}
		condition.Threshold = event.ThresholdDisplay
	}

	series := make([]TimePoint, len(pt.Series.Points))
	for i, point := range pt.Series.Points {
		series[i] = TimePoint{
			Time:  pt.Series.ValidTime(point.LeadTimeHours),
			Value: varCfg.ToDisplay(point.Value),
		}
	}

	return QueryResponse{
		Location:         location,
		Event:            eventInfo,
		Condition:        condition,
		Timing:           timing,
		ForecastInitTime: pt.Series.InitTime,
		QueryTime:        now,
		DataSource:       dataSource,
		TimeSeries:       series,
	}
}
