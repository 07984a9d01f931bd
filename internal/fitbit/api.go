package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// example metric call
// https://api.fitbit.com/1/user/-/activities/steps/date/2022-01-01/2022-01-07.json

const (
	oneMinute         = 60
	metricCacheExpire = oneMinute * 15 // in seconds
)

// FetchOutcome tags a metric fetch that did not fail hard.
type FetchOutcome string

const (
	// OutcomeData - the provider returned the series (possibly empty).
	OutcomeData FetchOutcome = "data"
	// OutcomeSoftEmpty - no data / rate limited / not found; degraded to an
	// empty series instead of an error.
	OutcomeSoftEmpty FetchOutcome = "soft_empty"
	// OutcomeUnknownMetric - the metric name is not in the metric table; no
	// provider call was made.
	OutcomeUnknownMetric FetchOutcome = "unknown_metric"
)

// SeriesResult is the two-level, non-error half of a fetch: either real data
// or a soft-empty series. Hard upstream failures are returned as
// *UpstreamError instead, so the two failure classes never share a path.
type SeriesResult struct {
	Metric  string
	Outcome FetchOutcome
	Points  []SeriesPoint
}

// UpstreamError is an unclassified non-2xx from a metric endpoint. It
// carries the upstream status and body so the HTTP boundary can escalate
// them to the client.
type UpstreamError struct {
	Metric     string
	Field      string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error: %d %s", e.Field, e.StatusCode, e.Body)
}

// Api fetches metric time series from the provider REST endpoints.
type Api struct {
	cache          *freecache.Cache
	apiBaseURL     string
	httpClient     *http.Client
	metricsManager *metrics.Manager
}

func NewApi(apiBaseURL string, httpClient *http.Client, metricsManager *metrics.Manager) *Api {
	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Api{
		cache:          freecache.NewCache(cacheSize),
		apiBaseURL:     apiBaseURL,
		httpClient:     httpClient,
		metricsManager: metricsManager,
	}
}

// FetchMetric resolves the metric against the metric table and performs one
// GET for its series over the date range. Soft provider conditions
// (400/429/404, missing response field) degrade to an empty series; any
// other non-2xx comes back as *UpstreamError.
func (api *Api) FetchMetric(
	ctx context.Context,
	metric, startDate, endDate, accessToken string,
) (_ *SeriesResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "fitbitApi.fetchMetric")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("metric", metric))

	spec, ok := metricSpecs[metric]
	if !ok {
		log.Tracef("unknown metric [%s], returning empty series", metric)
		api.countFetch(metric, OutcomeUnknownMetric)
		return &SeriesResult{Metric: metric, Outcome: OutcomeUnknownMetric}, nil
	}

	cacheKey := fmt.Sprintf("%s::%s::%s::%s", metric, startDate, endDate, accessToken)
	if cachedPoints, err := api.cache.Get([]byte(cacheKey)); err == nil {
		var points []SeriesPoint
		if err = json.Unmarshal(cachedPoints, &points); err == nil {
			log.Tracef("found %s series for [%s - %s] in cache", metric, startDate, endDate)
			return &SeriesResult{Metric: metric, Outcome: OutcomeData, Points: points}, nil
		}
		log.Errorf("failed to unmarshal cached %s series: %s", metric, err)
	}

	metricURL := api.apiBaseURL + fmt.Sprintf(spec.PathTemplate, startDate, endDate)
	log.Debugf("calling metric endpoint: %s", metricURL)

	req, err := http.NewRequestWithContext(ctx, "GET", metricURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := api.httpClient.Do(req)
	if err != nil {
		api.countFetch(metric, "transport_error")
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read metric response bytes: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var body map[string]json.RawMessage
		if err := json.Unmarshal(respBytes, &body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s response bytes: %w", spec.ResponseField, err)
		}

		fieldBytes, ok := body[spec.ResponseField]
		if !ok {
			// provider sometimes omits the field for zero-data ranges
			log.Debugf("no [%s] field in %s response, treating as empty series", spec.ResponseField, metric)
			api.countFetch(metric, OutcomeData)
			return &SeriesResult{Metric: metric, Outcome: OutcomeData}, nil
		}

		var points []SeriesPoint
		if err := json.Unmarshal(fieldBytes, &points); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s series: %w", spec.ResponseField, err)
		}

		if err := api.cache.Set([]byte(cacheKey), fieldBytes, metricCacheExpire); err != nil {
			log.Errorf("failed to write %s series cache: %s", metric, err)
		}

		api.countFetch(metric, OutcomeData)
		return &SeriesResult{Metric: metric, Outcome: OutcomeData, Points: points}, nil

	case http.StatusBadRequest, http.StatusTooManyRequests:
		log.Warnf("no %s data or rate limit: %d", spec.ResponseField, resp.StatusCode)
		api.countFetch(metric, OutcomeSoftEmpty)
		return &SeriesResult{Metric: metric, Outcome: OutcomeSoftEmpty}, nil

	case http.StatusNotFound:
		log.Warnf("not found: %s data: %s", spec.ResponseField, respBytes)
		api.countFetch(metric, OutcomeSoftEmpty)
		return &SeriesResult{Metric: metric, Outcome: OutcomeSoftEmpty}, nil

	default:
		log.Errorf("%s failed: %d %s", spec.ResponseField, resp.StatusCode, respBytes)
		api.countFetch(metric, "hard_error")
		return nil, &UpstreamError{
			Metric:     metric,
			Field:      spec.ResponseField,
			StatusCode: resp.StatusCode,
			Body:       string(respBytes),
		}
	}
}

func (api *Api) countFetch(metric string, outcome FetchOutcome) {
	if api.metricsManager == nil {
		return
	}
	api.metricsManager.CounterMetricFetches.With(prometheus.Labels{
		"metric":  metric,
		"outcome": string(outcome),
	}).Inc()
}
