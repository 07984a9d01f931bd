package fitbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=aggregator_mocks_test.go -package=fitbit_test

type metricFetcher interface {
	FetchMetric(ctx context.Context, metric, startDate, endDate, accessToken string) (*SeriesResult, error)
}

// Aggregator fetches a set of metrics for one user and merges them into one
// record per date.
type Aggregator struct {
	tokens         tokenstore.Store
	api            metricFetcher
	metricsManager *metrics.Manager
}

func NewAggregator(tokens tokenstore.Store, api metricFetcher, metricsManager *metrics.Manager) *Aggregator {
	return &Aggregator{
		tokens:         tokens,
		api:            api,
		metricsManager: metricsManager,
	}
}

// Aggregate resolves the user's access token, fetches every requested metric
// over the date range and merges the series by date. Metric names are taken
// as given: duplicates are fetched again, unknown names yield empty series.
// Soft provider conditions degrade to nulls in the output; any hard failure
// aborts the whole call, and with several hard failures the first one in
// request order wins.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	userID string,
	metricNames []string,
	startDate, endDate string,
) (_ []MergedRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "fitbit.aggregate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.StringSlice("metrics", metricNames),
	)

	if a.metricsManager != nil {
		defer func(begin time.Time) {
			a.metricsManager.HistAggregateDuration.Observe(time.Since(begin).Seconds())
		}(time.Now())
	}

	record, err := a.tokens.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get token for user %s: %w", userID, err)
	}

	// fan-out: one fetch per requested metric, results collected keyed by
	// metric name; union/order semantics are unchanged from a sequential run
	results := make([]*SeriesResult, len(metricNames))
	fetchErrs := make([]error, len(metricNames))

	var wg sync.WaitGroup
	for i, metric := range metricNames {
		wg.Add(1)
		go func(i int, metric string) {
			defer wg.Done()
			results[i], fetchErrs[i] = a.api.FetchMetric(ctx, metric, startDate, endDate, record.AccessToken)
		}(i, metric)
	}
	wg.Wait()

	// any hard metric failure poisons the whole batch
	for _, fetchErr := range fetchErrs {
		if fetchErr != nil {
			return nil, fetchErr
		}
	}

	seriesByMetric := make(map[string][]SeriesPoint, len(metricNames))
	for _, res := range results {
		seriesByMetric[res.Metric] = res.Points
	}

	return mergeSeries(metricNames, seriesByMetric), nil
}
