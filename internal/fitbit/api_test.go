package fitbit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApi_FetchMetric_Data(t *testing.T) {
	var gotPath, gotAuth string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{
			"activities-steps": [
				{"dateTime": "2022-01-01", "value": "5000"},
				{"dateTime": "2022-01-02", "value": "6200"}
			]
		}`))
		require.NoError(t, err)
	}))
	defer testServer.Close()

	api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

	res, err := api.FetchMetric(context.Background(), "steps", "2022-01-01", "2022-01-02", "test-token")
	require.NoError(t, err)

	assert.Equal(t, "/1/user/-/activities/steps/date/2022-01-01/2022-01-02.json", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)

	assert.Equal(t, "steps", res.Metric)
	assert.Equal(t, fitbit.OutcomeData, res.Outcome)
	require.Len(t, res.Points, 2)
	assert.Equal(t, "2022-01-01", res.Points[0].DateTime)
}

func TestApi_FetchMetric_MissingResponseField(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"something-else": []}`))
		require.NoError(t, err)
	}))
	defer testServer.Close()

	api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

	res, err := api.FetchMetric(context.Background(), "calories", "2022-01-01", "2022-01-01", "test-token")
	require.NoError(t, err)
	assert.Equal(t, fitbit.OutcomeData, res.Outcome)
	assert.Empty(t, res.Points)
}

func TestApi_FetchMetric_SoftConditions(t *testing.T) {
	for _, statusCode := range []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusNotFound,
	} {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(statusCode)
			_, err := w.Write([]byte(`{"errors": [{"errorType": "whatever"}]}`))
			require.NoError(t, err)
		}))

		api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

		res, err := api.FetchMetric(context.Background(), "steps", "2022-01-01", "2022-01-01", "test-token")
		require.NoError(t, err, "status %d", statusCode)
		assert.Equal(t, fitbit.OutcomeSoftEmpty, res.Outcome, "status %d", statusCode)
		assert.Empty(t, res.Points, "status %d", statusCode)

		testServer.Close()
	}
}

func TestApi_FetchMetric_HardError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, err := w.Write([]byte(`upstream exploded`))
		require.NoError(t, err)
	}))
	defer testServer.Close()

	api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

	res, err := api.FetchMetric(context.Background(), "steps", "2022-01-01", "2022-01-01", "test-token")
	require.Error(t, err)
	assert.Nil(t, res)

	var upstreamErr *fitbit.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, "steps", upstreamErr.Metric)
	assert.Equal(t, "activities-steps", upstreamErr.Field)
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
	assert.Equal(t, "upstream exploded", upstreamErr.Body)
	assert.Equal(t, "activities-steps error: 500 upstream exploded", upstreamErr.Error())
}

func TestApi_FetchMetric_UnknownMetricSkipsProvider(t *testing.T) {
	var calls atomic.Int32
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

	res, err := api.FetchMetric(context.Background(), "floorsClimbed", "2022-01-01", "2022-01-01", "test-token")
	require.NoError(t, err)
	assert.Equal(t, fitbit.OutcomeUnknownMetric, res.Outcome)
	assert.Empty(t, res.Points)
	assert.Zero(t, calls.Load())
}

func TestApi_FetchMetric_SecondCallServedFromCache(t *testing.T) {
	var calls atomic.Int32
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"activities-steps": [{"dateTime": "2022-01-01", "value": "5000"}]}`))
		require.NoError(t, err)
	}))
	defer testServer.Close()

	api := fitbit.NewApi(testServer.URL, testServer.Client(), metrics.NewTestManager())

	for i := 0; i < 2; i++ {
		res, err := api.FetchMetric(context.Background(), "steps", "2022-01-01", "2022-01-01", "test-token")
		require.NoError(t, err)
		assert.Equal(t, fitbit.OutcomeData, res.Outcome)
		require.Len(t, res.Points, 1)
	}

	assert.Equal(t, int32(1), calls.Load())
}
