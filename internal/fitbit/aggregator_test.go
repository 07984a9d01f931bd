package fitbit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"
	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// httptest keep-alive conns can outlive server close for a moment
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestAggregator_Aggregate_SoftEmptyDegradesToNull(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := tokenstore.NewMockStore(ctrl)
	fetcherMock := NewMockmetricFetcher(ctrl)
	agg := fitbit.NewAggregator(storeMock, fetcherMock, metrics.NewTestManager())

	accessToken := gofakeit.UUID()
	storeMock.EXPECT().
		Get(gomock.Any(), "ABC123").
		Return(tokenstore.TokenRecord{
			UserID:       "ABC123",
			AccessToken:  accessToken,
			RefreshToken: gofakeit.UUID(),
		}, nil)

	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "steps", "2022-01-01", "2022-01-01", accessToken).
		Return(&fitbit.SeriesResult{
			Metric:  "steps",
			Outcome: fitbit.OutcomeData,
			Points: []fitbit.SeriesPoint{
				{DateTime: "2022-01-01", Value: json.RawMessage(`"5000"`)},
			},
		}, nil)
	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "calories", "2022-01-01", "2022-01-01", accessToken).
		Return(&fitbit.SeriesResult{
			Metric:  "calories",
			Outcome: fitbit.OutcomeSoftEmpty,
		}, nil)

	merged, err := agg.Aggregate(
		context.Background(),
		"ABC123",
		[]string{"steps", "calories"},
		"2022-01-01", "2022-01-01",
	)
	require.NoError(t, err)
	require.Len(t, merged, 1)

	assert.Equal(t, "2022-01-01", merged[0].Date)
	assert.Equal(t, int64(5000), merged[0].Values["steps"])
	require.Contains(t, merged[0].Values, "calories")
	assert.Nil(t, merged[0].Values["calories"])
}

func TestAggregator_Aggregate_UnknownUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := tokenstore.NewMockStore(ctrl)
	fetcherMock := NewMockmetricFetcher(ctrl)
	agg := fitbit.NewAggregator(storeMock, fetcherMock, metrics.NewTestManager())

	storeMock.EXPECT().
		Get(gomock.Any(), "nobody").
		Return(tokenstore.TokenRecord{}, tokenstore.ErrUnknownUser)

	// no FetchMetric expectations: the provider must not be called

	merged, err := agg.Aggregate(
		context.Background(),
		"nobody",
		[]string{"steps"},
		"2022-01-01", "2022-01-01",
	)
	require.ErrorIs(t, err, tokenstore.ErrUnknownUser)
	assert.Nil(t, merged)
}

func TestAggregator_Aggregate_HardErrorAbortsBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := tokenstore.NewMockStore(ctrl)
	fetcherMock := NewMockmetricFetcher(ctrl)
	agg := fitbit.NewAggregator(storeMock, fetcherMock, metrics.NewTestManager())

	storeMock.EXPECT().
		Get(gomock.Any(), "ABC123").
		Return(tokenstore.TokenRecord{UserID: "ABC123", AccessToken: "at"}, nil)

	stepsErr := &fitbit.UpstreamError{
		Metric:     "steps",
		Field:      "activities-steps",
		StatusCode: http.StatusInternalServerError,
		Body:       "upstream exploded",
	}
	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "steps", "2022-01-01", "2022-01-02", "at").
		Return(nil, stepsErr)
	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "calories", "2022-01-01", "2022-01-02", "at").
		Return(nil, errors.New("calories also broken"))

	merged, err := agg.Aggregate(
		context.Background(),
		"ABC123",
		[]string{"steps", "calories"},
		"2022-01-01", "2022-01-02",
	)
	require.Error(t, err)
	assert.Nil(t, merged)

	// first failure in request order wins
	var upstreamErr *fitbit.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, "steps", upstreamErr.Metric)
}

func TestAggregator_Aggregate_DuplicateMetricsFetchedAgain(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := tokenstore.NewMockStore(ctrl)
	fetcherMock := NewMockmetricFetcher(ctrl)
	agg := fitbit.NewAggregator(storeMock, fetcherMock, metrics.NewTestManager())

	storeMock.EXPECT().
		Get(gomock.Any(), "ABC123").
		Return(tokenstore.TokenRecord{UserID: "ABC123", AccessToken: "at"}, nil)

	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "steps", "2022-01-01", "2022-01-01", "at").
		Return(&fitbit.SeriesResult{
			Metric:  "steps",
			Outcome: fitbit.OutcomeData,
			Points: []fitbit.SeriesPoint{
				{DateTime: "2022-01-01", Value: json.RawMessage(`"5000"`)},
			},
		}, nil).
		Times(2)

	merged, err := agg.Aggregate(
		context.Background(),
		"ABC123",
		[]string{"steps", "steps"},
		"2022-01-01", "2022-01-01",
	)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, int64(5000), merged[0].Values["steps"])
}

func TestAggregator_Aggregate_UnknownMetricYieldsNulls(t *testing.T) {
	ctrl := gomock.NewController(t)
	storeMock := tokenstore.NewMockStore(ctrl)
	fetcherMock := NewMockmetricFetcher(ctrl)
	agg := fitbit.NewAggregator(storeMock, fetcherMock, metrics.NewTestManager())

	storeMock.EXPECT().
		Get(gomock.Any(), "ABC123").
		Return(tokenstore.TokenRecord{UserID: "ABC123", AccessToken: "at"}, nil)

	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "steps", "2022-01-01", "2022-01-01", "at").
		Return(&fitbit.SeriesResult{
			Metric:  "steps",
			Outcome: fitbit.OutcomeData,
			Points: []fitbit.SeriesPoint{
				{DateTime: "2022-01-01", Value: json.RawMessage(`"5000"`)},
			},
		}, nil)
	fetcherMock.EXPECT().
		FetchMetric(gomock.Any(), "floorsClimbed", "2022-01-01", "2022-01-01", "at").
		Return(&fitbit.SeriesResult{
			Metric:  "floorsClimbed",
			Outcome: fitbit.OutcomeUnknownMetric,
		}, nil)

	merged, err := agg.Aggregate(
		context.Background(),
		"ABC123",
		[]string{"steps", "floorsClimbed"},
		"2022-01-01", "2022-01-01",
	)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, int64(5000), merged[0].Values["steps"])
	require.Contains(t, merged[0].Values, "floorsClimbed")
	assert.Nil(t, merged[0].Values["floorsClimbed"])
}
