package mcp

import (
	"context"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"
)

// aggregator provides merged metric records (for dependency injection and testing).
type aggregator interface {
	Aggregate(ctx context.Context, userID string, metricNames []string, startDate, endDate string) ([]fitbit.MergedRecord, error)
}

// userLister provides the connected user ids (for dependency injection and testing).
type userLister interface {
	All(ctx context.Context) ([]string, error)
}

// metricsService provides fitness data for the MCP tools.
// Used by Handler for testability.
type metricsService interface {
	FetchMetrics(ctx context.Context, userID string, metricNames []string, startDate, endDate string) ([]fitbit.MergedRecord, error)
	AvailableMetrics() []string
	ConnectedUsers(ctx context.Context) ([]string, error)
}

// FitnessService holds dependencies and implements the fitness data business logic.
type FitnessService struct {
	aggregator aggregator
	users      userLister
}

// NewFitnessService builds a FitnessService with the given dependencies.
func NewFitnessService(agg aggregator, users userLister) *FitnessService {
	return &FitnessService{
		aggregator: agg,
		users:      users,
	}
}

// FetchMetrics returns one merged record per date for the requested metrics
// and date range.
func (s *FitnessService) FetchMetrics(
	ctx context.Context,
	userID string,
	metricNames []string,
	startDate, endDate string,
) ([]fitbit.MergedRecord, error) {
	return s.aggregator.Aggregate(ctx, userID, metricNames, startDate, endDate)
}

// AvailableMetrics returns the canonical metric names the backend accepts.
func (s *FitnessService) AvailableMetrics() []string {
	return fitbit.KnownMetrics()
}

// ConnectedUsers returns the user ids with stored tokens.
func (s *FitnessService) ConnectedUsers(ctx context.Context) ([]string, error) {
	return s.users.All(ctx)
}
