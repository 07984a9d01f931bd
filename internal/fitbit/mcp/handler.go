package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests and responses: parses input, calls the service, formats MCP result.
type Handler struct {
	service metricsService
}

// NewHandler builds a handler with the given service.
func NewHandler(service metricsService) *Handler {
	return &Handler{
		service: service,
	}
}

// FetchFitnessMetricsInput is the input for fetch_fitness_metrics.
type FetchFitnessMetricsInput struct {
	UserID    string   `json:"user_id" jsonschema:"Fitbit user id of a connected user"`
	Metrics   []string `json:"metrics" jsonschema:"Metric names (e.g. steps, sleepScore, restingHeartRate, calories, distance, minutesAsleep)"`
	StartDate string   `json:"start_date" jsonschema:"Start date (YYYY-MM-DD)"`
	EndDate   string   `json:"end_date" jsonschema:"End date (YYYY-MM-DD)"`
}

// FetchFitnessMetricsTool returns the MCP tool handler for fetch_fitness_metrics.
func (h *Handler) FetchFitnessMetricsTool() func(context.Context, *mcp.CallToolRequest, FetchFitnessMetricsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in FetchFitnessMetricsInput) (*mcp.CallToolResult, any, error) {
		if in.UserID == "" {
			return toolError("Missing user_id"), nil, nil
		}
		if len(in.Metrics) == 0 {
			return toolError("Missing metrics: provide at least one metric name"), nil, nil
		}
		if _, err := time.Parse("2006-01-02", in.StartDate); err != nil {
			return toolError("Invalid start_date: use YYYY-MM-DD"), nil, nil
		}
		if _, err := time.Parse("2006-01-02", in.EndDate); err != nil {
			return toolError("Invalid end_date: use YYYY-MM-DD"), nil, nil
		}

		records, err := h.service.FetchMetrics(ctx, in.UserID, in.Metrics, in.StartDate, in.EndDate)
		if err != nil {
			return toolError("Error fetching metrics: " + err.Error()), nil, nil
		}

		raw, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return toolError("Error encoding response: " + err.Error()), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		}, nil, nil
	}
}

// ListAvailableMetricsTool returns the MCP tool handler for list_available_metrics.
func (h *Handler) ListAvailableMetricsTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{
				Text: strings.Join(h.service.AvailableMetrics(), "\n"),
			}},
		}, nil, nil
	}
}

// ListConnectedUsersTool returns the MCP tool handler for list_connected_users.
func (h *Handler) ListConnectedUsersTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		users, err := h.service.ConnectedUsers(ctx)
		if err != nil {
			return toolError("Error listing connected users: " + err.Error()), nil, nil
		}
		if len(users) == 0 {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{
					Text: "No connected users. Visit /auth/start on the backend to connect a Fitbit account.",
				}},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: strings.Join(users, "\n")}},
		}, nil, nil
	}
}

func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}
