// Package mcp exposes the fitness data backend as MCP tools, so an MCP
// capable LLM client can decide when to pull metric data and then narrate
// the JSON result itself. Mounted on the main backend at /mcp over HTTP and
// also runnable over stdio (cmd/fitbit_mcp).
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with the fitness data tools: fetch metrics
// for a date range, list available metrics, list connected users.
func NewServer(agg aggregator, users userLister) *mcp.Server {
	svc := NewFitnessService(agg, users)
	h := NewHandler(svc)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "fitbit-metrics",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name: "fetch_fitness_metrics",
		Description: "Fetches Fitbit metrics for a connected user over a date range and returns one merged " +
			"record per date, with a value (or null) for every requested metric. " +
			"Args: user_id, metrics (e.g. steps, sleepScore), start_date, end_date (YYYY-MM-DD). " +
			"Only call if the data is not already in the chat context; always summarize the result for the user.",
	}, h.FetchFitnessMetricsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name: "list_available_metrics",
		Description: "Returns the metric names the backend accepts (steps, distance, calories, minutesAsleep, " +
			"sleepScore, restingHeartRate). Use when unsure which metric name to request.",
	}, h.ListAvailableMetricsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name: "list_connected_users",
		Description: "Returns the user ids that have completed the Fitbit OAuth flow and can be queried. " +
			"Use when no user_id is known yet.",
	}, h.ListConnectedUsersTool())

	return s
}
