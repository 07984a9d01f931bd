// Package main runs the fitness metrics MCP server over stdio (for local
// Cursor / Claude Desktop use). The same MCP server is also mounted on the
// main backend at /mcp over HTTP, so you can use either: stdio (this cmd)
// or the backend URL (no extra deploy).
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/pcilli/fitbit-mcp-server/internal/config"
	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"
	fitbitmcp "github.com/pcilli/fitbit-mcp-server/internal/fitbit/mcp"
	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | ddev | dockerdev]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	// stdio mode always reads tokens from the file store, the redis
	// backed store is only worth it behind the long running backend
	tokens := tokenstore.NewFileStore(cfg.TokensFilePath)
	if err := tokens.Load(ctx); err != nil {
		log.Fatalf("load token store: %v", err)
	}

	// metrics kept local, nothing scrapes a stdio process
	metricsManager := metrics.NewManager("mcp", "fitbit", prometheus.NewRegistry())

	httpClient := &http.Client{Timeout: time.Minute}
	api := fitbit.NewApi(cfg.FitbitAPIBaseURL, httpClient, metricsManager)
	aggregator := fitbit.NewAggregator(tokens, api, metricsManager)

	server := fitbitmcp.NewServer(aggregator, tokens)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
