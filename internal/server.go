package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pcilli/fitbit-mcp-server/internal/config"
	"github.com/pcilli/fitbit-mcp-server/internal/fitbit"
	fitbitmcp "github.com/pcilli/fitbit-mcp-server/internal/fitbit/mcp"
	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/middleware"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/tracing"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config     *config.Config
	tokenStore tokenstore.Store
	fitbitAuth *fitbit.Authenticator
	fitbitApi  *fitbit.Api
	aggregator *fitbit.Aggregator

	redisClient *redis.Client

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config             *config.Config
	FitbitClientID     string
	FitbitClientSecret string
	RedisPassword      string
	VersionInfo        string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("backend", "fitbit", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // set to 1 when all is set and ran

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	otelShutdown, err := tracing.Setup(
		params.Config.TracingEnabled,
		"fitbit-backend",
		params.Config.OtlpEndpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}

	// blanket 60s client timeout covers a whole batch of metric fetches;
	// no per-fetch timeouts and no retries below this
	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Minute,
	}

	var tokenStore tokenstore.Store
	switch params.Config.TokenStoreType {
	case "redis":
		tokenStore = tokenstore.NewRedisStore(rdb)
	default:
		tokenStore = tokenstore.NewFileStore(params.Config.TokensFilePath)
	}
	if err := tokenStore.Load(ctx); err != nil {
		return nil, fmt.Errorf("load token store: %w", err)
	}

	fitbitApi := fitbit.NewApi(params.Config.FitbitAPIBaseURL, tracedHttpClient, metricsManager)

	fitbitAuth := fitbit.NewAuthenticator(fitbit.NewAuthenticatorParams{
		ClientID:       params.FitbitClientID,
		ClientSecret:   params.FitbitClientSecret,
		RedirectURI:    params.Config.RedirectURI,
		AuthURL:        params.Config.FitbitAuthURL,
		TokenURL:       params.Config.FitbitTokenURL,
		HTTPClient:     tracedHttpClient,
		MetricsManager: metricsManager,
	})

	s := &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,
		tokenStore:  tokenStore,
		fitbitAuth:  fitbitAuth,
		fitbitApi:   fitbitApi,
		aggregator:  fitbit.NewAggregator(tokenStore, fitbitApi, metricsManager),

		redisClient: rdb,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	return s, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	fitbitHandler := fitbit.NewHandler(s.fitbitAuth, s.tokenStore, s.aggregator)
	fitbitHandler.SetupRoutes(
		r,
		reqRateLimiter,
		s.metricsManager,
		s.config.ActivityRangeRateLimitAllowedPerMin,
	)

	// the same MCP server is also runnable over stdio via cmd/fitbit_mcp
	mcpServer := fitbitmcp.NewServer(s.aggregator, s.tokenStore)
	r.PathPrefix("/mcp").Handler(mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return mcpServer },
		nil,
	))

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server (%s) listening on: [%s]", s.versionInfo, ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	var closeErr error
	if s.redisClient != nil {
		closeErr = multierr.Append(closeErr, s.redisClient.Close())
	}
	if err := s.tokenStore.Save(context.Background()); err != nil {
		closeErr = multierr.Append(closeErr, err)
	}
	if closeErr != nil {
		log.Errorf("shutdown cleanup: %s", closeErr)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
