package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/middleware"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/tracing"
	"github.com/pcilli/fitbit-mcp-server/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=fitbit_test

type aggregator interface {
	Aggregate(ctx context.Context, userID string, metricNames []string, startDate, endDate string) ([]MergedRecord, error)
}

// Handler serves the OAuth flow pages and the merged activity data endpoint.
type Handler struct {
	auth       *Authenticator
	tokens     tokenstore.Store
	aggregator aggregator
}

func NewHandler(auth *Authenticator, tokens tokenstore.Store, aggregator aggregator) *Handler {
	return &Handler{
		auth:       auth,
		tokens:     tokens,
		aggregator: aggregator,
	}
}

func (handler *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	activityRangeAllowedPerMin int,
) {
	r.HandleFunc("/", handler.HandleIndex).Methods("GET").Name("index")
	r.HandleFunc("/auth/start", handler.HandleAuthStart).Methods("GET").Name("auth-start")
	r.HandleFunc("/auth/callback", handler.HandleAuthCallback).Methods("GET").Name("auth-callback")
	r.Handle(
		"/activity-range",
		middleware.RateLimit(rateLimiter, "activity-range", activityRangeAllowedPerMin, metricsManager)(
			http.HandlerFunc(handler.HandleActivityRange),
		),
	).Methods("GET", "OPTIONS").Name("activity-range")
}

func (handler *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "fitbit.handleIndex")
	defer span.End()

	pkg.WriteHTMLResponseOK(w,
		"<h1>Fitbit LLM Integration</h1><a href='/auth/start'>Connect to Fitbit</a>",
	)
}

func (handler *Handler) HandleAuthStart(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "fitbit.handleAuthStart")
	defer span.End()

	http.Redirect(w, r, handler.auth.AuthCodeURL(), http.StatusFound)
}

func (handler *Handler) HandleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "fitbit.handleAuthCallback")
	defer span.End()

	code := r.URL.Query().Get("code")
	if code == "" {
		span.SetStatus(codes.Error, ErrMissingAuthorizationCode.Error())
		w.WriteHeader(http.StatusBadRequest)
		pkg.WriteHTMLResponseOK(w, "Authorization failed")
		return
	}

	record, err := handler.auth.Exchange(ctx, code)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("auth callback, exchange code: %s", err)

		var exchangeErr *TokenExchangeError
		switch {
		case errors.As(err, &exchangeErr):
			w.WriteHeader(http.StatusBadRequest)
			pkg.WriteHTMLResponseOK(w, "Failed to get token: "+exchangeErr.Body)
		case errors.Is(err, ErrMalformedProviderResponse):
			w.WriteHeader(http.StatusBadGateway)
			pkg.WriteHTMLResponseOK(w, "Authorization failed")
		default:
			http.Error(w, "authorization failed", http.StatusInternalServerError)
		}
		return
	}

	if err := handler.tokens.Put(ctx, record); err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("auth callback, store tokens for user [%s]: %s", record.UserID, err)
		http.Error(w, "failed to store tokens", http.StatusInternalServerError)
		return
	}

	log.Debugf("user [%s] connected", record.UserID)
	span.SetAttributes(attribute.String("user.id", record.UserID))

	pkg.WriteHTMLResponseOK(w, fmt.Sprintf(
		"<h2>Fitbit Connected!</h2>"+
			"<p>Your User ID: <b>%s</b></p>"+
			"<p><a href='/activity-range?user_id=%s&metrics=steps&start_date=2022-01-01&end_date=2022-01-01'>See Activity Data</a></p>",
		record.UserID, record.UserID,
	))
}

func (handler *Handler) HandleActivityRange(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "fitbit.handleActivityRange")
	defer span.End()

	query := r.URL.Query()
	userID := query.Get("user_id")
	metricsParam := query.Get("metrics")
	startDate := query.Get("start_date")
	endDate := query.Get("end_date")

	if userID == "" || metricsParam == "" || startDate == "" || endDate == "" {
		http.Error(w, "user_id, metrics, start_date and end_date are required", http.StatusBadRequest)
		return
	}

	metricNames := strings.Split(metricsParam, ",")
	for i := range metricNames {
		metricNames[i] = strings.TrimSpace(metricNames[i])
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.StringSlice("metrics", metricNames),
	)

	merged, err := handler.aggregator.Aggregate(ctx, userID, metricNames, startDate, endDate)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, tokenstore.ErrUnknownUser) {
			http.Error(w, tokenstore.ErrUnknownUser.Error(), http.StatusUnauthorized)
			return
		}

		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) {
			log.Errorf("activity range for user [%s]: %s", userID, upstreamErr)
			http.Error(w, upstreamErr.Error(), upstreamErr.StatusCode)
			return
		}

		log.Errorf("activity range for user [%s]: %s", userID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	mergedJson, err := json.Marshal(merged)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("failed to marshal merged records: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(mergedJson))
}
