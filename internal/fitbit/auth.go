package fitbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pcilli/fitbit-mcp-server/internal/fitbit/tokenstore"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// https://dev.fitbit.com/build/reference/web-api/authorization/

const authScope = "activity heartrate sleep profile"

var (
	ErrMissingAuthorizationCode  = errors.New("missing authorization code")
	ErrMalformedProviderResponse = errors.New("malformed provider token response")
)

// TokenExchangeError is a non-2xx from the provider token endpoint, with
// the provider's response body attached for diagnostics.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %d %s", e.StatusCode, e.Body)
}

// Authenticator builds provider consent URLs and exchanges authorization
// codes for token records. The flow itself is stateless, committed tokens
// land in the token store via the handler.
type Authenticator struct {
	clientID       string
	clientSecret   string
	redirectURI    string
	authURL        string
	tokenURL       string
	httpClient     *http.Client
	metricsManager *metrics.Manager
}

type NewAuthenticatorParams struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	AuthURL        string // https://www.fitbit.com/oauth2/authorize
	TokenURL       string // https://api.fitbit.com/oauth2/token
	HTTPClient     *http.Client
	MetricsManager *metrics.Manager
}

func NewAuthenticator(params NewAuthenticatorParams) *Authenticator {
	return &Authenticator{
		clientID:       params.ClientID,
		clientSecret:   params.ClientSecret,
		redirectURI:    params.RedirectURI,
		authURL:        params.AuthURL,
		tokenURL:       params.TokenURL,
		httpClient:     params.HTTPClient,
		metricsManager: params.MetricsManager,
	}
}

// AuthCodeURL builds the provider authorization URL with the fixed scope
// list and a consent-forcing prompt.
func (a *Authenticator) AuthCodeURL() string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", a.clientID)
	query.Set("redirect_uri", a.redirectURI)
	query.Set("scope", authScope)
	query.Set("expires_in", "604800")
	query.Set("prompt", "consent")
	return a.authURL + "?" + query.Encode()
}

// Exchange trades the authorization code for a token record at the provider
// token endpoint, authenticated with client id/secret as HTTP Basic.
func (a *Authenticator) Exchange(ctx context.Context, code string) (_ tokenstore.TokenRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "fitbitAuth.exchange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if code == "" {
		a.countExchange("missing_code")
		return tokenstore.TokenRecord{}, ErrMissingAuthorizationCode
	}

	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", a.redirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenstore.TokenRecord{}, err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.countExchange("transport_error")
		return tokenstore.TokenRecord{}, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenstore.TokenRecord{}, fmt.Errorf("failed to read token response bytes: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("token exchange failed: %d %s", resp.StatusCode, respBytes)
		a.countExchange("provider_error")
		return tokenstore.TokenRecord{}, &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Body:       string(respBytes),
		}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
	}
	if err := json.Unmarshal(respBytes, &tokenResp); err != nil {
		a.countExchange("malformed_response")
		return tokenstore.TokenRecord{}, fmt.Errorf("%w: %s", ErrMalformedProviderResponse, err)
	}
	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" || tokenResp.UserID == "" {
		a.countExchange("malformed_response")
		return tokenstore.TokenRecord{}, fmt.Errorf(
			"%w: access_token, refresh_token or user_id missing", ErrMalformedProviderResponse,
		)
	}

	a.countExchange("ok")

	return tokenstore.TokenRecord{
		UserID:       tokenResp.UserID,
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

func (a *Authenticator) countExchange(outcome string) {
	if a.metricsManager == nil {
		return
	}
	a.metricsManager.CounterTokenExchanges.With(prometheus.Labels{"outcome": outcome}).Inc()
}
