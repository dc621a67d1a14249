// Package client calls the claims center REST API.
//
// The client owns the base URL, the bearer token and a retrying transport (see retry.go).
// Every failed call is logged once at error level and the error is returned to the caller (see errors.go).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claims-center/claimsapi/internal/apperrors"
	"github.com/claims-center/claimsapi/internal/config"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const RequestIDHeader = "X-Request-ID"

// Client handles communication with the claims API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	headers    http.Header
	httpClient *retryablehttp.Client
	logger     *slog.Logger
}

type settings struct {
	baseURL    string
	token      string
	timeout    time.Duration
	retry      RetryPolicy
	transport  http.RoundTripper
	logger     *slog.Logger
	registerer prometheus.Registerer

	tracerProvider trace.TracerProvider
	propagators    propagation.TextMapPropagator
}

// Option configures a Client. Explicit options take precedence over the environment.
type Option func(*settings)

// WithBaseURL overrides CLAIMS_API_URL. An empty value is ignored.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		if baseURL != "" {
			s.baseURL = baseURL
		}
	}
}

// WithToken overrides CLAIMS_API_TOKEN. An empty value is ignored.
func WithToken(token string) Option {
	return func(s *settings) {
		if token != "" {
			s.token = token
		}
	}
}

// WithTimeout sets the timeout of each attempt
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *settings) {
		s.retry = policy
	}
}

// WithHTTPTransport replaces the base round tripper (the default is a clone of http.DefaultTransport)
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = rt
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics registers per-attempt request metrics with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithTracerProvider sets the provider used to create a client span for every attempt.
// The global provider is used when this option is not given.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		s.tracerProvider = tp
	}
}

// WithPropagators sets the propagators used to inject the trace context (e.g. traceparent) into requests.
// The global propagator is used when this option is not given.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(s *settings) {
		s.propagators = p
	}
}

// New creates a client from the environment (see config.APIConfig) and the supplied options.
//
// A missing token is reported as an *apperrors.ConfigError. No requests are made.
func New(opts ...Option) (*Client, error) {
	envCfg, err := config.LoadAPIConfig()
	if err != nil {
		return nil, apperrors.NewConfigError("environment", err.Error())
	}

	s := &settings{
		baseURL: envCfg.BaseURL,
		token:   envCfg.Token,
		timeout: envCfg.Timeout,
		retry:   DefaultRetryPolicy(),
	}
	s.retry.MaxRetries = envCfg.MaxRetries
	s.retry.BackoffFactor = envCfg.BackoffFactor

	for _, opt := range opts {
		opt(s)
	}

	if s.baseURL == "" {
		s.baseURL = config.DefaultBaseURL
	}
	if !strings.HasSuffix(s.baseURL, "/") {
		s.baseURL += "/"
	}

	if strings.TrimSpace(s.token) == "" {
		return nil, apperrors.NewConfigError(config.TokenEnvVar, "no API token provided. Set CLAIMS_API_TOKEN in .env or pass it with WithToken")
	}

	resolved := config.APIConfig{
		BaseURL:       s.baseURL,
		Token:         s.token,
		Timeout:       s.timeout,
		MaxRetries:    s.retry.MaxRetries,
		BackoffFactor: s.retry.BackoffFactor,
	}
	if err := resolved.Validate(); err != nil {
		return nil, apperrors.NewConfigError("client", err.Error())
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	logger := s.logger.With(slog.String("component", "claims-client"))

	var metrics *Metrics
	if s.registerer != nil {
		metrics, err = NewMetrics(s.registerer)
		if err != nil {
			return nil, apperrors.NewConfigError("metrics", err.Error())
		}
	}

	var tracing []otelhttp.Option
	if s.tracerProvider != nil {
		tracing = append(tracing, otelhttp.WithTracerProvider(s.tracerProvider))
	}
	if s.propagators != nil {
		tracing = append(tracing, otelhttp.WithPropagators(s.propagators))
	}

	headers := http.Header{}
	headers.Set("Authorization", fmt.Sprintf("Bearer %s", s.token))
	headers.Set("Content-Type", "application/json")

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Timeout:   s.timeout,
		Transport: newTransport(s.transport, metrics, tracing),
	}
	rc.Logger = transportLogger{logger: logger}
	rc.RetryMax = s.retry.MaxRetries
	rc.RetryWaitMin = s.retry.BackoffFactor
	rc.RetryWaitMax = s.retry.BackoffMax
	rc.CheckRetry = s.retry.CheckRetry
	rc.Backoff = s.retry.Backoff
	// hand the last response back when retries run out so the caller sees the real status
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:    s.baseURL,
		headers:    headers,
		httpClient: rc,
		logger:     logger,
	}, nil
}

// BaseURL returns the resolved base URL (always ending in a slash)
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get sends an authenticated GET to the base URL joined with endpoint and returns the decoded JSON body unchanged
// (map[string]any, []any or a scalar; numbers are json.Number). An empty body returns nil.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (any, error) {
	var result any
	if err := c.GetInto(ctx, endpoint, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetInto is Get decoding the response into v. v is left untouched when the body is empty.
func (c *Client) GetInto(ctx context.Context, endpoint string, params url.Values, v any) error {
	requestID := uuid.NewString()
	logger := c.logger.With(
		slog.String("endpoint", endpoint),
		slog.String("request_id", requestID),
	)

	body, err := c.get(ctx, endpoint, params, requestID)
	if err != nil {
		logClientError(logger, err)
		return err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		cerr := NewClientInternalError(err, endpoint, "decoding response")
		logClientError(logger, cerr)
		return cerr
	}

	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, requestID string) ([]byte, error) {
	reqURL := c.baseURL + strings.TrimPrefix(endpoint, "/")

	req, err := retryablehttp.NewRequestWithContext(withRequestMethod(ctx, http.MethodGet), http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewClientInternalError(err, endpoint, "creating request")
	}

	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for key, values := range c.headers {
		req.Header[key] = values
	}
	req.Header.Set(RequestIDHeader, requestID)

	res, err := c.httpClient.Do(req)
	if err != nil {
		// the passthrough error handler can return the last response alongside the error
		if res != nil {
			res.Body.Close()
		}
		return nil, NewClientConnectionError(err, endpoint)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, NewClientAPIError(res, endpoint)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, NewClientConnectionError(err, endpoint)
	}

	return body, nil
}

func logClientError(logger *slog.Logger, err error) {
	cerr, ok := err.(*ClientError)
	if !ok {
		logger.Error("unexpected error", slog.String("error", err.Error()))
		return
	}

	switch cerr.Code {
	case apperrors.ErrCodeHTTP:
		logger.Error("HTTP error",
			slog.Int("status", cerr.StatusCode),
			slog.String("error", cerr.Error()),
		)
	case apperrors.ErrCodeConnection:
		logger.Error("connection error", slog.String("error", cerr.Error()))
	default:
		logger.Error("unexpected error", slog.String("error", cerr.Error()))
	}
}
