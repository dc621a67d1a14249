package client

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RetryPolicy controls which failed requests the transport reattempts and how long it waits in between.
type RetryPolicy struct {
	// MaxRetries is the number of reattempts after the first request (3 retries = up to 4 attempts)
	MaxRetries int

	// BackoffFactor is the wait before the first retry, doubled for every subsequent retry
	BackoffFactor time.Duration

	// BackoffMax caps a single wait
	BackoffMax time.Duration

	RetryStatuses  []int
	AllowedMethods []string
}

// DefaultRetryPolicy retries GET requests up to 3 times on 429, 500, 502, 503 and 504, waiting 0.5s, 1s, 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BackoffFactor: 500 * time.Millisecond,
		BackoffMax:    120 * time.Second,
		RetryStatuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		AllowedMethods: []string{http.MethodGet},
	}
}

// CheckRetry implements retryablehttp.CheckRetry.
//
// Only requests using one of AllowedMethods are retried: responses are retried when the status is in RetryStatuses,
// connection errors are retried unless retryablehttp considers them unrecoverable (bad scheme, untrusted certificate, redirect loop).
func (p RetryPolicy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if !slices.Contains(p.AllowedMethods, requestMethod(ctx, resp)) {
		return false, nil
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return slices.Contains(p.RetryStatuses, resp.StatusCode), nil
}

// Backoff waits BackoffFactor * 2^attempt, honouring Retry-After on 429 and 503 responses.
func (p RetryPolicy) Backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
}

// context keys
type contextKey struct {
	name string
}

var requestMethodKey = contextKey{"request-method"}

// withRequestMethod records the method on the context so CheckRetry can see it when no response was received
func withRequestMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, requestMethodKey, method)
}

func requestMethod(ctx context.Context, resp *http.Response) string {
	if resp != nil && resp.Request != nil {
		return resp.Request.Method
	}
	if method, ok := ctx.Value(requestMethodKey).(string); ok {
		return method
	}
	return ""
}

// transportLogger adapts slog to retryablehttp.LeveledLogger.
// Individual attempt failures are logged at warn - the final outcome of a call is logged at error by the client.
type transportLogger struct {
	logger *slog.Logger
}

func (l transportLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l transportLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l transportLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l transportLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}
