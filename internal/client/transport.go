package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Metrics records every attempt made by the transport, so a call that is retried three times is counted four times.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors with reg. Collectors already registered by another client are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claims_api_client_requests_total",
		Help: "Requests sent to the claims API, one per attempt.",
	}, []string{"code", "method"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claims_api_client_request_duration_seconds",
		Help:    "Duration of requests sent to the claims API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"code", "method"})

	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("claims_api_client_requests_total is already registered as %T", are.ExistingCollector)
		}
		requests = existing
	}

	if err := reg.Register(duration); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("claims_api_client_request_duration_seconds is already registered as %T", are.ExistingCollector)
		}
		duration = existing
	}

	return &Metrics{requests: requests, duration: duration}, nil
}

func (m *Metrics) instrument(next http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(m.requests,
		promhttp.InstrumentRoundTripperDuration(m.duration, next),
	)
}

// newTransport builds the per-attempt transport chain: metrics (optional) -> otel tracing -> base.
// Each attempt gets its own client span and carries the trace context in its headers.
func newTransport(base http.RoundTripper, metrics *Metrics, tracing []otelhttp.Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	var rt http.RoundTripper = otelhttp.NewTransport(base, tracing...)
	if metrics != nil {
		rt = metrics.instrument(rt)
	}
	return rt
}
