package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// traceparentServer replies 503 to the first request and 200 afterwards, recording the traceparent header of each
func traceparentServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu      sync.Mutex
		headers []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("traceparent"))
		n := len(headers)
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), headers...)
	}
}

func newTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestTracingSpanPerAttempt(t *testing.T) {
	srv, traceparents := traceparentServer(t)
	tp, recorder := newTracerProvider(t)

	c := newTestClient(t, srv.URL,
		WithTracerProvider(tp),
		WithPropagators(propagation.TraceContext{}),
	)

	_, err := c.Get(context.Background(), "/claims", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	headers := traceparents()
	require.Len(t, headers, 2)

	for i, span := range spans {
		assert.Equal(t, trace.SpanKindClient, span.SpanKind())

		sc := span.SpanContext()
		want := "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-01"
		assert.Contains(t, headers, want, "attempt %d", i+1)
	}
}

func TestTracingContinuesCallerTrace(t *testing.T) {
	srv, traceparents := traceparentServer(t)
	tp, recorder := newTracerProvider(t)

	c := newTestClient(t, srv.URL,
		WithTracerProvider(tp),
		WithPropagators(propagation.TraceContext{}),
	)

	ctx, parent := tp.Tracer("claims-test").Start(context.Background(), "closed claims report")
	_, err := c.Get(ctx, "/claims", nil)
	parent.End()
	require.NoError(t, err)

	traceID := parent.SpanContext().TraceID()
	for _, span := range recorder.Ended() {
		assert.Equal(t, traceID, span.SpanContext().TraceID(), span.Name())
	}
	for _, header := range traceparents() {
		assert.Contains(t, header, traceID.String())
	}
}

func TestNoTraceparentWithoutPropagator(t *testing.T) {
	srv, traceparents := traceparentServer(t)
	tp, recorder := newTracerProvider(t)

	c := newTestClient(t, srv.URL,
		WithTracerProvider(tp),
		WithPropagators(propagation.NewCompositeTextMapPropagator()),
	)

	_, err := c.Get(context.Background(), "/claims", nil)
	require.NoError(t, err)

	assert.Len(t, recorder.Ended(), 2)
	for _, header := range traceparents() {
		assert.Empty(t, header)
	}
}

func TestNewMetricsConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claims_api_client_requests_total",
		Help: "Requests sent to the claims API, one per attempt.",
	}, []string{"code", "method"}))

	m, err := NewMetrics(reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "*prometheus.GaugeVec")
	assert.Nil(t, m)
}
