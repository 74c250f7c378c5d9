package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/psantana5/execreaper/pkg/logging"
)

func recordingProvider() (*Provider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewProvider(tp, "test"), recorder
}

func TestInitTracerDisabled(t *testing.T) {
	p, err := InitTracer(Config{}, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetError(t *testing.T) {
	p, recorder := recordingProvider()

	ctx, span := p.StartSpan(context.Background(), "pass")
	SetError(ctx, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pass", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
}

func TestHTTPMiddleware(t *testing.T) {
	p, recorder := recordingProvider()

	handler := HTTPMiddleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestInjectHTTPHeaders(t *testing.T) {
	p, _ := recordingProvider()
	ctx, span := p.StartSpan(context.Background(), "outgoing")
	defer span.End()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	InjectHTTPHeaders(ctx, req)
	assert.NotEmpty(t, req.Header.Get("traceparent"))
}
