// Package telemetry wraps outbound HTTP calls with OpenTelemetry spans
// so the order span opened around a SupplyOrder's chain run
// (StartOrderSpan) carries through every provider call a SupplyChain
// makes. Call sites don't have to
// think about tracing, they just use the client this package hands
// back.
package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTracedHTTPClient returns an *http.Client whose RoundTripper
// creates a span for every outbound request and propagates trace
// context via W3C tracecontext headers. Pass nil to wrap
// http.DefaultTransport.
func NewTracedHTTPClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   30 * time.Second,
	}
}

// NewTracedHTTPClientWithTimeout is the same as NewTracedHTTPClient
// but lets the caller pick the overall request timeout, used by
// cmd/supplychaind to apply Config.HTTP.Timeout.
func NewTracedHTTPClientWithTimeout(base http.RoundTripper, timeout time.Duration) *http.Client {
	client := NewTracedHTTPClient(base)
	client.Timeout = timeout
	return client
}
