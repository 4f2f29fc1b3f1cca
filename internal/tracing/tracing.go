// Package tracing configures OpenTelemetry spans for inbound page requests and
// outbound audit calls.
package tracing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Span exporters.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config selects the exporter and sampling of the tracer provider.
type Config struct {
	Exporter       string
	ServiceName    string
	ServiceVersion string
	// SampleRatio is the fraction of new traces recorded, in [0,1].
	SampleRatio float64
	// Writer receives stdout spans. Nil means os.Stdout.
	Writer io.Writer
}

// NewProvider builds a tracer provider. With ExporterNone spans are still
// created and propagated but never exported.
func NewProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	attrs := []resource.Option{}
	if cfg.ServiceName != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	switch cfg.Exporter {
	case "", ExporterNone:
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// Install makes tp the global provider and propagates W3C trace context and baggage.
func Install(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)
}

// Transport wraps base so each outbound request gets a client span named
// after its method and host.
func Transport(base http.RoundTripper, opts ...otelhttp.Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	opts = append([]otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Host
		}),
	}, opts...)
	return otelhttp.NewTransport(base, opts...)
}

// Handler wraps next so each request gets a server span. Probes and the
// metrics endpoint are not traced.
func Handler(next http.Handler, operation string, opts ...otelhttp.Option) http.Handler {
	opts = append([]otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				return false
			default:
				return true
			}
		}),
	}, opts...)
	return otelhttp.NewHandler(next, operation, opts...)
}
