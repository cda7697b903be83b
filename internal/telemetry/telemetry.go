// Package telemetry initializes OpenTelemetry tracing and Prometheus
// metrics for the trakd MCP server.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by the dispatcher.
const TracerName = "github.com/trakdhq/trakd-mcp"

// Config controls which signals are enabled.
type Config struct {
	ServiceName    string
	ServiceVersion string
	MetricsEnabled bool
	TracesEnabled  bool
}

// ShutdownFunc flushes and stops all configured providers.
type ShutdownFunc func(ctx context.Context) error

// ToolCalls counts dispatched tool calls by tool and outcome. Prometheus
// counters are safe under concurrent increment, which is the only shared
// mutable state the dispatcher touches.
var ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trakd_mcp_tool_calls_total",
	Help: "Tool calls dispatched, by tool name and outcome.",
}, []string{"tool", "outcome"})

// Init configures global OTel providers per cfg and returns a shutdown
// function. With traces disabled the default no-op tracer stays in place.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("building telemetry resource: %w", err)
	}

	shutdowns := make([]ShutdownFunc, 0, 2)

	if cfg.TracesEnabled {
		exporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
		}
		tracerProvider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tracerProvider)
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	if cfg.MetricsEnabled {
		exporter, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("creating Prometheus metric exporter: %w", err)
		}
		meterProvider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(meterProvider)
		shutdowns = append(shutdowns, meterProvider.Shutdown)
	}

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		var firstErr error
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}

// Tracer returns the dispatcher tracer from the installed provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// PrometheusHandler serves the /metrics endpoint.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
