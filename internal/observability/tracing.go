// Package observability wires OpenTelemetry tracing for the converter.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Span exporters selectable with ECEF2SEZ_TRACE_EXPORTER.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const (
	serviceName         = "ecef2sez"
	defaultOTLPEndpoint = "localhost:4317"
	shutdownTimeout     = 5 * time.Second
)

// TracingConfig selects where conversion spans go.
type TracingConfig struct {
	Exporter string // none, stdout or otlp
	Endpoint string // OTLP gRPC collector, host:port
	Version  string // reported as service.version
}

// TracingConfigFromEnv reads ECEF2SEZ_TRACE_EXPORTER and
// ECEF2SEZ_OTLP_ENDPOINT. Tracing is off unless an exporter is named.
func TracingConfigFromEnv(version string) TracingConfig {
	exporter := strings.ToLower(strings.TrimSpace(os.Getenv("ECEF2SEZ_TRACE_EXPORTER")))
	if exporter == "" {
		exporter = ExporterNone
	}
	endpoint := os.Getenv("ECEF2SEZ_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultOTLPEndpoint
	}
	return TracingConfig{Exporter: exporter, Endpoint: endpoint, Version: version}
}

// InitTracing installs the global tracer provider for cfg and returns a
// function that flushes it. Stdout spans are written to w; the CLI passes
// stderr so stdout carries only results.
func InitTracing(ctx context.Context, cfg TracingConfig, w io.Writer, log *slog.Logger) (func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	switch cfg.Exporter {
	case ExporterNone, "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
		var err error
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
	case ExporterOTLP:
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		var err error
		exp, err = otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter %s: %w", cfg.Endpoint, err)
		}
	default:
		return nil, fmt.Errorf("unknown trace exporter %q (want %s, %s or %s)",
			cfg.Exporter, ExporterNone, ExporterStdout, ExporterOTLP)
	}

	// One conversion per process: every span is kept.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.Version),
		)),
	)
	otel.SetTracerProvider(tp)

	log.Debug("tracing enabled", "exporter", cfg.Exporter, "version", cfg.Version)
	return tp.Shutdown, nil
}

// ShutdownWithTimeout flushes pending spans, giving up after a few seconds.
// Failures are logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log *slog.Logger) {
	if shutdown == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
}
