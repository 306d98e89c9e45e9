// Package telemetry wires the OpenTelemetry SDK for agent runs. Spans are
// exported over OTLP http when an endpoint and credentials are configured
// (Braintrust's collector is the primary target), and fall back to pretty
// printed stdout spans for local work.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultEndpoint is the Braintrust OTLP collector.
const DefaultEndpoint = "https://api.braintrust.dev/otel"

// Config describes where spans go. A zero Config exports to stdout.
type Config struct {
	ServiceName string
	// Endpoint is the OTLP http base URL, without the /v1/traces suffix.
	Endpoint string
	// APIKey authorizes the exporter (sent as a bearer token).
	APIKey string
	// Parent scopes spans to a project, e.g. "project_name:my-project".
	Parent string
}

// FromEnv builds a Config from BRAINTRUST_API_KEY, BRAINTRUST_PARENT and
// OTEL_EXPORTER_OTLP_ENDPOINT. Without an API key the config stays local.
func FromEnv(serviceName string) Config {
	cfg := Config{
		ServiceName: serviceName,
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		APIKey:      os.Getenv("BRAINTRUST_API_KEY"),
		Parent:      os.Getenv("BRAINTRUST_PARENT"),
	}
	if cfg.Endpoint == "" && cfg.APIKey != "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return cfg
}

// Provider owns the tracer provider lifecycle. Shutdown flushes pending
// spans; it is safe to call on a nil receiver.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init sets up the global tracer provider and propagators.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(buildVersion()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.exportsRemotely() {
		slog.Info("telemetry initialized",
			slog.String("endpoint", cfg.Endpoint),
			slog.String("service", cfg.ServiceName),
		)
	} else {
		slog.Info("telemetry initialized with stdout exporter", slog.String("service", cfg.ServiceName))
	}

	return &Provider{tp: tp}, nil
}

func (c Config) exportsRemotely() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

func (c Config) headers() map[string]string {
	headers := map[string]string{
		"Authorization": "Bearer " + c.APIKey,
	}
	if c.Parent != "" {
		headers["x-bt-parent"] = c.Parent
	}
	return headers
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if !cfg.exportsRemotely() {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		return exporter, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(strings.TrimSuffix(cfg.Endpoint, "/")+"/v1/traces"),
		otlptracehttp.WithHeaders(cfg.headers()),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return exporter, nil
}

// Shutdown flushes and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
