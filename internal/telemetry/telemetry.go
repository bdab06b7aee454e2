// Package telemetry wires OpenTelemetry tracing and metrics for the process.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"gitlab.com/yelinaung/trackify/internal/config"
	"gitlab.com/yelinaung/trackify/internal/logger"
)

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(ctx context.Context) error

// Options selects the exporter. Writer is where the stdout exporter writes;
// nil means os.Stdout.
type Options struct {
	Exporter    string
	Endpoint    string
	ServiceName string
	Writer      io.Writer
}

// OptionsFrom maps the loaded configuration onto Options.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
	}
}

// Setup installs global tracer and meter providers. With the "none" exporter
// the globals stay no-op and the returned shutdown does nothing.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Exporter == "" || opts.Exporter == config.ExporterNone {
		return func(context.Context) error { return nil }, nil
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "trackify"
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	spans, err := newSpanExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	metrics, err := newMetricExporter(ctx, opts)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", opts.Exporter).
		Str("service", opts.ServiceName).
		Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newSpanExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch opts.Exporter {
	case config.ExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(opts.Writer))
	case config.ExporterOTLPHTTP:
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(opts.Endpoint))
	case config.ExporterOTLPGRPC:
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(opts.Endpoint))
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}
	return exp, nil
}

func newMetricExporter(ctx context.Context, opts Options) (sdkmetric.Exporter, error) {
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch opts.Exporter {
	case config.ExporterStdout:
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
	case config.ExporterOTLPHTTP:
		exp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(opts.Endpoint))
	case config.ExporterOTLPGRPC:
		exp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(opts.Endpoint))
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	return exp, nil
}
