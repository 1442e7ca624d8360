// Package telemetry wires the platform's OpenTelemetry instruments and
// the OTLP exporters behind the server's --tracing flag.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	traceBatchTimeout = 5 * time.Second
	metricInterval    = 15 * time.Second
)

// Init sets up the global trace and meter providers with OTLP gRPC
// exporters. Endpoint and auth headers come from the standard
// OTEL_EXPORTER_OTLP_* environment variables. A failed exporter is
// logged and skipped; claim and outbox processing never depend on the
// collector being reachable.
//
// The returned function flushes and shuts both providers down.
func Init(ctx context.Context, serviceName, version string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithContainer(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	shutdowns := make([]func(context.Context) error, 0, 2)

	if stop, err := setupTraces(ctx, res); err != nil {
		log.Warn().Err(err).Msg("Trace exporter unavailable, traces disabled")
	} else {
		shutdowns = append(shutdowns, stop)
	}

	if stop, err := setupMetrics(ctx, res); err != nil {
		log.Warn().Err(err).Msg("Metric exporter unavailable, metric export disabled")
	} else {
		shutdowns = append(shutdowns, stop)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("service", serviceName).
		Str("version", version).
		Msg("Telemetry initialized")

	return func(ctx context.Context) error {
		var errs []error
		for _, stop := range shutdowns {
			if err := stop(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}

func setupTraces(ctx context.Context, res *resource.Resource) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(traceBatchTimeout)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func setupMetrics(ctx context.Context, res *resource.Resource) (func(context.Context) error, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval)),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
