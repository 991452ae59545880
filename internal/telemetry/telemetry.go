// Package telemetry builds the OpenTelemetry providers used by the server.
//
// Metrics are always exported through a Prometheus registry so the HTTP
// instrumentation shows up on /metrics next to the service counters. Traces,
// an OTLP metric stream and logs are exported over OTLP/gRPC only when an
// endpoint is configured; otherwise no-op providers are returned.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const metricExportInterval = 30 * time.Second

// Config selects what is exported and where.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is a URL such as http://localhost:4317. Empty disables
	// OTLP export.
	OTLPEndpoint string
	// Registerer receives the OpenTelemetry metrics. Nil skips the
	// Prometheus bridge.
	Registerer prometheus.Registerer
}

// Providers holds the configured providers. Shutdown flushes them.
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	serviceName    string
	loggerProvider *sdklog.LoggerProvider
	shutdown       []func(context.Context) error
}

// Setup creates the providers described by cfg. On error any exporter
// already started is shut down.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	p := &Providers{
		TracerProvider: noop.NewTracerProvider(),
		serviceName:    cfg.ServiceName,
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	var readers []sdkmetric.Option
	if cfg.Registerer != nil {
		exporter, err := otelprom.New(otelprom.WithRegisterer(cfg.Registerer))
		if err != nil {
			return nil, fmt.Errorf("creating prometheus exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(exporter))
	}

	if cfg.OTLPEndpoint != "" {
		traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		p.TracerProvider = tp
		p.shutdown = append(p.shutdown, tp.Shutdown)

		metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricExportInterval)),
		))

		logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(cfg.OTLPEndpoint))
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("creating otlp log exporter: %w", err)
		}
		p.loggerProvider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		p.shutdown = append(p.shutdown, p.loggerProvider.Shutdown)
	}

	mp := sdkmetric.NewMeterProvider(append(readers, sdkmetric.WithResource(res))...)
	p.MeterProvider = mp
	p.shutdown = append(p.shutdown, mp.Shutdown)

	return p, nil
}

// LogHandler returns a slog.Handler that forwards records to the OTLP log
// exporter, or nil when OTLP export is disabled.
func (p *Providers) LogHandler() slog.Handler {
	if p.loggerProvider == nil {
		return nil
	}
	return otelslog.NewHandler(p.serviceName, otelslog.WithLoggerProvider(p.loggerProvider))
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, p.shutdown[i](ctx))
	}
	p.shutdown = nil
	return errors.Join(errs...)
}
