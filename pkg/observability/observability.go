// Package observability wires OpenTelemetry metrics (exported through a
// Prometheus registry) and optional stdout tracing.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"avatarbot/backend/pkg/config"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider owns the metric and trace pipelines for the process
type Provider struct {
	Metrics *Metrics

	registry       *prom.Registry
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// Options tweaks Setup; the zero value writes traces to stdout
type Options struct {
	TraceWriter io.Writer
}

// Setup builds the providers requested by cfg. Disabled pipelines fall back
// to no-op instruments so callers never check for nil.
func Setup(cfg config.ObservabilityConfig, serviceName string, opts Options) (*Provider, error) {
	p := &Provider{}
	res := resource.NewSchemaless(semconv.ServiceName(serviceName))

	if cfg.TracingEnabled {
		w := opts.TraceWriter
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize stdouttrace exporter: %w", err)
		}
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(p.tracerProvider)
	}

	if !cfg.MetricsEnabled {
		p.Metrics = NoopMetrics()
		return p, nil
	}

	p.registry = prom.NewRegistry()
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(p.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)

	metrics, err := NewMetrics(p.meterProvider.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	p.Metrics = metrics
	return p, nil
}

// Handler serves the Prometheus exposition format, or nil when metrics are off
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes pending spans and stops the meter provider
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
