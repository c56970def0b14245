package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"gauntlet-sim/internal/config"
)

// Observability bundles the campaign's meters and tracer. A nil
// *Observability is valid everywhere and emits nothing.
type Observability struct {
	Tracer oteltrace.Tracer
	Meter  metric.Meter

	traceProvider *sdktrace.TracerProvider
	TickDuration  metric.Int64Histogram
	EventCounter  metric.Int64Counter
	AlertCounter  metric.Int64Counter
	RunCounter    metric.Int64Counter
}

// SetupObservability builds the tracer provider and instruments. Without
// an OTLP endpoint, traces stay in a local provider and are never
// exported; metrics still aggregate through the global meter.
func SetupObservability(ctx context.Context, cfg config.OTLPConfig) (*Observability, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "gauntlet-sim"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	sampler := sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	if cfg.Endpoint != "" {
		exporter, exportErr := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if exportErr != nil {
			return nil, fmt.Errorf("create otlp trace exporter: %w", exportErr)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sampler),
		)
	} else {
		slog.Info("otel trace exporter not configured; using local tracer provider")
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	meter := otel.Meter(serviceName)
	tracer := otel.Tracer(serviceName)
	tickDuration, _ := meter.Int64Histogram("sim_tick_duration_ms")
	eventCounter, _ := meter.Int64Counter("sim_sensor_events_total")
	alertCounter, _ := meter.Int64Counter("sim_rule_alerts_total")
	runCounter, _ := meter.Int64Counter("sim_runs_total")
	return &Observability{
		Tracer:        tracer,
		Meter:         meter,
		traceProvider: tp,
		TickDuration:  tickDuration,
		EventCounter:  eventCounter,
		AlertCounter:  alertCounter,
		RunCounter:    runCounter,
	}, nil
}

// Shutdown flushes buffered spans.
func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.traceProvider == nil {
		return nil
	}
	return o.traceProvider.Shutdown(ctx)
}

// StartSpan opens a span, or passes through untouched when disabled.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, oteltrace.Span) {
	if o == nil {
		return ctx, oteltrace.SpanFromContext(ctx)
	}
	return o.Tracer.Start(ctx, name)
}

// MarkTick records how long one tick took.
func (o *Observability) MarkTick(ctx context.Context, d time.Duration) {
	if o == nil {
		return
	}
	o.TickDuration.Record(ctx, d.Milliseconds())
}

// MarkEvents counts sensor events emitted in a tick.
func (o *Observability) MarkEvents(ctx context.Context, n int) {
	if o == nil || n == 0 {
		return
	}
	o.EventCounter.Add(ctx, int64(n))
}

// MarkAlerts counts alerts raised in a tick.
func (o *Observability) MarkAlerts(ctx context.Context, n int) {
	if o == nil || n == 0 {
		return
	}
	o.AlertCounter.Add(ctx, int64(n))
}

// MarkRun counts a resolved run by its verdict.
func (o *Observability) MarkRun(ctx context.Context, verdict string) {
	if o == nil {
		return
	}
	o.RunCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("verdict", verdict),
	))
}
