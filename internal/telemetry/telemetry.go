// Package telemetry records review metrics and model-call spans through the
// OpenTelemetry API.
//
// Instruments are always created against a MeterProvider and
// TracerProvider; without [Setup] those are the global no-op providers, so
// recording is free. [Setup] installs OTLP gRPC exporters when an endpoint
// is configured.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dshills/csr"

// Model call outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeParseError = "parse_error"
)

// Telemetry holds the csr instruments.
type Telemetry struct {
	tracer       trace.Tracer
	reviews      metric.Int64Counter
	modelCalls   metric.Int64Counter
	observations metric.Int64Counter
	duration     metric.Float64Histogram
}

// New creates the instruments from the given providers.
func New(mp metric.MeterProvider, tp trace.TracerProvider) (*Telemetry, error) {
	meter := mp.Meter(instrumentationName)
	t := &Telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.reviews, err = meter.Int64Counter("csr.reviews",
		metric.WithDescription("Total number of reviews processed"),
		metric.WithUnit("{review}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating csr.reviews: %w", err)
	}

	t.modelCalls, err = meter.Int64Counter("csr.model.calls",
		metric.WithDescription("Model invocations by outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating csr.model.calls: %w", err)
	}

	t.observations, err = meter.Int64Counter("csr.observations",
		metric.WithDescription("Observations returned after policy"),
		metric.WithUnit("{observation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating csr.observations: %w", err)
	}

	t.duration, err = meter.Float64Histogram("csr.review.duration",
		metric.WithDescription("End-to-end review latency"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000),
	)
	if err != nil {
		return nil, fmt.Errorf("creating csr.review.duration: %w", err)
	}

	return t, nil
}

// Global creates the instruments from the global providers. Instrument
// creation on the global providers does not fail in practice; if it does the
// no-op instruments are used.
func Global() *Telemetry {
	t, err := New(otel.GetMeterProvider(), otel.GetTracerProvider())
	if err != nil {
		otel.Handle(err)
		return nil
	}
	return t
}

// StartModelCall opens a span around one model invocation.
func (t *Telemetry) StartModelCall(ctx context.Context, provider, standardRef string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs := []attribute.KeyValue{attribute.String("csr.provider", provider)}
	if standardRef != "" {
		attrs = append(attrs, attribute.String("csr.standard_ref", standardRef))
	}
	return t.tracer.Start(ctx, "csr.model.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndModelCall records the outcome of a model invocation and ends its span.
func (t *Telemetry) EndModelCall(ctx context.Context, span trace.Span, outcome string, err error) {
	if t == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("csr.outcome", outcome))
	span.End()
	t.modelCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordReview records one completed review.
func (t *Telemetry) RecordReview(ctx context.Context, standardsSet, strictness string, observations, errs int, d time.Duration) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("standards_set", standardsSet),
		attribute.String("strictness", strictness),
		attribute.Bool("has_errors", errs > 0),
	)
	t.reviews.Add(ctx, 1, attrs)
	t.observations.Add(ctx, int64(observations), attrs)
	t.duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
}
