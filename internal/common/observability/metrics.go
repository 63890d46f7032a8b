package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"meeting-intel/internal/common/logger"
)

// Observability owns the OpenTelemetry meter provider (exported through the
// Prometheus registry) and the tracer provider used for pipeline spans.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer

	stageDuration otelmetric.Float64Histogram
	llmDuration   otelmetric.Float64Histogram
}

// New installs global tracer and meter providers. Spans are handed to the
// given processors; with none they are sampled but not exported.
func New(serviceName string, log logger.Logger, processors ...sdktrace.SpanProcessor) *Observability {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample()))}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	o := &Observability{tracer: tp.Tracer(serviceName), tracerProvider: tp}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.stageDuration, _ = o.meter.Float64Histogram(
		"pipeline.stage.duration",
		otelmetric.WithDescription("Analysis pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)
	o.llmDuration, _ = o.meter.Float64Histogram(
		"llm.call.duration",
		otelmetric.WithDescription("LLM provider call duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// NewNoop returns an instance that records nothing; used by tests.
func NewNoop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

// StartSpan opens a tracing span. The global tracer provider is a no-op
// unless one is installed by the process.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("noop").Start(ctx, name, trace.WithAttributes(attrs...))
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	if o == nil || o.stageDuration == nil {
		return
	}
	o.stageDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func (o *Observability) RecordLLMCall(ctx context.Context, purpose, outcome string, duration time.Duration) {
	if o == nil || o.llmDuration == nil {
		return
	}
	o.llmDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("purpose", purpose),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
