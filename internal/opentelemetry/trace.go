// Copyright 2025 Fedict
// SPDX-License-Identifier: Apache-2.0

package opentelemetry

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace" // name this differently so it doesn't conflict with the tracer interface
	"go.opentelemetry.io/otel/trace"
)

const DefaultTracingEndpoint = "127.0.0.1:4317"

// spans with this name are dropped before export
const HealthProbeSpan = "triplestore.ping"

// the global tracer instance that keeps track of client spans;
// nil when tracing is disabled
var Tracer trace.Tracer
var TracerProvider *sdktrace.TracerProvider

// SubSpanFromCtxWithName starts a child span of the span in ctx.
// If tracing is disabled a span that does nothing is returned
func SubSpanFromCtxWithName(ctx context.Context, name string, attrs ...attribute.KeyValue) (trace.Span, context.Context) {
	if Tracer == nil {
		return trace.SpanFromContext(context.Background()), ctx
	}
	ctx, span := Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return span, ctx
}

// EndWithError records err on the span, if any, then ends it
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// FilteringSpanProcessor drops the spans produced by health probes
// and metric scrapes so periodic traffic does not drown real requests
type FilteringSpanProcessor struct {
	next sdktrace.SpanProcessor
}

func NewFilteringSpanProcessor(next sdktrace.SpanProcessor) *FilteringSpanProcessor {
	return &FilteringSpanProcessor{next: next}
}

func (f *FilteringSpanProcessor) OnStart(parent context.Context, span sdktrace.ReadWriteSpan) {
	f.next.OnStart(parent, span)
}

func (f *FilteringSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if shouldFilterOutSpan(span) {
		return
	}
	f.next.OnEnd(span)
}

func (f *FilteringSpanProcessor) Shutdown(ctx context.Context) error {
	return f.next.Shutdown(ctx)
}

func (f *FilteringSpanProcessor) ForceFlush(ctx context.Context) error {
	return f.next.ForceFlush(ctx)
}

func shouldFilterOutSpan(span sdktrace.ReadOnlySpan) bool {
	if span.Name() == HealthProbeSpan {
		return true
	}
	for _, attr := range span.Attributes() {
		switch attr.Key {
		case "url.path", "http.target", "http.route":
			path := attr.Value.AsString()
			if strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/healthcheck") {
				return true
			}
		}
	}
	return false
}

// InitTracer sets up the global tracer exporting spans over otlp grpc
func InitTracer(serviceName string, endpoint string) error {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return fmt.Errorf("creating otel resource: %w", err)
	}

	client := otlptracegrpc.NewClient(
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)

	otlpTraceExporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return fmt.Errorf("creating otlp exporter: %w", err)
	}

	batchSpanProcessor := sdktrace.NewBatchSpanProcessor(otlpTraceExporter)

	TracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewFilteringSpanProcessor(batchSpanProcessor)),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(TracerProvider)

	Tracer = TracerProvider.Tracer(serviceName)

	log.Infof("OpenTelemetry Tracer initialized, sending traces to %s", endpoint)
	return nil
}
