// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Originate-Group/common-mcp-submodule"

// NewOtelTracerProvider installs a global tracer provider and returns a
// shutdown function that flushes pending spans. Uses the same RecorderOption
// set as the metrics recorder.
func NewOtelTracerProvider(options ...RecorderOption) (func(ctx context.Context) error, error) {
	cfg := defaultRecorderConfig()
	for _, option := range options {
		if option != nil {
			option(cfg)
		}
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.exporterType {
	case ExporterStdout:
		exporter, err = stdouttrace.New()
	case ExporterOTLP:
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.endpoint),
			otlptracegrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.exporterType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// TracingMiddleware opens a span around each tool call. Span attributes carry
// the tool name and, when authenticated, the calling user.
func TracingMiddleware() MiddlewareFunc {
	tracer := otel.Tracer(tracerName)
	return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		tool := "unknown"
		if callReq, ok := req.(*CallToolRequest); ok {
			tool = callReq.Params.Name
		}

		attrs := []attribute.KeyValue{attribute.String("mcp.tool", tool)}
		if identity, ok := AuthIdentityFromContext(ctx); ok {
			attrs = append(attrs, attribute.String("mcp.user", identity.UserID))
		}
		if requestID, ok := RequestIDFromContext(ctx); ok {
			attrs = append(attrs, attribute.String("mcp.request_id", requestID))
		}

		ctx, span := tracer.Start(ctx, "tools/call "+tool,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		resp, err := next(ctx, req)

		if code, failed := callErrorCode(resp, err); failed {
			span.SetStatus(codes.Error, fmt.Sprintf("tool call failed with code %d", code))
			if err != nil {
				span.RecordError(err)
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return resp, err
	}
}
