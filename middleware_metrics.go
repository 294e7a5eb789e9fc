// Copyright 2025 Originate Group. All rights reserved.
//
// common-mcp-submodule is licensed under the Apache License Version 2.0.

package mcp

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// OtelExporterType selects where telemetry is written.
type OtelExporterType string

const (
	// ExporterStdout writes telemetry to stdout. Intended for local development.
	ExporterStdout OtelExporterType = "stdout"
	// ExporterOTLP exports telemetry over OTLP gRPC to a collector.
	ExporterOTLP OtelExporterType = "otlp"
)

// MetricsRecorder abstracts metric reporting for the tool call middleware.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// RecordCall increments the call counter for a tool.
	RecordCall(ctx context.Context, tool string)
	// RecordError increments the error counter for a tool and error code.
	RecordError(ctx context.Context, tool string, code int)
	// RecordLatency records the observed call latency in milliseconds.
	RecordLatency(ctx context.Context, tool string, latencyMs float64)
	// RecordInFlight adjusts the in-flight gauge by count, which may be negative.
	RecordInFlight(ctx context.Context, tool string, count int64)
}

// MetricsConfig controls which metric families the middleware records. With a
// nil recorder the middleware is a no-op.
type MetricsConfig struct {
	recorder MetricsRecorder

	EnableCalls    bool
	EnableErrors   bool
	EnableLatency  bool
	EnableInFlight bool

	// Filter decides whether a tool is recorded. Nil records everything.
	Filter func(tool string) bool
}

// DefaultMetricsConfig enables all metric families with no filter.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		EnableCalls:    true,
		EnableErrors:   true,
		EnableLatency:  true,
		EnableInFlight: true,
	}
}

// MetricsOption applies functional options to MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithMetricsRecorder sets the recorder used by the middleware.
func WithMetricsRecorder(recorder MetricsRecorder) MetricsOption {
	return func(c *MetricsConfig) {
		c.recorder = recorder
	}
}

// WithMetricsFilter sets a tool filter. Return true to record the tool. Keep
// tool name cardinality low.
func WithMetricsFilter(filter func(tool string) bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.Filter = filter
	}
}

// WithEnableCalls toggles call count recording.
func WithEnableCalls(enable bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.EnableCalls = enable
	}
}

// WithEnableErrors toggles error count recording.
func WithEnableErrors(enable bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.EnableErrors = enable
	}
}

// WithEnableLatency toggles latency histogram recording.
func WithEnableLatency(enable bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.EnableLatency = enable
	}
}

// WithEnableInFlight toggles in-flight gauge recording.
func WithEnableInFlight(enable bool) MetricsOption {
	return func(c *MetricsConfig) {
		c.EnableInFlight = enable
	}
}

// RecorderConfig controls how the OpenTelemetry recorder is built.
type RecorderConfig struct {
	serviceName  string
	exporterType OtelExporterType
	endpoint     string
}

func defaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		serviceName:  "mcp-gateway",
		exporterType: ExporterStdout,
		endpoint:     "localhost:4317",
	}
}

// RecorderOption applies functional options to RecorderConfig.
type RecorderOption func(*RecorderConfig)

// WithRecorderServiceName sets the service.name resource attribute.
func WithRecorderServiceName(serviceName string) RecorderOption {
	return func(c *RecorderConfig) {
		c.serviceName = serviceName
	}
}

// WithRecorderExporterType selects the exporter implementation.
func WithRecorderExporterType(exporterType OtelExporterType) RecorderOption {
	return func(c *RecorderConfig) {
		c.exporterType = exporterType
	}
}

// WithRecorderEndpoint sets the OTLP endpoint. Ignored for the stdout exporter.
func WithRecorderEndpoint(endpoint string) RecorderOption {
	return func(c *RecorderConfig) {
		c.endpoint = endpoint
	}
}

func newMetricExporter(ctx context.Context, exporterType OtelExporterType, endpoint string) (sdkmetric.Exporter, error) {
	switch exporterType {
	case ExporterStdout:
		return stdoutmetric.New()
	case ExporterOTLP:
		// Plaintext transport. Run the collector next to the gateway or put
		// TLS termination in front of it.
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", exporterType)
	}
}

// otelMetricsRecorder reports tool call metrics through OpenTelemetry:
//
//	mcp_tool_calls_total        counter, by tool
//	mcp_tool_errors_total       counter, by tool and code
//	mcp_tool_duration_ms        histogram, by tool
//	mcp_tool_calls_in_flight    updowncounter, by tool
type otelMetricsRecorder struct {
	callCounter   metric.Int64Counter
	errorCounter  metric.Int64Counter
	latencyHist   metric.Float64Histogram
	inFlightGauge metric.Int64UpDownCounter
}

// NewOtelMetricsRecorder builds an OpenTelemetry-backed MetricsRecorder and
// returns a shutdown function that flushes pending metrics.
func NewOtelMetricsRecorder(options ...RecorderOption) (MetricsRecorder, func(ctx context.Context) error, error) {
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
		return nil, nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	exporter, err := newMetricExporter(ctx, cfg.exporterType, cfg.endpoint)
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := otel.Meter("github.com/Originate-Group/common-mcp-submodule")
	callCounter, _ := meter.Int64Counter("mcp_tool_calls_total",
		metric.WithDescription("Total number of tool calls"))
	errorCounter, _ := meter.Int64Counter("mcp_tool_errors_total",
		metric.WithDescription("Total number of failed tool calls"))
	latencyHist, _ := meter.Float64Histogram("mcp_tool_duration_ms",
		metric.WithDescription("Tool call latency in milliseconds"), metric.WithUnit("ms"))
	inFlightGauge, _ := meter.Int64UpDownCounter("mcp_tool_calls_in_flight",
		metric.WithDescription("Number of tool calls in flight"))

	recorder := &otelMetricsRecorder{
		callCounter:   callCounter,
		errorCounter:  errorCounter,
		latencyHist:   latencyHist,
		inFlightGauge: inFlightGauge,
	}
	return recorder, provider.Shutdown, nil
}

func (r *otelMetricsRecorder) RecordCall(ctx context.Context, tool string) {
	r.callCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("tool", tool)))
}

func (r *otelMetricsRecorder) RecordError(ctx context.Context, tool string, code int) {
	r.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Int("code", code),
	))
}

func (r *otelMetricsRecorder) RecordLatency(ctx context.Context, tool string, latencyMs float64) {
	r.latencyHist.Record(ctx, latencyMs, metric.WithAttributes(attribute.String("tool", tool)))
}

func (r *otelMetricsRecorder) RecordInFlight(ctx context.Context, tool string, count int64) {
	r.inFlightGauge.Add(ctx, count, metric.WithAttributes(attribute.String("tool", tool)))
}

// MetricsMiddleware instruments tool calls with the configured recorder. It
// is stateless and safe for concurrent use.
func MetricsMiddleware(options ...MetricsOption) MiddlewareFunc {
	cfg := DefaultMetricsConfig()
	for _, option := range options {
		if option != nil {
			option(cfg)
		}
	}

	return func(ctx context.Context, req interface{}, next Handler) (interface{}, error) {
		if cfg.recorder == nil {
			return next(ctx, req)
		}

		tool := "unknown"
		if callReq, ok := req.(*CallToolRequest); ok {
			tool = callReq.Params.Name
		}
		if cfg.Filter != nil && !cfg.Filter(tool) {
			return next(ctx, req)
		}

		if cfg.EnableInFlight {
			cfg.recorder.RecordInFlight(ctx, tool, 1)
			defer cfg.recorder.RecordInFlight(ctx, tool, -1)
		}
		if cfg.EnableCalls {
			cfg.recorder.RecordCall(ctx, tool)
		}

		start := time.Now()
		resp, err := next(ctx, req)

		if cfg.EnableErrors {
			if code, failed := callErrorCode(resp, err); failed {
				cfg.recorder.RecordError(ctx, tool, code)
			}
		}
		if cfg.EnableLatency {
			cfg.recorder.RecordLatency(ctx, tool, float64(time.Since(start).Milliseconds()))
		}
		return resp, err
	}
}

// callErrorCode classifies a chain result as an error and extracts its code.
func callErrorCode(resp interface{}, err error) (int, bool) {
	if err != nil {
		return ErrCodeInternal, true
	}
	if rpcError, ok := resp.(*JSONRPCError); ok {
		return rpcError.Error.Code, true
	}
	if result, ok := resp.(*CallToolResult); ok && result.IsError {
		return ErrCodeInternal, true
	}
	return 0, false
}
