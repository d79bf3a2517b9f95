package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"hrcli/internal/config"
)

const (
	ServiceName = "hrcli"
	MeterName   = "hrcli"
)

// Telemetry holds the OpenTelemetry providers of one run. Metrics are flushed
// to a Prometheus textfile on Shutdown.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	traceOut       io.Closer
	metricsFile    string
	logger         *slog.Logger
}

// NoopTelemetry returns telemetry that records nothing.
func NoopTelemetry() *Telemetry {
	return &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
		logger: GetLogger(),
	}
}

// InitializeTelemetry sets up tracing and metrics according to cfg.
func InitializeTelemetry(ctx context.Context, cfg config.TelemetryConfig, paths *config.Paths, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	t := NoopTelemetry()
	t.logger = logger

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", GenerateRunID()),
	)

	if err := t.initializeTracing(cfg, paths, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := t.initializeMetrics(cfg, paths, res); err != nil {
		t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return t, nil
}

// initializeTracing sets up OpenTelemetry tracing
func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, paths *config.Paths, res *resource.Resource) error {
	var out io.Writer

	switch cfg.TraceExporter {
	case "none", "":
		return nil
	case "stdout":
		out = os.Stdout
	case "file":
		if err := os.MkdirAll(filepath.Dir(paths.TraceFile), 0755); err != nil {
			return fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.Create(paths.TraceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		t.traceOut = f
		out = f
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.tracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics backed by a private Prometheus registry
func (t *Telemetry) initializeMetrics(cfg config.TelemetryConfig, paths *config.Paths, res *resource.Resource) error {
	switch cfg.MetricExporter {
	case "none", "":
		return nil
	case "textfile":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.meterProvider = mp
	t.registry = registry
	t.metricsFile = paths.MetricsFile
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	otel.SetMeterProvider(mp)

	return nil
}

// Registry returns the Prometheus registry, or nil when metrics are disabled.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Shutdown flushes spans and writes the metrics textfile.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.registry != nil && t.metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("create metrics directory: %w", err))
		} else if err := prometheus.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace file: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err == nil && t.registry != nil {
		t.logger.DebugContext(ctx, "Metrics written", slog.String("path", t.metricsFile))
	}
	return err
}

// PipelineMetrics holds the instruments recorded by an analysis run.
type PipelineMetrics struct {
	stageDuration metric.Float64Histogram
	records       metric.Int64Counter
	runs          metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Duration of one pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"pipeline_records_total",
		metric.WithDescription("Employee records processed"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Analysis runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{stageDuration: stageDuration, records: records, runs: runs}, nil
}

// RecordStage records the duration of a named stage.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordRecords adds n processed records.
func (m *PipelineMetrics) RecordRecords(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.records.Add(ctx, int64(n))
}

// RecordRun counts a finished run; outcome is "success" or the error type.
func (m *PipelineMetrics) RecordRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
