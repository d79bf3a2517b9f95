package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "hrcli/internal/errors"
)

const (
	TracerName = "hrcli.analysis"
)

// traceRun creates the span that encloses a whole pipeline run
func (a *Analyzer) traceRun(ctx context.Context, runID string, records int, opts Options) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "analysis.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.records", records),
			attribute.String("run.reference_date", opts.ReferenceTime.Format(time.DateOnly)),
			attribute.Float64("run.test_fraction", opts.TestFraction),
			attribute.Int64("run.seed", int64(opts.Seed)),
			attribute.Int("run.estimators", opts.Estimators),
		),
	)
}

// recordRunCompletion sets the run span status and counts the outcome
func (a *Analyzer) recordRunCompletion(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("run.duration_seconds", duration.Seconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.metrics.RecordRun(ctx, outcome(err))
		return
	}
	span.SetStatus(codes.Ok, "analysis completed successfully")
	a.metrics.RecordRun(ctx, "success")
}

// stage runs fn inside a child span and records its duration.
func (a *Analyzer) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := a.tracer.Start(ctx, "analysis.stage."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("stage.name", name)),
	)
	defer span.End()

	a.logStageStart(ctx, name)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	a.metrics.RecordStage(ctx, name, duration)
	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logStageError(ctx, name, err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	a.logStageComplete(ctx, name, duration)
	return nil
}

func outcome(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "error"
}
