// Package analysis runs the attrition pipeline from employee records to the
// results consumed by the report writer.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	apperrors "hrcli/internal/errors"
	"hrcli/internal/evaluation"
	"hrcli/internal/features"
	"hrcli/internal/forest"
	"hrcli/internal/infrastructure"
	"hrcli/internal/split"
	"hrcli/pkg/contracts/domain"
)

// Default pipeline parameters
const (
	DefaultTestFraction = 0.2
	DefaultSeed         = forest.DefaultSeed
	DefaultEstimators   = forest.DefaultEstimators
)

// Options are the parameters of one run.
type Options struct {
	// ReferenceTime ends the tenure of current employees. Zero means the
	// time Run is called.
	ReferenceTime time.Time
	TestFraction  float64
	Seed          uint64
	Estimators    int
	// Workers bounds parallel tree fitting. Zero means GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the standard pipeline parameters for ref.
func DefaultOptions(ref time.Time) Options {
	return Options{
		ReferenceTime: ref,
		TestFraction:  DefaultTestFraction,
		Seed:          DefaultSeed,
		Estimators:    DefaultEstimators,
	}
}

// RunMetadata describes how a run was produced. It is kept out of Results.
type RunMetadata struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	ReferenceTime time.Time `json:"reference_time"`
	Seed          uint64    `json:"seed"`
	TestFraction  float64   `json:"test_fraction"`
	Estimators    int       `json:"estimators"`
	Records       int       `json:"records"`
	Departed      int       `json:"departed"`
	TrainSize     int       `json:"train_size"`
	TestSize      int       `json:"test_size"`
	TreeNodes     int       `json:"tree_nodes"`
	Duration      string    `json:"duration"`
}

// Outcome bundles everything a run produces.
type Outcome struct {
	Results  *Results
	Charts   ChartData
	Meta     RunMetadata
	Features *features.Set
	Metrics  *evaluation.Metrics
}

// Analyzer runs the pipeline with logging and telemetry.
type Analyzer struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewAnalyzer creates an analyzer. A nil telemetry records nothing.
func NewAnalyzer(logger *slog.Logger, tel *infrastructure.Telemetry) *Analyzer {
	logger = infrastructure.WithComponent(logger, "analysis")
	if tel == nil {
		tel = infrastructure.NoopTelemetry()
	}

	metrics, err := infrastructure.NewPipelineMetrics(tel.Meter)
	if err != nil {
		logger.Warn("Pipeline metrics unavailable", slog.String("error", err.Error()))
	}

	return &Analyzer{
		logger:  logger,
		tracer:  tel.Tracer,
		metrics: metrics,
	}
}

// Run analyses records without telemetry.
func Run(ctx context.Context, records []domain.EmployeeRecord, opts Options) (*Outcome, error) {
	return NewAnalyzer(nil, nil).Run(ctx, records, opts)
}

// Run derives features from records, fits and evaluates the classifier and
// assembles the results.
func (a *Analyzer) Run(ctx context.Context, records []domain.EmployeeRecord, opts Options) (out *Outcome, err error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)
	started := time.Now()
	if opts.ReferenceTime.IsZero() {
		opts.ReferenceTime = started
	}
	if opts.Estimators <= 0 {
		opts.Estimators = DefaultEstimators
	}

	ctx, span := a.traceRun(ctx, runID, len(records), opts)
	defer func() {
		a.recordRunCompletion(ctx, span, time.Since(started), err)
		span.End()
	}()

	a.logger.InfoContext(ctx, "Starting analysis",
		slog.Int("records", len(records)),
		slog.String("reference_date", opts.ReferenceTime.Format(time.DateOnly)),
		slog.Float64("test_fraction", opts.TestFraction),
		slog.Uint64("seed", opts.Seed),
		slog.Int("estimators", opts.Estimators))

	if len(records) == 0 {
		return nil, apperrors.NewInsufficientDataError("no employee records")
	}
	a.metrics.RecordRecords(ctx, len(records))

	var set *features.Set
	if err := a.stage(ctx, "derive", func(context.Context) error {
		var err error
		set, err = features.Derive(records, opts.ReferenceTime)
		return err
	}); err != nil {
		return nil, err
	}

	var train, test split.Set
	if err := a.stage(ctx, "split", func(context.Context) error {
		x, y := set.Matrix()
		var err error
		train, test, err = split.Split(x, y, opts.TestFraction, opts.Seed)
		return err
	}); err != nil {
		return nil, err
	}

	var model *forest.Model
	if err := a.stage(ctx, "fit", func(ctx context.Context) error {
		fo := forest.DefaultOptions()
		fo.Estimators = opts.Estimators
		fo.Seed = opts.Seed
		fo.Workers = opts.Workers
		fo.FeatureNames = features.FeatureNames

		var err error
		model, err = forest.Fit(ctx, train.X, train.Y, fo)
		return err
	}); err != nil {
		return nil, err
	}

	var metrics *evaluation.Metrics
	if err := a.stage(ctx, "evaluate", func(context.Context) error {
		var err error
		metrics, err = evaluation.Evaluate(model, test.X, test.Y)
		return err
	}); err != nil {
		return nil, err
	}

	var (
		results *Results
		charts  ChartData
	)
	if err := a.stage(ctx, "aggregate", func(context.Context) error {
		results = assembleResults(set, metrics)
		charts = buildChartData(set, results.VisualizationStats, metrics.FeatureImportance)
		return nil
	}); err != nil {
		return nil, err
	}

	departed := 0
	for _, r := range set.Rows {
		if r.Departed {
			departed++
		}
	}

	meta := RunMetadata{
		RunID:         runID,
		StartedAt:     started,
		ReferenceTime: opts.ReferenceTime,
		Seed:          opts.Seed,
		TestFraction:  opts.TestFraction,
		Estimators:    model.Estimators(),
		Records:       len(records),
		Departed:      departed,
		TrainSize:     train.Len(),
		TestSize:      test.Len(),
		TreeNodes:     model.NodeCount(),
		Duration:      time.Since(started).Round(time.Millisecond).String(),
	}

	a.logger.InfoContext(ctx, "Analysis completed",
		slog.Float64("accuracy", metrics.Accuracy),
		slog.Int("train_size", meta.TrainSize),
		slog.Int("test_size", meta.TestSize),
		slog.Int("tree_nodes", meta.TreeNodes),
		slog.String("duration", meta.Duration))

	return &Outcome{
		Results:  results,
		Charts:   charts,
		Meta:     meta,
		Features: set,
		Metrics:  metrics,
	}, nil
}
