package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "hrcli/internal/errors"
	"hrcli/internal/features"
	"hrcli/internal/infrastructure"
	"hrcli/internal/shared/testutil"
	"hrcli/internal/synth"
	"hrcli/pkg/contracts/domain"
)

var refTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions(refTime)
	opts.Estimators = 20
	return opts
}

func TestRun_EndToEnd(t *testing.T) {
	recs := synth.GenerateFixed(3, 7, refTime, 42)

	out, err := Run(context.Background(), recs, testOptions())
	require.NoError(t, err)

	res := out.Results
	assert.Equal(t, 10, res.BasicStats.TotalEmployees)
	assert.GreaterOrEqual(t, res.ModelPerformance.Accuracy, 0.0)
	assert.LessOrEqual(t, res.ModelPerformance.Accuracy, 1.0)

	total := 0
	for _, n := range res.BasicStats.JobDistribution {
		total += n
	}
	assert.Equal(t, 10, total)

	entries := 0
	for _, y := range res.VisualizationStats.YearsAnalyzed {
		entries += res.VisualizationStats.EntriesPerYear[y]
	}
	assert.Equal(t, 10, entries)
	assert.IsIncreasing(t, res.VisualizationStats.YearsAnalyzed)

	require.Len(t, res.FeatureImportance, 4)
	sum := 0.0
	for _, fw := range res.FeatureImportance {
		assert.Contains(t, features.FeatureNames, fw.Feature)
		assert.GreaterOrEqual(t, fw.Importance, 0.0)
		sum += fw.Importance
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	assert.Equal(t, 10, out.Meta.Records)
	assert.Equal(t, 3, out.Meta.Departed)
	assert.Equal(t, 8, out.Meta.TrainSize)
	assert.Equal(t, 2, out.Meta.TestSize)
	assert.Equal(t, refTime, out.Meta.ReferenceTime)
	assert.NotEmpty(t, out.Meta.RunID)
	assert.Len(t, out.Charts.Employees, 10)
}

func TestRun_AcceptsFutureHire(t *testing.T) {
	recs := synth.GenerateFixed(3, 7, refTime, 42)
	recs = append(recs, domain.EmployeeRecord{
		EmployeeID: "2000",
		Name:       "Neu Eingestellt",
		BirthDate:  time.Date(1995, 4, 1, 0, 0, 0, 0, time.UTC),
		EntryDate:  refTime.AddDate(0, 1, 0),
		JobTitle:   recs[0].JobTitle,
		Company:    recs[0].Company,
	})

	out, err := Run(context.Background(), recs, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 11, out.Results.BasicStats.TotalEmployees)
	last := out.Features.Rows[len(out.Features.Rows)-1]
	assert.Equal(t, "2000", last.EmployeeID)
	assert.Less(t, last.TenureYears, 0.0)
	assert.False(t, last.Departed)
}

func TestRun_Reproducible(t *testing.T) {
	recs := synth.Generate(80, refTime, 5)

	first, err := Run(context.Background(), recs, testOptions())
	require.NoError(t, err)
	second, err := Run(context.Background(), recs, testOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Results.ModelPerformance.Accuracy, second.Results.ModelPerformance.Accuracy)
	assert.Equal(t, first.Results.FeatureImportance, second.Results.FeatureImportance)
	assert.Equal(t, first.Metrics.Predictions, second.Metrics.Predictions)
}

func TestRun_ResultsShape(t *testing.T) {
	out, err := Run(context.Background(), synth.GenerateFixed(4, 16, refTime, 3), testOptions())
	require.NoError(t, err)

	data, err := json.Marshal(out.Results)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 4)
	for _, key := range []string{"basic_stats", "visualization_stats", "model_performance", "feature_importance"} {
		assert.Contains(t, decoded, key)
	}

	basic := decoded["basic_stats"].(map[string]interface{})
	for _, key := range []string{"total_employees", "average_age_at_entry", "average_employment_duration", "job_distribution"} {
		assert.Contains(t, basic, key)
	}

	perf := decoded["model_performance"].(map[string]interface{})
	report := perf["classification_report"].(map[string]interface{})
	for _, key := range []string{"accuracy", "macro avg", "weighted avg"} {
		assert.Contains(t, report, key)
	}
	weighted := report["weighted avg"].(map[string]interface{})
	for _, key := range []string{"precision", "recall", "f1-score", "support"} {
		assert.Contains(t, weighted, key)
	}
	assert.Equal(t, float64(out.Meta.TestSize), weighted["support"])

	fi := decoded["feature_importance"].([]interface{})
	require.Len(t, fi, 4)
	assert.Contains(t, fi[0].(map[string]interface{}), "importance")
}

func TestRun_Errors(t *testing.T) {
	birth := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []domain.EmployeeRecord
		opts    func(*Options)
		wantErr error
	}{
		{
			name:    "no records",
			records: nil,
			wantErr: apperrors.ErrInsufficientData,
		},
		{
			name: "entry equals birth",
			records: append(synth.GenerateFixed(2, 5, refTime, 1), domain.EmployeeRecord{
				EmployeeID: "9999", BirthDate: birth, EntryDate: birth, JobTitle: "Analyst",
			}),
			wantErr: apperrors.ErrValueOutOfRange,
		},
		{
			name:    "all records current",
			records: synth.GenerateFixed(0, 10, refTime, 1),
			wantErr: apperrors.ErrInsufficientData,
		},
		{
			name:    "invalid test fraction",
			records: synth.GenerateFixed(3, 7, refTime, 1),
			opts:    func(o *Options) { o.TestFraction = 1.2 },
			wantErr: apperrors.ErrInvalidFraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}

			out, err := Run(context.Background(), tt.records, opts)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_DefaultsReferenceTimeToNow(t *testing.T) {
	opts := testOptions()
	opts.ReferenceTime = time.Time{}

	before := time.Now()
	out, err := Run(context.Background(), synth.GenerateFixed(3, 7, before, 2), opts)
	require.NoError(t, err)

	assert.False(t, out.Meta.ReferenceTime.Before(before))
	assert.Equal(t, out.Meta.StartedAt, out.Meta.ReferenceTime)
}

func TestAnalyzer_Telemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	tel := &infrastructure.Telemetry{Tracer: tp.Tracer(TracerName), Meter: mp.Meter(TracerName)}
	analyzer := NewAnalyzer(nil, tel)

	ctx := infrastructure.WithRunID(context.Background(), "run-1")
	out, err := analyzer.Run(ctx, synth.GenerateFixed(3, 7, refTime, 9), testOptions())
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.Meta.RunID)

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	for _, want := range []string{
		"analysis.run",
		"analysis.stage.derive",
		"analysis.stage.split",
		"analysis.stage.fit",
		"analysis.stage.evaluate",
		"analysis.stage.aggregate",
	} {
		assert.Contains(t, names, want)
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var metricNames []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			metricNames = append(metricNames, m.Name)
		}
	}
	assert.Contains(t, metricNames, "pipeline_stage_duration_seconds")
	assert.Contains(t, metricNames, "pipeline_records_total")
	assert.Contains(t, metricNames, "pipeline_runs_total")
}

func TestAnalyzer_FailedStageSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tel := &infrastructure.Telemetry{Tracer: tp.Tracer(TracerName), Meter: infrastructure.NoopTelemetry().Meter}

	_, err := NewAnalyzer(nil, tel).Run(context.Background(), synth.GenerateFixed(0, 6, refTime, 1), testOptions())
	require.Error(t, err)

	var fit *tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		if s.Name == "analysis.stage.fit" {
			stub := s
			fit = &stub
		}
	}
	require.NotNil(t, fit)
	assert.Equal(t, "Error", fit.Status.Code.String())
	assert.NotEmpty(t, fit.Events)
}

func TestAnalyzer_Logging(t *testing.T) {
	t.Run("stages complete", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)

		_, err := NewAnalyzer(logger, nil).Run(context.Background(), synth.GenerateFixed(3, 7, refTime, 9), testOptions())
		require.NoError(t, err)

		testutil.AssertNoErrors(t, handler)
		testutil.AssertLogContains(t, handler, slog.LevelInfo, "Starting analysis")

		var stages []any
		for _, r := range handler.GetRecordsByMessage("stage_complete") {
			assert.Equal(t, "analysis", r.Attrs["component"])
			stages = append(stages, r.Attrs["stage"])
		}
		assert.Equal(t, []any{"derive", "split", "fit", "evaluate", "aggregate"}, stages)
	})

	t.Run("failed stage", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)

		_, err := NewAnalyzer(logger, nil).Run(context.Background(), synth.GenerateFixed(0, 6, refTime, 1), testOptions())
		require.Error(t, err)

		failed := handler.GetRecordsByMessage("stage_error")
		require.Len(t, failed, 1)
		assert.Equal(t, "fit", failed[0].Attrs["stage"])
		assert.Equal(t, slog.LevelError, failed[0].Level)
	})
}
