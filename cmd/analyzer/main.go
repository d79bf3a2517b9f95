// Command analyzer runs the employee attrition analysis on a CSV or Excel
// snapshot and writes results.json, report.html and the feature tables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrcli/internal/analysis"
	"hrcli/internal/config"
	apperrors "hrcli/internal/errors"
	"hrcli/internal/infrastructure"
	"hrcli/internal/records"
	"hrcli/internal/report"
	"hrcli/internal/validation"
)

// options holds the parsed command line.
type options struct {
	input      string
	configFile string
	outDir     string
	refDate    string
	seed       uint64
	testSize   float64
	estimators int
	workers    int
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{set: make(map[string]bool)}
	fs.StringVar(&opts.input, "in", "", "employee snapshot (.csv or .xlsx), required")
	fs.StringVar(&opts.configFile, "config", "", "optional YAML config file")
	fs.StringVar(&opts.outDir, "out", "", "output directory (default analysis_results)")
	fs.StringVar(&opts.refDate, "ref", "", "reference date YYYY-MM-DD for current employees (default today)")
	fs.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "random seed for split and model")
	fs.Float64Var(&opts.testSize, "test-size", config.DefaultTestFraction, "fraction of records held out for evaluation")
	fs.IntVar(&opts.estimators, "estimators", config.DefaultEstimators, "number of trees")
	fs.IntVar(&opts.workers, "workers", 0, "parallel tree fits (default GOMAXPROCS)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.input == "" {
		fs.Usage()
		return nil, errors.New("-in is required")
	}
	return opts, nil
}

// apply lets explicitly set flags win over the configuration.
func (o *options) apply(cfg *config.Config) error {
	if o.set["out"] {
		cfg.Paths.OutputDir = o.outDir
	}
	if o.set["ref"] {
		cfg.Analysis.ReferenceDate = o.refDate
	}
	if o.set["seed"] {
		cfg.Analysis.Seed = o.seed
	}
	if o.set["test-size"] {
		cfg.Analysis.TestFraction = o.testSize
	}
	if o.set["estimators"] {
		cfg.Analysis.Estimators = o.estimators
	}
	return cfg.Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return err
	}

	paths, err := config.GetPaths(cfg, "")
	if err != nil {
		return apperrors.NewConfigError("resolve paths", err)
	}
	if cfg.Logging.Output != "console" || cfg.Telemetry.TraceExporter == "file" || cfg.Telemetry.MetricExporter != "none" {
		if err := paths.EnsureDirectories(); err != nil {
			return apperrors.NewStorageError("create directories", err)
		}
	}
	cfg.Logging.FilePath = paths.LogFile

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution(logger)

	ref, err := cfg.ReferenceTime(time.Now())
	if err != nil {
		return err
	}

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, paths, logger)
	if err != nil {
		return apperrors.NewConfigError("initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	ctx = infrastructure.EnsureRunID(ctx)
	logger.InfoContext(ctx, "Starting HR analysis",
		slog.String("input", opts.input),
		slog.String("output_dir", paths.OutputDir),
		slog.String("version", config.AppVersion))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputFile(opts.input); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(paths.OutputDir); err != nil {
		return err
	}

	recs, err := records.NewStore(logger).Load(ctx, opts.input)
	if err != nil {
		logFailure(ctx, logger, "Failed to load employee records", err)
		return err
	}

	out, err := analysis.NewAnalyzer(logger, tel).Run(ctx, recs, analysis.Options{
		ReferenceTime: ref,
		TestFraction:  cfg.Analysis.TestFraction,
		Seed:          cfg.Analysis.Seed,
		Estimators:    cfg.Analysis.Estimators,
		Workers:       opts.workers,
	})
	if err != nil {
		logFailure(ctx, logger, "Analysis failed", err)
		return err
	}

	arts, err := report.NewWriter(logger).Write(ctx, paths.OutputDir, out)
	if err != nil {
		logFailure(ctx, logger, "Failed to write report", err)
		return err
	}

	logger.InfoContext(ctx, "HR analysis completed",
		slog.String("results", arts.Results),
		slog.String("report", arts.HTML),
		slog.Float64("accuracy", out.Results.ModelPerformance.Accuracy),
		slog.String("duration", out.Meta.Duration))

	return nil
}

func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg,
		slog.String("error", err.Error()),
		slog.String("error_type", string(apperrors.TypeOf(err))))

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		logger.DebugContext(ctx, "Error stack", slog.String("stack", string(appErr.StackTrace())))
	}
}
