package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations for one run.
type Paths struct {
	OutputDir   string
	LogsDir     string
	LogFile     string
	TraceFile   string
	MetricsFile string
}

// GetPaths resolves the configured paths against baseDir. Absolute paths are
// kept as they are.
func GetPaths(cfg *Config, baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	return &Paths{
		OutputDir:   resolve(cfg.Paths.OutputDir),
		LogsDir:     resolve(cfg.Paths.LogsDir),
		LogFile:     resolve(cfg.Logging.FilePath),
		TraceFile:   resolve(cfg.Telemetry.TraceFile),
		MetricsFile: resolve(cfg.Telemetry.MetricsFile),
	}, nil
}

// EnsureDirectories creates the logs directory. The output directory is
// created by the report writer only once every artifact is ready.
func (p *Paths) EnsureDirectories() error {
	if p.LogsDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.LogsDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.LogsDir, err)
	}
	return nil
}

// GetReportPath returns the path of a report artifact in the output directory
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Resolved paths",
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("log_file", p.LogFile),
		slog.String("trace_file", p.TraceFile),
		slog.String("metrics_file", p.MetricsFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
