package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "hrcli/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" ignored:"true"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// AnalysisConfig controls the feature and model pipeline. It is read from the
// config file and flags only; the environment never changes analysis results.
type AnalysisConfig struct {
	// TestFraction is checked by the splitter, not here, so that a bad value
	// surfaces as an invalid-fraction error.
	TestFraction float64 `yaml:"test_fraction"`
	Seed         uint64  `yaml:"seed"`
	Estimators   int     `yaml:"estimators" validate:"min=1,max=10000"`
	// ReferenceDate pins "today" for tenure of current employees (YYYY-MM-DD).
	// Empty means the run start time.
	ReferenceDate string `yaml:"reference_date" validate:"omitempty,datetime=2006-01-02"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/hrcli.log"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=file stdout none"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"none" validate:"oneof=textfile none"`
	TraceFile      string `yaml:"trace_file" envconfig:"TRACE_FILE" default:"logs/trace.json"`
	MetricsFile    string `yaml:"metrics_file" envconfig:"METRICS_FILE" default:"logs/hrcli.prom"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"analysis_results"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load builds the configuration from defaults, environment variables (prefix
// HRA, ambient sections only) and an optional YAML file. File values win over
// environment values for the fields they set.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("load config from env", err)
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("load config from file", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile decodes the YAML file onto cfg. Only keys present in the file
// are written, so an explicit zero such as `seed: 0` wins over the default.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}

	return nil
}

// Validate checks struct constraints and normalizes the logging level.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s=%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
		}
		return apperrors.NewConfigError("config validation failed", err).
			WithContext("fields", strings.Join(fields, ", "))
	}

	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}

	return nil
}

// ReferenceTime returns the pinned reference date, or now when none is set.
func (c *Config) ReferenceTime(now time.Time) (time.Time, error) {
	if c.Analysis.ReferenceDate == "" {
		return now, nil
	}
	t, err := time.Parse(DateLayout, c.Analysis.ReferenceDate)
	if err != nil {
		return time.Time{}, apperrors.NewConfigError("invalid reference date", err)
	}
	return t, nil
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TestFraction: DefaultTestFraction,
			Seed:         DefaultSeed,
			Estimators:   DefaultEstimators,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/hrcli.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			TraceFile:      "logs/trace.json",
			MetricsFile:    "logs/hrcli.prom",
		},
		Paths: PathsConfig{
			OutputDir: "analysis_results",
			LogsDir:   "logs",
		},
	}
}
