// Package config provides configuration loading for hrcli.
//
// Configuration is assembled in this order, later sources winning:
//
//  1. Default values (Default)
//  2. Environment variables with the HRA_ prefix, for the logging, telemetry
//     and paths sections only
//  3. An optional YAML file passed with -config
//  4. Command line flags, applied by the caller
//
// Environment variables:
//
//	HRA_LOGGING_LEVEL=debug
//	HRA_LOGGING_OUTPUT=both
//	HRA_TELEMETRY_TRACE_EXPORTER=file
//	HRA_TELEMETRY_METRIC_EXPORTER=textfile
//	HRA_PATHS_OUTPUT_DIR=analysis_results
//
// The analysis section (test fraction, seed, estimators, reference date) is
// never read from the environment.
//
// Example file:
//
//	analysis:
//	  test_fraction: 0.2
//	  seed: 42
//	  estimators: 100
//	  reference_date: "2024-12-31"
//	logging:
//	  level: info
//	  output: both
//	paths:
//	  output_dir: analysis_results
package config
