package config

// Application constants
const (
	AppName    = "hrcli"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces environment variables, e.g. HRA_LOGGING_LEVEL.
	EnvPrefix = "HRA"

	// DateLayout is the only accepted date format for input cells and flags.
	DateLayout = "2006-01-02"

	DefaultTestFraction = 0.2
	DefaultSeed         = 42
	DefaultEstimators   = 100
)

// Report artifact file names inside the output directory
const (
	ResultsFileName      = "results.json"
	ReportFileName       = "report.html"
	FeaturesCSVFileName  = "features.csv"
	FeaturesXLSXFileName = "features.xlsx"
)
