package config

import "time"

// Config holds all runtime configuration
type Config struct {
	// Event store settings
	ClickHouseDSN string
	QueryTimeout  time.Duration
	BatchSize     int
	MaxRows       int

	// Score/analytics store settings
	DBPath string

	// Concurrency settings
	Concurrency int

	// Output settings
	OutputDir string
	Format    string

	// Analysis settings
	AnomalyDetection bool
	ExcludeProducts  []string
	BaselinePath     string
	UpdateBaseline   bool

	// Server settings
	ServerPort      int
	IngestRateLimit int
	RecalcSchedule  string

	// Operational flags
	Verbose bool
	DryRun  bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		QueryTimeout:     5 * time.Minute,
		BatchSize:        100000,
		MaxRows:          1000000,
		DBPath:           "./shopsignal.db",
		Concurrency:      5,
		OutputDir:        "./report",
		Format:           "json",
		AnomalyDetection: true,
		ServerPort:       8080,
		IngestRateLimit:  50,
		Verbose:          false,
		DryRun:           false,
	}
}
