package config

import (
	"runtime"
	"time"
)

// Default configuration values.
const (
	DefaultPackagesDir = "./themes/default/data/registry/packages/"
	DefaultReportFile  = "ctrf-report.json"
	DefaultTimeout     = 30 * time.Minute
	DefaultOutput      = "results.json"
	DefaultLocation    = "UTC"
	DefaultBucket      = "pulumi-api-docs-e2e-test-results-prodution"

	// PackagePlaceholder is replaced by the package name in Command.
	PackagePlaceholder = "{pkg}"

	MinParallel = 1
	MaxParallel = 256
)

// DefaultCommand runs the documentation browser tests for one package.
func DefaultCommand() []string {
	return []string{"npm", "run", "test-api-docs", "--", "--pkg=" + PackagePlaceholder}
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.PackagesDir == "" {
		cfg.PackagesDir = DefaultPackagesDir
	}
	if len(cfg.Command) == 0 {
		cfg.Command = DefaultCommand()
	}
	if cfg.ReportFile == "" {
		cfg.ReportFile = DefaultReportFile
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = defaultParallel()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = DefaultBucket
	}
}

// defaultParallel returns the CPU count, capped to the valid range.
func defaultParallel() int {
	return min(MaxParallel, max(MinParallel, runtime.NumCPU()))
}
