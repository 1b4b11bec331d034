package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration with defaults applied.
func Validate(cfg *Config) error {
	if cfg.Parallel < MinParallel || cfg.Parallel > MaxParallel {
		return &ValidationError{
			Field:   "parallel",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinParallel, MaxParallel, cfg.Parallel),
		}
	}
	if cfg.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Message: "must be positive"}
	}
	if cfg.Limit < 0 {
		return &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return &ValidationError{Field: "command", Message: "is required"}
	}
	if filepath.IsAbs(cfg.ReportFile) || filepath.Base(cfg.ReportFile) != cfg.ReportFile {
		return &ValidationError{Field: "report_file", Message: "must be a bare file name"}
	}
	if _, err := time.LoadLocation(cfg.Location); err != nil {
		return &ValidationError{Field: "location", Message: err.Error()}
	}
	if len(cfg.Storage.Bucket) < 3 {
		return &ValidationError{Field: "storage.bucket", Message: "must be at least 3 characters"}
	}
	return nil
}
