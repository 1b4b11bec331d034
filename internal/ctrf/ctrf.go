// Package ctrf reads the Common Test Report Format JSON files written by the
// documentation test runner.
package ctrf

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/schema"
)

// StatusPassed is the only status counted as a pass. Every other status
// (failed, skipped, pending, other) is treated as a failure.
const StatusPassed = "passed"

// Report is a parsed CTRF report.
type Report struct {
	Results Results `json:"results"`
}

// Results holds the summary and the per-test records of a report.
type Results struct {
	Tool    *Tool      `json:"tool,omitempty"`
	Summary Summary    `json:"summary"`
	Tests   []TestCase `json:"tests"`
}

// Tool identifies the test framework that produced the report.
type Tool struct {
	Name string `json:"name"`
}

// Summary holds the aggregate counters of a run. Start and Stop are Unix
// timestamps in milliseconds.
type Summary struct {
	Tests   int   `json:"tests"`
	Passed  int   `json:"passed"`
	Failed  int   `json:"failed"`
	Pending int   `json:"pending,omitempty"`
	Skipped int   `json:"skipped,omitempty"`
	Other   int   `json:"other,omitempty"`
	Start   int64 `json:"start"`
	Stop    int64 `json:"stop"`
}

// TestCase is a single test outcome. Name is an absolute page URL followed
// by a free-text description of the check.
type TestCase struct {
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Passed reports whether the test case passed.
func (tc TestCase) Passed() bool {
	return tc.Status == StatusPassed
}

// Duration returns the wall time of the run in milliseconds.
func (r *Report) Duration() int64 {
	return r.Results.Summary.Stop - r.Results.Summary.Start
}

// StartTime returns the run start as a time.Time.
func (r *Report) StartTime() time.Time {
	return time.UnixMilli(r.Results.Summary.Start)
}

// Failing returns the test cases whose status is not passed, in report order.
func (r *Report) Failing() []TestCase {
	var failing []TestCase
	for _, tc := range r.Results.Tests {
		if !tc.Passed() {
			failing = append(failing, tc)
		}
	}
	return failing
}

// Parse validates data against the CTRF report schema and decodes it.
func Parse(data []byte) (*Report, error) {
	if err := schema.ValidateReport(data); err != nil {
		return nil, docerrors.Parse(err, "invalid test report")
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, docerrors.Parse(err, "decode test report")
	}
	return &r, nil
}

// ReadFile reads and parses the report at path.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docerrors.IO(err, "read test report %s", path)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
