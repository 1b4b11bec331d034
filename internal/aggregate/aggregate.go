// Package aggregate merges per-package test reports into the cross-package
// results document.
package aggregate

import (
	"strings"

	"github.com/AndreyAkinshin/docsuite/internal/ctrf"
	"github.com/AndreyAkinshin/docsuite/internal/packages"
)

// reasonSeparator joins the descriptions of failures on the same page.
const reasonSeparator = " | "

// PageFailure summarizes the failing tests of one page within one package run.
type PageFailure struct {
	Page     string `json:"page"`
	Failures int    `json:"failures"`
	Reason   string `json:"reason"`
	// Tests is the number of test cases in the run that target this page,
	// passed or not.
	Tests   int               `json:"tests"`
	Package string            `json:"package"`
	Type    packages.Category `json:"type"`
}

// Aggregate is the running total over all package runs of a batch.
//
// Counters and the failed page list accumulate across runs. Start, End and
// Duration are overwritten by every Add, so after a batch they describe the
// last run that was added, not the span of the whole batch.
//
// An Aggregate is not safe for concurrent use.
type Aggregate struct {
	Tests           int           `json:"tests"`
	Passes          int           `json:"passes"`
	Failures        int           `json:"failures"`
	Start           int64         `json:"start"`
	End             int64         `json:"end"`
	Duration        int64         `json:"duration"`
	FailedPages     []PageFailure `json:"failedPages"`
	FailedPageCount int           `json:"failedPageCount"`
	TotalPageCount  int           `json:"totalPageCount"`
	RunURL          string        `json:"ghRunURL"`

	runs int
}

// New returns an empty aggregate tagged with the CI run URL.
func New(runURL string) *Aggregate {
	return &Aggregate{
		FailedPages: []PageFailure{},
		RunURL:      runURL,
	}
}

// Runs returns the number of package runs added so far.
func (a *Aggregate) Runs() int {
	return a.runs
}

// Add merges one package's report into the aggregate.
func (a *Aggregate) Add(r *ctrf.Report, pkg string, category packages.Category) {
	summary := r.Results.Summary
	a.Tests += summary.Tests
	a.Passes += summary.Passed
	a.Failures += summary.Failed
	a.Start = summary.Start
	a.End = summary.Stop
	a.Duration = r.Duration()

	pages := GroupFailures(r, pkg, category)
	a.FailedPages = append(a.FailedPages, pages...)
	a.FailedPageCount += len(pages)
	a.TotalPageCount += UniqueTestNames(r)
	a.runs++
}

// GroupFailures returns one PageFailure per page with at least one failing
// test, in order of the page's first failing test.
func GroupFailures(r *ctrf.Report, pkg string, category packages.Category) []PageFailure {
	testsPerPage := make(map[string]int)
	for _, tc := range r.Results.Tests {
		testsPerPage[ExtractFailure(tc.Name).URL]++
	}

	type group struct {
		count        int
		descriptions []string
	}
	var order []string
	groups := make(map[string]*group)
	for _, tc := range r.Failing() {
		f := ExtractFailure(tc.Name)
		g, ok := groups[f.URL]
		if !ok {
			g = &group{}
			groups[f.URL] = g
			order = append(order, f.URL)
		}
		g.count++
		g.descriptions = append(g.descriptions, f.Description)
	}

	pages := make([]PageFailure, 0, len(order))
	for _, url := range order {
		g := groups[url]
		pages = append(pages, PageFailure{
			Page:     url,
			Failures: g.count,
			Reason:   strings.Join(g.descriptions, reasonSeparator),
			Tests:    testsPerPage[url],
			Package:  pkg,
			Type:     category,
		})
	}
	return pages
}

// UniqueTestNames returns the number of distinct test names in the report.
func UniqueTestNames(r *ctrf.Report) int {
	seen := make(map[string]struct{}, len(r.Results.Tests))
	for _, tc := range r.Results.Tests {
		seen[tc.Name] = struct{}{}
	}
	return len(seen)
}
