// Package runner drives a batch: run every package's tests, aggregate the
// reports and publish the results.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AndreyAkinshin/docsuite/internal/aggregate"
	"github.com/AndreyAkinshin/docsuite/internal/ctrf"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/invoke"
	"github.com/AndreyAkinshin/docsuite/internal/packages"
)

const (
	minParallelWorkers = 1
	maxParallelWorkers = 256
)

// Invoker runs the tests of one package. *invoke.Invoker implements it.
type Invoker interface {
	Run(ctx context.Context, pkg string) invoke.Result
}

// Publisher stores the final aggregate. *publish.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, agg *aggregate.Aggregate, start time.Time) (string, error)
}

// Batch runs the test command for a set of packages and publishes the
// aggregate of their reports.
type Batch struct {
	Invoker   Invoker
	Publisher Publisher
	// Parallel bounds the number of concurrent invocations.
	Parallel int
	RunURL   string
	Logger   *zap.Logger

	// now is overridden in tests.
	now func() time.Time
}

// PackageRun is the outcome of one package in a batch.
type PackageRun struct {
	Package  packages.Descriptor
	Category packages.Category
	Result   invoke.Result
	// Report is nil when the invocation did not complete or its report
	// could not be read.
	Report *ctrf.Report
	Err    error
}

// Outcome is the result of a whole batch.
type Outcome struct {
	Aggregate *aggregate.Aggregate
	Runs      []PackageRun
	// Key is the object key the aggregate was published under, empty if
	// publishing failed.
	Key string
}

// Failed returns the package runs that reported an error.
func (o *Outcome) Failed() []PackageRun {
	var failed []PackageRun
	for _, r := range o.Runs {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Run invokes every package, waits for all invocations, aggregates the
// reports in descriptor order and publishes the aggregate. Invocation
// failures do not stop the batch; they are joined into the returned error
// together with any publish failure. The outcome is always non-nil.
func (b *Batch) Run(ctx context.Context, descs []packages.Descriptor) (*Outcome, error) {
	logger := b.logger()
	began := b.clock()

	results := b.invokeAll(ctx, descs)

	outcome := &Outcome{
		Aggregate: aggregate.New(b.RunURL),
		Runs:      make([]PackageRun, len(descs)),
	}

	var errs []error
	for i, d := range descs {
		run := b.collect(d, results[i])
		outcome.Runs[i] = run
		if run.Report != nil {
			outcome.Aggregate.Add(run.Report, d.Name, run.Category)
		}
		if run.Err != nil {
			logger.Error("package run failed", zap.String("package", d.Name), zap.Error(run.Err))
			errs = append(errs, run.Err)
		}
	}

	start := began
	if outcome.Aggregate.Runs() > 0 {
		start = time.UnixMilli(outcome.Aggregate.Start)
	}

	key, err := b.Publisher.Publish(ctx, outcome.Aggregate, start)
	if err != nil {
		logger.Error("publish failed", zap.Error(err))
		errs = append(errs, err)
	} else {
		outcome.Key = key
	}

	return outcome, combineErrors(errs)
}

// invokeAll runs the invocations with bounded parallelism and returns the
// results indexed like descs once every invocation has finished.
func (b *Batch) invokeAll(ctx context.Context, descs []packages.Descriptor) []invoke.Result {
	results := make([]invoke.Result, len(descs))

	var g errgroup.Group
	g.SetLimit(b.workers())
	for i, d := range descs {
		g.Go(func() error {
			b.logger().Info("running package tests", zap.String("package", d.Name))
			results[i] = b.Invoker.Run(ctx, d.Name)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// collect reads the report of a finished invocation. The report is read
// even when the command wrote to stderr, matching how CI treats such runs:
// the results count, but the batch fails.
func (b *Batch) collect(d packages.Descriptor, res invoke.Result) PackageRun {
	run := PackageRun{
		Package:  d,
		Category: packages.Classify(d),
		Result:   res,
	}
	diag := res.Diagnostic()
	if res.Err != nil {
		run.Err = diag
		return run
	}

	report, err := ctrf.ReadFile(res.ReportPath)
	if err != nil {
		run.Err = combineErrors(compact(diag, docerrors.Invocation(d.Name, "collect test report", err)))
		return run
	}
	run.Report = report
	run.Err = diag

	s := report.Results.Summary
	b.logger().Info("package tests finished",
		zap.String("package", d.Name),
		zap.String("type", run.Category.String()),
		zap.Int("tests", s.Tests),
		zap.Int("passed", s.Passed),
		zap.Int("failed", s.Failed),
		zap.Duration("elapsed", res.Duration),
	)
	return run
}

func (b *Batch) workers() int {
	if b.Parallel < minParallelWorkers {
		return minParallelWorkers
	}
	return min(b.Parallel, maxParallelWorkers)
}

func (b *Batch) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *Batch) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

func compact(errs ...error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
