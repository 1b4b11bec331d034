package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/docsuite/internal/config"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/invoke"
	"github.com/AndreyAkinshin/docsuite/internal/output"
	"github.com/AndreyAkinshin/docsuite/internal/packages"
	"github.com/AndreyAkinshin/docsuite/internal/publish"
	"github.com/AndreyAkinshin/docsuite/internal/runner"
)

// runFlags are the batch overrides; only flags set on the command line
// replace config values.
type runFlags struct {
	packages    []string
	packagesDir string
	limit       int
	parallel    int
	timeout     time.Duration
	output      string
	bucket      string
	dryRun      bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the docs tests of every package and publish results.json",
		Long: `Run lists the package descriptors, runs the test command once per package,
aggregates the CTRF reports into results.json and uploads it to
s3://<bucket>/YYYY/MM/DD/results.json.

The exit status is 1 when any package could not be tested or the upload
failed. Failing tests alone do not fail the batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			return a.runBatch(cmd, cfg, f.dryRun)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&f.packages, "pkg", "p", nil, "Only run this package (repeatable)")
	flags.StringVar(&f.packagesDir, "packages-dir", "", "Directory of package descriptor YAML files")
	flags.IntVarP(&f.limit, "limit", "n", 0, "Run at most this many packages")
	flags.IntVarP(&f.parallel, "parallel", "j", 0, "Concurrent test invocations")
	flags.DurationVar(&f.timeout, "timeout", 0, "Timeout per package invocation")
	flags.StringVarP(&f.output, "output", "o", "", "Local path of the results artifact")
	flags.StringVar(&f.bucket, "bucket", "", "S3 bucket to upload results to")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Write results.json but skip the upload")
	return cmd
}

// apply overlays the flags set on cmd and revalidates cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("pkg") {
		cfg.Packages = f.packages
	}
	if changed("packages-dir") {
		cfg.PackagesDir = f.packagesDir
	}
	if changed("limit") {
		cfg.Limit = f.limit
	}
	if changed("parallel") {
		cfg.Parallel = f.parallel
	}
	if changed("timeout") {
		cfg.Timeout = config.Duration(f.timeout)
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("bucket") {
		cfg.Storage.Bucket = f.bucket
	}
	if err := config.Validate(cfg); err != nil {
		return docerrors.Config(err.Error())
	}
	return nil
}

func (a *app) runBatch(cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	ctx := cmd.Context()

	descs, err := selectPackages(cfg)
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		a.out.Warning("no packages selected in %s", cfg.PackagesDir)
	}

	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return docerrors.Configf("location %q: %v", cfg.Location, err)
	}

	reportRoot, err := os.MkdirTemp("", "docsuite-reports-")
	if err != nil {
		return docerrors.IO(err, "create report directory")
	}
	defer func() { _ = os.RemoveAll(reportRoot) }()

	inv := &invoke.Invoker{
		Command:      cfg.Command,
		Dir:          cfg.WorkDir,
		ReportRoot:   reportRoot,
		ReportFile:   cfg.ReportFile,
		SharedReport: cfg.SharedReport,
		Timeout:      cfg.Timeout.Std(),
		Logger:       a.logger,
	}
	if a.opts.Verbose {
		inv.Stream = a.out.Out()
	}

	parallel := cfg.Parallel
	if cfg.SharedReport != "" && parallel > 1 {
		a.logger.Warn("shared report path forces sequential runs",
			zap.String("shared_report", cfg.SharedReport), zap.Int("parallel", parallel))
		parallel = 1
	}

	pub := &publish.Publisher{
		Bucket:     cfg.Storage.Bucket,
		OutputPath: cfg.Output,
		Location:   loc,
		DryRun:     dryRun,
		Logger:     a.logger,
	}
	if !dryRun {
		client, err := publish.NewS3Client(ctx, publish.S3Options{
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			PathStyle: cfg.Storage.PathStyle,
		})
		if err != nil {
			return docerrors.Storage(err, "configure s3 client")
		}
		pub.Uploader = client
	}

	batch := &runner.Batch{
		Invoker:   inv,
		Publisher: pub,
		Parallel:  parallel,
		RunURL:    cfg.GitHub.RunURL(),
		Logger:    a.logger,
	}

	a.out.Info("Running docs tests for %d packages (parallel %d)", len(descs), parallel)
	outcome, err := batch.Run(ctx, descs)
	printOutcome(a.out, outcome, cfg, dryRun)
	return err
}

// selectPackages lists the descriptors and narrows them to the configured
// packages and limit. Unknown package names are a config error.
func selectPackages(cfg *config.Config) ([]packages.Descriptor, error) {
	descs, err := packages.List(cfg.PackagesDir)
	if err != nil {
		return nil, err
	}
	if len(cfg.Packages) > 0 {
		var unknown []string
		descs, unknown = packages.Filter(descs, cfg.Packages)
		if len(unknown) > 0 {
			return nil, docerrors.Configf("unknown packages: %s", strings.Join(unknown, ", "))
		}
	}
	return packages.Limit(descs, cfg.Limit), nil
}

func printOutcome(w *output.Writer, o *runner.Outcome, cfg *config.Config, dryRun bool) {
	if o == nil {
		return
	}
	agg := o.Aggregate
	if !w.Quiet() {
		printDetails(w, o, cfg, dryRun)
	}

	if failed := o.Failed(); len(failed) > 0 {
		w.FinalFailure("%d of %d packages could not be tested.", len(failed), len(o.Runs))
		return
	}
	if o.Key == "" {
		w.FinalFailure("Results were not published.")
		return
	}
	w.FinalSuccess("All %d packages tested, %d of %d tests passed.", len(o.Runs), agg.Passes, agg.Tests)
}

func printDetails(w *output.Writer, o *runner.Outcome, cfg *config.Config, dryRun bool) {
	agg := o.Aggregate

	w.Section("Packages")
	for _, r := range o.Runs {
		passed, failed := 0, 0
		if r.Report != nil {
			passed = r.Report.Results.Summary.Passed
			failed = r.Report.Results.Summary.Failed
		}
		errMsg := ""
		if r.Err != nil {
			errMsg = firstLine(r.Err.Error())
		}
		w.PackageResult(r.Package.Name, r.Category.String(), passed, failed, r.Result.Duration, errMsg)
	}

	if len(agg.FailedPages) > 0 {
		w.Section("Failed pages")
		rows := make([][]string, len(agg.FailedPages))
		for i, p := range agg.FailedPages {
			rows[i] = []string{p.Package, p.Type.Title(), p.Page, fmt.Sprintf("%d/%d", p.Failures, p.Tests)}
		}
		w.Table([]string{"Package", "Type", "Page", "Failed"}, rows)
	}

	w.SummaryHeader("Summary")
	w.SummaryItem("Packages", fmt.Sprintf("%d", len(o.Runs)))
	w.SummaryItem("Tests", fmt.Sprintf("%d", agg.Tests))
	w.SummaryPassed("Passed", fmt.Sprintf("%d", agg.Passes))
	if agg.Failures > 0 {
		w.SummaryFailed("Failed", fmt.Sprintf("%d", agg.Failures))
	}
	w.SummaryItem("Failed pages", fmt.Sprintf("%d of %d", agg.FailedPageCount, agg.TotalPageCount))
	if agg.RunURL != "" {
		w.SummaryItem("Run", agg.RunURL)
	}
	if o.Key != "" {
		if dryRun {
			w.DryRun("wrote %s, skipped upload to s3://%s/%s", cfg.Output, cfg.Storage.Bucket, o.Key)
		} else {
			w.SummaryItem("Uploaded", fmt.Sprintf("s3://%s/%s", cfg.Storage.Bucket, o.Key))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
