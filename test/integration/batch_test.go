// Package integration runs the docsuite batch end to end against the
// fixture registry, with a real test command and a fake object store.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"

	"github.com/AndreyAkinshin/docsuite/internal/aggregate"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/invoke"
	"github.com/AndreyAkinshin/docsuite/internal/packages"
	"github.com/AndreyAkinshin/docsuite/internal/publish"
	"github.com/AndreyAkinshin/docsuite/internal/runner"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

// bucket records PutObject calls.
type bucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (b *bucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
		b.types = make(map[string]string)
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	b.objects[key] = body
	b.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

// copyReport is a test command that copies reports/{pkg}.json to the report
// path of the invocation.
var copyReport = []string{"sh", "-c", `cat "$0" > "$` + invoke.EnvReportPath + `"`, "reports/" + invoke.Placeholder + ".json"}

func newBatch(t *testing.T, store *bucket, parallel int, command []string) (*runner.Batch, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	out := filepath.Join(t.TempDir(), "results.json")
	return &runner.Batch{
		Invoker: &invoke.Invoker{
			Command:    command,
			Dir:        fixturesDir(),
			ReportRoot: t.TempDir(),
			ReportFile: "ctrf-report.json",
			Timeout:    time.Minute,
			Logger:     logger,
		},
		Publisher: &publish.Publisher{
			Uploader:   store,
			Bucket:     "docs-results",
			OutputPath: out,
			Location:   time.UTC,
			Logger:     logger,
		},
		Parallel: parallel,
		RunURL:   "https://github.com/pulumi/docs/actions/runs/7/attempts/1",
		Logger:   logger,
	}, out
}

func loadRegistry(t *testing.T) []packages.Descriptor {
	t.Helper()
	descs, err := packages.List(filepath.Join(fixturesDir(), "registry"))
	if err != nil {
		t.Fatalf("packages.List() error = %v", err)
	}
	return descs
}

func TestBatch_FixtureRegistry(t *testing.T) {
	t.Parallel()
	store := &bucket{}
	batch, out := newBatch(t, store, 3, copyReport)

	outcome, err := batch.Run(context.Background(), loadRegistry(t))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	const page = "https://www.pulumi.com/registry/packages/"
	want := &aggregate.Aggregate{
		Tests:    10,
		Passes:   6,
		Failures: 4,
		Start:    1709802110000,
		End:      1709802125000,
		Duration: 15000,
		FailedPages: []aggregate.PageFailure{
			{
				Page:     page + "aws-native/api-docs/s3/bucket/",
				Failures: 2,
				Reason:   "has no broken links | renders the example tabs",
				Tests:    2,
				Package:  "aws-native",
				Type:     packages.Native,
			},
			{
				Page:     aggregate.UnmatchedPage,
				Failures: 1,
				Reason:   "setup hook failed",
				Tests:    1,
				Package:  "aws-native",
				Type:     packages.Native,
			},
			{
				Page:     page + "aws/api-docs/s3/bucket/",
				Failures: 1,
				Reason:   "has no broken links",
				Tests:    2,
				Package:  "aws",
				Type:     packages.Bridged,
			},
		},
		FailedPageCount: 3,
		TotalPageCount:  10,
		RunURL:          "https://github.com/pulumi/docs/actions/runs/7/attempts/1",
	}
	if diff := cmp.Diff(want, outcome.Aggregate, cmpopts.IgnoreUnexported(aggregate.Aggregate{})); diff != "" {
		t.Errorf("aggregate mismatch (-want +got):\n%s", diff)
	}

	const key = "docs-results/2024/03/07/results.json"
	uploaded, ok := store.objects[key]
	if !ok {
		t.Fatalf("no object at %s; have %v", key, store.objects)
	}
	if store.types[key] != "application/json" {
		t.Errorf("content type = %q", store.types[key])
	}

	local, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read local artifact: %v", err)
	}
	if string(local) != string(uploaded) {
		t.Error("local artifact and uploaded object differ")
	}

	var decoded map[string]any
	if err := json.Unmarshal(uploaded, &decoded); err != nil {
		t.Fatalf("uploaded object is not JSON: %v", err)
	}
	for _, field := range []string{"tests", "passes", "failures", "start", "end", "duration", "failedPages", "failedPageCount", "totalPageCount", "ghRunURL"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("uploaded object missing field %q", field)
		}
	}
}

func TestBatch_ParallelismDoesNotChangeResult(t *testing.T) {
	t.Parallel()
	descs := loadRegistry(t)

	var results [][]byte
	for _, parallel := range []int{1, 3} {
		store := &bucket{}
		batch, out := newBatch(t, store, parallel, copyReport)
		if _, err := batch.Run(context.Background(), descs); err != nil {
			t.Fatalf("Run(parallel=%d) error = %v", parallel, err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, data)
	}
	if string(results[0]) != string(results[1]) {
		t.Errorf("results differ between sequential and parallel runs:\n%s\n%s", results[0], results[1])
	}
}

func TestBatch_StderrDiagnostic(t *testing.T) {
	t.Parallel()
	store := &bucket{}
	command := []string{"sh", "-c", `cat "$0" > "$` + invoke.EnvReportPath + `"; echo "browser crashed" >&2; exit 3`, "reports/" + invoke.Placeholder + ".json"}
	batch, _ := newBatch(t, store, 2, command)

	outcome, err := batch.Run(context.Background(), loadRegistry(t))
	if err == nil {
		t.Fatal("Run() error = nil, want invocation errors")
	}
	if got := docerrors.GetExitCode(err); got != docerrors.ExitRuntimeError {
		t.Errorf("exit code = %d, want %d", got, docerrors.ExitRuntimeError)
	}
	// Reports are still aggregated and published.
	if outcome.Aggregate.Tests != 10 {
		t.Errorf("Tests = %d, want 10", outcome.Aggregate.Tests)
	}
	if len(store.objects) != 1 {
		t.Errorf("uploaded %d objects, want 1", len(store.objects))
	}
	for _, r := range outcome.Runs {
		if r.Result.ExitCode != 3 {
			t.Errorf("%s exit code = %d, want 3", r.Package.Name, r.Result.ExitCode)
		}
	}
}

func TestBatch_Timeout(t *testing.T) {
	t.Parallel()
	store := &bucket{}
	batch, _ := newBatch(t, store, 3, []string{"sleep", "30"})
	batch.Invoker.(*invoke.Invoker).Timeout = 100 * time.Millisecond

	outcome, err := batch.Run(context.Background(), loadRegistry(t))
	if !docerrors.IsKind(err, docerrors.KindInvocation) {
		t.Fatalf("Run() error = %v, want invocation kind", err)
	}
	if len(outcome.Failed()) != 3 {
		t.Errorf("len(Failed()) = %d, want 3", len(outcome.Failed()))
	}
	if outcome.Aggregate.Runs() != 0 {
		t.Errorf("aggregated %d runs, want 0", outcome.Aggregate.Runs())
	}
	// An empty aggregate is still published.
	if len(store.objects) != 1 {
		t.Errorf("uploaded %d objects, want 1", len(store.objects))
	}
}
