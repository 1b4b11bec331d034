// Package invoke runs the per-package documentation test command.
package invoke

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
)

// Environment variables exported to the test command.
const (
	EnvPackage    = "DOCSUITE_PACKAGE"
	EnvReportDir  = "DOCSUITE_REPORT_DIR"
	EnvReportPath = "DOCSUITE_REPORT_PATH"
)

// Placeholder is replaced by the package name in every command argument.
const Placeholder = "{pkg}"

// waitDelay bounds how long Run waits for output pipes after the command
// is killed, in case grandchildren keep them open.
const waitDelay = 10 * time.Second

// Invoker runs a test command once per package. Each run gets a private
// report directory under ReportRoot, so runs may proceed concurrently
// unless SharedReport is set.
type Invoker struct {
	// Command is the argv template; Command[0] is the program.
	Command []string
	// Dir is the working directory of the command.
	Dir string
	// ReportRoot holds one report directory per package.
	ReportRoot string
	// ReportFile is the report file name inside a package's report directory.
	ReportFile string
	// SharedReport is a fixed report path relative to Dir that the command
	// writes regardless of EnvReportDir. When set, the report is moved into
	// the package's directory after the run and callers must not run two
	// invocations at once.
	SharedReport string
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
	// Stream, when non-nil, also receives the command's stdout.
	Stream io.Writer

	Logger *zap.Logger
}

// Result is the outcome of one run. The test outcome is read from the
// report at ReportPath; Stdout, Stderr and Err describe the invocation.
type Result struct {
	Package    string
	ReportPath string
	Stdout     string
	Stderr     string
	// ExitCode is the command's exit status. A nonzero status means tests
	// failed and is not an invocation error on its own.
	ExitCode int
	Duration time.Duration
	// Err is set when the command could not be started, timed out, or its
	// report could not be collected.
	Err error
}

// Diagnostic returns the invocation error for the run, or nil when the
// command ran to completion without writing to stderr.
func (r Result) Diagnostic() error {
	if r.Err != nil {
		return docerrors.Invocation(r.Package, "test command did not complete", r.Err)
	}
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return docerrors.Invocation(r.Package, "test command wrote to stderr: "+firstLine(msg), nil)
	}
	return nil
}

// Args returns the command line for pkg.
func (inv *Invoker) Args(pkg string) []string {
	args := make([]string, len(inv.Command))
	for i, a := range inv.Command {
		args[i] = strings.ReplaceAll(a, Placeholder, pkg)
	}
	return args
}

// ReportDir returns the private report directory of pkg.
func (inv *Invoker) ReportDir(pkg string) string {
	return filepath.Join(inv.ReportRoot, dirName(pkg))
}

// Run executes the test command for pkg and waits for it to finish.
func (inv *Invoker) Run(ctx context.Context, pkg string) Result {
	logger := inv.logger().With(zap.String("package", pkg))
	res := Result{Package: pkg}

	if len(inv.Command) == 0 {
		res.Err = stderrors.New("no test command configured")
		return res
	}

	reportDir := inv.ReportDir(pkg)
	res.ReportPath = filepath.Join(reportDir, inv.ReportFile)
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		res.Err = fmt.Errorf("create report directory: %w", err)
		return res
	}
	if err := removeIfExists(res.ReportPath); err != nil {
		res.Err = err
		return res
	}
	if inv.SharedReport != "" {
		if err := removeIfExists(inv.sharedReportPath()); err != nil {
			res.Err = err
			return res
		}
	}

	if inv.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.Timeout)
		defer cancel()
	}

	args := inv.Args(pkg)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(),
		EnvPackage+"="+pkg,
		EnvReportDir+"="+reportDir,
		EnvReportPath+"="+res.ReportPath,
	)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if inv.Stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, inv.Stream)
	}
	cmd.Stderr = &stderr

	logger.Debug("running test command", zap.Strings("args", args), zap.String("report", res.ReportPath))

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("test command aborted after %s: %w", res.Duration.Round(time.Millisecond), ctx.Err())
	case stderrors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.Err = err
	}

	if res.Err == nil && inv.SharedReport != "" {
		if err := moveFile(inv.sharedReportPath(), res.ReportPath); err != nil {
			res.Err = fmt.Errorf("collect shared report: %w", err)
		}
	}

	logger.Debug("test command finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Int("stderr_bytes", len(res.Stderr)),
		zap.Error(res.Err),
	)
	return res
}

func (inv *Invoker) sharedReportPath() string {
	return filepath.Join(inv.Dir, inv.SharedReport)
}

func (inv *Invoker) logger() *zap.Logger {
	if inv.Logger == nil {
		return zap.NewNop()
	}
	return inv.Logger
}

// dirName maps a package name to a single safe path element. Unsafe bytes
// are percent-encoded, so distinct names never share a directory.
func dirName(pkg string) string {
	switch pkg {
	case "":
		return "%"
	case ".", "..":
		return strings.Repeat("%2E", len(pkg))
	}
	var b strings.Builder
	for i := 0; i < len(pkg); i++ {
		c := pkg[i]
		if isSafeDirByte(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isSafeDirByte(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '.' || c == '_' || c == '-'
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale report: %w", err)
	}
	return nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}
