package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// newTestWriter creates a Writer with captured output for testing.
func newTestWriter() (*Writer, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	w := &Writer{
		out:   stdout,
		err:   stderr,
		color: false, // predictable test output
	}
	return w, stdout, stderr
}

func TestNew(t *testing.T) {
	w := New()
	if w == nil {
		t.Fatal("New() returned nil")
	}
	if w.out == nil || w.err == nil {
		t.Error("New() left a nil writer")
	}
	if w.Out() != w.out {
		t.Error("Out() does not return the stdout writer")
	}
}

func TestWriter_SetQuiet(t *testing.T) {
	w, _, _ := newTestWriter()

	w.SetQuiet(true)
	if !w.quiet {
		t.Error("SetQuiet(true) did not set quiet")
	}

	w.SetQuiet(false)
	if w.quiet {
		t.Error("SetQuiet(false) did not unset quiet")
	}
}

func TestWriter_PrintAndErrorln(t *testing.T) {
	w, stdout, stderr := newTestWriter()

	w.Print("hello %s", "world")
	w.Println("!")
	w.Errorln("error %d", 42)

	if got := stdout.String(); got != "hello world!\n" {
		t.Errorf("stdout = %q, want %q", got, "hello world!\n")
	}
	if got := stderr.String(); got != "error 42\n" {
		t.Errorf("stderr = %q, want %q", got, "error 42\n")
	}
}

func TestWriter_Info(t *testing.T) {
	tests := []struct {
		name   string
		quiet  bool
		expect string
	}{
		{"normal mode", false, "info message\n"},
		{"quiet mode", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, stdout, _ := newTestWriter()
			w.quiet = tt.quiet

			w.Info("info %s", "message")

			if got := stdout.String(); got != tt.expect {
				t.Errorf("Info() = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestWriter_Warning(t *testing.T) {
	tests := []struct {
		name   string
		color  bool
		expect string
	}{
		{"without color", false, "warning: caution\n"},
		{"with color", true, "\033[33mwarning:\033[0m caution\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, stderr := newTestWriter()
			w.color = tt.color

			w.Warning("caution")

			if got := stderr.String(); got != tt.expect {
				t.Errorf("Warning() = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestWriter_ErrorPrefix(t *testing.T) {
	w, _, stderr := newTestWriter()

	w.ErrorPrefix("bucket %q not found", "results")

	if got, want := stderr.String(), "docsuite: bucket \"results\" not found\n"; got != want {
		t.Errorf("ErrorPrefix() = %q, want %q", got, want)
	}
}

func TestWriter_Section(t *testing.T) {
	tests := []struct {
		name   string
		quiet  bool
		color  bool
		expect string
	}{
		{"normal without color", false, false, "\n=== Packages ===\n"},
		{"normal with color", false, true, "\n\033[1m\033[36m=== Packages ===\033[0m\n"},
		{"quiet mode", true, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, stdout, _ := newTestWriter()
			w.quiet = tt.quiet
			w.color = tt.color

			w.Section("Packages")

			if got := stdout.String(); got != tt.expect {
				t.Errorf("Section() = %q, want %q", got, tt.expect)
			}
		})
	}
}

func TestWriter_Table(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Table([]string{"Package", "Type"}, [][]string{
		{"aws", "bridged"},
		{"kubernetes", "native"},
	})

	want := "Package     Type\n" +
		"----------  -------\n" +
		"aws         bridged\n" +
		"kubernetes  native\n"
	if got := stdout.String(); got != want {
		t.Errorf("Table() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriter_Table_Empty(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Table([]string{"Name", "Value"}, nil)

	if got, want := stdout.String(), "Name  Value\n----  -----\n"; got != want {
		t.Errorf("Table() with no rows = %q, want %q", got, want)
	}
}

func TestWriter_Table_RowShorterThanHeaders(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.Table([]string{"A", "B", "C"}, [][]string{{"1", "2"}})

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 3 || lines[2] != "1  2" {
		t.Errorf("Table() short row lines = %q", lines)
	}
}

func TestWriter_PackageResult(t *testing.T) {
	tests := []struct {
		name     string
		failed   int
		errMsg   string
		mark     string
		contains []string
	}{
		{"passing", 0, "", "  + ", []string{"aws", "bridged", "3 passed, 0 failed", "1.5s"}},
		{"failing tests", 2, "", "  x ", []string{"2 failed"}},
		{"invocation error", 0, "timed out", "  x ", []string{"(timed out)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, stdout, _ := newTestWriter()

			w.PackageResult("aws", "bridged", 3, tt.failed, 1500*time.Millisecond, tt.errMsg)

			got := stdout.String()
			if !strings.HasPrefix(got, tt.mark) || !strings.HasSuffix(got, "\n") {
				t.Errorf("PackageResult() = %q, want prefix %q", got, tt.mark)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("PackageResult() = %q, missing %q", got, s)
				}
			}
		})
	}
}

func TestWriter_Summary(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.SummaryHeader("Summary")
	w.SummaryItem("Tests", "30")
	w.SummaryPassed("Passed", "27")
	w.SummaryFailed("Failed", "3")
	w.FinalFailure("%d packages failed", 1)

	want := "\n=== Summary ===\n\n  Tests: 30\n  Passed: 27\n  Failed: 3\n\n1 packages failed\n"
	if got := stdout.String(); got != want {
		t.Errorf("summary output = %q, want %q", got, want)
	}
}

func TestWriter_DryRun(t *testing.T) {
	w, stdout, _ := newTestWriter()

	w.DryRun("would upload %s", "2024/03/07/results.json")

	if got, want := stdout.String(), "[dry run] would upload 2024/03/07/results.json\n"; got != want {
		t.Errorf("DryRun() = %q, want %q", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-time.Second, "0s"},
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{3*time.Minute + 4600*time.Millisecond, "3m5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
