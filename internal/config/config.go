// Package config loads docsuite settings from an optional JSON file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the config file, DOCSUITE_*
// environment variables, command-line flags (applied by the caller).
package config

import (
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // time zones for Location on minimal CI images

	"github.com/caarlos0/env/v11"

	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/schema"
)

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "docsuite.json"

// Config holds the settings of one batch.
type Config struct {
	// PackagesDir is the directory of package descriptor YAML files.
	PackagesDir string   `json:"packages_dir" env:"DOCSUITE_PACKAGES_DIR"`
	Packages    []string `json:"packages" env:"DOCSUITE_PACKAGES"`
	Limit       int      `json:"limit" env:"DOCSUITE_LIMIT"`

	// Command is the test command template. "{pkg}" in any argument is
	// replaced by the package name.
	Command []string `json:"command" env:"DOCSUITE_COMMAND" envSeparator:" "`
	WorkDir string   `json:"work_dir" env:"DOCSUITE_WORK_DIR"`

	// ReportFile is the report file name inside each invocation's private
	// report directory.
	ReportFile string `json:"report_file" env:"DOCSUITE_REPORT_FILE"`

	// SharedReport, when set, is a fixed report path (relative to WorkDir)
	// that the test command always writes to. Invocations are then run one
	// at a time and the report is moved to the private directory after each.
	SharedReport string `json:"shared_report" env:"DOCSUITE_SHARED_REPORT"`

	Parallel int      `json:"parallel" env:"DOCSUITE_PARALLEL"`
	Timeout  Duration `json:"timeout" env:"DOCSUITE_TIMEOUT"`

	// Output is the local path of the results artifact.
	Output string `json:"output" env:"DOCSUITE_OUTPUT"`

	// Location is the time zone used to derive the upload date prefix.
	Location string `json:"location" env:"DOCSUITE_LOCATION"`

	Storage StorageConfig `json:"storage"`
	GitHub  GitHubContext `json:"-"`
}

// StorageConfig configures the object store the results are uploaded to.
type StorageConfig struct {
	Bucket    string `json:"bucket" env:"DOCSUITE_BUCKET"`
	Region    string `json:"region" env:"DOCSUITE_S3_REGION"`
	Endpoint  string `json:"endpoint" env:"DOCSUITE_S3_ENDPOINT"`
	PathStyle bool   `json:"path_style" env:"DOCSUITE_S3_PATH_STYLE"`
}

// GitHubContext is the GitHub Actions run the batch executes in.
type GitHubContext struct {
	ServerURL  string `env:"GITHUB_SERVER_URL"`
	Repository string `env:"GITHUB_REPOSITORY"`
	RunID      string `env:"GITHUB_RUN_ID"`
	RunAttempt string `env:"GITHUB_RUN_ATTEMPT"`
}

// RunURL returns the URL of the workflow run attempt, or "" outside of
// GitHub Actions. A missing attempt number is reported as attempt 1.
func (g GitHubContext) RunURL() string {
	if g.ServerURL == "" || g.Repository == "" || g.RunID == "" {
		return ""
	}
	attempt := g.RunAttempt
	if attempt == "" {
		attempt = "1"
	}
	return strings.TrimSuffix(g.ServerURL, "/") + "/" + g.Repository +
		"/actions/runs/" + g.RunID + "/attempts/" + attempt
}

// Duration is a time.Duration that reads from strings like "30m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads the config file at path, overlays the environment, applies
// defaults and validates the result. When optional is true a missing file
// is not an error.
func Load(path string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parseFile(cfg, data); err != nil {
			return nil, docerrors.Configf("%s: %v", path, err)
		}
	case optional && stderrors.Is(err, fs.ErrNotExist):
	default:
		return nil, docerrors.IO(err, "read config file")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, docerrors.Configf("environment: %v", err)
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, docerrors.Config(err.Error())
	}
	return cfg, nil
}

func parseFile(cfg *Config, data []byte) error {
	if err := schema.ValidateConfig(data); err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}
