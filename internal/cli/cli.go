// Package cli provides the docsuite command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndreyAkinshin/docsuite/internal/config"
	docerrors "github.com/AndreyAkinshin/docsuite/internal/errors"
	"github.com/AndreyAkinshin/docsuite/internal/logging"
	"github.com/AndreyAkinshin/docsuite/internal/output"
)

// Version is set at build time.
var Version = "dev"

var out = output.New()

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogFormat  string
}

// app carries what a command needs once the persistent flags are parsed.
type app struct {
	out    *output.Writer
	opts   globalOptions
	logger *zap.Logger
}

// exitError ends the command with code without printing anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, out)
}

func run(ctx context.Context, args []string, w *output.Writer) int {
	a := &app{out: w, logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(w.Out())

	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	return exitCode(w, err)
}

// exitCode reports err and maps it to a process exit code. Errors that do
// not come from docsuite itself are cobra usage errors.
func exitCode(w *output.Writer, err error) int {
	if err == nil {
		return docerrors.ExitSuccess
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	w.ErrorPrefix("%v", err)
	var de *docerrors.Error
	if !stderrors.As(err, &de) {
		return docerrors.ExitSetupError
	}
	return docerrors.GetExitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docsuite",
		Short:         "Run API docs browser tests per package and publish the aggregated results",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out.SetQuiet(a.opts.Quiet)
			logger, err := logging.New(a.opts.Verbose, a.opts.LogFormat)
			if err != nil {
				return docerrors.Config(err.Error())
			}
			a.logger = logger
			return nil
		},
	}
	cmd.SetVersionTemplate("docsuite {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.opts.ConfigPath, "config", "c", "", "Config file (default ./"+config.DefaultFile+" if present)")
	flags.BoolVarP(&a.opts.Verbose, "verbose", "v", false, "Debug logging and streamed test output")
	flags.BoolVarP(&a.opts.Quiet, "quiet", "q", false, "Only print errors and the final result")
	flags.StringVar(&a.opts.LogFormat, "log-format", logging.FormatConsole, "Log format: console or json")

	cmd.AddCommand(
		newRunCmd(a),
		newPackagesCmd(a),
		newSummarizeCmd(a),
		newKeyCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docsuite version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.out.Println("docsuite %s", Version)
		},
	}
}

// loadConfig reads the config file named by --config, or the default file
// when it exists.
func (a *app) loadConfig() (*config.Config, error) {
	if a.opts.ConfigPath != "" {
		return config.Load(a.opts.ConfigPath, false)
	}
	return config.Load(config.DefaultFile, true)
}
