package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqtt-cli/internal/executor"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-cli/internal/lifecycle"
	"github.com/nerrad567/mqtt-cli/internal/output"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the process exit code out of a command.
// A nil err means the failure has already been reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// failure is an operation failure that still needs printing.
func failure(err error) error {
	return &exitError{code: exitFailure, err: err}
}

// reported is an operation failure already logged or printed.
func reported() error {
	return &exitError{code: exitFailure}
}

// usageError is a bad invocation detected after flag parsing.
func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to the process exit code. Errors that are
// not exitErrors come from cobra's argument parsing and are usage errors.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

// app holds the state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Global flags.
	configPath string
	debug      bool
	trace      bool

	// Set up by setup once flags are parsed.
	cfg      *config.Config
	log      *logging.Logger
	registry *lifecycle.Registry
	hub      *datahub.Service

	// newSession creates MQTT sessions; replaced in tests.
	newSession func(logger mqtt.Logger) mqtt.Session
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		newSession: func(logger mqtt.Logger) mqtt.Session {
			s := mqtt.NewSession()
			s.SetLogger(logger)
			return s
		},
	}
}

// execute runs the command line and returns the exit code.
//
// The lifecycle registry is closed on every path, so file sinks, the
// message store and the InfluxDB sink are flushed even after a signal.
//
// Parameters:
//   - ctx: Cancelled on SIGINT/SIGTERM
//   - args: Command line without the program name
//
// Returns:
//   - int: 0 success, 1 operation failure, 2 usage error
func (a *app) execute(ctx context.Context, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	cmd, err := root.ExecuteContextC(ctx)
	a.shutdown()

	code := exitCode(err)
	switch {
	case code == exitUsage:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		fmt.Fprintf(a.stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
	case err != nil:
		var ee *exitError
		if errors.As(err, &ee) && ee.err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", ee.err)
		}
	}
	return code
}

// setup loads configuration and builds the logger, registry and REST service.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return failure(fmt.Errorf("loading config: %w", err))
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	switch {
	case a.trace:
		level = "trace"
	case a.debug:
		level = "debug"
	}

	if strings.EqualFold(cfg.Logging.Output, "stdout") || strings.EqualFold(cfg.Logging.Output, "file") {
		logCfg := cfg.Logging
		logCfg.Level = level
		a.log = logging.New(logCfg, version)
	} else {
		a.log = logging.NewWithWriter(a.stderr, cfg.Logging.Format, level, version)
	}

	mqtt.SetLibraryLogger(a.log.Logger, a.log.TraceEnabled(), logging.LevelTrace)
	a.registry = lifecycle.NewRegistry(a.log)
	a.hub = datahub.NewService(cfg.DataHub.GetTimeout())

	a.log.Trace("command", "path", cmd.CommandPath(), "version", version, "commit", commit, "build_date", date)
	return nil
}

// shutdown runs every cleanup hook and closes the log.
func (a *app) shutdown() {
	if a.registry != nil {
		if err := a.registry.Close(); err != nil && a.log != nil {
			a.log.Error("cleanup failed", "error", err)
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

func (a *app) newExecutor() *executor.Executor {
	return executor.New(executor.Options{
		Debug:    a.log.DebugEnabled(),
		Stdout:   a.stdout,
		Logger:   a.log,
		Registry: a.registry,
	})
}

func (a *app) formatter() *output.Formatter {
	return &output.Formatter{Out: a.stdout, Err: a.stderr, Verbose: a.log.DebugEnabled()}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mqtt-cli",
		Short:         "MQTT command line client and HiveMQ Data Hub administration",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	// Defined without a shorthand so -h stays free for --host.
	cmd.PersistentFlags().Bool("help", false, "help for this command")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $HOME/.mqtt-cli/config.yaml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "log outcomes in full detail")
	cmd.PersistentFlags().BoolVar(&a.trace, "trace", false, "log protocol traces (implies --debug)")

	cmd.AddCommand(newPubCmd(a), newSubCmd(a), newHiveMQCmd(a))
	return cmd
}
