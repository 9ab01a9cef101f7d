package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/RoJaebl/portfolio/internal/app"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1 // a task failed
	ExitUsage   = 2 // bad flags or pipeline configuration
)

// DefaultConfigPath is the pipeline file used when -config is not given.
const DefaultConfigPath = "pipeline.hcl"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Usage returns an ExitError for a usage or configuration problem.
func Usage(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// TaskFailed returns the ExitError reported when running name failed.
func TaskFailed(name string, err error) *ExitError {
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("task %q failed: %v", name, err)}
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("sitepipe", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
sitepipe - runs the build tasks of the portfolio site.

Usage:
  sitepipe [options] [TASK]

Arguments:
  TASK
    Name of the task to run. Defaults to "build".

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths stringList
	flagSet.Var(&configPaths, "config", "Pipeline file or directory. May be repeated. (default \""+DefaultConfigPath+"\")")
	flagSet.Var(&configPaths, "c", "Pipeline file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	stateFileFlag := flagSet.String("state-file", "", "File that keeps incremental task timestamps between runs.")
	listFlag := flagSet.Bool("list", false, "Print the registered tasks and exit.")
	planFlag := flagSet.Bool("plan", false, "Print the resolved plan of TASK and exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("expected at most one task, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))}
	}
	if len(configPaths) == 0 {
		configPaths = stringList{DefaultConfigPath}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths:     configPaths,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		StateFile:       *stateFileFlag,
		Task:            flagSet.Arg(0),
		List:            *listFlag,
		Plan:            *planFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
