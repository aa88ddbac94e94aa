package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is the parsed command line.
type Invocation struct {
	Config *app.Config
	// Entry is the pipeline or task to run; empty means the development pipeline.
	Entry string
	// List asks for the pipelines and tasks to be printed instead of run.
	List bool
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns the invocation, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	flagSet := flag.NewFlagSet("assetgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
assetgrid - An asset build orchestrator for static front-end projects.

Usage:
  assetgrid [options] [default|build|TASK]

Arguments:
  default   Development: clean, build every asset, then serve and watch (the default).
  build     Production: clean dist and build every asset for distribution.
  TASK      Any single task declared in the configuration.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths stringList
	flagSet.Var(&configPaths, "config", "Pipeline file or directory of .hcl files. May be repeated. Defaults to ./"+app.ProjectFile+" or the built-in pipelines.")
	rootFlag := flagSet.String("root", ".", "Project directory that relative paths resolve against.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 8, "Number of files a task reads concurrently.")
	listFlag := flagSet.Bool("list", false, "List pipelines and tasks, then exit.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one entry point, got %d: %s", flagSet.NArg(), strings.Join(flagSet.Args(), " "))}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPaths: configPaths,
		Root:        *rootFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Workers:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return &Invocation{Config: config, Entry: flagSet.Arg(0), List: *listFlag}, false, nil
}
