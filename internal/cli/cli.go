package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kartoza/cplus-engine/internal/app"
)

// Version is stamped at build time.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cplus", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
cplus - scenario analysis engine for climate priority land use planning.

Usage:
  cplus [options] [SCENARIO_PATH]

Arguments:
  SCENARIO_PATH
    Path to a single .hcl scenario file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file or directory.")
	profilesFlag := flagSet.String("profiles", "profiles", "Directory holding the JSON profile files.")
	outFlag := flagSet.String("out", "out", "Directory receiving output rasters, reports and styles.")
	historyFlag := flagSet.String("history", "cplus_history.ldb", "Path to the scenario history database.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the analysis executor.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	listFlag := flagSet.Bool("list", false, "List the stored scenario runs and exit.")
	stateFlag := flagSet.String("state", "", "Filter -list to one state: 'pending', 'running', 'completed', 'failed' or 'cancelled'.")
	reportFlag := flagSet.String("report", "", "Regenerate the report for the stored run with this uuid.")
	compareFlag := flagSet.String("compare", "", "Comma-separated scenario uuids to compare, baseline first.")
	versionFlag := flagSet.Bool("version", false, "Print the version and exit.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if *versionFlag {
		fmt.Fprintln(output, "cplus", Version)
		return nil, true, nil
	}

	path := *scenarioFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	var compareUUIDs []string
	if *compareFlag != "" {
		for _, id := range strings.Split(*compareFlag, ",") {
			if id = strings.TrimSpace(id); id != "" {
				compareUUIDs = append(compareUUIDs, id)
			}
		}
	}
	historyCommand := *listFlag || *reportFlag != "" || len(compareUUIDs) > 0

	if path == "" && !historyCommand {
		slog.Debug("No scenario path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
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
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ScenarioPath: path,
		ProfilesDir:  *profilesFlag,
		OutDir:       *outFlag,
		HistoryPath:  *historyFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
		ListHistory:  *listFlag,
		ListState:    strings.ToLower(*stateFlag),
		ReportUUID:   *reportFlag,
		CompareUUIDs: compareUUIDs,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
