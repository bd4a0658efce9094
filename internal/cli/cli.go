package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/bootsweep/internal/app"
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

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// envPrefix namespaces the environment variables that provide flag defaults.
const envPrefix = "BOOTSWEEP_"

type env func(string) (string, bool)

func (e env) str(name, def string) string {
	if v, ok := e(envPrefix + name); ok && v != "" {
		return v
	}
	return def
}

func (e env) integer(name string, def int) (int, error) {
	v, ok := e(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usageError("invalid %s%s=%q: %v", envPrefix, name, v, err)
	}
	return n, nil
}

func (e env) boolean(name string, def bool) (bool, error) {
	v, ok := e(envPrefix + name)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, usageError("invalid %s%s=%q: %v", envPrefix, name, v, err)
	}
	return b, nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flag defaults come from BOOTSWEEP_* environment variables.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, os.LookupEnv)
}

func parse(args []string, output io.Writer, lookup env) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("bootsweep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
bootsweep - Runs a sweep of gem5 full-system boot tests with bounded parallelism.

Usage:
  bootsweep [options] [EXPERIMENT_PATH]

Arguments:
  EXPERIMENT_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Every option can also be set through an environment variable named
BOOTSWEEP_<OPTION>, upper-cased with dashes replaced by underscores.

Options:
`)
		flagSet.PrintDefaults()
	}

	var errs []error
	intDefault := func(name string, def int) int {
		n, err := lookup.integer(name, def)
		errs = append(errs, err)
		return n
	}
	boolDefault := func(name string, def bool) bool {
		b, err := lookup.boolean(name, def)
		errs = append(errs, err)
		return b
	}

	experimentFlag := flagSet.String("experiment", lookup.str("EXPERIMENT", ""), "Path to the experiment file or directory.")
	eFlag := flagSet.String("e", "", "Path to the experiment file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", intDefault("HEALTHCHECK_PORT", 0), "Port for the /health and /metrics HTTP server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", lookup.str("LOG_FORMAT", "json"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", lookup.str("LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", intDefault("WORKERS", 0), "Number of concurrent runs. 0 means half the available CPUs.")
	dryRunFlag := flagSet.Bool("dry-run", boolDefault("DRY_RUN", false), "Record run descriptors without starting the simulator.")
	printFlag := flagSet.Bool("print", boolDefault("PRINT", true), "Print every run record to stdout as one JSON line.")
	resultsDirFlag := flagSet.String("results-dir", lookup.str("RESULTS_DIR", ""), "Directory for artifacts.jsonl and runs.jsonl.")
	redisAddrFlag := flagSet.String("redis-addr", lookup.str("REDIS_ADDR", ""), "Redis address (host:port) to push records to.")
	redisPasswordFlag := flagSet.String("redis-password", lookup.str("REDIS_PASSWORD", ""), "Redis password.")
	redisDBFlag := flagSet.Int("redis-db", intDefault("REDIS_DB", 0), "Redis database number.")
	redisPrefixFlag := flagSet.String("redis-prefix", lookup.str("REDIS_PREFIX", "bootsweep"), "Prefix for Redis keys.")
	socketURLFlag := flagSet.String("socketio-url", lookup.str("SOCKETIO_URL", ""), "Socket.IO collection server URL.")
	socketNSFlag := flagSet.String("socketio-namespace", lookup.str("SOCKETIO_NAMESPACE", "/"), "Socket.IO namespace.")
	socketInsecureFlag := flagSet.Bool("socketio-insecure", boolDefault("SOCKETIO_INSECURE", false), "Skip TLS verification for the Socket.IO server.")

	var only []string
	if v := lookup.str("ONLY", ""); v != "" {
		only = strings.Split(v, ";")
	}
	flagSet.Func("only", "Restrict the sweep, e.g. -only cpu=atomic,o3 -only mem=classic. Repeatable.", func(s string) error {
		only = append(only, s)
		return nil
	})

	if err := errors.Join(errs...); err != nil {
		return nil, false, err
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *experimentFlag != "" {
		path = *experimentFlag
	}
	if *eFlag != "" {
		path = *eFlag
	}
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Experiment path determined.", "path", path)

	if path == "" {
		slog.Debug("No experiment path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ExperimentPath:    path,
		HealthcheckPort:   *healthPortFlag,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		WorkerCount:       *workersFlag,
		DryRun:            *dryRunFlag,
		Only:              only,
		PrintRecords:      *printFlag,
		ResultsDir:        *resultsDirFlag,
		RedisAddr:         *redisAddrFlag,
		RedisPassword:     *redisPasswordFlag,
		RedisDB:           *redisDBFlag,
		RedisPrefix:       *redisPrefixFlag,
		SocketIOURL:       *socketURLFlag,
		SocketIONamespace: *socketNSFlag,
		SocketIOInsecure:  *socketInsecureFlag,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "experiment", config.ExperimentPath, "workers", config.WorkerCount)
	return config, false, nil
}
