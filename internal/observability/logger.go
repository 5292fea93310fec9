// Package observability holds the process-wide loggers and telemetry
// system shared by the CLI, the monitor loop and the status server.
package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-oriented output for one-shot commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON to stderr for the long-running monitor.
	ServerLogger *logging.Logger
)

func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal("Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs a STRUCTURED profile logger at logLevel. The
// optional namespace becomes a static field on every entry.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	logger, err := logging.New(serverLoggerConfig(serviceName, logLevel, namespace...))
	if err != nil {
		fatal("Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverLoggerConfig(serviceName, logLevel string, namespace ...string) *logging.LoggerConfig {
	static := make(map[string]any)
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}
	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

var (
	fallbackOnce   sync.Once
	fallbackLogger *logging.Logger
)

// LoggerOr returns l when set, otherwise the CLI logger, otherwise a lazily
// created SIMPLE profile logger. Components accept an optional logger and
// resolve it through here so a nil logger never panics.
func LoggerOr(l *logging.Logger) *logging.Logger {
	if l != nil {
		return l
	}
	if CLILogger != nil {
		return CLILogger
	}
	fallbackOnce.Do(func() {
		logger, err := logging.NewCLI("domainwatch")
		if err != nil {
			fatal("Failed to initialize fallback logger", err)
		}
		fallbackLogger = logger
	})
	return fallbackLogger
}

// parseLogLevel maps a config log level onto a gofulmen severity; unknown
// values fall back to INFO.
func parseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// fatal reports a logger setup failure on stderr, since no logger exists yet.
func fatal(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}
	os.Exit(int(code))
}
