package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggers(t *testing.T) {
	t.Run("CLI logger", func(t *testing.T) {
		InitCLILogger("domainwatch-test", false)
		require.NotNil(t, CLILogger)
		CLILogger.Info("cli logger ready", zap.String("domain", "example.com"))
	})

	t.Run("verbose CLI logger", func(t *testing.T) {
		InitCLILogger("domainwatch-test", true)
		require.NotNil(t, CLILogger)
		CLILogger.Debug("debug enabled", zap.String("mode", "verbose"))
	})

	t.Run("server logger with namespace", func(t *testing.T) {
		InitServerLogger("domainwatch-test", "warn", "domainwatch")
		require.NotNil(t, ServerLogger)
		ServerLogger.Warn("structured logger ready",
			zap.String("domain", "example.com"),
			zap.String("cycle_id", "test"))
	})
}

func TestLoggerOr(t *testing.T) {
	original := CLILogger
	t.Cleanup(func() { CLILogger = original })

	explicit, err := logging.NewCLI("explicit")
	require.NoError(t, err)
	require.Same(t, explicit, LoggerOr(explicit))

	InitCLILogger("domainwatch-test", false)
	require.Same(t, CLILogger, LoggerOr(nil))

	CLILogger = nil
	fallback := LoggerOr(nil)
	require.NotNil(t, fallback)
	require.Same(t, fallback, LoggerOr(nil), "fallback logger is created once")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"trace":   "TRACE",
		"debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
		" DEBUG ": "DEBUG",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, parseLogLevel(in))
		})
	}
}

func TestServerLoggerConfig(t *testing.T) {
	cfg := serverLoggerConfig("domainwatch", "debug", "ops")
	require.Equal(t, logging.ProfileStructured, cfg.Profile)
	require.Equal(t, "DEBUG", cfg.DefaultLevel)
	require.Equal(t, "ops", cfg.StaticFields["namespace"])
	require.Len(t, cfg.Sinks, 1)
	require.Equal(t, "stderr", cfg.Sinks[0].Console.Stream)

	require.Empty(t, serverLoggerConfig("domainwatch", "info").StaticFields)
}

func TestMetricsURL(t *testing.T) {
	original := metricsPort
	t.Cleanup(func() { metricsPort = original })

	metricsPort = 0
	require.Equal(t, "http://127.0.0.1:9090/metrics", MetricsURL())
	metricsPort = 40123
	require.Equal(t, "http://127.0.0.1:40123/metrics", MetricsURL())
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("127.0.0.1:9191")
	require.NoError(t, err)
	require.Equal(t, 9191, port)

	port, err = resolvePort("[::]:40123")
	require.NoError(t, err)
	require.Equal(t, 40123, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}

func TestCrucibleVersionAvailable(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
}
