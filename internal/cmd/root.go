package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/config"
	errwrap "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Watch a domain's registration data and notify on change",
	Long: `domainwatch periodically looks a domain up over RDAP (falling back to WHOIS),
compares the result with the last stored snapshot and notifies the enabled
channels (email, Pushover, Telegram, Discord, ntfy) when anything changes.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. The run command initializes proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is ./config/%s.yaml or %s)", config.AppName, config.DefaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

func initLogger() {
	observability.InitCLILogger(config.AppName, verbose)
}

// loadConfig reads the file, environment and runtime overrides into a Config.
// Validation is left to the caller; some commands work without a domain.
func loadConfig(ctx context.Context, overrides ...map[string]any) (*config.Config, error) {
	opts := config.LoadOptions{ConfigFile: cfgFile}
	cfg, err := config.Load(ctx, opts, overrides...)
	if err != nil {
		return nil, errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
	}

	logger := observability.LoggerOr(observability.CLILogger)
	if used := config.ConfigFileUsed(opts); used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	} else {
		logger.Debug("No config file found, using defaults and environment variables")
	}
	return cfg, nil
}

// domainOverride maps an optional positional domain argument to a config override.
func domainOverride(args []string) map[string]any {
	if len(args) == 0 {
		return nil
	}
	return map[string]any{"domain": args[0]}
}
