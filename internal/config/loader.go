// Package config loads domainwatch configuration in three layers:
// Layer 1: built-in defaults
// Layer 2: an optional YAML file (--config, ./config/domainwatch.yaml, or the
// XDG config directory)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// AppName names the config and data directories.
const AppName = "domainwatch"

const defaultHistoryFileName = "domain_history.json"

// ErrDomainRequired is returned by Validate when no domain is configured.
var ErrDomainRequired = errors.New("domain is required")

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields.
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// LoadOptions controls where the YAML layer comes from.
type LoadOptions struct {
	// ConfigFile is an explicit file; it must exist when set.
	ConfigFile string

	// SearchPaths replaces the default file candidates when non-nil.
	SearchPaths []string
}

// Load builds the configuration from defaults, the optional YAML file, the
// environment and runtimeOverrides (applied last, in order).
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, opts LoadOptions, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)

	file, err := resolveConfigFile(opts)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	merged := v.AllSettings()
	mergeMaps(merged, envOverrides)
	for _, override := range runtimeOverrides {
		mergeMaps(merged, override)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToBoolHook(),
			secondsOrDurationHook(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	normalize(cfg)
	setConfig(cfg)

	return cfg, nil
}

// Validate reports configuration that prevents monitoring.
func (c *Config) Validate() error {
	if c == nil || strings.TrimSpace(c.Domain) == "" {
		return ErrDomainRequired
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %s", c.CheckInterval)
	}
	switch c.Store.Driver {
	case "file", "libsql":
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	return nil
}

// ConfigFileUsed returns the YAML file Load would read for opts, if any.
func ConfigFileUsed(opts LoadOptions) string {
	file, _ := resolveConfigFile(opts)
	return file
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("check_interval", "3600")
	v.SetDefault("history_file", DefaultHistoryFile())
	v.SetDefault("persist_error_snapshots", false)
	v.SetDefault("raw_text_max_bytes", 128*1024)
	v.SetDefault("status_addr", "")

	// Channel defaults
	v.SetDefault("email_enabled", false)
	v.SetDefault("smtp_server", "smtp.gmail.com")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("pushover_enabled", false)
	v.SetDefault("telegram_enabled", false)
	v.SetDefault("discord_enabled", false)
	v.SetDefault("ntfy_enabled", false)
	v.SetDefault("ntfy_server", "https://ntfy.sh")

	// Dispatcher defaults
	v.SetDefault("notify.timeout", "20s")
	v.SetDefault("notify.max_parallel", 0)

	// Lookup defaults
	v.SetDefault("lookup.timeout", "15s")
	v.SetDefault("lookup.whois.enabled", true)

	// Store defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", DefaultStorePath())

	// Status server defaults
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// getEnvSpecs returns environment variable specifications for config mapping.
// Names are unprefixed so existing deployment env files keep working.
// Booleans are read as strings and parsed by the decode hook.
func getEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		{Name: "DOMAIN", Path: []string{"domain"}, Type: EnvString},
		// Plain seconds or a Go duration, converted by the decode hook
		{Name: "CHECK_INTERVAL", Path: []string{"check_interval"}, Type: EnvString},
		{Name: "HISTORY_FILE", Path: []string{"history_file"}, Type: EnvString},
		{Name: "PERSIST_ERROR_SNAPSHOTS", Path: []string{"persist_error_snapshots"}, Type: EnvString},
		{Name: "RAW_TEXT_MAX_BYTES", Path: []string{"raw_text_max_bytes"}, Type: EnvInt},
		{Name: "STATUS_ADDR", Path: []string{"status_addr"}, Type: EnvString},

		// Email
		{Name: "EMAIL_ENABLED", Path: []string{"email_enabled"}, Type: EnvString},
		{Name: "EMAIL_FROM", Path: []string{"email_from"}, Type: EnvString},
		{Name: "EMAIL_TO", Path: []string{"email_to"}, Type: EnvString},
		{Name: "SMTP_SERVER", Path: []string{"smtp_server"}, Type: EnvString},
		{Name: "SMTP_PORT", Path: []string{"smtp_port"}, Type: EnvInt},
		{Name: "SMTP_USERNAME", Path: []string{"smtp_username"}, Type: EnvString},
		{Name: "SMTP_PASSWORD", Path: []string{"smtp_password"}, Type: EnvString},

		// Pushover
		{Name: "PUSHOVER_ENABLED", Path: []string{"pushover_enabled"}, Type: EnvString},
		{Name: "PUSHOVER_APP_TOKEN", Path: []string{"pushover_app_token"}, Type: EnvString},
		{Name: "PUSHOVER_USER_KEY", Path: []string{"pushover_user_key"}, Type: EnvString},

		// Telegram
		{Name: "TELEGRAM_ENABLED", Path: []string{"telegram_enabled"}, Type: EnvString},
		{Name: "TELEGRAM_BOT_TOKEN", Path: []string{"telegram_bot_token"}, Type: EnvString},
		{Name: "TELEGRAM_CHAT_ID", Path: []string{"telegram_chat_id"}, Type: EnvString},

		// Discord
		{Name: "DISCORD_ENABLED", Path: []string{"discord_enabled"}, Type: EnvString},
		{Name: "DISCORD_WEBHOOK_URL", Path: []string{"discord_webhook_url"}, Type: EnvString},

		// Ntfy
		{Name: "NTFY_ENABLED", Path: []string{"ntfy_enabled"}, Type: EnvString},
		{Name: "NTFY_TOPIC", Path: []string{"ntfy_topic"}, Type: EnvString},
		{Name: "NTFY_SERVER", Path: []string{"ntfy_server"}, Type: EnvString},

		// Store
		{Name: "STORE_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: "STORE_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: "STORE_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: "STORE_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Logging and metrics
		{Name: "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvString},
		{Name: "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultHistoryFile returns the default snapshot file for the file store.
func DefaultHistoryFile() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return filepath.Join(".", "data", defaultHistoryFileName)
	}
	return filepath.Join(dataDir, defaultHistoryFileName)
}

// DefaultStorePath returns the default database file for the libsql store.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

func resolveConfigFile(opts LoadOptions) (string, error) {
	if file := strings.TrimSpace(opts.ConfigFile); file != "" {
		if _, err := os.Stat(file); err != nil {
			return "", fmt.Errorf("config file %s: %w", file, err)
		}
		return file, nil
	}

	candidates := opts.SearchPaths
	if candidates == nil {
		candidates = []string{filepath.Join(".", "config", AppName+".yaml")}
		if path := DefaultConfigPath(); path != "" {
			candidates = append(candidates, path)
		}
	}
	for _, candidate := range candidates {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func normalize(cfg *Config) {
	cfg.Domain = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cfg.Domain), ".")))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "file"
	}
	if strings.TrimSpace(cfg.HistoryFile) == "" {
		cfg.HistoryFile = DefaultHistoryFile()
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
}

// mergeMaps deep-merges src into dst. Keys are matched case-insensitively,
// as viper lower-cases everything it reads.
func mergeMaps(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
			copied := map[string]any{}
			mergeMaps(copied, srcMap)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}

// stringToBoolHook treats "true", "1", "yes" and "on" (any case) as true and
// every other string as false.
func stringToBoolHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
			return data, nil
		}
		switch strings.ToLower(strings.TrimSpace(data.(string))) {
		case "true", "1", "yes", "on":
			return true, nil
		default:
			return false, nil
		}
	}
}

// secondsOrDurationHook decodes durations from plain seconds ("3600", 3600)
// or Go duration strings ("1h").
func secondsOrDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				return time.Duration(0), nil
			}
			if seconds, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			d, err := time.ParseDuration(trimmed)
			if err != nil {
				return nil, fmt.Errorf("invalid duration %q: %w", value, err)
			}
			return d, nil
		case int:
			return time.Duration(value) * time.Second, nil
		case int64:
			return time.Duration(value) * time.Second, nil
		case float64:
			return time.Duration(value * float64(time.Second)), nil
		}
		return data, nil
	}
}
