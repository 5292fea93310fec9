package config

import "time"

// Config represents the complete application configuration.
//
// Channel settings keep the flat key names operators already use in
// environment files (email_enabled, smtp_server, ...), so the channel structs
// are squashed into the top level.
type Config struct {
	Domain        string        `mapstructure:"domain"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	HistoryFile   string        `mapstructure:"history_file"`

	// PersistErrorSnapshots stores failed-lookup snapshots as the previous
	// state. Off by default so a transient failure cannot produce a diff
	// against an error-only snapshot on the next cycle.
	PersistErrorSnapshots bool `mapstructure:"persist_error_snapshots"`

	// RawTextMaxBytes caps the persisted raw registry response.
	RawTextMaxBytes int `mapstructure:"raw_text_max_bytes"`

	// StatusAddr enables the status HTTP server for the run command.
	StatusAddr string `mapstructure:"status_addr"`

	Email    EmailConfig    `mapstructure:",squash"`
	Pushover PushoverConfig `mapstructure:",squash"`
	Telegram TelegramConfig `mapstructure:",squash"`
	Discord  DiscordConfig  `mapstructure:",squash"`
	Ntfy     NtfyConfig     `mapstructure:",squash"`

	Notify  NotifyConfig  `mapstructure:"notify"`
	Lookup  LookupConfig  `mapstructure:"lookup"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Enabled      bool   `mapstructure:"email_enabled"`
	From         string `mapstructure:"email_from"`
	To           string `mapstructure:"email_to"`
	SMTPServer   string `mapstructure:"smtp_server"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

// PushoverConfig configures Pushover delivery.
type PushoverConfig struct {
	Enabled  bool   `mapstructure:"pushover_enabled"`
	AppToken string `mapstructure:"pushover_app_token"`
	UserKey  string `mapstructure:"pushover_user_key"`
	APIURL   string `mapstructure:"pushover_api_url"`
}

// TelegramConfig configures Telegram bot delivery.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"telegram_enabled"`
	BotToken string `mapstructure:"telegram_bot_token"`
	ChatID   string `mapstructure:"telegram_chat_id"`
	APIBase  string `mapstructure:"telegram_api_base"`
}

// DiscordConfig configures Discord webhook delivery.
type DiscordConfig struct {
	Enabled    bool   `mapstructure:"discord_enabled"`
	WebhookURL string `mapstructure:"discord_webhook_url"`
}

// NtfyConfig configures ntfy delivery.
type NtfyConfig struct {
	Enabled bool   `mapstructure:"ntfy_enabled"`
	Topic   string `mapstructure:"ntfy_topic"`
	Server  string `mapstructure:"ntfy_server"`
}

// NotifyConfig tunes the channel dispatcher.
type NotifyConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxParallel int           `mapstructure:"max_parallel"`
}

// LookupConfig configures registry lookups.
type LookupConfig struct {
	Timeout      time.Duration       `mapstructure:"timeout"`
	RDAPServers  []string            `mapstructure:"rdap_servers"`
	RDAPOverride map[string][]string `mapstructure:"rdap_overrides"`
	Whois        WhoisConfig         `mapstructure:"whois"`
}

// WhoisConfig configures the WHOIS fallback.
type WhoisConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	Servers           map[string]string `mapstructure:"servers"`
	AvailablePatterns []string          `mapstructure:"available_patterns"`
}

// StoreConfig selects where the last snapshot is kept. The file driver
// writes history_file; the libsql driver uses path or url.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// ServerConfig contains status HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port. Zero picks a free port.
	Port int `mapstructure:"port"`
}
