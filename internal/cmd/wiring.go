package cmd

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/core/lookup"
	"github.com/namelens/domainwatch/internal/core/snapshot"
	"github.com/namelens/domainwatch/internal/notify"
)

// channelNames lists every supported channel in dispatch order.
var channelNames = []string{
	notify.ChannelEmail,
	notify.ChannelPushover,
	notify.ChannelTelegram,
	notify.ChannelDiscord,
	notify.ChannelNtfy,
}

// buildChannels constructs the enabled notification channels. Missing
// credentials are logged by the channel constructors, never fatal.
func buildChannels(cfg *config.Config, logger *logging.Logger) []notify.Channel {
	client := &http.Client{Timeout: cfg.Notify.Timeout}
	var channels []notify.Channel

	if cfg.Email.Enabled {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Server:   cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		}, logger))
	}
	if cfg.Pushover.Enabled {
		channels = append(channels, notify.NewPushover(notify.PushoverConfig{
			AppToken: cfg.Pushover.AppToken,
			UserKey:  cfg.Pushover.UserKey,
			APIURL:   cfg.Pushover.APIURL,
		}, client, logger))
	}
	if cfg.Telegram.Enabled {
		channels = append(channels, notify.NewTelegram(notify.TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			APIBase:  cfg.Telegram.APIBase,
		}, client, logger))
	}
	if cfg.Discord.Enabled {
		channels = append(channels, notify.NewDiscord(notify.DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
		}, client, logger))
	}
	if cfg.Ntfy.Enabled {
		channels = append(channels, notify.NewNtfy(notify.NtfyConfig{
			Topic:  cfg.Ntfy.Topic,
			Server: cfg.Ntfy.Server,
		}, client, logger))
	}

	return channels
}

func newDispatcher(cfg *config.Config, logger *logging.Logger) *notify.Dispatcher {
	dispatcher := notify.NewDispatcher(buildChannels(cfg, logger), logger)
	dispatcher.Timeout = cfg.Notify.Timeout
	dispatcher.MaxParallel = cfg.Notify.MaxParallel
	return dispatcher
}

// buildLookup returns RDAP, wrapped in a WHOIS fallback when enabled.
func buildLookup(cfg *config.Config, logger *logging.Logger) lookup.Lookuper {
	rdapLookup := &lookup.RDAP{
		Timeout:   cfg.Lookup.Timeout,
		Servers:   cfg.Lookup.RDAPServers,
		Overrides: cfg.Lookup.RDAPOverride,
	}
	if !cfg.Lookup.Whois.Enabled {
		return rdapLookup
	}
	return &lookup.Fallback{
		Sources: []lookup.Lookuper{
			rdapLookup,
			&lookup.Whois{
				Servers:           cfg.Lookup.Whois.Servers,
				Timeout:           cfg.Lookup.Timeout,
				AvailablePatterns: cfg.Lookup.Whois.AvailablePatterns,
			},
		},
		Logger: logger,
	}
}

func newNormalizer(cfg *config.Config) *snapshot.Normalizer {
	return &snapshot.Normalizer{RawTextMaxBytes: cfg.RawTextMaxBytes}
}

// enableServices force-enables the named channels as runtime overrides.
func enableServices(services []string) (map[string]any, error) {
	if len(services) == 0 {
		return nil, nil
	}
	overrides := make(map[string]any, len(services))
	for _, service := range services {
		name := strings.ToLower(strings.TrimSpace(service))
		if !slices.Contains(channelNames, name) {
			return nil, fmt.Errorf("unknown service %q (valid: %s)", service, strings.Join(channelNames, ", "))
		}
		overrides[name+"_enabled"] = true
	}
	return overrides, nil
}
