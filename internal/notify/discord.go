package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/namelens/domainwatch/internal/observability"
)

const (
	discordDescriptionLimit = 2000
	discordColor            = 16711680
	discordUsername         = "Domain Monitor Bot"
)

// DiscordConfig configures the Discord webhook channel.
type DiscordConfig struct {
	WebhookURL string
}

// Discord posts a single embed to a webhook.
type Discord struct {
	cfg    DiscordConfig
	client *http.Client
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Embeds   []discordEmbed `json:"embeds"`
	Username string         `json:"username"`
}

// NewDiscord builds the channel, warning about a missing webhook URL.
func NewDiscord(cfg DiscordConfig, client *http.Client, logger *logging.Logger) *Discord {
	warnMissing(observability.LoggerOr(logger), ChannelDiscord,
		setting{"discord_webhook_url", cfg.WebhookURL})
	return &Discord{cfg: cfg, client: httpClientOr(client)}
}

// Name returns the channel identifier.
func (d *Discord) Name() string { return ChannelDiscord }

// Send posts the embed. Discord answers 204 on success.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	if d.cfg.WebhookURL == "" {
		return fmt.Errorf("discord: webhook url not configured")
	}

	payload := discordPayload{
		Embeds: []discordEmbed{{
			Title:       msg.Subject,
			Description: truncate(msg.Body, discordDescriptionLimit),
			Color:       discordColor,
		}},
		Username: discordUsername,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("discord: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doExpect(d.client, ChannelDiscord, req, http.StatusNoContent)
}
