package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/namelens/domainwatch/internal/observability"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	telegramTextLimit  = 4096
)

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// Telegram sends Markdown messages through the Bot API.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
}

// NewTelegram builds the channel, warning about missing credentials.
func NewTelegram(cfg TelegramConfig, client *http.Client, logger *logging.Logger) *Telegram {
	warnMissing(observability.LoggerOr(logger), ChannelTelegram,
		setting{"telegram_bot_token", cfg.BotToken},
		setting{"telegram_chat_id", cfg.ChatID})
	if strings.TrimSpace(cfg.APIBase) == "" {
		cfg.APIBase = defaultTelegramAPI
	}
	return &Telegram{cfg: cfg, client: httpClientOr(client)}
}

// Name returns the channel identifier.
func (t *Telegram) Name() string { return ChannelTelegram }

// Send posts the subject in bold followed by the body.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	text := fmt.Sprintf("*%s*\n\n%s", msg.Subject, msg.Body)

	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("text", truncate(text, telegramTextLimit))
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.APIBase, "/"), t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doExpect(t.client, ChannelTelegram, req, http.StatusOK)
}
