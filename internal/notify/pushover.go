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
	defaultPushoverURL = "https://api.pushover.net/1/messages.json"
	pushoverBodyLimit  = 1024
	pushoverPriority   = "1"
)

// PushoverConfig configures the Pushover channel.
type PushoverConfig struct {
	AppToken string
	UserKey  string
	APIURL   string
}

// Pushover sends high-priority Pushover messages.
type Pushover struct {
	cfg    PushoverConfig
	client *http.Client
}

// NewPushover builds the channel, warning about missing credentials.
func NewPushover(cfg PushoverConfig, client *http.Client, logger *logging.Logger) *Pushover {
	warnMissing(observability.LoggerOr(logger), ChannelPushover,
		setting{"pushover_app_token", cfg.AppToken},
		setting{"pushover_user_key", cfg.UserKey})
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = defaultPushoverURL
	}
	return &Pushover{cfg: cfg, client: httpClientOr(client)}
}

// Name returns the channel identifier.
func (p *Pushover) Name() string { return ChannelPushover }

// Send posts the message as a form.
func (p *Pushover) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("token", p.cfg.AppToken)
	form.Set("user", p.cfg.UserKey)
	form.Set("title", msg.Subject)
	form.Set("message", truncate(msg.Body, pushoverBodyLimit))
	form.Set("priority", pushoverPriority)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return doExpect(p.client, ChannelPushover, req, http.StatusOK)
}
