package notify

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/namelens/domainwatch/internal/observability"
)

const (
	defaultNtfyServer = "https://ntfy.sh"
	ntfyBodyLimit     = 4096
	ntfyPriority      = "urgent"
	ntfyTags          = "warning,domain"
)

// NtfyConfig configures the ntfy channel.
type NtfyConfig struct {
	Topic  string
	Server string
}

// Ntfy publishes to an ntfy topic.
type Ntfy struct {
	cfg    NtfyConfig
	client *http.Client
}

// NewNtfy builds the channel, warning about a missing topic.
func NewNtfy(cfg NtfyConfig, client *http.Client, logger *logging.Logger) *Ntfy {
	warnMissing(observability.LoggerOr(logger), ChannelNtfy,
		setting{"ntfy_topic", cfg.Topic})
	if strings.TrimSpace(cfg.Server) == "" {
		cfg.Server = defaultNtfyServer
	}
	return &Ntfy{cfg: cfg, client: httpClientOr(client)}
}

// Name returns the channel identifier.
func (n *Ntfy) Name() string { return ChannelNtfy }

// Send publishes the body with the subject in the Title header.
func (n *Ntfy) Send(ctx context.Context, msg Message) error {
	endpoint := strings.TrimRight(n.cfg.Server, "/") + "/" + n.cfg.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(truncate(msg.Body, ntfyBodyLimit)))
	if err != nil {
		return fmt.Errorf("ntfy: build request: %w", err)
	}
	// Header values must be ASCII; RFC 2047 encoding is accepted by ntfy.
	req.Header.Set("Title", mime.QEncoding.Encode("utf-8", msg.Subject))
	req.Header.Set("Priority", ntfyPriority)
	req.Header.Set("Tags", ntfyTags)

	return doExpect(n.client, ChannelNtfy, req, http.StatusOK)
}
