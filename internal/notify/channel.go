// Package notify formats change alerts and fans them out to notification
// channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// Channel names, also used as the --service values of test-notify.
const (
	ChannelEmail    = "email"
	ChannelPushover = "pushover"
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
	ChannelNtfy     = "ntfy"
)

// ChannelNames lists every supported channel in configuration order.
var ChannelNames = []string{ChannelEmail, ChannelPushover, ChannelTelegram, ChannelDiscord, ChannelNtfy}

// DefaultHTTPTimeout bounds a single channel request.
const DefaultHTTPTimeout = 20 * time.Second

// maxErrorBody caps how much of a failed response is kept for logging.
const maxErrorBody = 512

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Channel delivers a formatted message to one backend.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// StatusError reports a transport response that did not match the channel's
// success status.
type StatusError struct {
	Channel    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Channel, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Channel, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// truncate limits s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

type setting struct {
	name  string
	value string
}

// warnMissing logs a warning for each blank required setting.
func warnMissing(logger *logging.Logger, channel string, settings ...setting) {
	for _, s := range settings {
		if strings.TrimSpace(s.value) == "" {
			logger.Warn("Notification channel is missing a required setting",
				zap.String("channel", channel),
				zap.String("setting", s.name))
		}
	}
}

func httpClientOr(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: DefaultHTTPTimeout}
}

// doExpect sends req and returns a StatusError unless the response carries want.
func doExpect(client *http.Client, channel string, req *http.Request, want int) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", channel, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode != want {
		return &StatusError{
			Channel:    channel,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}
