package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/namelens/domainwatch/internal/observability"
)

// ErrStartTLSUnsupported is returned when the server does not offer STARTTLS.
var ErrStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	From     string
	To       string
	Server   string
	Port     int
	Username string
	Password string

	// TLSConfig overrides the STARTTLS client configuration.
	TLSConfig *tls.Config
}

// Email sends plain-text mail over SMTP with STARTTLS and PLAIN auth.
type Email struct {
	cfg     EmailConfig
	timeout time.Duration
	clock   func() time.Time
}

// NewEmail builds the channel, warning about each missing setting.
func NewEmail(cfg EmailConfig, logger *logging.Logger) *Email {
	port := ""
	if cfg.Port > 0 {
		port = strconv.Itoa(cfg.Port)
	}
	warnMissing(observability.LoggerOr(logger), ChannelEmail,
		setting{"email_from", cfg.From},
		setting{"email_to", cfg.To},
		setting{"smtp_server", cfg.Server},
		setting{"smtp_port", port},
		setting{"smtp_username", cfg.Username},
		setting{"smtp_password", cfg.Password})
	return &Email{cfg: cfg, timeout: DefaultHTTPTimeout, clock: time.Now}
}

// Name returns the channel identifier.
func (e *Email) Name() string { return ChannelEmail }

// Send delivers the message. Success means the server accepted the DATA.
func (e *Email) Send(ctx context.Context, msg Message) error {
	recipients := splitAddresses(e.cfg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}
	if e.cfg.Server == "" || e.cfg.Port <= 0 {
		return fmt.Errorf("email: smtp server not configured")
	}

	addr := net.JoinHostPort(e.cfg.Server, strconv.Itoa(e.cfg.Port))
	dialer := &net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, e.cfg.Server)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("email: smtp handshake: %w", err)
	}
	defer client.Close() // nolint:errcheck // best-effort cleanup

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fmt.Errorf("email: %w", ErrStartTLSUnsupported)
	}
	tlsConfig := e.cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: e.cfg.Server, MinVersion: tls.VersionTLS12}
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("email: starttls: %w", err)
	}

	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("email: auth: %w", err)
	}

	if err := client.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("email: rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	raw, err := e.buildMessage(msg)
	if err != nil {
		_ = w.Close()
		return err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: message rejected: %w", err)
	}

	_ = client.Quit()
	return nil
}

// buildMessage renders RFC 5322 headers and a quoted-printable text body.
func (e *Email) buildMessage(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	header := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}

	header("From", e.cfg.From)
	header("To", strings.Join(splitAddresses(e.cfg.To), ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", e.clock().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(strings.ReplaceAll(msg.Body, "\n", "\r\n"))); err != nil {
		return nil, fmt.Errorf("email: encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("email: encode body: %w", err)
	}
	return buf.Bytes(), nil
}

func splitAddresses(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
