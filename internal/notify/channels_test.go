package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		Domain:  "example.com",
		Subject: "Domain change detected for example.com",
		Body:    "registrar:\n  - Before: A\n  - After: B\n",
	}
}

func TestPushoverSend(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPushover(PushoverConfig{AppToken: "app", UserKey: "user", APIURL: srv.URL}, srv.Client(), testLogger(t))
	msg := testMessage()
	msg.Body = strings.Repeat("é", 1500)

	require.NoError(t, p.Send(context.Background(), msg))
	assert.Equal(t, "app", form["token"])
	assert.Equal(t, "user", form["user"])
	assert.Equal(t, msg.Subject, form["title"])
	assert.Equal(t, "1", form["priority"])
	assert.Equal(t, 1024, len([]rune(form["message"])))
}

func TestPushoverNon200IsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":["application token is invalid"]}`)
	}))
	defer srv.Close()

	p := NewPushover(PushoverConfig{APIURL: srv.URL}, srv.Client(), testLogger(t))
	err := p.Send(context.Background(), testMessage())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "application token is invalid")
}

func TestTelegramSend(t *testing.T) {
	var path string
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{BotToken: "123:abc", ChatID: "42", APIBase: srv.URL}, srv.Client(), testLogger(t))
	msg := testMessage()

	require.NoError(t, tg.Send(context.Background(), msg))
	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "Markdown", form["parse_mode"])
	assert.Equal(t, "*"+msg.Subject+"*\n\n"+msg.Body, form["text"])
}

func TestTelegramTruncatesCombinedText(t *testing.T) {
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "c", APIBase: srv.URL}, srv.Client(), testLogger(t))
	msg := testMessage()
	msg.Body = strings.Repeat("x", 5000)

	require.NoError(t, tg.Send(context.Background(), msg))
	assert.Equal(t, 4096, len([]rune(text)))
	assert.True(t, strings.HasPrefix(text, "*"+msg.Subject+"*"))
}

func TestDiscordSend(t *testing.T) {
	var payload discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: srv.URL}, srv.Client(), testLogger(t))
	msg := testMessage()
	msg.Body = strings.Repeat("y", 2500)

	require.NoError(t, d.Send(context.Background(), msg))
	assert.Equal(t, "Domain Monitor Bot", payload.Username)
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, msg.Subject, payload.Embeds[0].Title)
	assert.Equal(t, 16711680, payload.Embeds[0].Color)
	assert.Len(t, payload.Embeds[0].Description, 2000)
}

func TestDiscordRequires204(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDiscord(DiscordConfig{WebhookURL: srv.URL}, srv.Client(), testLogger(t))
	err := d.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestDiscordMissingWebhook(t *testing.T) {
	d := NewDiscord(DiscordConfig{}, nil, testLogger(t))
	assert.Error(t, d.Send(context.Background(), testMessage()))
}

func TestNtfySend(t *testing.T) {
	var headers http.Header
	var body, path string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer srv.Close()

	n := NewNtfy(NtfyConfig{Topic: "domain-alerts", Server: srv.URL + "/"}, srv.Client(), testLogger(t))
	msg := testMessage()

	require.NoError(t, n.Send(context.Background(), msg))
	assert.Equal(t, "/domain-alerts", path)
	assert.Equal(t, msg.Subject, headers.Get("Title"))
	assert.Equal(t, "urgent", headers.Get("Priority"))
	assert.Equal(t, "warning,domain", headers.Get("Tags"))
	assert.Equal(t, msg.Body, body)
}

func TestNtfyTruncatesBody(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
	}))
	defer srv.Close()

	n := NewNtfy(NtfyConfig{Topic: "domain-alerts", Server: srv.URL}, srv.Client(), testLogger(t))
	msg := testMessage()
	msg.Body = strings.Repeat("é", 5000)

	require.NoError(t, n.Send(context.Background(), msg))
	assert.Equal(t, 4096, len([]rune(body)))
	assert.Equal(t, strings.Repeat("é", 4096), body)
}

func TestNtfyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNtfy(NtfyConfig{Topic: "t", Server: srv.URL}, srv.Client(), testLogger(t))
	assert.ErrorIs(t, n.Send(context.Background(), testMessage()), ErrUnexpectedStatus)
}

func TestChannelTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewPushover(PushoverConfig{AppToken: "a", UserKey: "u", APIURL: url}, nil, testLogger(t))
	err := p.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnexpectedStatus))
}

// fakeSMTP answers EHLO without advertising STARTTLS.
func fakeSMTP(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close() // nolint:errcheck
				_ = c.SetDeadline(time.Now().Add(5 * time.Second))
				_, _ = io.WriteString(c, "220 localhost ESMTP test\r\n")
				r := bufio.NewReader(c)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
					case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
						_, _ = io.WriteString(c, "250-localhost\r\n250 8BITMIME\r\n")
					case strings.HasPrefix(cmd, "QUIT"):
						_, _ = io.WriteString(c, "221 bye\r\n")
						return
					default:
						_, _ = io.WriteString(c, "250 ok\r\n")
					}
				}
			}(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func TestEmailRequiresStartTLS(t *testing.T) {
	host, port := fakeSMTP(t)
	e := NewEmail(EmailConfig{
		From: "monitor@example.com", To: "ops@example.com",
		Server: host, Port: port,
		Username: "u", Password: "p",
	}, testLogger(t))

	err := e.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStartTLSUnsupported)
}

func TestEmailUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	e := NewEmail(EmailConfig{From: "a@example.com", To: "b@example.com", Server: "127.0.0.1", Port: port}, testLogger(t))
	assert.Error(t, e.Send(context.Background(), testMessage()))
}

func TestEmailMissingRecipients(t *testing.T) {
	e := NewEmail(EmailConfig{Server: "smtp.example.com", Port: 587}, testLogger(t))
	assert.Error(t, e.Send(context.Background(), testMessage()))
}

func TestEmailBuildMessage(t *testing.T) {
	e := NewEmail(EmailConfig{From: "monitor@example.com", To: "ops@example.com, sec@example.com"}, testLogger(t))
	e.clock = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	raw, err := e.buildMessage(testMessage())
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, "From: monitor@example.com\r\n")
	assert.Contains(t, text, "To: ops@example.com, sec@example.com\r\n")
	assert.Contains(t, text, "Subject: Domain change detected for example.com\r\n")
	assert.Contains(t, text, "Date: Thu, 02 Jan 2025 03:04:05 +0000\r\n")
	assert.Contains(t, text, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.Contains(t, text, "\r\n\r\nregistrar:\r\n  - Before: A\r\n")
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, splitAddresses(" a@x.io , ,b@x.io"))
	assert.Nil(t, splitAddresses(""))
}
