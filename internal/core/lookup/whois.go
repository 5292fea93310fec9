package lookup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	whoisIanaServer = "whois.iana.org"
	whoisPort       = "43"
	whoisMaxBytes   = 128 * 1024
)

var defaultAvailablePatterns = []string{"no match", "not found", "no data found", "status: free", "no entries found"}

// whoisKeys maps lower-cased WHOIS labels onto snapshot fields. Labels that
// share a field are tried in order; the first one present wins.
var whoisKeys = []struct {
	field  string
	labels []string
	multi  bool
}{
	{field: core.FieldDomainName, labels: []string{"domain name", "domain"}},
	{field: core.FieldRegistrar, labels: []string{"registrar", "sponsoring registrar", "registrar name"}},
	{field: core.FieldWhoisServer, labels: []string{"registrar whois server", "whois server", "whois"}},
	{field: core.FieldStatus, labels: []string{"domain status", "status"}, multi: true},
	{field: core.FieldNameServers, labels: []string{"name server", "nserver", "nameserver", "name servers"}, multi: true},
	{field: core.FieldCreationDate, labels: []string{"creation date", "created", "created on", "registered on", "registration time"}},
	{field: core.FieldExpirationDate, labels: []string{"registry expiry date", "registrar registration expiration date", "expiration date", "expiry date", "expires", "expires on", "paid-till"}},
	{field: core.FieldUpdatedDate, labels: []string{"updated date", "last updated", "last modified", "changed"}},
	{field: core.FieldDNSSEC, labels: []string{"dnssec"}},
}

var whoisTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02",
	"02-Jan-2006",
	"2006-01-02T15:04:05-0700",
}

// Whois looks domains up over the WHOIS protocol (TCP port 43).
type Whois struct {
	// Servers overrides the WHOIS server per TLD.
	Servers map[string]string
	Timeout time.Duration

	// AvailablePatterns mark a response as "no registration data".
	AvailablePatterns []string
}

// Lookup implements Lookuper.
func (w *Whois) Lookup(ctx context.Context, domain string) (*core.RegistryRecord, error) {
	name, tld, err := splitDomain(domain)
	if err != nil {
		return nil, err
	}

	server, err := w.ResolveServer(ctx, tld)
	if err != nil {
		return nil, err
	}

	body, err := queryWhois(ctx, server, name, w.Timeout)
	if err != nil {
		return nil, err
	}

	record := &core.RegistryRecord{
		Fields:  map[string]any{},
		RawText: body,
		Source:  SourceWhois,
		Server:  server,
	}
	parsed := &core.RegistryRecord{Fields: ParseWhois(body)}
	_, named := parsed.DomainName()
	hasRegistrar := parsed.Fields[core.FieldRegistrar] != nil
	if !named || (w.looksAvailable(body) && !hasRegistrar) {
		return record, nil
	}
	record.Fields = parsed.Fields
	return record, nil
}

// ResolveServer resolves the WHOIS server for a TLD.
func (w *Whois) ResolveServer(ctx context.Context, tld string) (string, error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" {
		return "", errors.New("whois tld is required")
	}
	if len(w.Servers) > 0 {
		if server := strings.TrimSpace(w.Servers[tld]); server != "" {
			return server, nil
		}
	}

	response, err := queryWhois(ctx, whoisIanaServer, tld, w.Timeout)
	if err != nil {
		return "", fmt.Errorf("whois iana query failed: %w", err)
	}

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "refer:") || strings.HasPrefix(lower, "whois:") {
			parts := strings.SplitN(trimmed, ":", 2)
			if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}

	return "", fmt.Errorf("no whois server for tld %s: %w", tld, ErrUnsupported)
}

func (w *Whois) looksAvailable(body string) bool {
	patterns := w.AvailablePatterns
	if len(patterns) == 0 {
		patterns = defaultAvailablePatterns
	}
	lower := strings.ToLower(body)
	for _, pattern := range patterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// ParseWhois extracts tracked fields from a "Label: value" WHOIS response.
// Every tracked field is present; missing labels map to nil. Dates that parse
// become times; unparsed dates stay as text.
func ParseWhois(body string) map[string]any {
	values := map[string][]string{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		values[label] = append(values[label], value)
	}

	fields := newFields()
	for _, key := range whoisKeys {
		var found []string
		for _, label := range key.labels {
			if v, ok := values[label]; ok {
				found = v
				break
			}
		}
		if len(found) == 0 {
			continue
		}

		switch {
		case key.field == core.FieldDomainName:
			fields[key.field] = canonicalDomainName(found[0])
		case key.multi:
			fields[key.field] = uniqueFirstTokens(found)
		case isDateField(key.field):
			fields[key.field] = parseWhoisTime(found[0])
		default:
			fields[key.field] = found[0]
		}
	}
	return fields
}

func isDateField(field string) bool {
	switch field {
	case core.FieldCreationDate, core.FieldExpirationDate, core.FieldUpdatedDate:
		return true
	}
	return false
}

func parseWhoisTime(value string) any {
	for _, layout := range whoisTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return value
}

// uniqueFirstTokens keeps the first word of each value ("clientHold
// https://icann.org/epp#clientHold" -> "clientHold"), dropping duplicates.
func uniqueFirstTokens(values []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range values {
		token := strings.Fields(v)[0]
		key := strings.ToLower(strings.TrimSuffix(token, "."))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSuffix(token, "."))
	}
	return out
}

func queryWhois(ctx context.Context, server, query string, timeout time.Duration) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("whois server is required")
	}

	addr := server
	if _, _, err := net.SplitHostPort(server); err != nil {
		addr = net.JoinHostPort(server, whoisPort)
	}

	dialer := &net.Dialer{}
	if timeout > 0 {
		dialer.Timeout = timeout
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("whois dial failed: %w", err)
	}
	defer conn.Close() // nolint:errcheck // best-effort cleanup on network connection

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", fmt.Errorf("whois query failed: %w", err)
	}

	reader := bufio.NewReader(conn)
	limited := &io.LimitedReader{R: reader, N: whoisMaxBytes}
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("whois read failed: %w", err)
	}

	return string(body), nil
}
