package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openrdap/rdap"

	"github.com/namelens/domainwatch/internal/core"
)

// Values recorded for the dnssec field, matching common WHOIS wording.
const (
	DNSSECSigned   = "signedDelegation"
	DNSSECUnsigned = "unsigned"
)

var defaultRDAPOverrides = map[string][]string{
	"app": {"https://pubapi.registry.google/rdap", "https://www.rdap.net/rdap"},
	"dev": {"https://pubapi.registry.google/rdap", "https://www.rdap.net/rdap"},
}

// RDAP looks domains up over RDAP. Without configured servers the IANA
// bootstrap registry picks the server.
type RDAP struct {
	Client  *rdap.Client
	Timeout time.Duration

	// Servers, when set, are tried in order instead of bootstrap.
	Servers []string

	// Overrides routes specific TLDs to known-good servers. Keys are TLDs
	// without a leading dot.
	Overrides map[string][]string
}

// Lookup implements Lookuper.
func (r *RDAP) Lookup(ctx context.Context, domain string) (*core.RegistryRecord, error) {
	name, tld, err := splitDomain(domain)
	if err != nil {
		return nil, err
	}

	client := r.Client
	if client == nil {
		client = &rdap.Client{}
	}

	servers := r.Servers
	if len(servers) == 0 {
		servers = r.overrideServers(tld)
	}
	if len(servers) == 0 {
		return r.query(ctx, client, name, nil)
	}

	var lastErr error
	for _, base := range servers {
		serverURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return nil, fmt.Errorf("invalid rdap server url: %w", err)
		}
		record, err := r.query(ctx, client, name, serverURL)
		if err == nil {
			return record, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *RDAP) query(ctx context.Context, client *rdap.Client, name string, server *url.URL) (*core.RegistryRecord, error) {
	req := rdap.NewDomainRequest(name)
	if server != nil {
		req = req.WithServer(server)
	}
	if r.Timeout > 0 {
		req.Timeout = r.Timeout
	}
	req = req.WithContext(ctx)

	resp, reqErr := client.Do(req)
	statusCode, endpoint := responseStatus(resp, rdapDomainURL(server, name))

	if reqErr != nil {
		if isNotFound(reqErr) || statusCode == http.StatusNotFound {
			return &core.RegistryRecord{
				Fields:  map[string]any{},
				RawText: responseBody(resp),
				Source:  SourceRDAP,
				Server:  endpoint,
			}, nil
		}
		if isBootstrapMiss(reqErr) {
			return nil, fmt.Errorf("rdap %s: %w", name, ErrUnsupported)
		}
		if statusCode != 0 {
			return nil, fmt.Errorf("rdap %s: status %d: %w", endpoint, statusCode, reqErr)
		}
		return nil, fmt.Errorf("rdap %s: %w", name, reqErr)
	}

	domain, ok := resp.Object.(*rdap.Domain)
	if !ok {
		return nil, fmt.Errorf("rdap %s: unexpected response object %T", endpoint, resp.Object)
	}

	return &core.RegistryRecord{
		Fields:  domainFields(domain),
		RawText: responseBody(resp),
		Source:  SourceRDAP,
		Server:  endpoint,
	}, nil
}

func (r *RDAP) overrideServers(tld string) []string {
	overrides := defaultRDAPOverrides
	if r.Overrides != nil {
		overrides = r.Overrides
	}
	return overrides[strings.TrimPrefix(tld, ".")]
}

// domainFields maps an RDAP domain object onto snapshot field names. Every
// tracked field is present; missing data maps to nil. Statuses use their EPP
// names so the record matches a WHOIS answer for the same domain.
func domainFields(domain *rdap.Domain) map[string]any {
	fields := newFields()
	fields[core.FieldDomainName] = canonicalDomainName(domainName(domain))
	fields[core.FieldRegistrar] = nilIfEmpty(findRegistrar(domain))
	fields[core.FieldWhoisServer] = nilIfEmpty(domain.Port43)
	fields[core.FieldCreationDate] = eventTime(domain.Events, "registration")
	fields[core.FieldExpirationDate] = eventTime(domain.Events, "expiration")
	fields[core.FieldUpdatedDate] = eventTime(domain.Events, "last changed")
	fields[core.FieldDNSSEC] = dnssec(domain.SecureDNS)

	var statuses []string
	for _, status := range domain.Status {
		if status = strings.TrimSpace(status); status != "" {
			statuses = append(statuses, eppStatus(status))
		}
	}
	if len(statuses) > 0 {
		fields[core.FieldStatus] = statuses
	}

	var nameServers []string
	for _, ns := range domain.Nameservers {
		if host := strings.TrimSpace(ns.LDHName); host != "" {
			nameServers = append(nameServers, strings.TrimSuffix(host, "."))
		}
	}
	if len(nameServers) > 0 {
		fields[core.FieldNameServers] = nameServers
	}

	return fields
}

func domainName(domain *rdap.Domain) string {
	if name := strings.TrimSpace(domain.LDHName); name != "" {
		return name
	}
	return strings.TrimSpace(domain.UnicodeName)
}

func findRegistrar(domain *rdap.Domain) string {
	for _, entity := range domain.Entities {
		for _, role := range entity.Roles {
			if role == "registrar" && entity.VCard != nil {
				return entity.VCard.Name()
			}
		}
	}
	return ""
}

// eventTime returns the event date as a time when it parses, the raw text
// when it does not, and nil when the event is missing.
func eventTime(events []rdap.Event, action string) any {
	for _, event := range events {
		if event.Action != action {
			continue
		}
		value := strings.TrimSpace(event.Date)
		if value == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
		return value
	}
	return nil
}

func dnssec(secure *rdap.SecureDNS) any {
	if secure == nil || secure.DelegationSigned == nil {
		return nil
	}
	if *secure.DelegationSigned {
		return DNSSECSigned
	}
	return DNSSECUnsigned
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func rdapDomainURL(server *url.URL, domain string) string {
	if server == nil {
		return ""
	}

	temp := *server
	temp.RawQuery = ""
	temp.Fragment = ""
	base := temp.String()
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "domain/" + strings.TrimSpace(domain)
}

func responseStatus(resp *rdap.Response, fallbackURL string) (int, string) {
	if resp == nil || len(resp.HTTP) == 0 || resp.HTTP[0] == nil || resp.HTTP[0].Response == nil {
		return 0, strings.TrimSpace(fallbackURL)
	}

	last := resp.HTTP[len(resp.HTTP)-1]
	if last == nil || last.Response == nil {
		last = resp.HTTP[0]
	}
	endpoint := strings.TrimSpace(last.URL)
	if endpoint == "" {
		endpoint = strings.TrimSpace(fallbackURL)
	}
	return last.Response.StatusCode, endpoint
}

func responseBody(resp *rdap.Response) string {
	if resp == nil {
		return ""
	}
	for i := len(resp.HTTP) - 1; i >= 0; i-- {
		if hr := resp.HTTP[i]; hr != nil && len(hr.Body) > 0 {
			return string(hr.Body)
		}
	}
	return ""
}

func isNotFound(err error) bool {
	var clientErr *rdap.ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.Type == rdap.ObjectDoesNotExist
}

func isBootstrapMiss(err error) bool {
	var clientErr *rdap.ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	return clientErr.Type == rdap.BootstrapNoMatch
}
