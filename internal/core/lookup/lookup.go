// Package lookup fetches registration records for a domain over RDAP, with a
// WHOIS fallback.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/observability"
)

const (
	SourceRDAP  = "rdap"
	SourceWhois = "whois"
)

// ErrUnsupported means the source cannot answer for this domain (for example
// no RDAP service is registered for the TLD). Fallback chains move on.
var ErrUnsupported = errors.New("lookup source does not support domain")

// Lookuper fetches the registry record for a domain. A domain with no
// registration data yields a record without a domain name, not an error.
type Lookuper interface {
	Lookup(ctx context.Context, domain string) (*core.RegistryRecord, error)
}

// Fallback tries each source in order and returns the first success.
type Fallback struct {
	Sources []Lookuper
	Logger  *logging.Logger
}

// Lookup implements Lookuper.
func (f *Fallback) Lookup(ctx context.Context, domain string) (*core.RegistryRecord, error) {
	if f == nil || len(f.Sources) == 0 {
		return nil, errors.New("no lookup sources configured")
	}

	var errs []error
	for i, src := range f.Sources {
		record, err := src.Lookup(ctx, domain)
		if err == nil {
			return record, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if i < len(f.Sources)-1 {
			observability.LoggerOr(f.Logger).Debug("Lookup source failed, trying next",
				zap.String("domain", domain),
				zap.Error(err))
		}
	}
	return nil, errors.Join(errs...)
}

func splitDomain(domain string) (string, string, error) {
	value := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(domain, ".")))
	if value == "" {
		return "", "", errors.New("domain is required")
	}

	idx := strings.LastIndex(value, ".")
	if idx <= 0 || idx == len(value)-1 {
		return "", "", fmt.Errorf("domain %q must include a tld", domain)
	}
	return value, value[idx+1:], nil
}
