// Package enrich gathers best-effort network-ownership and reputation
// evidence for hosts that answered a probe. Every lookup degrades to empty
// values; enrichment never decides whether a host counts as resolved.
package enrich

import (
	"fmt"

	"github.com/projectdiscovery/retryabledns"
)

// Public resolvers used for the A-record lookup behind each live host.
var defaultResolvers = []string{
	"8.8.8.8:53",
	"1.1.1.1:53",
}

const dnsRetries = 2

// Resolver answers "which IP does this hostname point at" for the
// ownership lookup.
type Resolver struct {
	client *retryabledns.Client
}

// NewResolver builds a resolver over the default public nameservers.
func NewResolver() (*Resolver, error) {
	client, err := retryabledns.New(defaultResolvers, dnsRetries)
	if err != nil {
		return nil, fmt.Errorf("create dns client: %w", err)
	}
	return &Resolver{client: client}, nil
}

// LookupIP returns the first A record for hostname.
func (r *Resolver) LookupIP(hostname string) (string, error) {
	data, err := r.client.Resolve(hostname)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", hostname, err)
	}
	if len(data.A) == 0 {
		return "", fmt.Errorf("no A record for %s", hostname)
	}
	return data.A[0], nil
}
