package enrich

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/models"
)

// ipResolver is what the gatherer needs from the DNS side.
type ipResolver interface {
	LookupIP(hostname string) (string, error)
}

// ownershipLookup is what the gatherer needs from the RDAP side.
type ownershipLookup interface {
	LookupOwnership(ctx context.Context, ipAddr string) models.OwnershipInfo
}

// reputationLookup is what the gatherer needs from the reputation side.
type reputationLookup interface {
	LookupReputation(ctx context.Context, hostname string) string
}

// Gatherer merges the per-host enrichment sources. Each source fails
// independently: an unresolvable IP skips only the ownership lookup, and
// nothing here ever fails the scan of a host that answered its probe.
type Gatherer struct {
	resolver   ipResolver
	ownership  ownershipLookup
	reputation reputationLookup
	logger     *logrus.Logger
}

// NewGatherer wires the three enrichment sources together.
func NewGatherer(resolver ipResolver, ownership ownershipLookup, reputation reputationLookup, logger *logrus.Logger) *Gatherer {
	return &Gatherer{
		resolver:   resolver,
		ownership:  ownership,
		reputation: reputation,
		logger:     logger,
	}
}

// Gather collects IP, ownership and reputation evidence for a live host.
func (g *Gatherer) Gather(ctx context.Context, hostname string) models.Enrichment {
	var out models.Enrichment

	ip, err := g.resolver.LookupIP(hostname)
	if err != nil {
		g.logger.Warnf("enrich: %v", err)
	} else {
		out.IPAddr = ip
		out.Ownership = g.ownership.LookupOwnership(ctx, ip)
	}

	out.SafeBrowsingStatus = g.reputation.LookupReputation(ctx, hostname)
	return out
}
