// Package notify forwards a human-readable rendering of each alert to the
// configured destinations.
package notify

import (
	"fmt"
	"strings"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/models"
)

// Notifier delivers alert summaries over zero or more destination URIs
// (slack://, discord://, smtp://, ...). With no destination configured it
// is a no-op.
type Notifier struct {
	sender *router.ServiceRouter
	logger *logrus.Logger
}

// New builds a notifier. An empty destination list yields a silent one;
// an unparseable destination URI is a configuration error.
func New(destinations []string, logger *logrus.Logger) (*Notifier, error) {
	n := &Notifier{logger: logger}
	if len(destinations) == 0 {
		return n, nil
	}

	sender, err := shoutrrr.CreateSender(destinations...)
	if err != nil {
		return nil, fmt.Errorf("create notification sender: %w", err)
	}
	n.sender = sender
	return n, nil
}

// Announce sends the alert for one resolved host. Delivery failures are
// logged and never abort the batch.
func (n *Notifier) Announce(result models.ScanResult) {
	if n.sender == nil {
		return
	}

	params := &types.Params{
		"title": "[CertStreamMonitor] Alert: " + result.Hostname,
	}
	for _, err := range n.sender.Send(RenderBody(result), params) {
		if err != nil {
			n.logger.Errorf("notification for %s failed: %v", result.Hostname, err)
		}
	}
}

// RenderBody flattens a scan result into one "field: value" line per
// field, in artifact order.
func RenderBody(r models.ScanResult) string {
	lines := []string{
		"hostname: " + r.Hostname,
		fmt.Sprintf("http_code: %d", r.HTTPCode),
		"cert_serial_number: " + r.CertSerialNumber,
		"webpage_title: " + r.WebpageTitle,
		"ip_addr: " + r.IPAddr,
		"asn: " + r.ASN,
		"asn_cidr: " + r.ASNCIDR,
		"asn_country_code: " + r.ASNCountryCode,
		"asn_description: " + r.ASNDescription,
		"asn_abuse_email: " + r.ASNAbuseEmail,
		"safe_browsing_status: " + r.SafeBrowsingStatus,
	}
	return strings.Join(lines, "\n")
}
