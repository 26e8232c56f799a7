package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/models"
)

const rdapTimeout = 30 * time.Second

// RDAPClient queries a registration-data (RDAP) service for the network
// that announces an IP address. The default bootstrap service redirects to
// the owning RIR.
type RDAPClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

// NewRDAPClient creates an RDAP client against the given base URL
// (e.g. https://rdap.org).
func NewRDAPClient(baseURL string, logger *logrus.Logger) *RDAPClient {
	return &RDAPClient{
		httpClient: &http.Client{Timeout: rdapTimeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// rdapIPNetwork is the subset of the RDAP ip-network object we consume.
type rdapIPNetwork struct {
	Handle     string       `json:"handle"`
	Name       string       `json:"name"`
	Country    string       `json:"country"`
	CIDRs      []rdapCIDR   `json:"cidr0_cidrs"`
	OriginASNs []int        `json:"arin_originas0_originautnums"`
	Entities   []rdapEntity `json:"entities"`
}

type rdapCIDR struct {
	V4Prefix string `json:"v4prefix"`
	V6Prefix string `json:"v6prefix"`
	Length   int    `json:"length"`
}

type rdapEntity struct {
	Roles      []string        `json:"roles"`
	VCardArray json.RawMessage `json:"vcardArray"`
	Entities   []rdapEntity    `json:"entities"`
}

// LookupOwnership fetches ASN/CIDR/country/description and the abuse
// contact for an IP address. Any failure, total or partial, yields empty
// strings for the fields that could not be determined; it never errors.
func (c *RDAPClient) LookupOwnership(ctx context.Context, ipAddr string) models.OwnershipInfo {
	reqURL := fmt.Sprintf("%s/ip/%s", c.baseURL, url.PathEscape(ipAddr))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.logger.Warnf("rdap: build request for %s: %v", ipAddr, err)
		return models.OwnershipInfo{}
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("rdap: lookup %s: %v", ipAddr, err)
		return models.OwnershipInfo{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warnf("rdap: read response for %s: %v", ipAddr, err)
		return models.OwnershipInfo{}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("rdap: lookup %s returned status %d", ipAddr, resp.StatusCode)
		return models.OwnershipInfo{}
	}

	var network rdapIPNetwork
	if err := json.Unmarshal(body, &network); err != nil {
		c.logger.Warnf("rdap: parse response for %s: %v", ipAddr, err)
		return models.OwnershipInfo{}
	}

	info := models.OwnershipInfo{
		CountryCode: network.Country,
		Description: network.Name,
		AbuseEmail:  abuseEmail(network.Entities),
	}
	if len(network.OriginASNs) > 0 {
		info.ASN = strconv.Itoa(network.OriginASNs[0])
	}
	for _, cidr := range network.CIDRs {
		switch {
		case cidr.V4Prefix != "":
			info.CIDR = fmt.Sprintf("%s/%d", cidr.V4Prefix, cidr.Length)
		case cidr.V6Prefix != "":
			info.CIDR = fmt.Sprintf("%s/%d", cidr.V6Prefix, cidr.Length)
		default:
			continue
		}
		break
	}

	return info
}

// abuseEmail walks the record's entity tree in service-provided order and
// returns the first email of the first entity whose roles include "abuse".
func abuseEmail(entities []rdapEntity) string {
	for _, entity := range entities {
		for _, role := range entity.Roles {
			if role == "abuse" {
				if email := vcardEmail(entity.VCardArray); email != "" {
					return email
				}
			}
		}
		if email := abuseEmail(entity.Entities); email != "" {
			return email
		}
	}
	return ""
}

// vcardEmail digs the first email property out of a jCard array:
// ["vcard", [["version", {}, "text", "4.0"], ["email", {}, "text", "x@y"]]].
func vcardEmail(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var card []json.RawMessage
	if err := json.Unmarshal(raw, &card); err != nil || len(card) < 2 {
		return ""
	}

	var props [][]any
	if err := json.Unmarshal(card[1], &props); err != nil {
		return ""
	}

	for _, prop := range props {
		if len(prop) < 4 {
			continue
		}
		name, ok := prop[0].(string)
		if !ok || name != "email" {
			continue
		}
		if email, ok := prop[3].(string); ok {
			return email
		}
	}
	return ""
}
