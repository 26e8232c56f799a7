package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultSafeBrowsingEndpoint is the Google Safe Browsing v4 lookup API.
	DefaultSafeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

	// NoAPIKeyStatus is recorded when no credential is configured; the
	// lookup is skipped entirely in that case.
	NoAPIKeyStatus = "No API key in config file"

	// NoThreatStatus is recorded when the service reports no match.
	NoThreatStatus = "No threat found"

	safeBrowsingTimeout = 30 * time.Second
)

// SafeBrowsingClient queries the reputation service for a hostname.
type SafeBrowsingClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *logrus.Logger
}

// NewSafeBrowsingClient creates a client; an empty apiKey disables lookups.
func NewSafeBrowsingClient(endpoint, apiKey string, logger *logrus.Logger) *SafeBrowsingClient {
	if endpoint == "" {
		endpoint = DefaultSafeBrowsingEndpoint
	}
	return &SafeBrowsingClient{
		httpClient: &http.Client{Timeout: safeBrowsingTimeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
		logger:     logger,
	}
}

type threatMatchesRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatMatchesResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// LookupReputation returns the service's threat classification for a
// hostname, a no-threat marker, or the no-key sentinel. Transport and
// parse failures degrade to an empty string with a warning.
func (c *SafeBrowsingClient) LookupReputation(ctx context.Context, hostname string) string {
	if c.apiKey == "" {
		return NoAPIKeyStatus
	}

	reqBody := threatMatchesRequest{}
	reqBody.Client.ClientID = "certstreammonitor"
	reqBody.Client.ClientVersion = "1.0"
	reqBody.ThreatInfo.ThreatTypes = []string{
		"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION",
	}
	reqBody.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	reqBody.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	reqBody.ThreatInfo.ThreatEntries = []threatEntry{
		{URL: "http://" + hostname + "/"},
		{URL: "https://" + hostname + "/"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Warnf("safebrowsing: marshal request for %s: %v", hostname, err)
		return ""
	}

	reqURL := fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		c.logger.Warnf("safebrowsing: build request for %s: %v", hostname, err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnf("safebrowsing: lookup %s: %v", hostname, err)
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warnf("safebrowsing: read response for %s: %v", hostname, err)
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("safebrowsing: lookup %s returned status %d: %s", hostname, resp.StatusCode, string(body))
		return ""
	}

	var matches threatMatchesResponse
	if err := json.Unmarshal(body, &matches); err != nil {
		c.logger.Warnf("safebrowsing: parse response for %s: %v", hostname, err)
		return ""
	}

	if len(matches.Matches) == 0 {
		return NoThreatStatus
	}

	seen := make(map[string]bool)
	var types []string
	for _, m := range matches.Matches {
		if !seen[m.ThreatType] {
			seen[m.ThreatType] = true
			types = append(types, m.ThreatType)
		}
	}
	return strings.Join(types, ", ")
}
