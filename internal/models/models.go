package models

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// ResolvedTimeLayout is the timestamp format stored in the StillInvestig
// column when a host has been confirmed live. UTC, second precision.
const ResolvedTimeLayout = "2006-01-02T15:04:05"

// ExhaustedSentinel is stored in place of the attempt counter once a host
// has failed probing more times than the configured maximum.
const ExhaustedSentinel = "Disabled"

// StateKind identifies which shape of the investigation state is set.
type StateKind int

const (
	// StateUnset means the host has never been probed.
	StateUnset StateKind = iota
	// StateAttempts means the host failed probing Attempts times so far.
	StateAttempts
	// StateExhausted means the attempt budget is spent; the host is parked.
	StateExhausted
	// StateResolved means the host answered a probe; terminal.
	StateResolved
)

// InvestigationState is the tagged variant behind the scalar StillInvestig
// column: exactly one of unset, attempt counter, exhausted marker or
// resolved timestamp.
type InvestigationState struct {
	Kind       StateKind
	Attempts   int       // valid when Kind == StateAttempts
	ResolvedAt time.Time // valid when Kind == StateResolved
}

// Unset returns the never-attempted state.
func Unset() InvestigationState {
	return InvestigationState{Kind: StateUnset}
}

// WithAttempts returns a state carrying a failed-probe counter.
func WithAttempts(n int) InvestigationState {
	return InvestigationState{Kind: StateAttempts, Attempts: n}
}

// Exhausted returns the permanently parked state.
func Exhausted() InvestigationState {
	return InvestigationState{Kind: StateExhausted}
}

// ResolvedAt returns the terminal resolved state for the given instant.
func ResolvedAt(t time.Time) InvestigationState {
	return InvestigationState{Kind: StateResolved, ResolvedAt: t.UTC().Truncate(time.Second)}
}

// Encode translates the variant back to the scalar column encoding:
// "" for unset, the decimal counter for attempts, the exhausted sentinel,
// or an ISO-8601 UTC timestamp for resolved.
func (s InvestigationState) Encode() string {
	switch s.Kind {
	case StateAttempts:
		return strconv.Itoa(s.Attempts)
	case StateExhausted:
		return ExhaustedSentinel
	case StateResolved:
		return s.ResolvedAt.UTC().Format(ResolvedTimeLayout)
	default:
		return ""
	}
}

// AttemptCount returns the number of failed probes recorded so far.
// Unset counts as zero.
func (s InvestigationState) AttemptCount() int {
	if s.Kind == StateAttempts {
		return s.Attempts
	}
	return 0
}

// ParseState decodes the raw StillInvestig column value. valid is false for
// SQL NULL. Unrecognized values fall back to unset so a malformed row is
// picked up again rather than silently parked.
func ParseState(raw string, valid bool) InvestigationState {
	if !valid {
		return Unset()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Unset()
	}
	if raw == ExhaustedSentinel {
		return Exhausted()
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return WithAttempts(n)
	}
	if t, err := time.Parse(ResolvedTimeLayout, raw); err == nil {
		return InvestigationState{Kind: StateResolved, ResolvedAt: t.UTC()}
	}
	return Unset()
}

// HostRecord is one row of the certificate table, identified by the
// composite key (hostname, certificate fingerprint).
type HostRecord struct {
	Hostname    string
	Fingerprint string
	State       InvestigationState
}

// OwnershipInfo carries the network-registration metadata gathered for the
// IP address behind a hostname. Fields left empty when a lookup degrades.
type OwnershipInfo struct {
	ASN         string
	CIDR        string
	CountryCode string
	Description string
	AbuseEmail  string
}

// Enrichment is the best-effort evidence gathered for a live host.
type Enrichment struct {
	IPAddr             string
	Ownership          OwnershipInfo
	SafeBrowsingStatus string
}

// ScanResult is the merged evidence for one resolved host. It is serialized
// verbatim as the alert artifact, so field order and JSON names are part of
// the on-disk format.
type ScanResult struct {
	Hostname           string `json:"hostname"`
	HTTPCode           int    `json:"http_code"`
	CertSerialNumber   string `json:"cert_serial_number"`
	WebpageTitle       string `json:"webpage_title"`
	IPAddr             string `json:"ip_addr"`
	ASN                string `json:"asn"`
	ASNCIDR            string `json:"asn_cidr"`
	ASNCountryCode     string `json:"asn_country_code"`
	ASNDescription     string `json:"asn_description"`
	ASNAbuseEmail      string `json:"asn_abuse_email"`
	SafeBrowsingStatus string `json:"safe_browsing_status"`
}

// ParentDomain extracts the apex domain (eTLD+1) from a hostname, e.g.
// example.com from mail.example.com. Returns the input unchanged when the
// public suffix list cannot derive one (bare TLDs, wildcards, IPs).
func ParentDomain(hostname string) string {
	hostname = strings.TrimPrefix(hostname, "*.")
	parent, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil {
		return hostname
	}
	return parent
}
