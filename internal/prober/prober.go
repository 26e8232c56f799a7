// Package prober issues the single HTTPS probe that decides whether a
// certificate hostname is live on the internet.
package prober

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/useragent"
)

const (
	// ProbeTimeout bounds one attempt end to end. Retries are the
	// orchestrator's business, via the stored attempt counter.
	ProbeTimeout = 5 * time.Second

	// maxBodyBytes caps how much of the response we keep for title
	// extraction.
	maxBodyBytes = 2 << 20
)

// Outcome classifies one probe.
type Outcome int

const (
	// Succeeded means the host answered; any HTTP status counts as live.
	Succeeded Outcome = iota
	// Skipped means the hostname carries a wildcard and was not probed.
	Skipped
	// Failed means the request did not complete.
	Failed
)

// FailureReason narrows a Failed outcome.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonTLS
	ReasonConnection
	ReasonGeneric
)

// String returns the log label for a failure reason.
func (r FailureReason) String() string {
	switch r {
	case ReasonTLS:
		return "SSL error"
	case ReasonConnection:
		return "Connection error"
	case ReasonGeneric:
		return "Request error"
	default:
		return "none"
	}
}

// Result is the outcome of one probe attempt.
type Result struct {
	Outcome    Outcome
	Reason     FailureReason
	StatusCode int
	Body       string
}

// Prober issues a single HTTPS GET per hostname with a randomly sampled
// User-Agent and an optional outbound proxy.
type Prober struct {
	client *http.Client
	pool   *useragent.Pool
	logger *logrus.Logger
}

// New builds a prober with its own HTTP client. proxyURL may be nil for a
// direct connection.
func New(pool *useragent.Pool, proxyURL *url.URL, logger *logrus.Logger) *Prober {
	transport := &http.Transport{}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return NewWithClient(&http.Client{
		Timeout:   ProbeTimeout,
		Transport: transport,
	}, pool, logger)
}

// NewWithClient builds a prober around an existing HTTP client.
func NewWithClient(client *http.Client, pool *useragent.Pool, logger *logrus.Logger) *Prober {
	return &Prober{
		client: client,
		pool:   pool,
		logger: logger,
	}
}

// Probe fetches https://<hostname> once and classifies the outcome.
// Wildcard certificate names are reported but never probed.
func (p *Prober) Probe(ctx context.Context, hostname string) Result {
	if strings.Contains(hostname, "*") {
		p.logger.Warnf("wildcard certificate: no request for %s", hostname)
		return Result{Outcome: Skipped}
	}

	probeURL := "https://" + hostname
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		p.logger.Errorf("  %s - %s: %v", probeURL, ReasonGeneric, err)
		return Result{Outcome: Failed, Reason: ReasonGeneric}
	}
	req.Header.Set("User-Agent", p.pool.Sample())

	resp, err := p.client.Do(req)
	if err != nil {
		reason := classify(err)
		if reason == ReasonGeneric {
			p.logger.Errorf("  %s - %s: %v", probeURL, reason, err)
		} else {
			p.logger.Errorf("  %s - %s", probeURL, reason)
		}
		return Result{Outcome: Failed, Reason: reason}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// The host answered; a truncated body still counts as live.
		p.logger.Warnf("  %s - body read error: %v", probeURL, err)
	}

	return Result{
		Outcome:    Succeeded,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// classify sorts a transport error into the TLS / connection / generic
// taxonomy the attempt bookkeeping logs.
func classify(err error) FailureReason {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	if errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) {
		return ReasonTLS
	}

	// The handshake alert errors don't export a type; match the prefix the
	// tls package puts on them.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "tls:") {
		return ReasonTLS
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return ReasonConnection
	}

	return ReasonGeneric
}
