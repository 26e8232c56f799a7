// Package scanner drives one batch over the pending host records: probe,
// enrich, persist the artifact, notify, and advance the per-row state.
package scanner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/xme/CertStreamMonitor/internal/models"
	"github.com/xme/CertStreamMonitor/internal/prober"
)

// RecordStore is what the scanner needs from the persistence side.
type RecordStore interface {
	FetchPending(ctx context.Context) ([]models.HostRecord, error)
	MarkAttempt(ctx context.Context, hostname, fingerprint string, state models.InvestigationState) error
	MarkResolved(ctx context.Context, hostname, fingerprint string, ts time.Time) error
}

// HostProber issues the liveness probe for one hostname.
type HostProber interface {
	Probe(ctx context.Context, hostname string) prober.Result
}

// EvidenceGatherer collects the enrichment evidence for a live host.
type EvidenceGatherer interface {
	Gather(ctx context.Context, hostname string) models.Enrichment
}

// ArtifactWriter persists the alert artifact for a resolved host.
type ArtifactWriter interface {
	Write(result models.ScanResult) (string, error)
}

// Announcer forwards the alert to the configured destinations.
type Announcer interface {
	Announce(result models.ScanResult)
}

// Stats summarizes one batch.
type Stats struct {
	Total     int
	Resolved  int
	Skipped   int
	Failed    int
	Exhausted int
	Errors    int
}

// Scanner runs the probe-and-reconcile batch. One host at a time, paced by
// the configured interval; a failure on one row never aborts the batch.
type Scanner struct {
	store       RecordStore
	prober      HostProber
	gatherer    EvidenceGatherer
	writer      ArtifactWriter
	notifier    Announcer
	limiter     *rate.Limiter
	maxAttempts int
	logger      *logrus.Logger
	now         func() time.Time
}

// New assembles a scanner. interval spaces consecutive probes; zero means
// full speed.
func New(store RecordStore, p HostProber, gatherer EvidenceGatherer, writer ArtifactWriter, notifier Announcer, interval time.Duration, maxAttempts int, logger *logrus.Logger) *Scanner {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Scanner{
		store:       store,
		prober:      p,
		gatherer:    gatherer,
		writer:      writer,
		notifier:    notifier,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one full batch over the pending rows. Cancellation is
// honored at row boundaries; the row in flight finishes first.
func (s *Scanner) Run(ctx context.Context) (Stats, error) {
	pending, err := s.store.FetchPending(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(pending)}
	s.logger.Infof("%d hostnames to verify", len(pending))

	for _, record := range pending {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warnf("batch interrupted: %v", err)
			return stats, nil
		}
		s.processRow(ctx, record, &stats)
	}

	s.logger.Infof("batch done: %d resolved, %d skipped, %d failed, %d exhausted, %d errors",
		stats.Resolved, stats.Skipped, stats.Failed, stats.Exhausted, stats.Errors)
	return stats, nil
}

func (s *Scanner) processRow(ctx context.Context, record models.HostRecord, stats *Stats) {
	result := s.prober.Probe(ctx, record.Hostname)

	if result.Outcome == prober.Succeeded {
		s.resolve(ctx, record, result, stats)
		return
	}

	if result.Outcome == prober.Skipped {
		stats.Skipped++
	} else {
		stats.Failed++
	}
	s.recordFailure(ctx, record, stats)
}

// resolve handles a host that answered its probe: gather evidence, write
// the artifact, notify, and park the row with a resolved timestamp. An
// artifact write failure leaves the row retryable instead.
func (s *Scanner) resolve(ctx context.Context, record models.HostRecord, probe prober.Result, stats *Stats) {
	title := prober.ExtractTitle(probe.Body)
	parent := models.ParentDomain(record.Hostname)
	s.logger.WithField("parent_domain", parent).
		Infof("  HTTP %d - %s", probe.StatusCode, record.Hostname)

	evidence := s.gatherer.Gather(ctx, record.Hostname)
	scan := models.ScanResult{
		Hostname:           record.Hostname,
		HTTPCode:           probe.StatusCode,
		CertSerialNumber:   record.Fingerprint,
		WebpageTitle:       title,
		IPAddr:             evidence.IPAddr,
		ASN:                evidence.Ownership.ASN,
		ASNCIDR:            evidence.Ownership.CIDR,
		ASNCountryCode:     evidence.Ownership.CountryCode,
		ASNDescription:     evidence.Ownership.Description,
		ASNAbuseEmail:      evidence.Ownership.AbuseEmail,
		SafeBrowsingStatus: evidence.SafeBrowsingStatus,
	}

	if _, err := s.writer.Write(scan); err != nil {
		s.logger.WithField("parent_domain", parent).
			Errorf("alert for %s not written: %v", record.Hostname, err)
		s.recordFailure(ctx, record, stats)
		return
	}

	s.notifier.Announce(scan)

	if err := s.store.MarkResolved(ctx, record.Hostname, record.Fingerprint, s.now().UTC()); err != nil {
		s.logger.Errorf("state for %s not persisted: %v", record.Hostname, err)
		stats.Errors++
		return
	}
	stats.Resolved++
}

// recordFailure bumps the attempt counter, parking the row permanently once
// the incremented count exceeds the configured maximum.
func (s *Scanner) recordFailure(ctx context.Context, record models.HostRecord, stats *Stats) {
	attempts := record.State.AttemptCount() + 1

	next := models.WithAttempts(attempts)
	if attempts > s.maxAttempts {
		next = models.Exhausted()
		s.logger.Warnf("Max attempts reached for %s", record.Hostname)
		stats.Exhausted++
	}

	if err := s.store.MarkAttempt(ctx, record.Hostname, record.Fingerprint, next); err != nil {
		s.logger.Errorf("state for %s not persisted: %v", record.Hostname, err)
		stats.Errors++
	}
}
