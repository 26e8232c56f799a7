package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/models"
)

// Repository is the thin accessor over the certificate table. Rows are
// created by the ingestion side; this pipeline only reads them and mutates
// the StillInvestig column, keyed on (Domain, Fingerprint). Every write is
// a single autocommitted statement, so a mid-run interruption loses at most
// the in-flight row.
type Repository struct {
	db     *sql.DB
	table  string
	logger *logrus.Logger
}

// NewRepository creates a repository bound to one table.
func NewRepository(db *sql.DB, table string, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		table:  table,
		logger: logger,
	}
}

// FetchPending selects the rows still awaiting investigation: state NULL,
// empty, or a single-character counter. The LIKE '_' arm is what re-selects
// hosts with a small failed-attempt count on later runs; exhausted and
// resolved markers no longer match and drop out permanently.
func (r *Repository) FetchPending(ctx context.Context) ([]models.HostRecord, error) {
	query := fmt.Sprintf(
		"SELECT Domain, Fingerprint, StillInvestig FROM %s WHERE StillInvestig IS NULL OR StillInvestig = '' OR StillInvestig LIKE '_'",
		r.table,
	)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()

	var out []models.HostRecord
	for rows.Next() {
		var (
			hostname    string
			fingerprint string
			state       sql.NullString
		)
		if err := rows.Scan(&hostname, &fingerprint, &state); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, models.HostRecord{
			Hostname:    hostname,
			Fingerprint: fingerprint,
			State:       models.ParseState(state.String, state.Valid),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}

	r.logger.Debugf("selected %d pending rows from %s", len(out), r.table)
	return out, nil
}

// MarkAttempt overwrites the investigation state for the exact composite
// key with an attempt counter or the exhausted sentinel.
func (r *Repository) MarkAttempt(ctx context.Context, hostname, fingerprint string, state models.InvestigationState) error {
	return r.updateState(ctx, hostname, fingerprint, state.Encode())
}

// MarkResolved records the instant the host was confirmed live. Terminal:
// the row never matches the pending predicate again.
func (r *Repository) MarkResolved(ctx context.Context, hostname, fingerprint string, ts time.Time) error {
	return r.updateState(ctx, hostname, fingerprint, models.ResolvedAt(ts).Encode())
}

func (r *Repository) updateState(ctx context.Context, hostname, fingerprint, value string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET StillInvestig = ? WHERE Domain = ? AND Fingerprint = ?",
		r.table,
	)

	res, err := r.db.ExecContext(ctx, query, value, hostname, fingerprint)
	if err != nil {
		return fmt.Errorf("update state for %s (%s): %w", hostname, fingerprint, err)
	}

	// A missing row means the store and the batch disagree; surface it.
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s (%s): %w", hostname, fingerprint, err)
	}
	if n == 0 {
		return fmt.Errorf("no row matched %s (%s)", hostname, fingerprint)
	}

	return nil
}
