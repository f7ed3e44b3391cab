// Package reporter provides the read-only queries over persisted
// reconciliation runs: latest summary, mismatch listing, paginated history,
// and the CSV projection of a run's details.
package reporter

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/store"
	apperrors "payment-reconciliation-service/pkg/errors"
)

// Default and maximum page sizes for run history.
const (
	DefaultHistoryLimit = 5
	MaxHistoryLimit     = 100
)

// Reporter answers read-only queries over the run store.
type Reporter struct {
	runs store.RunStore
}

// NewReporter creates a reporter backed by the given run store.
func NewReporter(runs store.RunStore) *Reporter {
	return &Reporter{runs: runs}
}

// errNoRuns builds the error returned when no reconciliation has run yet.
func errNoRuns() error {
	return apperrors.New(apperrors.CategoryReconciliation, apperrors.CodeNoRuns,
		"no reconciliation results found").
		WithSuggestion("run a reconciliation first")
}

// LatestSummary returns the most recent run's summary and run date.
func (r *Reporter) LatestSummary(ctx context.Context) (*models.Summary, time.Time, error) {
	latest, err := r.runs.LatestRun(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if latest == nil {
		return nil, time.Time{}, errNoRuns()
	}
	summary := latest.Summary
	return &summary, latest.RunDate, nil
}

// Mismatches returns the latest run's details that need attention: not
// matched, and either flagged for review or unmatched. With showAll the full
// unfiltered detail list is returned, matched records included.
func (r *Reporter) Mismatches(ctx context.Context, showAll bool) ([]models.Detail, error) {
	latest, err := r.runs.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, errNoRuns()
	}

	if showAll {
		return latest.Details, nil
	}

	items := make([]models.Detail, 0)
	for _, d := range latest.Details {
		if d.ReconciliationStatus == models.StatusMatched {
			continue
		}
		if d.RequiresReview || d.ReconciliationStatus == models.StatusUnmatched {
			items = append(items, d)
		}
	}
	return items, nil
}

// HistoryEntry is one run in the history listing.
type HistoryEntry struct {
	ID      string         `json:"id"`
	RunDate time.Time      `json:"runDate"`
	Summary models.Summary `json:"summary"`
}

// HistoryPage is a newest-first page of prior runs' summaries.
type HistoryPage struct {
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Items  []HistoryEntry `json:"items"`
}

// History returns a page of run summaries ordered newest-first. A
// non-positive limit falls back to the default; limits above the maximum are
// capped. A negative offset is treated as zero.
func (r *Reporter) History(ctx context.Context, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := r.runs.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Items:  make([]HistoryEntry, 0, len(runs)),
	}
	for _, run := range runs {
		page.Items = append(page.Items, HistoryEntry{
			ID:      run.ID,
			RunDate: run.RunDate,
			Summary: run.Summary,
		})
	}
	return page, nil
}

// csvHeader is the fixed column order of the CSV projection.
var csvHeader = []string{
	"transactionId",
	"transactionAmount",
	"transactionStatus",
	"reconciliationStatus",
	"matchType",
	"matchedAmount",
	"confidence",
	"reason",
}

// WriteCSV flattens the latest run's details into CSV on the given writer.
func (r *Reporter) WriteCSV(ctx context.Context, w io.Writer) error {
	latest, err := r.runs.LatestRun(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		return errNoRuns()
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return apperrors.InternalError("write csv header", err)
	}

	for _, d := range latest.Details {
		matchedAmount := ""
		if d.MatchedAmount != nil {
			matchedAmount = d.MatchedAmount.String()
		}
		record := []string{
			d.TransactionID,
			d.TransactionAmount.String(),
			string(d.TransactionStatus),
			string(d.ReconciliationStatus),
			string(d.MatchType),
			matchedAmount,
			strconv.FormatFloat(d.Confidence, 'f', -1, 64),
			d.Reason,
		}
		if err := cw.Write(record); err != nil {
			return apperrors.InternalError("write csv record", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.InternalError("flush csv", err)
	}
	return nil
}
