package matcher

import (
	"fmt"
	"time"

	"payment-reconciliation-service/internal/models"
)

// DuplicatePair records two statements that are indistinguishable from one
// another: same merchant account, same amount, same settlement day. The
// first statement observed for a key is the baseline.
type DuplicatePair struct {
	Baseline  *models.BankStatement
	Duplicate *models.BankStatement
	Reason    string
}

// DuplicateReport is the output of one duplicate-detection pass over the
// statement pool.
type DuplicateReport struct {
	Pairs   []DuplicatePair
	flagged map[string]bool
}

// Flagged reports whether the statement with the given bank reference is a
// member of at least one duplicate pair.
func (r *DuplicateReport) Flagged(bankReferenceID string) bool {
	return r.flagged[bankReferenceID]
}

// FlaggedCount returns the number of statements flagged as duplicates.
func (r *DuplicateReport) FlaggedCount() int {
	return len(r.flagged)
}

// DetectDuplicates scans the statement pool once and groups statements by
// the composite key merchant || amount || settlement day. Statements with a
// missing settlement date share a sentinel no-date bucket rather than being
// skipped.
func DetectDuplicates(pool []*models.BankStatement) *DuplicateReport {
	report := &DuplicateReport{flagged: make(map[string]bool)}
	baselines := make(map[string]*models.BankStatement)

	for _, stmt := range pool {
		key := duplicateKey(stmt)

		baseline, seen := baselines[key]
		if !seen {
			baselines[key] = stmt
			continue
		}

		report.Pairs = append(report.Pairs, DuplicatePair{
			Baseline:  baseline,
			Duplicate: stmt,
			Reason:    "Same merchant + amount + date",
		})
		report.flagged[baseline.BankReferenceID] = true
		report.flagged[stmt.BankReferenceID] = true
	}

	return report
}

func duplicateKey(stmt *models.BankStatement) string {
	merchant := stmt.MerchantAccountID
	if merchant == "" {
		merchant = "UNKNOWN"
	}

	day := "NODATE"
	if !stmt.SettlementDate.IsZero() {
		day = stmt.SettlementDate.UTC().Truncate(24 * time.Hour).Format(time.DateOnly)
	}

	return fmt.Sprintf("%s||%s||%s", merchant, stmt.Amount.String(), day)
}
