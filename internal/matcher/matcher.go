// Package matcher implements the tiered matching rules that pair one payment
// transaction with at most one bank statement, plus duplicate detection over
// the statement pool and special-case handling for failed and pending
// transactions.
//
// Three tiers are tried in strict priority order per transaction:
//
//   - Reference: bank reference equality plus amount tolerance (confidence 1.0)
//   - Three-way: merchant + amount + settlement date within 2 days (0.95,
//     or 0.8 when ambiguous)
//   - Fuzzy: merchant + amount only (0.6, always needs review)
//
// All matcher entry points are read-only: they observe the claimed-statement
// set but never mutate it. Claiming is the orchestrator's responsibility.
package matcher

import (
	"sort"
	"time"

	"payment-reconciliation-service/internal/models"
)

// Candidate pairs a statement with the tier that selected it. CandidateCount
// is greater than one when the tier found multiple plausible statements; the
// ambiguity is surfaced, not resolved.
type Candidate struct {
	Statement      *models.BankStatement
	Type           models.MatchType
	Confidence     float64
	CandidateCount int
}

// SpecialCase is the verdict of the special-case handler for failed and
// pending transactions. Statement is non-nil only for pending matches, which
// claim a pending statement.
type SpecialCase struct {
	Status    models.ReconciliationStatus
	Type      models.MatchType
	Statement *models.BankStatement
	Reason    string
}

// Config holds the matching tolerances.
type Config struct {
	DateToleranceDays int
}

// DefaultConfig returns the standard tolerances: settlement date within two
// days of the transaction timestamp. Amount tolerance is fixed at one cent
// (models.AmountTolerance).
func DefaultConfig() *Config {
	return &Config{DateToleranceDays: 2}
}

// TieredMatcher evaluates the matching tiers for one transaction against a
// candidate pool of statements.
type TieredMatcher struct {
	config *Config
}

// NewTieredMatcher creates a matcher with the given configuration, falling
// back to defaults when nil.
func NewTieredMatcher(config *Config) *TieredMatcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &TieredMatcher{config: config}
}

// MatchByReference implements the reference tier: an unclaimed statement
// whose bank reference equals the transaction's reference and whose amount is
// within tolerance. A reference collision with a mismatched amount is not a
// match and falls through to the lower tiers.
func (m *TieredMatcher) MatchByReference(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *Candidate {
	if tx.BankReferenceID == "" {
		return nil
	}

	for _, stmt := range pool {
		if claimed[stmt.BankReferenceID] {
			continue
		}
		if stmt.BankReferenceID != tx.BankReferenceID {
			continue
		}
		if models.AmountsMatch(tx.Amount, stmt.Amount) {
			return &Candidate{
				Statement:      stmt,
				Type:           models.MatchReference,
				Confidence:     1.0,
				CandidateCount: 1,
			}
		}
	}
	return nil
}

// MatchByThreeWay implements the three-way tier: merchant equality, amount
// within tolerance, and settlement date within the configured day tolerance
// (inclusive). A single candidate is a firm match; multiple candidates are
// surfaced as an ambiguous partial match carrying the candidate count, with
// the representative chosen deterministically (closest date, then reference).
func (m *TieredMatcher) MatchByThreeWay(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *Candidate {
	var candidates []*models.BankStatement

	for _, stmt := range pool {
		if claimed[stmt.BankReferenceID] {
			continue
		}
		if stmt.MerchantAccountID != tx.MerchantID {
			continue
		}
		if !models.AmountsMatch(tx.Amount, stmt.Amount) {
			continue
		}
		if !models.WithinDays(tx.Timestamp, stmt.SettlementDate, m.config.DateToleranceDays) {
			continue
		}
		candidates = append(candidates, stmt)
	}

	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return &Candidate{
			Statement:      candidates[0],
			Type:           models.MatchThreeWay,
			Confidence:     0.95,
			CandidateCount: 1,
		}
	default:
		sortByDateProximity(candidates, tx.Timestamp)
		return &Candidate{
			Statement:      candidates[0],
			Type:           models.MatchPartial,
			Confidence:     0.8,
			CandidateCount: len(candidates),
		}
	}
}

// MatchByFuzzy implements the fuzzy tier: merchant and amount only, no date
// constraint. Fuzzy matches always require review; multiple candidates are
// reported with their count.
func (m *TieredMatcher) MatchByFuzzy(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *Candidate {
	var candidates []*models.BankStatement

	for _, stmt := range pool {
		if claimed[stmt.BankReferenceID] {
			continue
		}
		if stmt.MerchantAccountID != tx.MerchantID {
			continue
		}
		if !models.AmountsMatch(tx.Amount, stmt.Amount) {
			continue
		}
		candidates = append(candidates, stmt)
	}

	if len(candidates) == 0 {
		return nil
	}

	// No date criterion exists at this tier, so order by reference only.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].BankReferenceID < candidates[j].BankReferenceID
	})

	return &Candidate{
		Statement:      candidates[0],
		Type:           models.MatchFuzzy,
		Confidence:     0.6,
		CandidateCount: len(candidates),
	}
}

// HandleSpecialCases intercepts transactions whose status makes ordinary
// matching unsafe. Failed transactions are routed straight to review and
// never reach the tiers. Pending transactions claim the first unclaimed
// pending statement when one exists; otherwise they fall through to the
// tiers (a pending transaction may still match a cleared statement).
func (m *TieredMatcher) HandleSpecialCases(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *SpecialCase {
	if tx.Status == models.TransactionFailed {
		return &SpecialCase{
			Status: models.StatusReview,
			Type:   models.MatchFailedTransaction,
			Reason: "Failed transaction - should not match cleared settlement",
		}
	}

	if tx.Status == models.TransactionPending {
		for _, stmt := range pool {
			if claimed[stmt.BankReferenceID] {
				continue
			}
			if stmt.Status == models.StatementPending {
				return &SpecialCase{
					Status:    models.StatusPartial,
					Type:      models.MatchPendingMatch,
					Statement: stmt,
					Reason:    "Pending transaction matched to pending settlement",
				}
			}
		}
	}

	return nil
}

// sortByDateProximity orders statements by absolute distance from the
// transaction timestamp, breaking ties by bank reference so the chosen
// representative does not depend on storage iteration order.
func sortByDateProximity(statements []*models.BankStatement, ts time.Time) {
	sort.Slice(statements, func(i, j int) bool {
		di := absDuration(ts.Sub(statements[i].SettlementDate))
		dj := absDuration(ts.Sub(statements[j].SettlementDate))
		if di != dj {
			return di < dj
		}
		return statements[i].BankReferenceID < statements[j].BankReferenceID
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
