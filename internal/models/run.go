package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Detail is the per-transaction outcome embedded in a Run. Details have no
// identity outside their run.
type Detail struct {
	TransactionID        string               `json:"transactionId"`
	TransactionAmount    decimal.Decimal      `json:"transactionAmount"`
	TransactionStatus    TransactionStatus    `json:"transactionStatus"`
	ReconciliationStatus ReconciliationStatus `json:"reconciliationStatus"`
	MatchType            MatchType            `json:"matchType,omitempty"`
	MatchedStatementID   string               `json:"matchedStatementId,omitempty"`
	MatchedAmount        *decimal.Decimal     `json:"matchedAmount,omitempty"`
	Confidence           float64              `json:"confidence"`
	Reason               string               `json:"reason"`
	RequiresReview       bool                 `json:"requiresReview"`
}

// MatchTypeCounts breaks the summary down by the rule that produced each
// match.
type MatchTypeCounts struct {
	Reference         int `json:"reference"`
	Threeway          int `json:"threeway"`
	Fuzzy             int `json:"fuzzy"`
	Manual            int `json:"manual"`
	FailedTransaction int `json:"failed_transaction"`
	PendingMatch      int `json:"pending_match"`
}

// Summary is the fixed counter set aggregated over one run. Transaction-side
// counters (Matched, Partial, Unmatched, Review) sum to TotalTransactions;
// Duplicate and the statement-side share of Unmatched count leftover
// statements. Failed tracks failed transactions informationally, folded into
// Review for the consistency equation.
type Summary struct {
	TotalTransactions int             `json:"total_transactions"`
	Matched           int             `json:"matched"`
	Partial           int             `json:"partial"`
	Unmatched         int             `json:"unmatched"`
	Duplicate         int             `json:"duplicate"`
	Failed            int             `json:"failed"`
	Review            int             `json:"review"`
	MatchesByType     MatchTypeCounts `json:"matches_by_type"`
}

// CountMatchType increments the per-type counter for the given match type.
// Ambiguous three-way matches are reported with MatchPartial on the detail
// but still count toward the threeway bucket.
func (s *Summary) CountMatchType(m MatchType) {
	switch m {
	case MatchReference:
		s.MatchesByType.Reference++
	case MatchThreeWay, MatchPartial:
		s.MatchesByType.Threeway++
	case MatchFuzzy:
		s.MatchesByType.Fuzzy++
	case MatchManual:
		s.MatchesByType.Manual++
	case MatchFailedTransaction:
		s.MatchesByType.FailedTransaction++
	case MatchPendingMatch:
		s.MatchesByType.PendingMatch++
	}
}

// Run is one complete execution of the reconciliation algorithm over a
// snapshot of transactions and statements. Runs are immutable once persisted;
// a new run never updates a prior one.
type Run struct {
	ID      string    `json:"id"`
	RunDate time.Time `json:"runDate"`
	Summary Summary   `json:"summary"`
	Details []Detail  `json:"details"`
}
