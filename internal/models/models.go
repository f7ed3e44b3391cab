// Package models defines the domain records exchanged between the matcher,
// the run orchestrator, and the stores: payment transactions recorded by the
// system and settlement statements reported by the bank.
//
// Monetary amounts use shopspring/decimal throughout. Amount equality is
// always tolerance-based (one cent); bit-exact float comparison is never used.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle status of a payment transaction.
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
	TransactionPending TransactionStatus = "pending"
)

// String returns the string representation of TransactionStatus.
func (s TransactionStatus) String() string { return string(s) }

// IsValid checks if the transaction status is a known value.
func (s TransactionStatus) IsValid() bool {
	return s == TransactionSuccess || s == TransactionFailed || s == TransactionPending
}

// StatementStatus is the clearing status of a bank statement.
type StatementStatus string

const (
	StatementCleared StatementStatus = "cleared"
	StatementPending StatementStatus = "pending"
	StatementFailed  StatementStatus = "failed"
)

// String returns the string representation of StatementStatus.
func (s StatementStatus) String() string { return string(s) }

// IsValid checks if the statement status is a known value.
func (s StatementStatus) IsValid() bool {
	return s == StatementCleared || s == StatementPending || s == StatementFailed
}

// ReconciliationStatus is the outcome assigned to a record by a run.
type ReconciliationStatus string

const (
	StatusUnmatched ReconciliationStatus = "unmatched"
	StatusMatched   ReconciliationStatus = "matched"
	StatusPartial   ReconciliationStatus = "partial"
	StatusDuplicate ReconciliationStatus = "duplicate"
	StatusReview    ReconciliationStatus = "review"
)

// String returns the string representation of ReconciliationStatus.
func (s ReconciliationStatus) String() string { return string(s) }

// IsValid checks if the reconciliation status is a known value.
func (s ReconciliationStatus) IsValid() bool {
	switch s {
	case StatusUnmatched, StatusMatched, StatusPartial, StatusDuplicate, StatusReview:
		return true
	default:
		return false
	}
}

// MatchType identifies which rule produced a match. The zero value ("")
// means no match was made.
type MatchType string

const (
	MatchNone              MatchType = ""
	MatchReference         MatchType = "reference"
	MatchThreeWay          MatchType = "threeway"
	MatchFuzzy             MatchType = "fuzzy"
	MatchPartial           MatchType = "partial"
	MatchManual            MatchType = "manual"
	MatchFailedTransaction MatchType = "failed_transaction"
	MatchPendingMatch      MatchType = "pending_match"
)

// String returns the string representation of MatchType.
func (m MatchType) String() string { return string(m) }

// IsValid checks if the match type is a known value. MatchNone is valid;
// it represents the absence of a match.
func (m MatchType) IsValid() bool {
	switch m {
	case MatchNone, MatchReference, MatchThreeWay, MatchFuzzy, MatchPartial,
		MatchManual, MatchFailedTransaction, MatchPendingMatch:
		return true
	default:
		return false
	}
}

// Transaction is an internally recorded payment event awaiting settlement
// confirmation. The orchestrator only ever mutates the reconciliation
// outcome fields; business fields are read-only once loaded.
type Transaction struct {
	TransactionID   string            `json:"transactionId"`
	MerchantID      string            `json:"merchantId"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	PaymentMethod   string            `json:"paymentMethod"`
	Timestamp       time.Time         `json:"timestamp"`
	Status          TransactionStatus `json:"status"`
	BankReferenceID string            `json:"bankReferenceId,omitempty"`

	// Denormalized outcome of the latest reconciliation run.
	ReconciliationStatus ReconciliationStatus `json:"reconciliationStatus"`
	MatchedStatementID   string               `json:"matchedStatementId,omitempty"`
	MatchType            MatchType            `json:"matchType,omitempty"`
}

// Validate performs basic validation on the Transaction.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.TransactionID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}
	if strings.TrimSpace(t.MerchantID) == "" {
		return fmt.Errorf("merchant ID cannot be empty")
	}
	if t.Amount.IsNegative() || t.Amount.IsZero() {
		return fmt.Errorf("transaction amount must be positive, got %s", t.Amount)
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("invalid transaction status: %s", t.Status)
	}
	return nil
}

// String returns a string representation of the Transaction.
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Merchant: %s, Amount: %s, Status: %s}",
		t.TransactionID, t.MerchantID, t.Amount.String(), t.Status)
}

// BankStatement is a bank-reported settlement record, the ground truth for
// whether money actually moved. As with Transaction, only the outcome fields
// are mutated by the orchestrator.
type BankStatement struct {
	BankReferenceID   string          `json:"bankReferenceId"`
	Amount            decimal.Decimal `json:"amount"`
	MerchantAccountID string          `json:"merchantAccountId"`
	BankName          string          `json:"bankName,omitempty"`
	SettlementDate    time.Time       `json:"settlementDate"`
	Status            StatementStatus `json:"status"`

	// Denormalized outcome of the latest reconciliation run.
	ReconciliationStatus ReconciliationStatus `json:"reconciliationStatus"`
	MatchedTransactionID string               `json:"matchedTransactionId,omitempty"`
	MatchType            MatchType            `json:"matchType,omitempty"`
	Notes                string               `json:"notes,omitempty"`
}

// Validate performs basic validation on the BankStatement.
func (bs *BankStatement) Validate() error {
	if strings.TrimSpace(bs.BankReferenceID) == "" {
		return fmt.Errorf("bank reference ID cannot be empty")
	}
	if strings.TrimSpace(bs.MerchantAccountID) == "" {
		return fmt.Errorf("merchant account ID cannot be empty")
	}
	if bs.Amount.IsNegative() || bs.Amount.IsZero() {
		return fmt.Errorf("statement amount must be positive, got %s", bs.Amount)
	}
	if bs.Status != "" && !bs.Status.IsValid() {
		return fmt.Errorf("invalid statement status: %s", bs.Status)
	}
	return nil
}

// String returns a string representation of the BankStatement.
func (bs *BankStatement) String() string {
	return fmt.Sprintf("BankStatement{Ref: %s, Merchant: %s, Amount: %s, Status: %s}",
		bs.BankReferenceID, bs.MerchantAccountID, bs.Amount.String(), bs.Status)
}

// AmountTolerance is the absolute tolerance for amount equality: one cent in
// the record's native currency unit.
var AmountTolerance = decimal.NewFromFloat(0.01)

// AmountsMatch reports whether two amounts are equal within the one-cent
// tolerance.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// WithinDays reports whether two timestamps are at most the given number of
// days apart, measured as absolute difference and inclusive of the boundary.
// A zero timestamp on either side never matches.
func WithinDays(a, b time.Time, days int) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}
