// Package reconciler orchestrates reconciliation runs: it snapshots the two
// record sets, drives the special-case handler and the three match tiers for
// every transaction, maintains the claimed-statement set, writes back
// per-record outcomes in one batch, and persists one immutable run record.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"payment-reconciliation-service/internal/matcher"
	"payment-reconciliation-service/internal/models"
	"payment-reconciliation-service/internal/store"
	apperrors "payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"
)

// statementMatcher is the matching surface the orchestrator drives per
// transaction. matcher.TieredMatcher satisfies it; tests may substitute a
// faulting implementation.
type statementMatcher interface {
	HandleSpecialCases(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *matcher.SpecialCase
	MatchByReference(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *matcher.Candidate
	MatchByThreeWay(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *matcher.Candidate
	MatchByFuzzy(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) *matcher.Candidate
}

// Service runs reconciliations against the configured store.
type Service struct {
	store   store.Store
	matcher statementMatcher
	log     logger.Logger
}

// Compile-time check that the tiered matcher satisfies the orchestration
// surface.
var _ statementMatcher = (*matcher.TieredMatcher)(nil)

// NewService creates a reconciliation service. A nil matcher gets the
// default tolerances.
func NewService(st store.Store, m *matcher.TieredMatcher) *Service {
	if m == nil {
		m = matcher.NewTieredMatcher(nil)
	}
	return &Service{
		store:   st,
		matcher: m,
		log:     logger.WithComponent("reconciler"),
	}
}

// Run executes one complete reconciliation over a frozen snapshot of
// transactions and statements. The actor is recorded in the audit trail
// only; it does not influence matching.
//
// Preconditions: at least one transaction and at least one statement must be
// loaded, otherwise the run is rejected before any state mutation. A
// per-transaction processing fault is downgraded to a review outcome for
// that record; store and persistence faults are fatal to the run.
func (s *Service) Run(ctx context.Context, actor string) (*models.Run, error) {
	transactions, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	statements, err := s.store.ListStatements(ctx)
	if err != nil {
		return nil, err
	}

	if len(transactions) == 0 {
		return nil, apperrors.PreconditionError(apperrors.CodeNoTransactions,
			"no transactions to reconcile")
	}
	if len(statements) == 0 {
		return nil, apperrors.PreconditionError(apperrors.CodeNoStatements,
			"no bank statements to reconcile")
	}

	s.log.WithFields(logger.Fields{
		"transactions": len(transactions),
		"statements":   len(statements),
	}).Info("Starting reconciliation run")

	duplicates := matcher.DetectDuplicates(statements)

	claimed := make(map[string]bool)
	summary := models.Summary{TotalTransactions: len(transactions)}
	details := make([]models.Detail, 0, len(transactions))
	txOutcomes := make([]store.TransactionOutcome, 0, len(transactions))
	stOutcomes := make([]store.StatementOutcome, 0, len(statements))

	progress := logger.NewProgressTracker("reconciliation", int64(len(transactions)), 0)
	for _, tx := range transactions {
		detail := s.processTransaction(tx, statements, claimed)

		if detail.MatchedStatementID != "" {
			claimed[detail.MatchedStatementID] = true
			stOutcomes = append(stOutcomes, store.StatementOutcome{
				BankReferenceID:      detail.MatchedStatementID,
				Status:               detail.ReconciliationStatus,
				MatchedTransactionID: tx.TransactionID,
				MatchType:            detail.MatchType,
			})
		}

		switch detail.ReconciliationStatus {
		case models.StatusMatched:
			summary.Matched++
		case models.StatusPartial:
			summary.Partial++
		case models.StatusUnmatched:
			summary.Unmatched++
		case models.StatusReview:
			summary.Review++
		}
		if detail.MatchType == models.MatchFailedTransaction {
			summary.Failed++
		}
		summary.CountMatchType(detail.MatchType)

		txOutcomes = append(txOutcomes, store.TransactionOutcome{
			TransactionID:      tx.TransactionID,
			Status:             detail.ReconciliationStatus,
			MatchedStatementID: detail.MatchedStatementID,
			MatchType:          detail.MatchType,
		})
		details = append(details, detail)
		progress.Increment()
	}
	progress.Done()

	// Classify leftover statements: flagged duplicates are reported as
	// duplicate, everything else as unmatched. A claimed statement is never
	// treated as a duplicate.
	for _, stmt := range statements {
		if claimed[stmt.BankReferenceID] {
			continue
		}
		outcome := store.StatementOutcome{BankReferenceID: stmt.BankReferenceID}
		if duplicates.Flagged(stmt.BankReferenceID) {
			outcome.Status = models.StatusDuplicate
			summary.Duplicate++
		} else {
			outcome.Status = models.StatusUnmatched
			summary.Unmatched++
		}
		stOutcomes = append(stOutcomes, outcome)
	}

	// All outcomes were computed against the frozen snapshot; apply the
	// write-backs in one batch so concurrent readers never observe a
	// half-processed run.
	if err := s.store.UpdateTransactionOutcomes(ctx, txOutcomes); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatementOutcomes(ctx, stOutcomes); err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:      store.NewRunID(),
		RunDate: time.Now().UTC(),
		Summary: summary,
		Details: details,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, &summary)

	s.log.WithFields(logger.Fields{
		"run_id":    run.ID,
		"matched":   summary.Matched,
		"partial":   summary.Partial,
		"unmatched": summary.Unmatched,
		"review":    summary.Review,
		"duplicate": summary.Duplicate,
	}).Info("Reconciliation run completed")

	return run, nil
}

// processTransaction evaluates the state machine for one transaction:
// special cases first, then the tiers in priority order, short-circuiting on
// the first hit. A panic while processing downgrades the record to a review
// outcome instead of aborting the run.
func (s *Service) processTransaction(tx *models.Transaction, pool []*models.BankStatement, claimed map[string]bool) (detail models.Detail) {
	detail = models.Detail{
		TransactionID:        tx.TransactionID,
		TransactionAmount:    tx.Amount,
		TransactionStatus:    tx.Status,
		ReconciliationStatus: models.StatusUnmatched,
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("transaction_id", tx.TransactionID).
				Errorf("Recovered from processing fault: %v", r)
			detail = models.Detail{
				TransactionID:        tx.TransactionID,
				TransactionAmount:    tx.Amount,
				TransactionStatus:    tx.Status,
				ReconciliationStatus: models.StatusReview,
				Reason:               fmt.Sprintf("Processing error: %v", r),
				RequiresReview:       true,
			}
		}
	}()

	if special := s.matcher.HandleSpecialCases(tx, pool, claimed); special != nil {
		detail.ReconciliationStatus = special.Status
		detail.MatchType = special.Type
		detail.Reason = special.Reason
		detail.RequiresReview = true
		if special.Statement != nil {
			amount := special.Statement.Amount
			detail.MatchedStatementID = special.Statement.BankReferenceID
			detail.MatchedAmount = &amount
		}
		return detail
	}

	if c := s.matcher.MatchByReference(tx, pool, claimed); c != nil {
		return s.applyCandidate(detail, c,
			models.StatusMatched, "Perfect match by bank reference ID", false)
	}

	if c := s.matcher.MatchByThreeWay(tx, pool, claimed); c != nil {
		if c.CandidateCount > 1 {
			reason := fmt.Sprintf("Multiple potential matches (%d). Needs manual review.", c.CandidateCount)
			return s.applyCandidate(detail, c, models.StatusPartial, reason, true)
		}
		return s.applyCandidate(detail, c,
			models.StatusMatched, "Three-way match: merchant + amount + date within 2 days", false)
	}

	if c := s.matcher.MatchByFuzzy(tx, pool, claimed); c != nil {
		if c.CandidateCount > 1 {
			reason := fmt.Sprintf("Multiple fuzzy matches (%d). Requires manual review.", c.CandidateCount)
			return s.applyCandidate(detail, c, models.StatusReview, reason, true)
		}
		return s.applyCandidate(detail, c,
			models.StatusPartial, "Fuzzy match: merchant + amount, but date mismatch. Requires review.", true)
	}

	detail.Reason = "No matching bank statement found"
	return detail
}

func (s *Service) applyCandidate(detail models.Detail, c *matcher.Candidate, status models.ReconciliationStatus, reason string, review bool) models.Detail {
	amount := c.Statement.Amount
	detail.ReconciliationStatus = status
	detail.MatchType = c.Type
	detail.MatchedStatementID = c.Statement.BankReferenceID
	detail.MatchedAmount = &amount
	detail.Confidence = c.Confidence
	detail.Reason = reason
	detail.RequiresReview = review
	return detail
}

// audit records the run in the audit trail. Audit failures are logged and
// swallowed; they never fail a reconciliation run.
func (s *Service) audit(ctx context.Context, actor string, summary *models.Summary) {
	details := map[string]interface{}{
		"total_transactions": summary.TotalTransactions,
		"matched":            summary.Matched,
		"partial":            summary.Partial,
		"unmatched":          summary.Unmatched,
		"duplicate":          summary.Duplicate,
		"review":             summary.Review,
	}
	if err := s.store.RecordEvent(ctx, "reconcile.run", actor, details); err != nil {
		s.log.WithError(err).Warn("Audit sink failure ignored")
	}
}
