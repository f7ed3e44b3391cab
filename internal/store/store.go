// Package store defines the persistence contracts consumed by the
// reconciliation core and provides two implementations: a SQLite-backed
// store for real deployments and an in-memory store for tests.
//
// The interfaces are split per concern so the orchestrator and the reporting
// layer only depend on the operations they actually use.
package store

import (
	"context"

	"payment-reconciliation-service/internal/models"
)

// TransactionOutcome is the denormalized reconciliation verdict written back
// to a transaction at the end of a run.
type TransactionOutcome struct {
	TransactionID      string
	Status             models.ReconciliationStatus
	MatchedStatementID string
	MatchType          models.MatchType
}

// StatementOutcome is the reconciliation verdict written back to a statement.
type StatementOutcome struct {
	BankReferenceID      string
	Status               models.ReconciliationStatus
	MatchedTransactionID string
	MatchType            models.MatchType
}

// TransactionStore provides snapshot reads and outcome write-back for
// transactions.
type TransactionStore interface {
	// ListTransactions returns all transactions in stable insertion order.
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)

	// SaveTransaction inserts or replaces a transaction.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error

	// UpdateTransactionOutcomes applies reconciliation outcomes as one batch.
	UpdateTransactionOutcomes(ctx context.Context, outcomes []TransactionOutcome) error

	// DeleteAllTransactions removes every transaction.
	DeleteAllTransactions(ctx context.Context) error
}

// StatementStore provides snapshot reads and outcome write-back for bank
// statements.
type StatementStore interface {
	// ListStatements returns all statements in stable insertion order.
	ListStatements(ctx context.Context) ([]*models.BankStatement, error)

	// SaveStatement inserts or replaces a statement, keyed by bank reference.
	SaveStatement(ctx context.Context, stmt *models.BankStatement) error

	// UpdateStatementOutcomes applies reconciliation outcomes as one batch.
	UpdateStatementOutcomes(ctx context.Context, outcomes []StatementOutcome) error

	// DeleteAllStatements removes every statement.
	DeleteAllStatements(ctx context.Context) error
}

// RunStore persists immutable reconciliation runs.
type RunStore interface {
	// CreateRun persists a run atomically: summary and details together or
	// nothing.
	CreateRun(ctx context.Context, run *models.Run) error

	// LatestRun returns the most recent run by run date, or (nil, nil) when
	// no runs exist.
	LatestRun(ctx context.Context) (*models.Run, error)

	// GetRun returns the run with the given ID, or (nil, nil) when absent.
	GetRun(ctx context.Context, id string) (*models.Run, error)

	// ListRuns returns a newest-first page of runs plus the total count.
	// Details are omitted from listed runs; only summaries are populated.
	ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, int, error)

	// DeleteRun removes one run by ID. Returns (false, nil) when absent.
	DeleteRun(ctx context.Context, id string) (bool, error)

	// DeleteAllRuns removes every run and returns the number deleted.
	DeleteAllRuns(ctx context.Context) (int64, error)
}

// AuditSink records audit events. Implementations are best-effort: callers
// log failures but never let them affect reconciliation outcomes.
type AuditSink interface {
	RecordEvent(ctx context.Context, action, actor string, details map[string]interface{}) error
}

// Store is the aggregate persistence interface wired into the service.
type Store interface {
	TransactionStore
	StatementStore
	RunStore
	AuditSink
	Close() error
}
