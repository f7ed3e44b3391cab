package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"payment-reconciliation-service/internal/models"
)

// MemoryStore is an in-memory Store used by tests and by the orchestrator
// and handler test suites. It preserves insertion order for transactions and
// statements, matching the snapshot-order guarantee of the SQLite store.
type MemoryStore struct {
	mu           sync.Mutex
	transactions []*models.Transaction
	statements   []*models.BankStatement
	runs         []*models.Run
	AuditEvents  []AuditEvent

	// FailCreateRun forces CreateRun to return this error when set; used to
	// exercise persistence-failure paths.
	FailCreateRun error
	// FailAudit forces RecordEvent to return this error when set.
	FailAudit error
}

// AuditEvent is a recorded audit entry.
type AuditEvent struct {
	Action  string
	Actor   string
	Details map[string]interface{}
	At      time.Time
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// ListTransactions returns copies of all transactions in insertion order.
func (m *MemoryStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		cp := *tx
		result = append(result, &cp)
	}
	return result, nil
}

// SaveTransaction inserts or replaces a transaction.
func (m *MemoryStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	for i, existing := range m.transactions {
		if existing.TransactionID == tx.TransactionID {
			m.transactions[i] = &cp
			return nil
		}
	}
	m.transactions = append(m.transactions, &cp)
	return nil
}

// UpdateTransactionOutcomes applies outcomes to the stored transactions.
func (m *MemoryStore) UpdateTransactionOutcomes(ctx context.Context, outcomes []TransactionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]*models.Transaction, len(m.transactions))
	for _, tx := range m.transactions {
		byID[tx.TransactionID] = tx
	}
	for _, o := range outcomes {
		tx, ok := byID[o.TransactionID]
		if !ok {
			continue
		}
		tx.ReconciliationStatus = o.Status
		tx.MatchedStatementID = o.MatchedStatementID
		tx.MatchType = o.MatchType
	}
	return nil
}

// DeleteAllTransactions removes every transaction.
func (m *MemoryStore) DeleteAllTransactions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = nil
	return nil
}

// ListStatements returns copies of all statements in insertion order.
func (m *MemoryStore) ListStatements(ctx context.Context) ([]*models.BankStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.BankStatement, 0, len(m.statements))
	for _, stmt := range m.statements {
		cp := *stmt
		result = append(result, &cp)
	}
	return result, nil
}

// SaveStatement inserts or replaces a statement.
func (m *MemoryStore) SaveStatement(ctx context.Context, stmt *models.BankStatement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *stmt
	for i, existing := range m.statements {
		if existing.BankReferenceID == stmt.BankReferenceID {
			m.statements[i] = &cp
			return nil
		}
	}
	m.statements = append(m.statements, &cp)
	return nil
}

// UpdateStatementOutcomes applies outcomes to the stored statements.
func (m *MemoryStore) UpdateStatementOutcomes(ctx context.Context, outcomes []StatementOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byRef := make(map[string]*models.BankStatement, len(m.statements))
	for _, stmt := range m.statements {
		byRef[stmt.BankReferenceID] = stmt
	}
	for _, o := range outcomes {
		stmt, ok := byRef[o.BankReferenceID]
		if !ok {
			continue
		}
		stmt.ReconciliationStatus = o.Status
		stmt.MatchedTransactionID = o.MatchedTransactionID
		stmt.MatchType = o.MatchType
	}
	return nil
}

// DeleteAllStatements removes every statement.
func (m *MemoryStore) DeleteAllStatements(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = nil
	return nil
}

// CreateRun persists one run.
func (m *MemoryStore) CreateRun(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreateRun != nil {
		return m.FailCreateRun
	}

	cp := *run
	cp.Details = append([]models.Detail(nil), run.Details...)
	m.runs = append(m.runs, &cp)
	return nil
}

// LatestRun returns the most recent run by run date.
func (m *MemoryStore) LatestRun(ctx context.Context) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.runs) == 0 {
		return nil, nil
	}

	latest := m.runs[0]
	for _, run := range m.runs[1:] {
		if run.RunDate.After(latest.RunDate) {
			latest = run
		}
	}
	cp := *latest
	cp.Details = append([]models.Detail(nil), latest.Details...)
	return &cp, nil
}

// GetRun returns the run with the given ID.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs {
		if run.ID == id {
			cp := *run
			cp.Details = append([]models.Detail(nil), run.Details...)
			return &cp, nil
		}
	}
	return nil, nil
}

// ListRuns returns a newest-first page of run summaries plus the total count.
func (m *MemoryStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ordered := make([]*models.Run, len(m.runs))
	copy(ordered, m.runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].RunDate.After(ordered[j].RunDate)
	})

	total := len(ordered)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	var result []*models.Run
	for _, run := range ordered[offset:end] {
		cp := *run
		cp.Details = nil
		result = append(result, &cp)
	}
	return result, total, nil
}

// DeleteRun removes one run by ID.
func (m *MemoryStore) DeleteRun(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, run := range m.runs {
		if run.ID == id {
			m.runs = append(m.runs[:i], m.runs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// DeleteAllRuns removes every run.
func (m *MemoryStore) DeleteAllRuns(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(len(m.runs))
	m.runs = nil
	return count, nil
}

// RecordEvent appends an audit entry.
func (m *MemoryStore) RecordEvent(ctx context.Context, action, actor string, details map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAudit != nil {
		return m.FailAudit
	}

	m.AuditEvents = append(m.AuditEvents, AuditEvent{
		Action:  action,
		Actor:   actor,
		Details: details,
		At:      time.Now(),
	})
	return nil
}
