package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "payment-reconciliation-service/pkg/errors"

	"payment-reconciliation-service/internal/models"
)

// SQLiteStore is the SQLite-backed persistence layer.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id        TEXT PRIMARY KEY,
	merchant_id           TEXT NOT NULL,
	amount                TEXT NOT NULL,
	currency              TEXT NOT NULL DEFAULT 'USD',
	payment_method        TEXT NOT NULL DEFAULT '',
	timestamp             TEXT NOT NULL,
	status                TEXT NOT NULL DEFAULT 'success',
	bank_reference_id     TEXT NOT NULL DEFAULT '',
	reconciliation_status TEXT NOT NULL DEFAULT 'unmatched',
	matched_statement_id  TEXT NOT NULL DEFAULT '',
	match_type            TEXT NOT NULL DEFAULT '',
	seq                   INTEGER
);

CREATE TABLE IF NOT EXISTS bank_statements (
	bank_reference_id      TEXT PRIMARY KEY,
	amount                 TEXT NOT NULL,
	merchant_account_id    TEXT NOT NULL,
	bank_name              TEXT NOT NULL DEFAULT 'MockBank',
	settlement_date        TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'cleared',
	reconciliation_status  TEXT NOT NULL DEFAULT 'unmatched',
	matched_transaction_id TEXT NOT NULL DEFAULT '',
	match_type             TEXT NOT NULL DEFAULT '',
	notes                  TEXT NOT NULL DEFAULT '',
	seq                    INTEGER
);

CREATE TABLE IF NOT EXISTS reconciliation_runs (
	id           TEXT PRIMARY KEY,
	run_date     TEXT NOT NULL,
	summary_json TEXT NOT NULL,
	details_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT PRIMARY KEY,
	action       TEXT NOT NULL,
	actor        TEXT NOT NULL DEFAULT '',
	details_json TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_run_date ON reconciliation_runs(run_date);
`

// NewSQLiteStore opens (or creates) the database at dbPath and bootstraps
// the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "open", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "pragma", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "bootstrap schema", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListTransactions returns all transactions ordered by insertion sequence.
func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, merchant_id, amount, currency, payment_method,
		       timestamp, status, bank_reference_id,
		       reconciliation_status, matched_statement_id, match_type
		FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list transactions", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var amount, ts string
		if err := rows.Scan(
			&tx.TransactionID, &tx.MerchantID, &amount, &tx.Currency, &tx.PaymentMethod,
			&ts, &tx.Status, &tx.BankReferenceID,
			&tx.ReconciliationStatus, &tx.MatchedStatementID, &tx.MatchType,
		); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "scan transaction", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, apperrors.ValidationError("amount", amount, err)
		}
		if tx.Timestamp, err = parseStoredTime(ts); err != nil {
			return nil, apperrors.ValidationError("timestamp", ts, err)
		}
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list transactions", err)
	}
	return result, nil
}

// SaveTransaction inserts or replaces a transaction, preserving the original
// insertion sequence on replace.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return apperrors.ValidationError("transaction", tx.TransactionID, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transactions
		(transaction_id, merchant_id, amount, currency, payment_method,
		 timestamp, status, bank_reference_id,
		 reconciliation_status, matched_statement_id, match_type, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT seq FROM transactions WHERE transaction_id = ?),
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM transactions)))`,
		tx.TransactionID, tx.MerchantID, tx.Amount.String(), tx.Currency, tx.PaymentMethod,
		formatStoredTime(tx.Timestamp), string(defaultTransactionStatus(tx.Status)), tx.BankReferenceID,
		string(defaultReconStatus(tx.ReconciliationStatus)), tx.MatchedStatementID, string(tx.MatchType),
		tx.TransactionID,
	)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "save transaction", err)
	}
	return nil
}

// UpdateTransactionOutcomes applies all outcomes inside one SQL transaction.
func (s *SQLiteStore) UpdateTransactionOutcomes(ctx context.Context, outcomes []TransactionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "begin outcome batch", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		UPDATE transactions
		SET reconciliation_status = ?, matched_statement_id = ?, match_type = ?
		WHERE transaction_id = ?`)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "prepare outcome batch", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, string(o.Status), o.MatchedStatementID, string(o.MatchType), o.TransactionID); err != nil {
			return apperrors.StoreError(apperrors.CodePersistFailed, "update transaction outcome", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "commit outcome batch", err)
	}
	return nil
}

// DeleteAllTransactions removes every transaction.
func (s *SQLiteStore) DeleteAllTransactions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "delete transactions", err)
	}
	return nil
}

// ListStatements returns all statements ordered by insertion sequence.
func (s *SQLiteStore) ListStatements(ctx context.Context) ([]*models.BankStatement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bank_reference_id, amount, merchant_account_id, bank_name,
		       settlement_date, status,
		       reconciliation_status, matched_transaction_id, match_type, notes
		FROM bank_statements ORDER BY seq`)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list statements", err)
	}
	defer rows.Close()

	var result []*models.BankStatement
	for rows.Next() {
		var st models.BankStatement
		var amount, settled string
		if err := rows.Scan(
			&st.BankReferenceID, &amount, &st.MerchantAccountID, &st.BankName,
			&settled, &st.Status,
			&st.ReconciliationStatus, &st.MatchedTransactionID, &st.MatchType, &st.Notes,
		); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "scan statement", err)
		}
		if st.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, apperrors.ValidationError("amount", amount, err)
		}
		if st.SettlementDate, err = parseStoredTime(settled); err != nil {
			return nil, apperrors.ValidationError("settlement_date", settled, err)
		}
		result = append(result, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list statements", err)
	}
	return result, nil
}

// SaveStatement inserts or replaces a statement keyed by bank reference.
func (s *SQLiteStore) SaveStatement(ctx context.Context, stmt *models.BankStatement) error {
	if err := stmt.Validate(); err != nil {
		return apperrors.ValidationError("statement", stmt.BankReferenceID, err)
	}

	bankName := stmt.BankName
	if bankName == "" {
		bankName = "MockBank"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bank_statements
		(bank_reference_id, amount, merchant_account_id, bank_name,
		 settlement_date, status,
		 reconciliation_status, matched_transaction_id, match_type, notes, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT seq FROM bank_statements WHERE bank_reference_id = ?),
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM bank_statements)))`,
		stmt.BankReferenceID, stmt.Amount.String(), stmt.MerchantAccountID, bankName,
		formatStoredTime(stmt.SettlementDate), string(defaultStatementStatus(stmt.Status)),
		string(defaultReconStatus(stmt.ReconciliationStatus)), stmt.MatchedTransactionID,
		string(stmt.MatchType), stmt.Notes,
		stmt.BankReferenceID,
	)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "save statement", err)
	}
	return nil
}

// UpdateStatementOutcomes applies all outcomes inside one SQL transaction.
func (s *SQLiteStore) UpdateStatementOutcomes(ctx context.Context, outcomes []StatementOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "begin outcome batch", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.PrepareContext(ctx, `
		UPDATE bank_statements
		SET reconciliation_status = ?, matched_transaction_id = ?, match_type = ?
		WHERE bank_reference_id = ?`)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "prepare outcome batch", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, string(o.Status), o.MatchedTransactionID, string(o.MatchType), o.BankReferenceID); err != nil {
			return apperrors.StoreError(apperrors.CodePersistFailed, "update statement outcome", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "commit outcome batch", err)
	}
	return nil
}

// DeleteAllStatements removes every statement.
func (s *SQLiteStore) DeleteAllStatements(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bank_statements`); err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "delete statements", err)
	}
	return nil
}

// CreateRun persists the run row in a single statement: the summary and the
// full detail list are serialized together, so either everything lands or
// nothing does.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.Run) error {
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "marshal run summary", err)
	}
	detailsJSON, err := json.Marshal(run.Details)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "marshal run details", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, run_date, summary_json, details_json)
		VALUES (?, ?, ?, ?)`,
		run.ID, formatStoredTime(run.RunDate), string(summaryJSON), string(detailsJSON))
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "create run", err)
	}
	return nil
}

// LatestRun returns the most recent run by run date, details included.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_date, summary_json, details_json
		FROM reconciliation_runs ORDER BY run_date DESC, id DESC LIMIT 1`)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "latest run", err)
	}
	return run, nil
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_date, summary_json, details_json
		FROM reconciliation_runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "get run", err)
	}
	return run, nil
}

// ListRuns returns a newest-first page of run summaries plus the total count.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.Run, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reconciliation_runs`).Scan(&total); err != nil {
		return nil, 0, apperrors.StoreError(apperrors.CodeQueryFailed, "count runs", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_date, summary_json
		FROM reconciliation_runs
		ORDER BY run_date DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, apperrors.StoreError(apperrors.CodeQueryFailed, "list runs", err)
	}
	defer rows.Close()

	var result []*models.Run
	for rows.Next() {
		var run models.Run
		var runDate, summaryJSON string
		if err := rows.Scan(&run.ID, &runDate, &summaryJSON); err != nil {
			return nil, 0, apperrors.StoreError(apperrors.CodeQueryFailed, "scan run", err)
		}
		if run.RunDate, err = parseStoredTime(runDate); err != nil {
			return nil, 0, apperrors.ValidationError("run_date", runDate, err)
		}
		if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
			return nil, 0, apperrors.StoreError(apperrors.CodeQueryFailed, "unmarshal run summary", err)
		}
		result = append(result, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.StoreError(apperrors.CodeQueryFailed, "list runs", err)
	}
	return result, total, nil
}

// DeleteRun removes one run by ID.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reconciliation_runs WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.StoreError(apperrors.CodePersistFailed, "delete run", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.StoreError(apperrors.CodePersistFailed, "delete run", err)
	}
	return affected > 0, nil
}

// DeleteAllRuns removes every run.
func (s *SQLiteStore) DeleteAllRuns(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reconciliation_runs`)
	if err != nil {
		return 0, apperrors.StoreError(apperrors.CodePersistFailed, "delete runs", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.StoreError(apperrors.CodePersistFailed, "delete runs", err)
	}
	return affected, nil
}

// RecordEvent appends an audit entry.
func (s *SQLiteStore) RecordEvent(ctx context.Context, action, actor string, details map[string]interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "marshal audit details", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, actor, details_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		newAuditID(), action, actor, string(detailsJSON), formatStoredTime(time.Now().UTC()))
	if err != nil {
		return apperrors.StoreError(apperrors.CodePersistFailed, "record audit event", err)
	}
	return nil
}

func scanRun(scan func(dest ...interface{}) error) (*models.Run, error) {
	var run models.Run
	var runDate, summaryJSON, detailsJSON string
	if err := scan(&run.ID, &runDate, &summaryJSON, &detailsJSON); err != nil {
		return nil, err
	}

	var err error
	if run.RunDate, err = parseStoredTime(runDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal run summary: %w", err)
	}
	if err := json.Unmarshal([]byte(detailsJSON), &run.Details); err != nil {
		return nil, fmt.Errorf("unmarshal run details: %w", err)
	}
	return &run, nil
}

// storedTimeFormat is fixed-width so the stored text sorts the same way the
// instants do; RFC3339Nano trims trailing fractional zeros, which breaks
// lexicographic ORDER BY for whole-second values.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatStoredTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func defaultTransactionStatus(s models.TransactionStatus) models.TransactionStatus {
	if s == "" {
		return models.TransactionSuccess
	}
	return s
}

func defaultStatementStatus(s models.StatementStatus) models.StatementStatus {
	if s == "" {
		return models.StatementCleared
	}
	return s
}

func defaultReconStatus(s models.ReconciliationStatus) models.ReconciliationStatus {
	if s == "" {
		return models.StatusUnmatched
	}
	return s
}
