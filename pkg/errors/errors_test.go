package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CategoryReconciliation, CodeNoRuns, "no reconciliation results found")

	if err.Category != CategoryReconciliation {
		t.Errorf("expected category reconciliation, got %s", err.Category)
	}
	if err.Code != CodeNoRuns {
		t.Errorf("expected code no_runs, got %s", err.Code)
	}
	if err.Error() != "no reconciliation results found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if err.StackTrace == nil {
		t.Error("expected a captured stack trace")
	}
}

func TestErrorIncludesSuggestion(t *testing.T) {
	err := New(CategoryStore, CodeQueryFailed, "query failed").
		WithSuggestion("check the database file")

	if !strings.Contains(err.Error(), "suggestion: check the database file") {
		t.Errorf("expected suggestion in message, got %q", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CategoryStore, CodePersistFailed, "could not persist run")

	if err.Cause != cause {
		t.Error("expected the cause to be retained")
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause through Unwrap")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryStore, CodePersistFailed, "nothing") != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestPreconditionError(t *testing.T) {
	err := PreconditionError(CodeNoTransactions, "no transactions to reconcile")

	if err.Category != CategoryReconciliation {
		t.Errorf("expected category reconciliation, got %s", err.Category)
	}
	if err.Code != CodeNoTransactions {
		t.Errorf("expected code no_transactions, got %s", err.Code)
	}
	if !strings.Contains(err.Suggestion, "transactions") {
		t.Errorf("expected a code-specific suggestion, got %q", err.Suggestion)
	}
}

func TestStoreError(t *testing.T) {
	cause := stderrors.New("locked")
	err := StoreError(CodeQueryFailed, "list transactions", cause)

	if err.Category != CategoryStore {
		t.Errorf("expected category store, got %s", err.Category)
	}
	if err.Context["operation"] != "list transactions" {
		t.Errorf("expected operation context, got %v", err.Context)
	}
	if err.Cause != cause {
		t.Error("expected the cause to be retained")
	}
}

func TestValidationError(t *testing.T) {
	err := ValidationError("amount", "abc", stderrors.New("not a number"))

	if err.Category != CategoryValidation {
		t.Errorf("expected category validation, got %s", err.Category)
	}
	if err.Context["field"] != "amount" || err.Context["value"] != "abc" {
		t.Errorf("expected field and value context, got %v", err.Context)
	}
}

func TestAsReconcilerError(t *testing.T) {
	inner := New(CategoryInternal, CodeUnexpectedError, "boom")
	wrapped := fmt.Errorf("handler: %w", inner)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to extract the structured error through the chain")
	}
	if got != inner {
		t.Error("expected the original error value")
	}

	if _, ok := AsReconcilerError(stderrors.New("plain")); ok {
		t.Error("plain errors must not be extracted")
	}
}

func TestHasCodeAndCategory(t *testing.T) {
	err := PreconditionError(CodeNoStatements, "no bank statements to reconcile")

	if !HasCode(err, CodeNoStatements) {
		t.Error("expected HasCode to match")
	}
	if HasCode(err, CodeNoTransactions) {
		t.Error("expected HasCode to reject a different code")
	}
	if !HasCategory(err, CategoryReconciliation) {
		t.Error("expected HasCategory to match")
	}
	if HasCategory(stderrors.New("plain"), CategoryReconciliation) {
		t.Error("plain errors carry no category")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     int
	}{
		{CategoryValidation, 2},
		{CategoryStore, 3},
		{CategoryReconciliation, 4},
		{CategoryInternal, 5},
		{ErrorCategory("other"), 1},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "x")
		if got := err.GetExitCode(); got != tt.want {
			t.Errorf("exit code for %s = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestFormatUserMessage(t *testing.T) {
	err := New(CategoryReconciliation, CodeNoRuns, "no reconciliation results found").
		WithSuggestion("run a reconciliation first")

	msg := FormatUserMessage(err)
	if msg != "no reconciliation results found | suggestion: run a reconciliation first" {
		t.Errorf("unexpected message: %q", msg)
	}

	plain := stderrors.New("plain failure")
	if FormatUserMessage(plain) != "plain failure" {
		t.Errorf("plain errors must pass through, got %q", FormatUserMessage(plain))
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryStore, CodeQueryFailed, "x").
		WithContext("table", "transactions").
		WithContext("rows", 42)

	if err.Context["table"] != "transactions" || err.Context["rows"] != 42 {
		t.Errorf("unexpected context: %v", err.Context)
	}
}
