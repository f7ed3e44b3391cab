// Package errors defines the application error taxonomy for the
// reconciliation service.
//
// Every error that crosses a package boundary is a *ReconcilerError carrying
// a category, a machine-readable code, and optional context. Callers branch
// on category/code instead of string matching, and the HTTP and CLI layers
// map categories to status codes and exit codes respectively.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the subsystem that raised them.
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryStore          ErrorCategory = "store"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// Validation codes
	CodeInvalidData  ErrorCode = "invalid_data"
	CodeMissingField ErrorCode = "missing_field"
	CodeInvalidParam ErrorCode = "invalid_param"

	// Store codes
	CodeQueryFailed   ErrorCode = "query_failed"
	CodePersistFailed ErrorCode = "persist_failed"
	CodeNotFound      ErrorCode = "not_found"

	// Reconciliation codes
	CodeNoTransactions  ErrorCode = "no_transactions"
	CodeNoStatements    ErrorCode = "no_statements"
	CodeNoRuns          ErrorCode = "no_runs"
	CodeProcessingError ErrorCode = "processing_error"

	// Internal codes
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// Context carries additional structured information about an error.
type Context map[string]interface{}

// ReconcilerError is the base error type for all application errors.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Error implements the error interface.
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns the process exit code the CLI should use for this error.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryStore:
		return 3
	case CategoryReconciliation:
		return 4
	case CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a key/value pair to the error.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a remediation hint to the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// stackTracer is the interface github.com/pkg/errors values satisfy.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new ReconcilerError with a captured stack trace.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with category and code information.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// PreconditionError reports a reconciliation precondition failure. The run is
// rejected before any state mutation occurs.
func PreconditionError(code ErrorCode, message string) *ReconcilerError {
	suggestion := "load data before running reconciliation"
	switch code {
	case CodeNoTransactions:
		suggestion = "load transactions into the store before running reconciliation"
	case CodeNoStatements:
		suggestion = "load bank statements into the store before running reconciliation"
	}
	return New(CategoryReconciliation, code, message).WithSuggestion(suggestion)
}

// StoreError wraps a storage failure.
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("store operation %q failed", operation)
	result := Wrap(err, CategoryStore, code, message)
	if result == nil {
		result = New(CategoryStore, code, message)
	}
	return result.
		WithSuggestion("check that the database file is accessible and not corrupted").
		WithContext("operation", operation)
}

// ValidationError reports invalid input data.
func ValidationError(field string, value interface{}, err error) *ReconcilerError {
	message := fmt.Sprintf("invalid value for %q: %v", field, value)
	result := Wrap(err, CategoryValidation, CodeInvalidData, message)
	if result == nil {
		result = New(CategoryValidation, CodeInvalidData, message)
	}
	return result.
		WithContext("field", field).
		WithContext("value", value)
}

// InternalError reports an unexpected failure inside the service.
func InternalError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	result := Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	if result == nil {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}
	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Code == code
	}
	return false
}

// HasCategory reports whether err belongs to the given category.
func HasCategory(err error, category ErrorCategory) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Category == category
	}
	return false
}

// FormatUserMessage renders a single-line message suitable for CLI output.
func FormatUserMessage(err error) string {
	reconcilerErr, ok := AsReconcilerError(err)
	if !ok {
		return err.Error()
	}

	parts := []string{reconcilerErr.Message}
	if reconcilerErr.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("suggestion: %s", reconcilerErr.Suggestion))
	}
	return strings.Join(parts, " | ")
}
