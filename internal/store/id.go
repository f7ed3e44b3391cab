package store

import "github.com/google/uuid"

// NewRunID returns a fresh identifier for a reconciliation run.
func NewRunID() string {
	return uuid.NewString()
}

func newAuditID() string {
	return uuid.NewString()
}
