package utils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrorRecordNotFound    = errors.New("record not found")
	ErrorForbidden         = errors.New("actor role lacks permission for this action")
	ErrorInvalidTransition = errors.New("invalid state transition")
	ErrorInvalidAmount     = errors.New("amount must be greater than zero")
	ErrorAccountTerminal   = errors.New("account is voided or cancelled and rejects new payments")
	ErrorOverpayment       = errors.New("paid amount cannot exceed account total")
)

// Blocker is a downstream record whose existence or state makes a rollback or
// deletion unsafe. It is surfaced to callers so they can remediate
// ("cancel dependent receipt X first").
type Blocker struct {
	Kind   string `json:"kind"`
	ID     int    `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ConflictError carries the structured blocker list produced by the dependency
// resolver or the deletion guard.
type ConflictError struct {
	Op       string
	Blockers []Blocker
}

func (e *ConflictError) Error() string {
	if len(e.Blockers) == 0 {
		return fmt.Sprintf("%s blocked", e.Op)
	}
	parts := make([]string, 0, len(e.Blockers))
	for _, b := range e.Blockers {
		parts = append(parts, fmt.Sprintf("%s %d (%s): %s", b.Kind, b.ID, b.Status, b.Reason))
	}
	return fmt.Sprintf("%s blocked by: %s", e.Op, strings.Join(parts, "; "))
}

func NewConflictError(op string, blockers []Blocker) *ConflictError {
	return &ConflictError{Op: op, Blockers: blockers}
}

func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}
