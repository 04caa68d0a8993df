package config

import (
	"os"
	"strings"
)

// StrictSelectionGuard controls how the deletion guard treats non-hierarchical
// references (equipment list items that selected a quoted request item as
// their costing source):
// - strict: the reference is reported as a blocker and the delete is refused
// - lenient (default): the selection is nulled out inside the delete transaction
//
// Set via env:
// - STRICT_SELECTION_GUARD=true
func StrictSelectionGuard() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_SELECTION_GUARD")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// OutboxDispatcherEnabled gates the background dispatcher that flushes
// supplementary audit records. Disabled in maintenance binaries.
//
// Set via env:
// - AUDIT_OUTBOX_DISPATCHER=false
func OutboxDispatcherEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AUDIT_OUTBOX_DISPATCHER")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
