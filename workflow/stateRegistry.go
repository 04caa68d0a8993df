package workflow

import (
	"bitbucket.org/andeandataworks/gestion_backend/models"
)

// The state registry is immutable, process-wide configuration: one canonical
// forward order per entity kind, the strictly-terminal statuses, the
// re-enterable rejected statuses, and the milestone columns cleared when a
// rollback lands on each target.

type stateGraph struct {
	// canonical forward order, first element is the initial state
	order []string
	// strictly terminal: no transition ever leaves these
	terminal map[string]bool
	// off-order rejected states: position they occupy for rollback purposes
	// and the in-order state the forward flow resumes at
	reEnterable map[string]reEntry
	// statuses from which the rejected state can be entered
	rejectableFrom map[string]bool
	// statuses from which Cancelled/Voided can be entered (nil = any non-terminal)
	cancelStatus string
	// extra forward edges beyond the adjacent step, source -> legal targets
	branches map[string]map[string]bool
	// rollback target -> milestone columns nulled on landing
	resets map[string][]string
}

type reEntry struct {
	effectiveIndex int
	resumeAt       string
}

var stateRegistry = map[models.EntityKind]stateGraph{
	models.KindEquipmentList: {
		order: []string{
			string(models.EquipmentListStatusDraft),
			string(models.EquipmentListStatusReadyForQuote),
			string(models.EquipmentListStatusValidated),
			string(models.EquipmentListStatusApproved),
		},
		terminal:     map[string]bool{string(models.EquipmentListStatusCancelled): true},
		cancelStatus: string(models.EquipmentListStatusCancelled),
		resets: map[string][]string{
			string(models.EquipmentListStatusDraft):         {"ready_at", "validated_at", "approved_at", "approver_id"},
			string(models.EquipmentListStatusReadyForQuote): {"validated_at", "approved_at", "approver_id"},
			string(models.EquipmentListStatusValidated):     {"approved_at", "approver_id"},
		},
	},
	models.KindPurchaseRequest: {
		order: []string{
			string(models.PurchaseRequestStatusDraft),
			string(models.PurchaseRequestStatusSent),
			string(models.PurchaseRequestStatusQuoted),
			string(models.PurchaseRequestStatusApproved),
			string(models.PurchaseRequestStatusOrdered),
		},
		terminal:     map[string]bool{string(models.PurchaseRequestStatusCancelled): true},
		cancelStatus: string(models.PurchaseRequestStatusCancelled),
		reEnterable: map[string]reEntry{
			// a rejected request re-enters the flow by being sent again
			string(models.PurchaseRequestStatusRejected): {effectiveIndex: 1, resumeAt: string(models.PurchaseRequestStatusSent)},
		},
		rejectableFrom: map[string]bool{
			string(models.PurchaseRequestStatusSent):   true,
			string(models.PurchaseRequestStatusQuoted): true,
		},
		resets: map[string][]string{
			string(models.PurchaseRequestStatusDraft):    {"sent_at", "quoted_at", "approved_at", "approver_id", "ordered_at", "rejected_at"},
			string(models.PurchaseRequestStatusSent):     {"quoted_at", "approved_at", "approver_id", "ordered_at"},
			string(models.PurchaseRequestStatusQuoted):   {"approved_at", "approver_id", "ordered_at"},
			string(models.PurchaseRequestStatusApproved): {"ordered_at"},
		},
	},
	models.KindPurchaseOrder: {
		order: []string{
			string(models.PurchaseOrderStatusDraft),
			string(models.PurchaseOrderStatusApproved),
			string(models.PurchaseOrderStatusSent),
			string(models.PurchaseOrderStatusConfirmed),
			string(models.PurchaseOrderStatusPartiallyReceived),
			string(models.PurchaseOrderStatusCompleted),
		},
		terminal:     map[string]bool{string(models.PurchaseOrderStatusCancelled): true},
		cancelStatus: string(models.PurchaseOrderStatusCancelled),
		branches: map[string]map[string]bool{
			// an order fully received in one delivery completes without a
			// partial stage
			string(models.PurchaseOrderStatusConfirmed): {
				string(models.PurchaseOrderStatusCompleted): true,
			},
		},
		resets: map[string][]string{
			string(models.PurchaseOrderStatusDraft):     {"approved_at", "approver_id", "sent_at", "confirmed_at", "completed_at"},
			string(models.PurchaseOrderStatusApproved):  {"sent_at", "confirmed_at", "completed_at"},
			string(models.PurchaseOrderStatusSent):      {"confirmed_at", "completed_at"},
			string(models.PurchaseOrderStatusConfirmed): {"completed_at"},
			string(models.PurchaseOrderStatusPartiallyReceived): {"completed_at"},
		},
	},
	models.KindPendingReceipt: {
		order: []string{
			string(models.PendingReceiptStatusPending),
			string(models.PendingReceiptStatusReceived),
			string(models.PendingReceiptStatusSettled),
		},
		terminal:     map[string]bool{string(models.PendingReceiptStatusVoided): true},
		cancelStatus: string(models.PendingReceiptStatusVoided),
		resets: map[string][]string{
			string(models.PendingReceiptStatusPending):  {"received_at", "settled_at"},
			string(models.PendingReceiptStatusReceived): {"settled_at"},
		},
	},
	models.KindPayable:    accountGraph(),
	models.KindReceivable: accountGraph(),
}

func accountGraph() stateGraph {
	return stateGraph{
		order: []string{
			string(models.AccountStatusPending),
			string(models.AccountStatusPartial),
			string(models.AccountStatusPaid),
		},
		terminal:     map[string]bool{string(models.AccountStatusVoided): true},
		cancelStatus: string(models.AccountStatusVoided),
		resets:       map[string][]string{},
	}
}

// statusIndex returns the position of a status in the kind's canonical order.
// Re-enterable off-order statuses report the position they were rejected from.
func statusIndex(g stateGraph, status string) (int, bool) {
	for i, s := range g.order {
		if s == status {
			return i, true
		}
	}
	if re, ok := g.reEnterable[status]; ok {
		return re.effectiveIndex, true
	}
	return -1, false
}

// IsValidRollback reports whether target strictly precedes current in the
// kind's canonical order. Terminal and off-order states are never legal
// rollback targets, and nothing rolls back out of a terminal state.
func IsValidRollback(kind models.EntityKind, current string, target string) bool {
	g, ok := stateRegistry[kind]
	if !ok {
		return false
	}
	if g.terminal[current] || g.terminal[target] {
		return false
	}
	if _, offOrder := g.reEnterable[target]; offOrder {
		return false
	}
	currentIdx, ok := statusIndex(g, current)
	if !ok {
		return false
	}
	targetIdx := -1
	for i, s := range g.order {
		if s == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return false
	}
	return targetIdx < currentIdx
}

// IsValidForward reports whether target is a legal forward step: the next
// state in the canonical order, a declared branch edge, the cancel/void
// branch from a non-terminal state, entering a rejectable state, or resuming
// from a re-enterable one.
func IsValidForward(kind models.EntityKind, current string, target string) bool {
	g, ok := stateRegistry[kind]
	if !ok {
		return false
	}
	if g.terminal[current] {
		return false
	}
	if target == g.cancelStatus && g.cancelStatus != "" {
		return true
	}
	if g.rejectableFrom != nil {
		if _, isRejected := g.reEnterable[target]; isRejected && g.rejectableFrom[current] {
			return true
		}
	}
	if re, ok := g.reEnterable[current]; ok {
		return target == re.resumeAt
	}
	currentIdx, okCur := statusIndex(g, current)
	if !okCur {
		return false
	}
	for i, s := range g.order {
		if s == target {
			if i == currentIdx+1 {
				return true
			}
			return g.branches[current][target]
		}
	}
	return false
}

// FieldResetsFor returns the milestone columns to null when a rollback lands
// on target.
func FieldResetsFor(kind models.EntityKind, target string) []string {
	g, ok := stateRegistry[kind]
	if !ok {
		return nil
	}
	return g.resets[target]
}

func IsTerminalStatus(kind models.EntityKind, status string) bool {
	g, ok := stateRegistry[kind]
	if !ok {
		return false
	}
	return g.terminal[status]
}

func InitialStatus(kind models.EntityKind) string {
	g, ok := stateRegistry[kind]
	if !ok || len(g.order) == 0 {
		return ""
	}
	return g.order[0]
}

// CanonicalOrder returns a copy of the forward order for a kind.
func CanonicalOrder(kind models.EntityKind) []string {
	g, ok := stateRegistry[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func KnownStatus(kind models.EntityKind, status string) bool {
	g, ok := stateRegistry[kind]
	if !ok {
		return false
	}
	if g.terminal[status] {
		return true
	}
	_, ok = statusIndex(g, status)
	return ok
}
