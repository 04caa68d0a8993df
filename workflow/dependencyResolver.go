package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// The dependency map is static: each edge says which downstream table depends
// on an entity kind, and which minimum state a live dependent implies for the
// parent. Rolling the parent behind that implied state is blocked. Blocking
// propagates transitively on its own: a payment pins its payable, whose
// existence pins its receipt, whose existence pins the order.

type dependencyEdge struct {
	parentKind    models.EntityKind
	dependentKind models.EntityKind
	table         string
	fkColumn      string
	// column holding the dependent's status, empty when the dependent has none
	// (payments block by mere existence)
	statusColumn string
	// dependent statuses that do not count as live
	excludedStatuses []string
	// minimum index in the parent's canonical order implied by a live dependent
	impliedParentIndex int
	reason             string
}

var dependencyEdges = []dependencyEdge{
	{
		parentKind:         models.KindEquipmentList,
		dependentKind:      models.KindPurchaseRequest,
		table:              "purchase_requests",
		fkColumn:           "equipment_list_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.PurchaseRequestStatusCancelled)},
		impliedParentIndex: 3, // a live request implies the list was Approved
		reason:             "a purchase request references this equipment list",
	},
	{
		parentKind:         models.KindPurchaseRequest,
		dependentKind:      models.KindPurchaseOrder,
		table:              "purchase_orders",
		fkColumn:           "purchase_request_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.PurchaseOrderStatusCancelled)},
		impliedParentIndex: 4, // a live order implies the request was Ordered
		reason:             "a purchase order was placed from this request",
	},
	{
		parentKind:         models.KindPurchaseOrder,
		dependentKind:      models.KindPendingReceipt,
		table:              "pending_receipts",
		fkColumn:           "purchase_order_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.PendingReceiptStatusVoided)},
		impliedParentIndex: 2, // a receipt implies the order was at least Sent
		reason:             "a goods receipt exists for this order",
	},
	{
		parentKind:         models.KindPendingReceipt,
		dependentKind:      models.KindPayable,
		table:              "payables",
		fkColumn:           "pending_receipt_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.AccountStatusVoided)},
		impliedParentIndex: 1, // a payable implies the receipt was Received
		reason:             "a payable was opened against this receipt",
	},
	{
		parentKind:         models.KindPayable,
		dependentKind:      models.KindPayment,
		table:              "payments",
		fkColumn:           "account_id",
		impliedParentIndex: 1, // a payment implies the payable advanced past Pending
		reason:             "a payment has been recorded against this account",
	},
	{
		parentKind:         models.KindReceivable,
		dependentKind:      models.KindPayment,
		table:              "payments",
		fkColumn:           "account_id",
		impliedParentIndex: 1,
		reason:             "a payment has been recorded against this account",
	},
}

// RollbackCheck is the answer of a read-only pre-check. It is a snapshot: the
// lifecycle mutator re-runs the same check inside its transaction before
// committing.
type RollbackCheck struct {
	Allowed  bool            `json:"allowed"`
	Blockers []utils.Blocker `json:"blockers"`
	Message  string          `json:"message"`
}

type dependentRow struct {
	ID     int
	Status string
}

func liveDependents(tx *gorm.DB, edge dependencyEdge, parentID int) ([]dependentRow, error) {
	q := tx.Table(edge.table)
	if edge.statusColumn != "" {
		q = q.Select(fmt.Sprintf("id, %s as status", edge.statusColumn))
	} else {
		q = q.Select("id, '' as status")
	}
	q = q.Where(edge.fkColumn+" = ?", parentID)
	if edge.dependentKind == models.KindPayment {
		q = q.Where("account_kind = ?", edge.parentKind)
	}
	if len(edge.excludedStatuses) > 0 {
		q = q.Where(edge.statusColumn+" NOT IN ?", edge.excludedStatuses)
	}

	var rows []dependentRow
	if err := q.Order("id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// checkRollbackTx gathers the blockers for rolling kind/id back to target,
// bound to the given transaction (or plain session).
func checkRollbackTx(tx *gorm.DB, kind models.EntityKind, id int, target string) (RollbackCheck, error) {
	targetIdx := -1
	for i, s := range CanonicalOrder(kind) {
		if s == target {
			targetIdx = i
			break
		}
	}

	var blockers []utils.Blocker
	for _, edge := range dependencyEdges {
		if edge.parentKind != kind {
			continue
		}
		if targetIdx >= edge.impliedParentIndex {
			// landing state is still compatible with the dependents' existence
			continue
		}
		rows, err := liveDependents(tx, edge, id)
		if err != nil {
			return RollbackCheck{}, err
		}
		for _, row := range rows {
			blockers = append(blockers, utils.Blocker{
				Kind:   string(edge.dependentKind),
				ID:     row.ID,
				Status: row.Status,
				Reason: edge.reason,
			})
		}
	}

	if len(blockers) > 0 {
		return RollbackCheck{
			Allowed:  false,
			Blockers: blockers,
			Message:  fmt.Sprintf("cannot roll back %s %d to %s: cancel or void the %d dependent record(s) first", kind, id, target, len(blockers)),
		}, nil
	}
	return RollbackCheck{Allowed: true, Message: "rollback allowed"}, nil
}

// CheckRollback is the exposed dry-run pre-check. Safe to call concurrently
// with unrelated mutations; its answer may be stale by commit time.
func CheckRollback(ctx context.Context, kind models.EntityKind, id int, target string) (RollbackCheck, error) {
	if !kind.IsLifecycleKind() {
		return RollbackCheck{}, utils.ErrorInvalidTransition
	}
	current, err := loadStatus(config.GetDB().WithContext(ctx), kind, id)
	if err != nil {
		return RollbackCheck{}, err
	}
	if !IsValidRollback(kind, current, target) {
		return RollbackCheck{
			Allowed: false,
			Message: fmt.Sprintf("%s is not a legal rollback target from %s", target, current),
		}, nil
	}
	return checkRollbackTx(config.GetDB().WithContext(ctx), kind, id, target)
}
