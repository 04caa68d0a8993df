package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// lifecycleBinding wires a kind to its table and to the milestone column
// stamped when a forward transition lands on each status. The approver column
// is additionally stamped with the acting user on approval states.
type lifecycleBinding struct {
	table          string
	stampColumns   map[string]string
	approvalStates map[string]bool
	// parent FK column used to enrich audit events, empty when none
	parentKind   models.EntityKind
	parentColumn string
	// project rollups must be refreshed when this kind is cancelled or
	// leaves/re-enters the live set
	recalcOnCancel bool
}

var lifecycleBindings = map[models.EntityKind]lifecycleBinding{
	models.KindEquipmentList: {
		table: "equipment_lists",
		stampColumns: map[string]string{
			string(models.EquipmentListStatusReadyForQuote): "ready_at",
			string(models.EquipmentListStatusValidated):     "validated_at",
			string(models.EquipmentListStatusApproved):      "approved_at",
			string(models.EquipmentListStatusCancelled):     "cancelled_at",
		},
		approvalStates: map[string]bool{string(models.EquipmentListStatusApproved): true},
		parentKind:     models.KindProject,
		parentColumn:   "project_id",
		recalcOnCancel: true,
	},
	models.KindPurchaseRequest: {
		table: "purchase_requests",
		stampColumns: map[string]string{
			string(models.PurchaseRequestStatusSent):      "sent_at",
			string(models.PurchaseRequestStatusQuoted):    "quoted_at",
			string(models.PurchaseRequestStatusApproved):  "approved_at",
			string(models.PurchaseRequestStatusOrdered):   "ordered_at",
			string(models.PurchaseRequestStatusRejected):  "rejected_at",
			string(models.PurchaseRequestStatusCancelled): "cancelled_at",
		},
		approvalStates: map[string]bool{string(models.PurchaseRequestStatusApproved): true},
		parentKind:     models.KindEquipmentList,
		parentColumn:   "equipment_list_id",
	},
	models.KindPurchaseOrder: {
		table: "purchase_orders",
		stampColumns: map[string]string{
			string(models.PurchaseOrderStatusApproved):  "approved_at",
			string(models.PurchaseOrderStatusSent):      "sent_at",
			string(models.PurchaseOrderStatusConfirmed): "confirmed_at",
			string(models.PurchaseOrderStatusCompleted): "completed_at",
			string(models.PurchaseOrderStatusCancelled): "cancelled_at",
		},
		approvalStates: map[string]bool{string(models.PurchaseOrderStatusApproved): true},
		parentKind:     models.KindProject,
		parentColumn:   "project_id",
		recalcOnCancel: true,
	},
	models.KindPendingReceipt: {
		table: "pending_receipts",
		stampColumns: map[string]string{
			string(models.PendingReceiptStatusReceived): "received_at",
			string(models.PendingReceiptStatusSettled):  "settled_at",
			string(models.PendingReceiptStatusVoided):   "voided_at",
		},
		parentKind:   models.KindPurchaseOrder,
		parentColumn: "purchase_order_id",
	},
	models.KindPayable: {
		table: "payables",
		stampColumns: map[string]string{
			string(models.AccountStatusVoided): "voided_at",
		},
		parentKind:   models.KindPendingReceipt,
		parentColumn: "pending_receipt_id",
	},
	models.KindReceivable: {
		table: "receivables",
		stampColumns: map[string]string{
			string(models.AccountStatusVoided): "voided_at",
		},
		parentKind:   models.KindValuation,
		parentColumn: "valuation_id",
	},
}

type statusRow struct {
	ID            int
	CurrentStatus string
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}

func loadStatus(tx *gorm.DB, kind models.EntityKind, id int) (string, error) {
	binding, ok := lifecycleBindings[kind]
	if !ok {
		return "", utils.ErrorInvalidTransition
	}
	var row statusRow
	err := tx.Table(binding.table).Select("id, current_status").Where("id = ?", id).Take(&row).Error
	if err != nil {
		return "", translateNotFound(err)
	}
	return row.CurrentStatus, nil
}

func loadParentId(tx *gorm.DB, binding lifecycleBinding, id int) (int, error) {
	if binding.parentColumn == "" {
		return 0, nil
	}
	var parentId int
	err := tx.Table(binding.table).Where("id = ?", id).Select(binding.parentColumn).Scan(&parentId).Error
	return parentId, err
}

// TransitionResult describes one committed status change.
type TransitionResult struct {
	Ref         models.EntityRef `json:"ref"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	ResetFields []string         `json:"reset_fields"`
}

// roleMayTransition gates transitions on the actor's role: approvals and
// rollbacks are for admin/manager, goods receipt for logistics (or admin),
// everything else for any authenticated non-viewer role.
func roleMayTransition(role string, kind models.EntityKind, target string, backward bool) bool {
	binding := lifecycleBindings[kind]
	switch models.UserRole(role) {
	case models.UserRoleAdmin:
		return true
	case models.UserRoleManager:
		return true
	case models.UserRoleLogistics:
		if backward {
			return false
		}
		if binding.approvalStates != nil && binding.approvalStates[target] {
			return false
		}
		return true
	default:
		return false
	}
}

// businessChecks holds the kind-specific forward guards that go beyond graph
// adjacency.
func businessChecks(tx *gorm.DB, kind models.EntityKind, id int, target string) error {
	if kind == models.KindPurchaseRequest && target == string(models.PurchaseRequestStatusSent) {
		var count int64
		if err := tx.Model(&models.PurchaseRequestItem{}).Where("purchase_request_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: cannot send a purchase request with zero line items", utils.ErrorInvalidTransition)
		}
	}
	return nil
}

// Transition moves one entity to target as a single atomic unit: validity
// check, dependency re-check for backward moves, status write plus field
// resets, and exactly one audit event. Any failure rolls the whole unit back.
func Transition(ctx context.Context, kind models.EntityKind, id int, target string, reason string) (*TransitionResult, error) {
	if !kind.IsLifecycleKind() {
		return nil, utils.ErrorInvalidTransition
	}
	if !KnownStatus(kind, target) {
		return nil, utils.ErrorInvalidTransition
	}
	binding := lifecycleBindings[kind]

	role, _ := utils.GetUserRoleFromContext(ctx)
	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("actor id is required")
	}

	db := config.GetDB()
	var result *TransitionResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadStatus(tx, kind, id)
		if err != nil {
			return err
		}
		if current == target {
			return utils.ErrorInvalidTransition
		}

		backward := IsValidRollback(kind, current, target)
		if !backward && !IsValidForward(kind, current, target) {
			return utils.ErrorInvalidTransition
		}
		if !roleMayTransition(role, kind, target, backward) {
			return utils.ErrorForbidden
		}

		updates := map[string]interface{}{"current_status": target}
		var resets []string
		eventKind := models.AuditEventKindTransition

		if backward {
			// a pre-check may be stale by now; the answer that counts is the
			// one computed inside this transaction
			check, err := checkRollbackTx(tx, kind, id, target)
			if err != nil {
				return err
			}
			if !check.Allowed {
				return utils.NewConflictError(fmt.Sprintf("rollback of %s %d", kind, id), check.Blockers)
			}
			resets = FieldResetsFor(kind, target)
			for _, column := range resets {
				updates[column] = nil
			}
			eventKind = models.AuditEventKindRollback
		} else {
			if err := businessChecks(tx, kind, id, target); err != nil {
				return err
			}
			now := time.Now().UTC()
			if column, ok := binding.stampColumns[target]; ok {
				updates[column] = now
			}
			if binding.approvalStates != nil && binding.approvalStates[target] {
				updates["approver_id"] = actorId
			}
		}

		if err := tx.Table(binding.table).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		refs := []models.EntityRef{models.NewEntityRef(kind, id)}
		if parentId, err := loadParentId(tx, binding, id); err == nil && parentId > 0 {
			if binding.parentKind == models.KindProject || binding.parentKind == models.KindEquipmentList ||
				binding.parentKind == models.KindPurchaseOrder || binding.parentKind == models.KindPendingReceipt {
				refs = append(refs, models.NewEntityRef(binding.parentKind, parentId))
			}
		}

		metadata := map[string]interface{}{"from": current, "to": target}
		if reason != "" {
			metadata["reason"] = reason
		}
		if len(resets) > 0 {
			metadata["reset_fields"] = resets
		}
		if err := models.RecordAuditEvent(tx, models.NewAuditEvent{
			Refs:        refs,
			EventKind:   eventKind,
			Description: fmt.Sprintf("%s %d moved from %s to %s", kind, id, current, target),
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		// cancelling a costed document changes what counts as a live child
		if binding.recalcOnCancel && (target == stateRegistry[kind].cancelStatus || backward) {
			if parentId, err := loadParentId(tx, binding, id); err == nil && parentId > 0 && binding.parentKind == models.KindProject {
				if _, err := recalculateNode(tx, models.NewEntityRef(models.KindProject, parentId)); err != nil {
					return err
				}
			}
		}

		result = &TransitionResult{
			Ref:         models.NewEntityRef(kind, id),
			From:        current,
			To:          target,
			ResetFields: resets,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Rollback is Transition constrained to backward targets. Forward targets are
// rejected before touching storage.
func Rollback(ctx context.Context, kind models.EntityKind, id int, target string, reason string) (*TransitionResult, error) {
	current, err := loadStatus(config.GetDB().WithContext(ctx), kind, id)
	if err != nil {
		return nil, err
	}
	if !IsValidRollback(kind, current, target) {
		return nil, utils.ErrorInvalidTransition
	}
	return Transition(ctx, kind, id, target, reason)
}
