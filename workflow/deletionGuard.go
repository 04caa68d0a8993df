package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// Deletion uses the same dependency map as rollback, with one stricter rule:
// for deletion any live dependent blocks, regardless of which state the
// dependent implies. The root edges below cover the kinds that have no
// rollback graph of their own.

var deletionOnlyEdges = []dependencyEdge{
	{
		parentKind:         models.KindProject,
		dependentKind:      models.KindEquipmentList,
		table:              "equipment_lists",
		fkColumn:           "project_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.EquipmentListStatusCancelled)},
		impliedParentIndex: 0,
		reason:             "an equipment list belongs to this project",
	},
	{
		parentKind:         models.KindProject,
		dependentKind:      models.KindPurchaseOrder,
		table:              "purchase_orders",
		fkColumn:           "project_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.PurchaseOrderStatusCancelled)},
		impliedParentIndex: 0,
		reason:             "a purchase order belongs to this project",
	},
	{
		parentKind:         models.KindProject,
		dependentKind:      models.KindValuation,
		table:              "valuations",
		fkColumn:           "project_id",
		impliedParentIndex: 0,
		reason:             "a valuation belongs to this project",
	},
	{
		parentKind:         models.KindValuation,
		dependentKind:      models.KindReceivable,
		table:              "receivables",
		fkColumn:           "valuation_id",
		statusColumn:       "current_status",
		excludedStatuses:   []string{string(models.AccountStatusVoided)},
		impliedParentIndex: 0,
		reason:             "a receivable was opened against this valuation",
	},
}

// deletable maps each deletable kind to its table, its child-row tables and
// the parent ref refreshed after the delete commits.
type deletionBinding struct {
	table      string
	itemTables map[string]string // table -> fk column
	parentKind models.EntityKind
	parentCol  string
	// refresh the parent's rollup in the same transaction
	recalcParent bool
}

var deletionBindings = map[models.EntityKind]deletionBinding{
	models.KindProject:       {table: "projects"},
	models.KindEquipmentList: {table: "equipment_lists", itemTables: map[string]string{"equipment_list_items": "equipment_list_id"}, parentKind: models.KindProject, parentCol: "project_id", recalcParent: true},
	models.KindPurchaseRequest: {
		table:      "purchase_requests",
		itemTables: map[string]string{"purchase_request_items": "purchase_request_id"},
		parentKind: models.KindEquipmentList, parentCol: "equipment_list_id",
	},
	models.KindPurchaseOrder: {
		table:      "purchase_orders",
		itemTables: map[string]string{"purchase_order_items": "purchase_order_id"},
		parentKind: models.KindProject, parentCol: "project_id", recalcParent: true,
	},
	models.KindPendingReceipt: {table: "pending_receipts", parentKind: models.KindPurchaseOrder, parentCol: "purchase_order_id"},
	models.KindPayable:        {table: "payables", parentKind: models.KindPendingReceipt, parentCol: "pending_receipt_id"},
	models.KindReceivable:     {table: "receivables", parentKind: models.KindValuation, parentCol: "valuation_id", recalcParent: true},
	models.KindValuation:      {table: "valuations", parentKind: models.KindProject, parentCol: "project_id"},
}

// DeleteCheck mirrors RollbackCheck for the deletion pre-check endpoint.
type DeleteCheck struct {
	Allowed  bool            `json:"allowed"`
	Blockers []utils.Blocker `json:"blockers"`
	Message  string          `json:"message"`
}

// selectionReferences finds equipment list rows whose items still point at a
// line of the purchase request about to be deleted.
func selectionReferences(tx *gorm.DB, requestId int) ([]utils.Blocker, error) {
	type refRow struct {
		ID              int
		EquipmentListId int
	}
	var rows []refRow
	err := tx.Table("equipment_list_items").
		Select("equipment_list_items.id, equipment_list_items.equipment_list_id").
		Joins("JOIN purchase_request_items ON purchase_request_items.id = equipment_list_items.selected_request_item_id").
		Where("purchase_request_items.purchase_request_id = ?", requestId).
		Order("equipment_list_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	blockers := make([]utils.Blocker, 0, len(rows))
	for _, row := range rows {
		blockers = append(blockers, utils.Blocker{
			Kind:   string(models.KindEquipmentListItem),
			ID:     row.ID,
			Reason: fmt.Sprintf("equipment list %d uses a line of this request as its selected cost source", row.EquipmentListId),
		})
	}
	return blockers, nil
}

func checkDeleteTx(tx *gorm.DB, kind models.EntityKind, id int) (DeleteCheck, error) {
	var blockers []utils.Blocker
	for _, edge := range append(dependencyEdges, deletionOnlyEdges...) {
		if edge.parentKind != kind {
			continue
		}
		rows, err := liveDependents(tx, edge, id)
		if err != nil {
			return DeleteCheck{}, err
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

	if kind == models.KindPurchaseRequest && config.StrictSelectionGuard() {
		refs, err := selectionReferences(tx, id)
		if err != nil {
			return DeleteCheck{}, err
		}
		blockers = append(blockers, refs...)
	}

	if len(blockers) > 0 {
		return DeleteCheck{
			Allowed:  false,
			Blockers: blockers,
			Message:  fmt.Sprintf("cannot delete %s %d: %d record(s) still depend on it", kind, id, len(blockers)),
		}, nil
	}
	return DeleteCheck{Allowed: true, Message: "deletion allowed"}, nil
}

// CheckDelete is the read-only deletion pre-check. Like CheckRollback it is a
// snapshot; Delete re-runs it inside the transaction.
func CheckDelete(ctx context.Context, kind models.EntityKind, id int) (DeleteCheck, error) {
	if _, ok := deletionBindings[kind]; !ok {
		return DeleteCheck{}, fmt.Errorf("%s is not a deletable kind", kind)
	}
	tx := config.GetDB().WithContext(ctx)
	var exists int64
	if err := tx.Table(deletionBindings[kind].table).Where("id = ?", id).Count(&exists).Error; err != nil {
		return DeleteCheck{}, err
	}
	if exists == 0 {
		return DeleteCheck{}, utils.ErrorRecordNotFound
	}
	return checkDeleteTx(tx, kind, id)
}

// Delete removes an entity and its line items after re-checking the guard in
// the same transaction. In lax mode, selected-cost references into a deleted
// purchase request are cleared rather than reported as blockers, and the
// clearing is logged through the supplementary audit outbox.
func Delete(ctx context.Context, kind models.EntityKind, id int) error {
	binding, ok := deletionBindings[kind]
	if !ok {
		return fmt.Errorf("%s is not a deletable kind", kind)
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	switch models.UserRole(role) {
	case models.UserRoleAdmin, models.UserRoleManager:
	default:
		return utils.ErrorForbidden
	}

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Table(binding.table).Where("id = ?", id).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return utils.ErrorRecordNotFound
		}

		check, err := checkDeleteTx(tx, kind, id)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return utils.NewConflictError(fmt.Sprintf("delete of %s %d", kind, id), check.Blockers)
		}

		parentId, err := loadDeletionParentId(tx, binding, id)
		if err != nil {
			return err
		}

		clearedSelections := 0
		if kind == models.KindPurchaseRequest && !config.StrictSelectionGuard() {
			result := tx.Exec(`UPDATE equipment_list_items SET selected_request_item_id = NULL
				WHERE selected_request_item_id IN
				(SELECT id FROM purchase_request_items WHERE purchase_request_id = ?)`, id)
			if result.Error != nil {
				return result.Error
			}
			clearedSelections = int(result.RowsAffected)
		}

		for itemTable, fkColumn := range binding.itemTables {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", itemTable, fkColumn), id).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", binding.table), id).Error; err != nil {
			return err
		}

		// valuations have no sparse audit column of their own; their deletion
		// is anchored on the owning project
		var refs []models.EntityRef
		metadata := map[string]interface{}{}
		if kind == models.KindValuation {
			metadata["valuation_id"] = id
			if parentId > 0 {
				refs = append(refs, models.NewEntityRef(models.KindProject, parentId))
			}
		} else {
			refs = append(refs, models.NewEntityRef(kind, id))
			if parentId > 0 {
				switch binding.parentKind {
				case models.KindProject, models.KindEquipmentList, models.KindPurchaseOrder, models.KindPendingReceipt:
					refs = append(refs, models.NewEntityRef(binding.parentKind, parentId))
				}
			}
		}
		if clearedSelections > 0 {
			metadata["cleared_selection_refs"] = clearedSelections
		}
		if err := models.RecordAuditEvent(tx, models.NewAuditEvent{
			Refs:        refs,
			EventKind:   models.AuditEventKindDelete,
			Description: fmt.Sprintf("%s %d deleted", kind, id),
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		// the deletion log survives in the trail even though the row is gone
		if err := models.EnqueueSupplementaryAudit(tx, models.SupplementaryAuditPayload{
			Refs:        refs,
			EventKind:   models.AuditEventKindDelete,
			Description: fmt.Sprintf("deletion log for %s %d", kind, id),
			Metadata:    metadata,
			OccurredAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}

		if binding.recalcParent && parentId > 0 {
			if _, err := RecalculateTx(tx, models.NewEntityRef(binding.parentKind, parentId)); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadDeletionParentId(tx *gorm.DB, binding deletionBinding, id int) (int, error) {
	if binding.parentCol == "" {
		return 0, nil
	}
	var parentId int
	err := tx.Table(binding.table).Where("id = ?", id).Select(binding.parentCol).Scan(&parentId).Error
	return parentId, err
}
