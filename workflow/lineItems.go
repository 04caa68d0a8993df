package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"gorm.io/gorm"
)

// Line-item writes are the only way document totals change. Each save or
// delete runs in one transaction together with the bottom-up recalculation of
// the owning document and everything above it.

func SaveEquipmentListItem(ctx context.Context, item *models.EquipmentListItem) (*RollupTotals, error) {
	if err := utils.ValidateStruct(item); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.EquipmentList](ctx, item.EquipmentListId); err != nil {
		return nil, err
	}
	item.CalculateTotals()
	return saveItem(ctx, item, models.NewEntityRef(models.KindEquipmentList, item.EquipmentListId))
}

func SavePurchaseRequestItem(ctx context.Context, item *models.PurchaseRequestItem) (*RollupTotals, error) {
	if err := utils.ValidateStruct(item); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.PurchaseRequest](ctx, item.PurchaseRequestId); err != nil {
		return nil, err
	}
	item.CalculateTotals()
	return saveItem(ctx, item, models.NewEntityRef(models.KindPurchaseRequest, item.PurchaseRequestId))
}

func SavePurchaseOrderItem(ctx context.Context, item *models.PurchaseOrderItem) (*RollupTotals, error) {
	if err := utils.ValidateStruct(item); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[models.PurchaseOrder](ctx, item.PurchaseOrderId); err != nil {
		return nil, err
	}
	item.CalculateTotals()
	return saveItem(ctx, item, models.NewEntityRef(models.KindPurchaseOrder, item.PurchaseOrderId))
}

func saveItem(ctx context.Context, item interface{}, owner models.EntityRef) (*RollupTotals, error) {
	db := config.GetDB()
	var totals *RollupTotals
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		recomputed, err := RecalculateTx(tx, owner)
		if err != nil {
			return err
		}
		totals = recomputed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// DeleteLineItem removes one line and refreshes its owner's rollup. Equipment
// list lines that other requests quote against have no dependents of their
// own; request lines selected as a costing source are protected by the
// deletion guard at the request level, not here.
func DeleteLineItem(ctx context.Context, kind models.EntityKind, id int) (*RollupTotals, error) {
	tables := map[models.EntityKind]string{
		models.KindEquipmentListItem:   "equipment_list_items",
		models.KindPurchaseRequestItem: "purchase_request_items",
		models.KindPurchaseOrderItem:   "purchase_order_items",
	}
	table, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("%s is not a line item kind", kind)
	}

	db := config.GetDB()
	var totals *RollupTotals
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := resolveOwner(tx, models.NewEntityRef(kind, id))
		if err != nil {
			return err
		}
		if kind == models.KindPurchaseRequestItem {
			if err := tx.Exec("UPDATE equipment_list_items SET selected_request_item_id = NULL WHERE selected_request_item_id = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id).Error; err != nil {
			return err
		}
		recomputed, err := RecalculateTx(tx, owner)
		if err != nil {
			return err
		}
		totals = recomputed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}
