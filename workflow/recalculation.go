package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RollupTotals reports the figures recomputed for the entry node of a
// recalculation run.
type RollupTotals struct {
	Ref    models.EntityRef           `json:"ref"`
	Totals map[string]decimal.Decimal `json:"totals"`
}

// Recalculate recomputes one aggregate and every aggregate above it on its
// static parent chain, in a single transaction, and records the run on the
// audit trail. Running it twice in a row yields identical stored values.
func Recalculate(ctx context.Context, ref models.EntityRef) (*RollupTotals, error) {
	db := config.GetDB()
	var result *RollupTotals
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		totals, err := RecalculateTx(tx, ref)
		if err != nil {
			return err
		}
		result = totals
		return models.RecordAuditEvent(tx, models.NewAuditEvent{
			Refs:        []models.EntityRef{ref},
			EventKind:   models.AuditEventKindRecalculation,
			Description: fmt.Sprintf("recalculated %s %d", ref.Kind, ref.ID),
			Metadata:    map[string]interface{}{"totals": totals.Totals},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecalculateTx walks the parent chain bottom-up inside the caller's
// transaction. Item refs resolve to their owning aggregate first.
func RecalculateTx(tx *gorm.DB, ref models.EntityRef) (*RollupTotals, error) {
	node, err := resolveOwner(tx, ref)
	if err != nil {
		return nil, err
	}
	var entry *RollupTotals
	for {
		totals, parent, err := recalculateOne(tx, node)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			entry = &RollupTotals{Ref: node, Totals: totals}
		}
		if parent == nil {
			return entry, nil
		}
		node = *parent
	}
}

// recalculateNode is the single-hop variant used when the caller already
// stands at the aggregate whose children changed.
func recalculateNode(tx *gorm.DB, ref models.EntityRef) (map[string]decimal.Decimal, error) {
	totals, _, err := recalculateOne(tx, ref)
	return totals, err
}

// resolveOwner maps a line-item ref to the aggregate that owns it. Aggregate
// refs pass through untouched.
func resolveOwner(tx *gorm.DB, ref models.EntityRef) (models.EntityRef, error) {
	type ownerLookup struct {
		table     string
		column    string
		ownerKind models.EntityKind
	}
	lookups := map[models.EntityKind]ownerLookup{
		models.KindEquipmentListItem:   {"equipment_list_items", "equipment_list_id", models.KindEquipmentList},
		models.KindPurchaseRequestItem: {"purchase_request_items", "purchase_request_id", models.KindPurchaseRequest},
		models.KindPurchaseOrderItem:   {"purchase_order_items", "purchase_order_id", models.KindPurchaseOrder},
	}
	lookup, ok := lookups[ref.Kind]
	if !ok {
		return ref, nil
	}
	var ownerId int
	err := tx.Table(lookup.table).Where("id = ?", ref.ID).Select(lookup.column).Scan(&ownerId).Error
	if err != nil {
		return ref, err
	}
	if ownerId == 0 {
		return ref, utils.ErrorRecordNotFound
	}
	return models.NewEntityRef(lookup.ownerKind, ownerId), nil
}

func recalculateOne(tx *gorm.DB, ref models.EntityRef) (map[string]decimal.Decimal, *models.EntityRef, error) {
	switch ref.Kind {
	case models.KindEquipmentList:
		return recalcEquipmentList(tx, ref.ID)
	case models.KindPurchaseRequest:
		return recalcPurchaseRequest(tx, ref.ID)
	case models.KindPurchaseOrder:
		return recalcPurchaseOrder(tx, ref.ID)
	case models.KindProject:
		return recalcProject(tx, ref.ID)
	case models.KindPayable:
		return recalcAccount(tx, models.KindPayable, ref.ID)
	case models.KindReceivable:
		return recalcAccount(tx, models.KindReceivable, ref.ID)
	case models.KindValuation:
		return recalcValuation(tx, ref.ID)
	default:
		return nil, nil, fmt.Errorf("%s is not a recalculable kind", ref.Kind)
	}
}

func recalcEquipmentList(tx *gorm.DB, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	list, err := utils.FetchModelTx[models.EquipmentList](tx, id, "Items")
	if err != nil {
		return nil, nil, err
	}
	internal, client, real := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range list.Items {
		internal = internal.Add(item.TotalInternal)
		client = client.Add(item.TotalClient)
		real = real.Add(item.TotalReal)
	}
	internal, client, real = utils.Round2(internal), utils.Round2(client), utils.Round2(real)
	err = tx.Model(&models.EquipmentList{}).Where("id = ?", id).Updates(map[string]interface{}{
		"subtotal_internal": internal,
		"subtotal_client":   client,
		"subtotal_real":     real,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	parent := models.NewEntityRef(models.KindProject, list.ProjectId)
	return map[string]decimal.Decimal{
		"subtotal_internal": internal,
		"subtotal_client":   client,
		"subtotal_real":     real,
	}, &parent, nil
}

func recalcPurchaseRequest(tx *gorm.DB, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	request, err := utils.FetchModelTx[models.PurchaseRequest](tx, id, "Items")
	if err != nil {
		return nil, nil, err
	}
	subtotal := decimal.Zero
	for _, item := range request.Items {
		subtotal = subtotal.Add(item.TotalAmount)
	}
	subtotal = utils.Round2(subtotal)
	err = tx.Model(&models.PurchaseRequest{}).Where("id = ?", id).
		Update("subtotal", subtotal).Error
	if err != nil {
		return nil, nil, err
	}
	// quoted costs never roll into project figures; the chain stops here
	return map[string]decimal.Decimal{"subtotal": subtotal}, nil, nil
}

func recalcPurchaseOrder(tx *gorm.DB, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	order, err := utils.FetchModelTx[models.PurchaseOrder](tx, id, "Items")
	if err != nil {
		return nil, nil, err
	}
	subtotal := decimal.Zero
	for _, item := range order.Items {
		subtotal = subtotal.Add(item.TotalAmount)
	}
	subtotal = utils.Round2(subtotal)
	discount := utils.CalculateDiscountAmount(subtotal, order.DiscountValue, order.DiscountType)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	tax := utils.CalculatePercentAmount(subtotal.Sub(discount), order.TaxPct)
	total := utils.Round2(subtotal.Sub(discount).Add(tax))
	err = tx.Model(&models.PurchaseOrder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"order_subtotal":     subtotal,
		"discount_amount":    discount,
		"tax_amount":         tax,
		"order_total_amount": total,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	parent := models.NewEntityRef(models.KindProject, order.ProjectId)
	return map[string]decimal.Decimal{
		"order_subtotal":     subtotal,
		"discount_amount":    discount,
		"tax_amount":         tax,
		"order_total_amount": total,
	}, &parent, nil
}

// baseRate resolves the rate used to convert a document amount into the
// project base currency: the rate frozen on the document when present,
// otherwise the latest published pair.
func baseRate(tx *gorm.DB, docCurrency string, baseCurrency string, frozen decimal.Decimal) (decimal.Decimal, error) {
	if docCurrency == baseCurrency {
		return decimal.NewFromInt(1), nil
	}
	if frozen.GreaterThan(decimal.Zero) {
		return frozen, nil
	}
	return models.LatestExchangeRate(tx.Statement.Context, docCurrency, baseCurrency)
}

func recalcProject(tx *gorm.DB, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	project, err := utils.FetchModelTx[models.Project](tx, id)
	if err != nil {
		return nil, nil, err
	}

	var lists []models.EquipmentList
	err = tx.Where("project_id = ? AND current_status <> ?", id, models.EquipmentListStatusCancelled).
		Find(&lists).Error
	if err != nil {
		return nil, nil, err
	}
	internal, client, real := decimal.Zero, decimal.Zero, decimal.Zero
	for _, list := range lists {
		rate, err := baseRate(tx, list.CurrencyCode, project.BaseCurrencyCode, list.ExchangeRate)
		if err != nil {
			return nil, nil, err
		}
		internal = internal.Add(utils.ConvertAmount(list.SubtotalInternal, list.CurrencyCode, project.BaseCurrencyCode, rate))
		client = client.Add(utils.ConvertAmount(list.SubtotalClient, list.CurrencyCode, project.BaseCurrencyCode, rate))
		real = real.Add(utils.ConvertAmount(list.SubtotalReal, list.CurrencyCode, project.BaseCurrencyCode, rate))
	}

	var orders []models.PurchaseOrder
	err = tx.Where("project_id = ? AND current_status <> ?", id, models.PurchaseOrderStatusCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}
	ordered := decimal.Zero
	for _, order := range orders {
		rate, err := baseRate(tx, order.CurrencyCode, project.BaseCurrencyCode, order.ExchangeRate)
		if err != nil {
			return nil, nil, err
		}
		ordered = ordered.Add(utils.ConvertAmount(order.OrderTotalAmount, order.CurrencyCode, project.BaseCurrencyCode, rate))
	}

	internal, client, real = utils.Round2(internal), utils.Round2(client), utils.Round2(real)
	ordered = utils.Round2(ordered)
	err = tx.Model(&models.Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"subtotal_internal": internal,
		"subtotal_client":   client,
		"subtotal_real":     real,
		"total_ordered":     ordered,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	return map[string]decimal.Decimal{
		"subtotal_internal": internal,
		"subtotal_client":   client,
		"subtotal_real":     real,
		"total_ordered":     ordered,
	}, nil, nil
}

// accountStatusFor is the paid-amount ladder. A voided account keeps its
// status no matter what the payment rows sum to.
func accountStatusFor(current models.AccountStatus, total decimal.Decimal, paid decimal.Decimal) models.AccountStatus {
	if current == models.AccountStatusVoided {
		return current
	}
	if total.GreaterThan(decimal.Zero) && paid.GreaterThanOrEqual(total) {
		return models.AccountStatusPaid
	}
	if paid.GreaterThan(decimal.Zero) {
		return models.AccountStatusPartial
	}
	return models.AccountStatusPending
}

func recalcAccount(tx *gorm.DB, kind models.EntityKind, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	binding := lifecycleBindings[kind]
	var row struct {
		ID            int
		CurrentStatus models.AccountStatus
		TotalAmount   decimal.Decimal
		ValuationId   int
	}
	selectCols := "id, current_status, total_amount"
	if kind == models.KindReceivable {
		selectCols += ", valuation_id"
	}
	err := tx.Table(binding.table).Select(selectCols).Where("id = ?", id).Take(&row).Error
	if err != nil {
		return nil, nil, translateNotFound(err)
	}

	paid, err := models.SumAccountPayments(tx, kind, id)
	if err != nil {
		return nil, nil, err
	}
	paid = utils.Round2(paid)
	pending := utils.Round2(row.TotalAmount.Sub(paid))
	if pending.LessThan(decimal.Zero) {
		pending = decimal.Zero
	}
	status := accountStatusFor(row.CurrentStatus, row.TotalAmount, paid)

	err = tx.Table(binding.table).Where("id = ?", id).Updates(map[string]interface{}{
		"paid_amount":    paid,
		"pending_amount": pending,
		"current_status": status,
	}).Error
	if err != nil {
		return nil, nil, err
	}

	totals := map[string]decimal.Decimal{"paid_amount": paid, "pending_amount": pending}
	if kind == models.KindReceivable && row.ValuationId > 0 {
		parent := models.NewEntityRef(models.KindValuation, row.ValuationId)
		return totals, &parent, nil
	}
	return totals, nil, nil
}

func recalcValuation(tx *gorm.DB, id int) (map[string]decimal.Decimal, *models.EntityRef, error) {
	valuation, err := utils.FetchModelTx[models.Valuation](tx, id)
	if err != nil {
		return nil, nil, err
	}
	var receivables []models.Receivable
	err = tx.Where("valuation_id = ? AND current_status <> ?", id, models.AccountStatusVoided).
		Find(&receivables).Error
	if err != nil {
		return nil, nil, err
	}
	subtotal := decimal.Zero
	for _, r := range receivables {
		subtotal = subtotal.Add(r.TotalAmount)
	}
	subtotal = utils.Round2(subtotal)
	discount := utils.CalculatePercentAmount(subtotal, valuation.DiscountPct)
	tax := utils.CalculatePercentAmount(subtotal.Sub(discount), valuation.TaxPct)
	retention := utils.CalculatePercentAmount(subtotal, valuation.RetentionPct)
	advance := utils.CalculatePercentAmount(subtotal, valuation.AdvancePct)
	total := utils.Round2(subtotal.Sub(discount).Add(tax).Sub(retention).Sub(advance))
	err = tx.Model(&models.Valuation{}).Where("id = ?", id).Updates(map[string]interface{}{
		"subtotal":         subtotal,
		"discount_amount":  discount,
		"tax_amount":       tax,
		"retention_amount": retention,
		"advance_amount":   advance,
		"total_amount":     total,
	}).Error
	if err != nil {
		return nil, nil, err
	}
	return map[string]decimal.Decimal{
		"subtotal":     subtotal,
		"total_amount": total,
	}, nil, nil
}
