package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"bitbucket.org/andeandataworks/gestion_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Engine tests run against an in-memory sqlite database, one per test, swapped
// in through config.SetDB. Exchange rates are frozen on the documents so no
// test depends on the rate table or the cache.

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigrateAll(db))
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })
	return db
}

func actorCtx(role models.UserRole) context.Context {
	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 7)
	ctx = utils.SetUserNameInContext(ctx, "Test Actor")
	ctx = utils.SetUserRoleInContext(ctx, string(role))
	return ctx
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedProject(t *testing.T, db *gorm.DB) *models.Project {
	t.Helper()
	project := &models.Project{Code: "PRJ-001", Name: "Planta Norte", BaseCurrencyCode: "PEN"}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedList(t *testing.T, db *gorm.DB, projectId int, status models.EquipmentListStatus) *models.EquipmentList {
	t.Helper()
	now := time.Now().UTC()
	list := &models.EquipmentList{
		ProjectId:     projectId,
		Code:          "EL-001",
		Name:          "Electrical",
		CurrentStatus: status,
		CurrencyCode:  "PEN",
	}
	switch status {
	case models.EquipmentListStatusApproved:
		list.ReadyAt, list.ValidatedAt, list.ApprovedAt = &now, &now, &now
		approver := 7
		list.ApproverId = &approver
	case models.EquipmentListStatusValidated:
		list.ReadyAt, list.ValidatedAt = &now, &now
	case models.EquipmentListStatusReadyForQuote:
		list.ReadyAt = &now
	}
	require.NoError(t, db.Create(list).Error)
	return list
}

func seedRequest(t *testing.T, db *gorm.DB, projectId, listId int, status models.PurchaseRequestStatus) *models.PurchaseRequest {
	t.Helper()
	request := &models.PurchaseRequest{
		ProjectId:       projectId,
		EquipmentListId: listId,
		Code:            "PR-001",
		CurrentStatus:   status,
		CurrencyCode:    "PEN",
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func seedPayable(t *testing.T, db *gorm.DB, receiptId, orderId int, total decimal.Decimal) *models.Payable {
	t.Helper()
	payable := &models.Payable{
		PendingReceiptId: receiptId,
		PurchaseOrderId:  orderId,
		Code:             "AP-001",
		CurrentStatus:    models.AccountStatusPending,
		CurrencyCode:     "PEN",
		TotalAmount:      total,
		PendingAmount:    total,
	}
	require.NoError(t, db.Create(payable).Error)
	return payable
}

func TestRollbackBlockedByLiveRequest(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusSent)

	check, err := workflow.CheckRollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote))
	require.NoError(t, err)
	require.False(t, check.Allowed)
	require.Len(t, check.Blockers, 1)
	require.Equal(t, string(models.KindPurchaseRequest), check.Blockers[0].Kind)
	require.Equal(t, request.ID, check.Blockers[0].ID)
	require.Equal(t, string(models.PurchaseRequestStatusSent), check.Blockers[0].Status)

	_, err = workflow.Rollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote), "re-quote")
	require.Error(t, err)
	conflict, ok := utils.AsConflictError(err)
	require.True(t, ok)
	require.Len(t, conflict.Blockers, 1)

	// remediation: cancel the dependent request, then retry
	_, err = workflow.Transition(ctx, models.KindPurchaseRequest, request.ID, string(models.PurchaseRequestStatusCancelled), "supplier dropped out")
	require.NoError(t, err)

	check, err = workflow.CheckRollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote))
	require.NoError(t, err)
	require.True(t, check.Allowed)

	result, err := workflow.Rollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote), "re-quote")
	require.NoError(t, err)
	require.Equal(t, string(models.EquipmentListStatusApproved), result.From)
	require.Equal(t, string(models.EquipmentListStatusReadyForQuote), result.To)
	require.ElementsMatch(t, []string{"validated_at", "approved_at", "approver_id"}, result.ResetFields)

	reloaded, err := models.GetEquipmentList(ctx, list.ID)
	require.NoError(t, err)
	require.Equal(t, models.EquipmentListStatusReadyForQuote, reloaded.CurrentStatus)
	require.Nil(t, reloaded.ApprovedAt)
	require.Nil(t, reloaded.ApproverId)
	require.Nil(t, reloaded.ValidatedAt)
	require.NotNil(t, reloaded.ReadyAt)

	// the request cancel references the list as its parent, so the list
	// timeline carries both events in order
	timeline, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindEquipmentList, list.ID))
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	require.Equal(t, models.AuditEventKindTransition, timeline[0].EventKind)
	require.Equal(t, models.AuditEventKindRollback, timeline[1].EventKind)
	require.Equal(t, 7, timeline[1].ActorId)
}

func TestRollbackRejectsForwardTarget(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusValidated)

	_, err := workflow.Rollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusApproved), "")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)

	check, err := workflow.CheckRollback(ctx, models.KindEquipmentList, list.ID, string(models.EquipmentListStatusApproved))
	require.NoError(t, err)
	require.False(t, check.Allowed)
}

func TestTransitionForwardStampsMilestones(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusDraft)

	// a request with no lines cannot be sent
	_, err := workflow.Transition(ctx, models.KindPurchaseRequest, request.ID, string(models.PurchaseRequestStatusSent), "")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
	require.Contains(t, err.Error(), "zero line items")

	item := &models.PurchaseRequestItem{
		PurchaseRequestId: request.ID,
		Description:       "cable 10mm",
		Qty:               dec("4"),
		UnitCost:          dec("25.50"),
	}
	_, err = workflow.SavePurchaseRequestItem(ctx, item)
	require.NoError(t, err)

	result, err := workflow.Transition(ctx, models.KindPurchaseRequest, request.ID, string(models.PurchaseRequestStatusSent), "")
	require.NoError(t, err)
	require.Equal(t, string(models.PurchaseRequestStatusDraft), result.From)

	reloaded, err := models.GetPurchaseRequest(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.PurchaseRequestStatusSent, reloaded.CurrentStatus)
	require.NotNil(t, reloaded.SentAt)
	require.True(t, reloaded.Subtotal.Equal(dec("102.00")))

	// skipping a state is not a legal forward move
	_, err = workflow.Transition(ctx, models.KindPurchaseRequest, request.ID, string(models.PurchaseRequestStatusApproved), "")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
}

func TestViewerRoleCannotMutate(t *testing.T) {
	db := setupDB(t)
	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusDraft)

	_, err := workflow.Transition(actorCtx(models.UserRoleViewer), models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote), "")
	require.ErrorIs(t, err, utils.ErrorForbidden)

	// logistics may advance but not approve
	_, err = workflow.Transition(actorCtx(models.UserRoleLogistics), models.KindEquipmentList, list.ID, string(models.EquipmentListStatusReadyForQuote), "")
	require.NoError(t, err)
	_, err = workflow.Transition(actorCtx(models.UserRoleLogistics), models.KindEquipmentList, list.ID, string(models.EquipmentListStatusValidated), "")
	require.NoError(t, err)
	_, err = workflow.Transition(actorCtx(models.UserRoleLogistics), models.KindEquipmentList, list.ID, string(models.EquipmentListStatusApproved), "")
	require.ErrorIs(t, err, utils.ErrorForbidden)

	result, err := workflow.Transition(actorCtx(models.UserRoleManager), models.KindEquipmentList, list.ID, string(models.EquipmentListStatusApproved), "")
	require.NoError(t, err)
	require.Equal(t, string(models.EquipmentListStatusApproved), result.To)
}

func TestTransitionUnknownEntity(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	_, err := workflow.Transition(ctx, models.KindEquipmentList, 999, string(models.EquipmentListStatusReadyForQuote), "")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusDraft)
	_, err = workflow.Transition(ctx, models.KindEquipmentList, list.ID, "Shipped", "")
	require.ErrorIs(t, err, utils.ErrorInvalidTransition)
}

func TestRecalculationRollupAndIdempotence(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusDraft)

	for i := 1; i <= 3; i++ {
		item := &models.EquipmentListItem{
			EquipmentListId:  list.ID,
			Description:      fmt.Sprintf("item %d", i),
			Qty:              decimal.NewFromInt(int64(i)),
			UnitCostInternal: dec("10.10"),
			UnitCostClient:   dec("12.00"),
			UnitCostReal:     dec("9.99"),
		}
		_, err := workflow.SaveEquipmentListItem(ctx, item)
		require.NoError(t, err)
	}

	// qty 1+2+3 = 6 units
	first, err := workflow.Recalculate(ctx, models.NewEntityRef(models.KindEquipmentList, list.ID))
	require.NoError(t, err)
	require.True(t, first.Totals["subtotal_internal"].Equal(dec("60.60")))
	require.True(t, first.Totals["subtotal_client"].Equal(dec("72.00")))
	require.True(t, first.Totals["subtotal_real"].Equal(dec("59.94")))

	second, err := workflow.Recalculate(ctx, models.NewEntityRef(models.KindEquipmentList, list.ID))
	require.NoError(t, err)
	for k, v := range first.Totals {
		require.True(t, v.Equal(second.Totals[k]), "field %s drifted: %s vs %s", k, v, second.Totals[k])
	}

	reloadedProject, err := models.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, reloadedProject.SubtotalInternal.Equal(dec("60.60")))
	require.True(t, reloadedProject.SubtotalClient.Equal(dec("72.00")))

	// removing a line shrinks the rollup in the same transaction
	var itemIds []int
	require.NoError(t, db.Model(&models.EquipmentListItem{}).Order("id ASC").Pluck("id", &itemIds).Error)
	_, err = workflow.DeleteLineItem(ctx, models.KindEquipmentListItem, itemIds[2])
	require.NoError(t, err)

	reloadedProject, err = models.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, reloadedProject.SubtotalInternal.Equal(dec("30.30")))
}

func TestLineItemSaveRejectsBlankRows(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusDraft)

	// blank description and zero qty never reach the rollup
	_, err := workflow.SaveEquipmentListItem(ctx, &models.EquipmentListItem{
		EquipmentListId: list.ID,
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.EquipmentListItem{}).Count(&count).Error)
	require.Equal(t, int64(0), count)

	// a missing owner id fails before the owner lookup runs
	_, err = workflow.SavePurchaseRequestItem(ctx, &models.PurchaseRequestItem{
		Description: "cable 10mm",
		Qty:         dec("4"),
	})
	require.Error(t, err)

	_, err = workflow.SavePurchaseOrderItem(ctx, &models.PurchaseOrderItem{
		PurchaseOrderId: 1,
		Description:     "cable 10mm",
	})
	require.Error(t, err)
}

func TestProjectRollupConvertsCurrency(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := &models.EquipmentList{
		ProjectId:     project.ID,
		Code:          "EL-USD",
		Name:          "Imported gear",
		CurrentStatus: models.EquipmentListStatusDraft,
		CurrencyCode:  "USD",
		ExchangeRate:  dec("3.75"),
	}
	require.NoError(t, db.Create(list).Error)

	item := &models.EquipmentListItem{
		EquipmentListId:  list.ID,
		Description:      "compressor",
		Qty:              dec("1"),
		UnitCostInternal: dec("1000"),
		UnitCostClient:   dec("1000"),
		UnitCostReal:     dec("1000"),
	}
	_, err := workflow.SaveEquipmentListItem(ctx, item)
	require.NoError(t, err)

	reloadedProject, err := models.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, reloadedProject.SubtotalReal.Equal(dec("3750.00")),
		"1000 USD at 3.75 must contribute 3750 PEN, got %s", reloadedProject.SubtotalReal)

	// the list itself stays in its own currency
	reloadedList, err := models.GetEquipmentList(ctx, list.ID)
	require.NoError(t, err)
	require.True(t, reloadedList.SubtotalReal.Equal(dec("1000.00")))
}

func TestCancelledOrderLeavesProjectRollup(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusOrdered)

	order := &models.PurchaseOrder{
		ProjectId:         project.ID,
		PurchaseRequestId: request.ID,
		Code:              "PO-001",
		CurrentStatus:     models.PurchaseOrderStatusDraft,
		CurrencyCode:      "PEN",
		TaxPct:            dec("18"),
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.PurchaseOrderItem{
		PurchaseOrderId: order.ID,
		Description:     "compressor",
		Qty:             dec("2"),
		UnitRate:        dec("500"),
	}
	_, err := workflow.SavePurchaseOrderItem(ctx, item)
	require.NoError(t, err)

	reloadedOrder, err := models.GetPurchaseOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloadedOrder.OrderSubtotal.Equal(dec("1000.00")))
	require.True(t, reloadedOrder.TaxAmount.Equal(dec("180.00")))
	require.True(t, reloadedOrder.OrderTotalAmount.Equal(dec("1180.00")))

	reloadedProject, err := models.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, reloadedProject.TotalOrdered.Equal(dec("1180.00")))

	// cancelling drops the order from the committed total in the same tx
	_, err = workflow.Transition(ctx, models.KindPurchaseOrder, order.ID, string(models.PurchaseOrderStatusCancelled), "supplier folded")
	require.NoError(t, err)

	reloadedProject, err = models.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, reloadedProject.TotalOrdered.Equal(dec("0.00")),
		"cancelled order must not count, got %s", reloadedProject.TotalOrdered)
}

func TestOrderDiscountPercentAndAbsolute(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusOrdered)

	order := &models.PurchaseOrder{
		ProjectId:         project.ID,
		PurchaseRequestId: request.ID,
		Code:              "PO-001",
		CurrentStatus:     models.PurchaseOrderStatusDraft,
		CurrencyCode:      "PEN",
		DiscountType:      "P",
		DiscountValue:     dec("10"),
		TaxPct:            dec("18"),
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.PurchaseOrderItem{
		PurchaseOrderId: order.ID,
		Description:     "compressor",
		Qty:             dec("2"),
		UnitRate:        dec("500"),
	}
	_, err := workflow.SavePurchaseOrderItem(ctx, item)
	require.NoError(t, err)

	// percent: 10% of 1000 discounted, tax on the discounted base
	reloaded, err := models.GetPurchaseOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloaded.DiscountAmount.Equal(dec("100.00")))
	require.True(t, reloaded.TaxAmount.Equal(dec("162.00")))
	require.True(t, reloaded.OrderTotalAmount.Equal(dec("1062.00")))

	// absolute: the stored value is the discount itself
	require.NoError(t, db.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"discount_type": "A", "discount_value": dec("250")}).Error)
	_, err = workflow.Recalculate(ctx, models.NewEntityRef(models.KindPurchaseOrder, order.ID))
	require.NoError(t, err)

	reloaded, err = models.GetPurchaseOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloaded.DiscountAmount.Equal(dec("250.00")))
	require.True(t, reloaded.TaxAmount.Equal(dec("135.00")))
	require.True(t, reloaded.OrderTotalAmount.Equal(dec("885.00")))

	// an absolute discount never exceeds the subtotal
	require.NoError(t, db.Model(&models.PurchaseOrder{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"discount_value": dec("5000")}).Error)
	_, err = workflow.Recalculate(ctx, models.NewEntityRef(models.KindPurchaseOrder, order.ID))
	require.NoError(t, err)

	reloaded, err = models.GetPurchaseOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloaded.DiscountAmount.Equal(dec("1000.00")))
	require.True(t, reloaded.OrderTotalAmount.Equal(dec("0.00")))
}

func TestPaymentSplitWithholding(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	payable := seedPayable(t, db, 1, 1, dec("1000"))

	result, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind:    models.KindPayable,
		AccountId:      payable.ID,
		Amount:         dec("1000"),
		WithholdingPct: dec("10"),
		Method:         models.PaymentMethodTransfer,
	})
	require.NoError(t, err)
	require.Len(t, result.Payments, 2)

	withholding, net := result.Payments[0], result.Payments[1]
	require.True(t, withholding.IsWithholding)
	require.True(t, withholding.Amount.Equal(dec("100.00")))
	require.False(t, net.IsWithholding)
	require.True(t, net.Amount.Equal(dec("900.00")))

	require.True(t, result.PaidAmount.Equal(dec("1000.00")))
	require.True(t, result.PendingAmount.Equal(dec("0.00")))
	require.Equal(t, models.AccountStatusPaid, result.AccountStatus)

	timeline, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindPayable, payable.ID))
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Equal(t, models.AuditEventKindPayment, timeline[0].EventKind)
}

func TestPaymentWithoutWithholdingIsSingleRow(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	payable := seedPayable(t, db, 1, 1, dec("1000"))

	result, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("1000"),
	})
	require.NoError(t, err)
	require.Len(t, result.Payments, 1)
	require.True(t, result.Payments[0].Amount.Equal(dec("1000.00")))
	require.False(t, result.Payments[0].IsWithholding)
	require.Equal(t, models.AccountStatusPaid, result.AccountStatus)
}

func TestPartialPaymentLadderAndOverpayment(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	payable := seedPayable(t, db, 1, 1, dec("1000"))

	result, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("500"),
	})
	require.NoError(t, err)
	require.Equal(t, models.AccountStatusPartial, result.AccountStatus)
	require.True(t, result.PendingAmount.Equal(dec("500.00")))

	_, err = workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("600"),
	})
	require.ErrorIs(t, err, utils.ErrorOverpayment)

	result, err = workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("500"),
	})
	require.NoError(t, err)
	require.Equal(t, models.AccountStatusPaid, result.AccountStatus)

	// a settled account takes no further payments
	_, err = workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("1"),
	})
	require.Error(t, err)
	_, isConflict := utils.AsConflictError(err)
	require.True(t, isConflict)
}

func TestVoidedAccountRejectsPayment(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	payable := seedPayable(t, db, 1, 1, dec("1000"))
	now := time.Now().UTC()
	require.NoError(t, db.Model(payable).Updates(map[string]interface{}{
		"current_status": models.AccountStatusVoided,
		"voided_at":      now,
	}).Error)

	_, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable,
		AccountId:   payable.ID,
		Amount:      dec("100"),
	})
	require.Error(t, err)
	conflict, ok := utils.AsConflictError(err)
	require.True(t, ok)
	require.Equal(t, string(models.AccountStatusVoided), conflict.Blockers[0].Status)
}

func TestInvalidPaymentAmounts(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)
	payable := seedPayable(t, db, 1, 1, dec("1000"))

	_, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable, AccountId: payable.ID, Amount: dec("0"),
	})
	require.ErrorIs(t, err, utils.ErrorInvalidAmount)

	_, err = workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable, AccountId: payable.ID, Amount: dec("-5"),
	})
	require.ErrorIs(t, err, utils.ErrorInvalidAmount)

	_, err = workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindPayable, AccountId: payable.ID, Amount: dec("10"), WithholdingPct: dec("100"),
	})
	require.ErrorIs(t, err, utils.ErrorInvalidAmount)

	_, err = workflow.RecordPayment(actorCtx(models.UserRoleViewer), workflow.NewPayment{
		AccountKind: models.KindPayable, AccountId: payable.ID, Amount: dec("10"),
	})
	require.ErrorIs(t, err, utils.ErrorForbidden)
}

func TestReceivablePaymentRollsUpValuation(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	valuation := &models.Valuation{
		ProjectId:    project.ID,
		Code:         "VAL-001",
		PeriodName:   "2026-08",
		CurrencyCode: "PEN",
		RetentionPct: dec("5"),
	}
	require.NoError(t, db.Create(valuation).Error)

	receivable := &models.Receivable{
		ValuationId:   valuation.ID,
		Code:          "AR-001",
		CurrentStatus: models.AccountStatusPending,
		CurrencyCode:  "PEN",
		TotalAmount:   dec("500"),
		PendingAmount: dec("500"),
	}
	require.NoError(t, db.Create(receivable).Error)

	result, err := workflow.RecordPayment(ctx, workflow.NewPayment{
		AccountKind: models.KindReceivable,
		AccountId:   receivable.ID,
		Amount:      dec("500"),
	})
	require.NoError(t, err)
	require.Equal(t, models.AccountStatusPaid, result.AccountStatus)
	require.True(t, result.PendingAmount.Equal(dec("0.00")))

	// the payment recalculated the valuation above the account
	reloaded, err := models.GetValuation(ctx, valuation.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Subtotal.Equal(dec("500.00")))
	require.True(t, reloaded.RetentionAmount.Equal(dec("25.00")))
	require.True(t, reloaded.TotalAmount.Equal(dec("475.00")))
}

func TestDeleteBlockedByLiveDependent(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusOrdered)
	order := &models.PurchaseOrder{
		ProjectId:         project.ID,
		PurchaseRequestId: request.ID,
		Code:              "PO-001",
		CurrentStatus:     models.PurchaseOrderStatusDraft,
		CurrencyCode:      "PEN",
	}
	require.NoError(t, db.Create(order).Error)

	check, err := workflow.CheckDelete(ctx, models.KindPurchaseRequest, request.ID)
	require.NoError(t, err)
	require.False(t, check.Allowed)
	require.Equal(t, string(models.KindPurchaseOrder), check.Blockers[0].Kind)

	err = workflow.Delete(ctx, models.KindPurchaseRequest, request.ID)
	require.Error(t, err)
	_, isConflict := utils.AsConflictError(err)
	require.True(t, isConflict)

	_, err = workflow.Transition(ctx, models.KindPurchaseOrder, order.ID, string(models.PurchaseOrderStatusCancelled), "")
	require.NoError(t, err)

	require.NoError(t, workflow.Delete(ctx, models.KindPurchaseRequest, request.ID))
	err = db.Where("id = ?", request.ID).Take(&models.PurchaseRequest{}).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// the deletion is on the trail and a supplementary log is staged
	timeline, err := models.GetTimeline(ctx, models.NewEntityRef(models.KindPurchaseRequest, request.ID))
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	require.Equal(t, models.AuditEventKindDelete, timeline[0].EventKind)

	var staged int64
	require.NoError(t, db.Model(&models.AuditOutboxRecord{}).Where("status = ?", models.OutboxStatusPending).Count(&staged).Error)
	require.Equal(t, int64(1), staged)
}

func TestDeleteClearsSelectionReferences(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	list := seedList(t, db, project.ID, models.EquipmentListStatusApproved)
	request := seedRequest(t, db, project.ID, list.ID, models.PurchaseRequestStatusQuoted)

	requestItem := &models.PurchaseRequestItem{
		PurchaseRequestId: request.ID,
		Description:       "pump",
		Qty:               dec("1"),
		UnitCost:          dec("320"),
	}
	require.NoError(t, db.Create(requestItem).Error)

	listItem := &models.EquipmentListItem{
		EquipmentListId:       list.ID,
		Description:           "pump",
		Qty:                   dec("1"),
		SelectedRequestItemId: &requestItem.ID,
	}
	require.NoError(t, db.Create(listItem).Error)

	t.Run("strict guard reports a blocker", func(t *testing.T) {
		t.Setenv("STRICT_SELECTION_GUARD", "true")
		check, err := workflow.CheckDelete(ctx, models.KindPurchaseRequest, request.ID)
		require.NoError(t, err)
		require.False(t, check.Allowed)
		require.Equal(t, string(models.KindEquipmentListItem), check.Blockers[0].Kind)
		require.Equal(t, listItem.ID, check.Blockers[0].ID)

		err = workflow.Delete(ctx, models.KindPurchaseRequest, request.ID)
		_, isConflict := utils.AsConflictError(err)
		require.True(t, isConflict)
	})

	t.Run("lenient guard nulls the selection atomically", func(t *testing.T) {
		t.Setenv("STRICT_SELECTION_GUARD", "false")
		require.NoError(t, workflow.Delete(ctx, models.KindPurchaseRequest, request.ID))

		reloaded, err := models.GetEquipmentListItem(ctx, listItem.ID)
		require.NoError(t, err)
		require.Nil(t, reloaded.SelectedRequestItemId)

		// request items went with the request
		var remaining int64
		require.NoError(t, db.Model(&models.PurchaseRequestItem{}).Count(&remaining).Error)
		require.Equal(t, int64(0), remaining)
	})
}

func TestDeleteRequiresElevatedRole(t *testing.T) {
	db := setupDB(t)
	project := seedProject(t, db)

	err := workflow.Delete(actorCtx(models.UserRoleLogistics), models.KindProject, project.ID)
	require.ErrorIs(t, err, utils.ErrorForbidden)

	err = workflow.Delete(actorCtx(models.UserRoleAdmin), models.KindProject, project.ID)
	require.NoError(t, err)
}

func TestProjectDeleteBlockedByLists(t *testing.T) {
	db := setupDB(t)
	ctx := actorCtx(models.UserRoleAdmin)

	project := seedProject(t, db)
	seedList(t, db, project.ID, models.EquipmentListStatusDraft)

	check, err := workflow.CheckDelete(ctx, models.KindProject, project.ID)
	require.NoError(t, err)
	require.False(t, check.Allowed)
	require.Equal(t, string(models.KindEquipmentList), check.Blockers[0].Kind)
}
