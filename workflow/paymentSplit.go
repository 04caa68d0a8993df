package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/models"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewPayment is the request to settle (part of) an account. A non-zero
// withholding percentage splits the gross into a detraction row and a net row;
// both count toward the account's paid amount.
type NewPayment struct {
	AccountKind    models.EntityKind    `json:"account_kind" binding:"required"`
	AccountId      int                  `json:"account_id" binding:"required"`
	Amount         decimal.Decimal      `json:"amount" binding:"required"`
	WithholdingPct decimal.Decimal      `json:"withholding_pct"`
	Method         models.PaymentMethod `json:"method"`
	ReferenceNo    string               `json:"reference_no"`
	PaidAt         *time.Time           `json:"paid_at"`
}

// PaymentResult reports the rows written and the account figures after the
// recalculation that followed.
type PaymentResult struct {
	Payments      []models.Payment     `json:"payments"`
	AccountKind   models.EntityKind    `json:"account_kind"`
	AccountId     int                  `json:"account_id"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	PendingAmount decimal.Decimal      `json:"pending_amount"`
	AccountStatus models.AccountStatus `json:"account_status"`
}

type accountSnapshot struct {
	ID            int
	CurrentStatus models.AccountStatus
	TotalAmount   decimal.Decimal
	PendingAmount decimal.Decimal
}

func loadAccount(tx *gorm.DB, kind models.EntityKind, id int) (*accountSnapshot, error) {
	binding, ok := lifecycleBindings[kind]
	if !ok {
		return nil, utils.ErrorInvalidAmount
	}
	var row accountSnapshot
	err := tx.Table(binding.table).
		Select("id, current_status, total_amount, pending_amount").
		Where("id = ?", id).Take(&row).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &row, nil
}

// RecordPayment validates, splits and writes a payment in one transaction,
// then recomputes the account (and, for receivables, the valuation above it).
// The overpayment check compares the gross against the live pending amount
// inside the same transaction, so two racing payments cannot jointly exceed
// the total.
func RecordPayment(ctx context.Context, input NewPayment) (*PaymentResult, error) {
	if input.AccountKind != models.KindPayable && input.AccountKind != models.KindReceivable {
		return nil, fmt.Errorf("%s is not a payment account kind", input.AccountKind)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, utils.ErrorInvalidAmount
	}
	if input.WithholdingPct.LessThan(decimal.Zero) || input.WithholdingPct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return nil, utils.ErrorInvalidAmount
	}

	actorId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorForbidden
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	switch models.UserRole(role) {
	case models.UserRoleAdmin, models.UserRoleManager:
	default:
		return nil, utils.ErrorForbidden
	}

	paidAt := time.Now().UTC()
	if input.PaidAt != nil {
		paidAt = input.PaidAt.UTC()
	}
	method := input.Method
	if method == "" {
		method = models.PaymentMethodTransfer
	}

	db := config.GetDB()
	var result *PaymentResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := loadAccount(tx, input.AccountKind, input.AccountId)
		if err != nil {
			return err
		}
		if account.CurrentStatus == models.AccountStatusVoided || account.CurrentStatus == models.AccountStatusPaid {
			return utils.NewConflictError(
				fmt.Sprintf("payment against %s %d", input.AccountKind, input.AccountId),
				[]utils.Blocker{{
					Kind:   string(input.AccountKind),
					ID:     input.AccountId,
					Status: string(account.CurrentStatus),
					Reason: "the account no longer accepts payments",
				}},
			)
		}
		// pending comes from the payment rows, not the stored column, so two
		// racing payments cannot jointly exceed the total
		alreadyPaid, err := models.SumAccountPayments(tx, input.AccountKind, input.AccountId)
		if err != nil {
			return err
		}
		pending := account.TotalAmount.Sub(utils.Round2(alreadyPaid))
		if input.Amount.GreaterThan(pending) {
			return utils.ErrorOverpayment
		}

		rows := buildPaymentRows(input, method, paidAt, actorId)
		for i := range rows {
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}

		totals, err := RecalculateTx(tx, models.NewEntityRef(input.AccountKind, input.AccountId))
		if err != nil {
			return err
		}

		refreshed, err := loadAccount(tx, input.AccountKind, input.AccountId)
		if err != nil {
			return err
		}

		metadata := map[string]interface{}{
			"gross":           input.Amount,
			"withholding_pct": input.WithholdingPct,
			"rows":            len(rows),
			"paid_amount":     totals.Totals["paid_amount"],
			"pending_amount":  totals.Totals["pending_amount"],
		}
		if err := models.RecordAuditEvent(tx, models.NewAuditEvent{
			Refs:        []models.EntityRef{models.NewEntityRef(input.AccountKind, input.AccountId)},
			EventKind:   models.AuditEventKindPayment,
			Description: fmt.Sprintf("payment of %s recorded against %s %d", input.Amount.StringFixed(2), input.AccountKind, input.AccountId),
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		result = &PaymentResult{
			Payments:      rows,
			AccountKind:   input.AccountKind,
			AccountId:     input.AccountId,
			PaidAmount:    totals.Totals["paid_amount"],
			PendingAmount: totals.Totals["pending_amount"],
			AccountStatus: refreshed.CurrentStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildPaymentRows turns one gross amount into its stored rows: a single row
// when no withholding applies, otherwise a detraction row plus a net row whose
// amounts sum exactly to the gross.
func buildPaymentRows(input NewPayment, method models.PaymentMethod, paidAt time.Time, actorId int) []models.Payment {
	base := models.Payment{
		AccountKind: input.AccountKind,
		AccountId:   input.AccountId,
		Method:      method,
		ReferenceNo: input.ReferenceNo,
		PaidAt:      paidAt,
		CreatedBy:   actorId,
	}
	if input.WithholdingPct.LessThanOrEqual(decimal.Zero) {
		single := base
		single.Amount = utils.Round2(input.Amount)
		return []models.Payment{single}
	}
	withholdingAmount, netAmount := utils.CalculateWithholding(input.Amount, input.WithholdingPct)
	withholding := base
	withholding.Amount = withholdingAmount
	withholding.IsWithholding = true
	withholding.WithholdingPct = input.WithholdingPct
	net := base
	net.Amount = netAmount
	return []models.Payment{withholding, net}
}
