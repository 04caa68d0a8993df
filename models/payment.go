package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	AccountKind    EntityKind      `gorm:"size:50;index:idx_payment_account;not null" json:"account_kind"`
	AccountId      int             `gorm:"index:idx_payment_account;not null" json:"account_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	IsWithholding  bool            `gorm:"not null;default:false" json:"is_withholding"`
	WithholdingPct decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"withholding_pct"`
	Method         PaymentMethod   `gorm:"size:50;not null;default:Transfer" json:"method"`
	ReferenceNo    string          `gorm:"size:100" json:"reference_no"`
	PaidAt         time.Time       `gorm:"not null" json:"paid_at"`
	CreatedBy      int             `gorm:"index" json:"created_by"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// SumAccountPayments returns the exact sum of every payment recorded against
// the account, withholding rows included. The gross is what counts toward
// settling the account.
func SumAccountPayments(tx *gorm.DB, accountKind EntityKind, accountId int) (decimal.Decimal, error) {
	var payments []Payment
	err := tx.Where("account_kind = ? AND account_id = ?", accountKind, accountId).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func GetAccountPayments(ctx context.Context, accountKind EntityKind, accountId int) ([]*Payment, error) {
	db := config.GetDB()
	var results []*Payment
	err := db.WithContext(ctx).
		Where("account_kind = ? AND account_id = ?", accountKind, accountId).
		Order("paid_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
