package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

// Payable is the billing-side account opened against a settled goods receipt.
// PaidAmount/PendingAmount are written only by the split payment processor.
type Payable struct {
	ID               int             `gorm:"primary_key" json:"id"`
	PendingReceiptId int             `gorm:"index;not null" json:"pending_receipt_id" binding:"required"`
	PurchaseOrderId  int             `gorm:"index;not null" json:"purchase_order_id"`
	Code             string          `gorm:"size:50;not null" json:"code" binding:"required"`
	CurrentStatus    AccountStatus   `gorm:"size:50;not null;default:Pending" json:"current_status"`
	CurrencyCode     string          `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	PendingAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pending_amount"`
	DueDate          *time.Time      `gorm:"default:null" json:"due_date"`
	VoidedAt         *time.Time      `gorm:"default:null" json:"voided_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPayable(ctx context.Context, id int) (*Payable, error) {
	return utils.FetchModel[Payable](ctx, id)
}
