package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

// PendingReceipt records the goods receipt of one purchase order line. A
// receipt existing at all implies its order was at least Sent, which is what
// the dependency resolver leans on.
type PendingReceipt struct {
	ID                  int                  `gorm:"primary_key" json:"id"`
	PurchaseOrderId     int                  `gorm:"index;not null" json:"purchase_order_id" binding:"required"`
	PurchaseOrderItemId int                  `gorm:"index;not null" json:"purchase_order_item_id" binding:"required"`
	CurrentStatus       PendingReceiptStatus `gorm:"size:50;not null;default:Pending" json:"current_status"`
	Qty                 decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Amount              decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ReceivedAt          *time.Time           `gorm:"default:null" json:"received_at"`
	SettledAt           *time.Time           `gorm:"default:null" json:"settled_at"`
	VoidedAt            *time.Time           `gorm:"default:null" json:"voided_at"`
	CreatedAt           time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPendingReceipt(ctx context.Context, id int) (*PendingReceipt, error) {
	return utils.FetchModel[PendingReceipt](ctx, id)
}
