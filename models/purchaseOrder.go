package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseOrder struct {
	ID                int                 `gorm:"primary_key" json:"id"`
	ProjectId         int                 `gorm:"index;not null" json:"project_id" binding:"required"`
	PurchaseRequestId int                 `gorm:"index;not null" json:"purchase_request_id" binding:"required"`
	Code              string              `gorm:"size:50;not null" json:"code" binding:"required"`
	SupplierName      string              `gorm:"size:255" json:"supplier_name"`
	CurrentStatus     PurchaseOrderStatus `gorm:"size:50;not null;default:Draft" json:"current_status"`
	CurrencyCode      string              `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	ExchangeRate      decimal.Decimal     `gorm:"type:decimal(20,8);default:0" json:"exchange_rate"`
	OrderSubtotal     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"order_subtotal"`
	// "P" reads DiscountValue as a percentage of the subtotal, "A" as an
	// absolute amount in the order currency
	DiscountType   string          `gorm:"size:1;not null;default:P" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxPct            decimal.Decimal     `gorm:"type:decimal(10,4);default:0" json:"tax_pct"`
	TaxAmount         decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	OrderTotalAmount  decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"order_total_amount"`
	ApprovedAt        *time.Time          `gorm:"default:null" json:"approved_at"`
	ApproverId        *int                `gorm:"default:null" json:"approver_id"`
	SentAt            *time.Time          `gorm:"default:null" json:"sent_at"`
	ConfirmedAt       *time.Time          `gorm:"default:null" json:"confirmed_at"`
	CompletedAt       *time.Time          `gorm:"default:null" json:"completed_at"`
	CancelledAt       *time.Time          `gorm:"default:null" json:"cancelled_at"`
	Items             []PurchaseOrderItem `json:"items"`
	CreatedAt         time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID                    int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId       int             `gorm:"index;not null" json:"purchase_order_id" binding:"required"`
	PurchaseRequestItemId int             `gorm:"index;default:null" json:"purchase_request_item_id"`
	Description           string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Qty                   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty" binding:"required"`
	ReceivedQty           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"received_qty"`
	UnitRate              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_rate"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
}

func (item *PurchaseOrderItem) CalculateTotals() {
	item.TotalAmount = utils.Round2(item.Qty.Mul(item.UnitRate))
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return utils.FetchModel[PurchaseOrder](ctx, id, "Items")
}
