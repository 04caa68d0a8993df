package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseRequest struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	ProjectId       int                   `gorm:"index;not null" json:"project_id" binding:"required"`
	EquipmentListId int                   `gorm:"index;not null" json:"equipment_list_id" binding:"required"`
	Code            string                `gorm:"size:50;not null" json:"code" binding:"required"`
	SupplierName    string                `gorm:"size:255" json:"supplier_name"`
	CurrentStatus   PurchaseRequestStatus `gorm:"size:50;not null;default:Draft" json:"current_status"`
	CurrencyCode    string                `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	ExchangeRate    decimal.Decimal       `gorm:"type:decimal(20,8);default:0" json:"exchange_rate"`
	Subtotal        decimal.Decimal       `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	SentAt          *time.Time            `gorm:"default:null" json:"sent_at"`
	QuotedAt        *time.Time            `gorm:"default:null" json:"quoted_at"`
	ApprovedAt      *time.Time            `gorm:"default:null" json:"approved_at"`
	ApproverId      *int                  `gorm:"default:null" json:"approver_id"`
	OrderedAt       *time.Time            `gorm:"default:null" json:"ordered_at"`
	RejectedAt      *time.Time            `gorm:"default:null" json:"rejected_at"`
	RejectedReason  string                `gorm:"size:255" json:"rejected_reason"`
	CancelledAt     *time.Time            `gorm:"default:null" json:"cancelled_at"`
	Items           []PurchaseRequestItem `json:"items"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseRequestItem struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	PurchaseRequestId   int             `gorm:"index;not null" json:"purchase_request_id" binding:"required"`
	EquipmentListItemId int             `gorm:"index;default:null" json:"equipment_list_item_id"`
	Description         string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Qty                 decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty" binding:"required"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
}

func (item *PurchaseRequestItem) CalculateTotals() {
	item.TotalAmount = utils.Round2(item.Qty.Mul(item.UnitCost))
}

func GetPurchaseRequest(ctx context.Context, id int) (*PurchaseRequest, error) {
	return utils.FetchModel[PurchaseRequest](ctx, id, "Items")
}
