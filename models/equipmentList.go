package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

type EquipmentList struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	ProjectId     int                 `gorm:"index;not null" json:"project_id" binding:"required"`
	Code          string              `gorm:"size:50;not null" json:"code" binding:"required"`
	Name          string              `gorm:"size:255;not null" json:"name" binding:"required"`
	CurrentStatus EquipmentListStatus `gorm:"size:50;not null;default:Draft" json:"current_status"`
	CurrencyCode  string              `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	// rate to the project base currency; zero means same currency
	ExchangeRate     decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"exchange_rate"`
	SubtotalInternal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_internal"`
	SubtotalClient   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_client"`
	SubtotalReal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_real"`
	ReadyAt          *time.Time      `gorm:"default:null" json:"ready_at"`
	ValidatedAt      *time.Time      `gorm:"default:null" json:"validated_at"`
	ApprovedAt       *time.Time      `gorm:"default:null" json:"approved_at"`
	ApproverId       *int            `gorm:"default:null" json:"approver_id"`
	CancelledAt      *time.Time      `gorm:"default:null" json:"cancelled_at"`
	Items            []EquipmentListItem `json:"items"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type EquipmentListItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	EquipmentListId int             `gorm:"index;not null" json:"equipment_list_id" binding:"required"`
	Description     string          `gorm:"size:255;not null" json:"description" binding:"required"`
	Qty             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty" binding:"required"`
	UnitCostInternal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_internal"`
	UnitCostClient   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_client"`
	UnitCostReal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost_real"`
	TotalInternal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_internal"`
	TotalClient      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_client"`
	TotalReal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_real"`
	// non-hierarchical reference: the quoted request item chosen as the real
	// costing source for this row. Cleared (or reported as a blocker) by the
	// deletion guard when that request is deleted.
	SelectedRequestItemId *int `gorm:"default:null" json:"selected_request_item_id"`
}

// CalculateTotals fills the derived row totals. Round2 here keeps the stored
// line totals at the same precision the rollup sums.
func (item *EquipmentListItem) CalculateTotals() {
	item.TotalInternal = utils.Round2(item.Qty.Mul(item.UnitCostInternal))
	item.TotalClient = utils.Round2(item.Qty.Mul(item.UnitCostClient))
	item.TotalReal = utils.Round2(item.Qty.Mul(item.UnitCostReal))
}

func GetEquipmentList(ctx context.Context, id int) (*EquipmentList, error) {
	return utils.FetchModel[EquipmentList](ctx, id, "Items")
}

func GetEquipmentListItem(ctx context.Context, id int) (*EquipmentListItem, error) {
	return utils.FetchModel[EquipmentListItem](ctx, id)
}
