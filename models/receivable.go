package models

import (
	"context"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

// Valuation is the progress-billing aggregate on the income side. Its totals
// come from its receivables; the percentage deductions are recomputed from the
// freshly summed subtotal on every recalculation.
type Valuation struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProjectId       int             `gorm:"index;not null" json:"project_id" binding:"required"`
	Code            string          `gorm:"size:50;not null" json:"code" binding:"required"`
	PeriodName      string          `gorm:"size:100" json:"period_name"`
	CurrencyCode    string          `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountPct     decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"discount_pct"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxPct          decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"tax_pct"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	RetentionPct    decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"retention_pct"`
	RetentionAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"retention_amount"`
	AdvancePct      decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"advance_pct"`
	AdvanceAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Receivable struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ValuationId   int             `gorm:"index;not null" json:"valuation_id" binding:"required"`
	Code          string          `gorm:"size:50;not null" json:"code" binding:"required"`
	CurrentStatus AccountStatus   `gorm:"size:50;not null;default:Pending" json:"current_status"`
	CurrencyCode  string          `gorm:"size:3;not null;default:PEN" json:"currency_code"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	PendingAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pending_amount"`
	DueDate       *time.Time      `gorm:"default:null" json:"due_date"`
	VoidedAt      *time.Time      `gorm:"default:null" json:"voided_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetValuation(ctx context.Context, id int) (*Valuation, error) {
	return utils.FetchModel[Valuation](ctx, id)
}

func GetReceivable(ctx context.Context, id int) (*Receivable, error) {
	return utils.FetchModel[Receivable](ctx, id)
}
