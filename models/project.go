package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

// Project is the rollup root. Its stored subtotals are always the exact sum of
// its live equipment lists' corresponding fields converted to the project base
// currency, and are written only by the recalculation engine.
type Project struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Code             string          `gorm:"size:50;not null;unique" json:"code" binding:"required"`
	Name             string          `gorm:"size:255;not null" json:"name" binding:"required"`
	ClientName       string          `gorm:"size:255" json:"client_name"`
	BaseCurrencyCode string          `gorm:"size:3;not null;default:PEN" json:"base_currency_code"`
	SubtotalInternal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_internal"`
	SubtotalClient   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_client"`
	SubtotalReal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal_real"`
	// committed purchase value: sum of live purchase order totals in base currency
	TotalOrdered decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_ordered"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProject struct {
	Code             string `json:"code" binding:"required"`
	Name             string `json:"name" binding:"required"`
	ClientName       string `json:"client_name"`
	BaseCurrencyCode string `json:"base_currency_code"`
}

// CreateProject opens a new rollup root. The base currency is fixed at
// creation; every list and order under the project converts into it.
func CreateProject(ctx context.Context, input *NewProject) (*Project, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	base := input.BaseCurrencyCode
	if base == "" {
		base = "PEN"
	}
	if !utils.IsValidCurrencyCode(base) {
		return nil, errors.New("invalid currency code")
	}
	project := &Project{
		Code:             input.Code,
		Name:             input.Name,
		ClientName:       input.ClientName,
		BaseCurrencyCode: base,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func GetProject(ctx context.Context, id int) (*Project, error) {
	return utils.FetchModel[Project](ctx, id)
}
