package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/andeandataworks/gestion_backend/config"
	"bitbucket.org/andeandataworks/gestion_backend/utils"
	"github.com/shopspring/decimal"
)

type CurrencyExchange struct {
	ID           int             `gorm:"primary_key" json:"id"`
	FromCurrency string          `gorm:"size:3;index:idx_exchange_pair;not null" json:"from_currency" binding:"required"`
	ToCurrency   string          `gorm:"size:3;index:idx_exchange_pair;not null" json:"to_currency" binding:"required"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"exchange_rate"`
	RateDate     time.Time       `gorm:"index;not null" json:"rate_date"`
	Notes        string          `gorm:"size:255" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
caches:
	CurrencyExchange:$from:$to
*/

// LatestExchangeRate resolves a conversion rate for a currency pair,
// cache-aside through redis. A stored inverse pair is used when the direct
// pair is absent.
func LatestExchangeRate(ctx context.Context, from string, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	key := from + ":" + to
	cached, err := utils.RetrieveRedis[CurrencyExchange](key)
	if err == nil && cached != nil {
		return cached.ExchangeRate, nil
	}

	db := config.GetDB()
	var exchange CurrencyExchange
	err = db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", from, to).
		Order("rate_date DESC").
		First(&exchange).Error
	if err == nil {
		_ = utils.StoreRedis[CurrencyExchange](&exchange, key)
		return exchange.ExchangeRate, nil
	}

	// try the inverse pair
	err = db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", to, from).
		Order("rate_date DESC").
		First(&exchange).Error
	if err != nil {
		return decimal.Zero, errors.New("no exchange rate registered for " + from + "->" + to)
	}
	rate := utils.InvertRate(exchange.ExchangeRate)
	inverted := CurrencyExchange{FromCurrency: from, ToCurrency: to, ExchangeRate: rate, RateDate: exchange.RateDate}
	_ = utils.StoreRedis[CurrencyExchange](&inverted, key)
	return rate, nil
}

func CreateCurrencyExchange(ctx context.Context, exchange *CurrencyExchange) (*CurrencyExchange, error) {
	if !utils.IsValidCurrencyCode(exchange.FromCurrency) || !utils.IsValidCurrencyCode(exchange.ToCurrency) {
		return nil, errors.New("invalid currency code")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(exchange).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedis[CurrencyExchange](exchange.FromCurrency + ":" + exchange.ToCurrency)
	_ = utils.RemoveRedis[CurrencyExchange](exchange.ToCurrency + ":" + exchange.FromCurrency)
	return exchange, nil
}
