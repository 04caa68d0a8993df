package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// CalculatePercentAmount computes a percentage deduction (discount, IGV tax,
// retention, advance amortization) from a freshly summed subtotal. Deductions
// are always recomputed from the subtotal, never adjusted incrementally, so
// repeated recalculation cannot drift.
func CalculatePercentAmount(subTotal decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	if pct.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return Round2(subTotal.Mul(pct).Div(decimalOneHundred))
}

// CalculateDiscountAmount supports both percentage ("P") and absolute ("A")
// discounts.
func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {
	if discount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if discountType == "P" {
		return Round2(subTotal.Mul(discount).Div(decimalOneHundred))
	}
	return Round2(discount)
}

// CalculateWithholding splits a gross payment into its withholding (detraction)
// and net parts. withholding = round2(gross * pct / 100), net = gross - withholding.
func CalculateWithholding(gross decimal.Decimal, pct decimal.Decimal) (withholding decimal.Decimal, net decimal.Decimal) {
	withholding = Round2(gross.Mul(pct).Div(decimalOneHundred))
	net = Round2(gross.Sub(withholding))
	return withholding, net
}

// ConvertAmount converts an amount between two currencies given the exchange
// rate expressed as units of toCurrency per unit of fromCurrency (e.g. 3.75
// PEN per USD when converting USD -> PEN). Callers converting the other way
// pass the inverted rate; see LatestExchangeRate and InvertRate.
func ConvertAmount(amount decimal.Decimal, fromCurrency string, toCurrency string, rate decimal.Decimal) decimal.Decimal {
	if fromCurrency == toCurrency || rate.LessThanOrEqual(decimal.Zero) {
		return Round2(amount)
	}
	if rate.Equal(decimal.NewFromInt(1)) {
		return Round2(amount)
	}
	return Round2(amount.Mul(rate))
}

// InvertRate returns the inverse exchange rate for the opposite direction.
func InvertRate(rate decimal.Decimal) decimal.Decimal {
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(rate, 8)
}
