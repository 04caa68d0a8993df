package utils

import (
	"reflect"

	"github.com/shopspring/decimal"
)

// Round2 is the single rounding rule for monetary values. Every stored amount
// and every state-decision comparison goes through 2 decimals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
