package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber parses a numeric column read as text. Empty, null or
// non-numeric values yield zero.
func ParseNumber(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseFloat is ParseNumber converted to float64.
func ParseFloat(raw string) float64 {
	return ParseNumber(raw).InexactFloat64()
}

// ParseOptionalFloat returns nil for missing values so optional columns
// keep serializing as null.
func ParseOptionalFloat(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	v := ParseFloat(s)
	return &v
}

// SumAbsQuantity adds up |accounting_quantity| over positions. Each float is
// taken at its shortest decimal form, so 0.1 + 0.2 sums to exactly 0.3.
func SumAbsQuantity(positions []Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.AccountingQuantity).Abs())
	}
	return total
}
