package types

import "github.com/shopspring/decimal"

// FormatCents renders minor units as a fixed two decimal amount ("12.50").
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseAmount converts a decimal amount string into minor units, rejecting
// values with more than two fractional digits.
func ParseAmount(value string) (int64, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	scaled := amount.Shift(2)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, errSubCentAmount
	}
	return scaled.IntPart(), nil
}

// LineTotalCents multiplies a unit price by quantity.
func LineTotalCents(unitPriceCents int64, quantity int) int64 {
	return decimal.NewFromInt(unitPriceCents).Mul(decimal.NewFromInt(int64(quantity))).IntPart()
}
