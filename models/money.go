package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of fractional digits in the ledger currency.
const MinorUnitExponent = 2

// ParseAmount converts a major-unit decimal string such as "30.50" into minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid format %q", ErrInvalidAmount, s)
	}

	minor := d.Shift(MinorUnitExponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, MinorUnitExponent)
	}

	if !minor.IsPositive() {
		return 0, ErrInvalidAmount
	}

	if minor.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}

	return minor.IntPart(), nil
}

// FormatAmount renders minor units as a fixed two-decimal major-unit string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}

const maxAmount = int64(1) << 53
