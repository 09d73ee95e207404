// Package money fixes the currency representation for the engine: amounts
// are decimal values rounded half-up to two places at every display or
// comparison boundary. Floats never carry a currency figure.
package money

import "github.com/shopspring/decimal"

var Zero = decimal.Zero

// Round2 rounds to two decimal places using standard half-up rounding.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampZero floors negative amounts at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FromInt builds an amount from whole currency units.
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Require parses a literal amount; it panics on malformed input and is meant
// for constants and tests only.
func Require(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
