// Package money parses and formats the two-decimal amounts used throughout
// the budget and checkout flows.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits every amount carries
const Places = 2

// Parse turns a raw text fragment such as "$1,234.5" into a two-decimal
// amount. Everything except digits and '.' is discarded. The bool is false
// when no digit survives or the remainder is not a number; that result means
// "no amount", which is distinct from zero.
func Parse(text string) (decimal.Decimal, bool) {
	var b strings.Builder
	digits := 0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '.':
			b.WriteRune(r)
		}
	}
	if digits == 0 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return Round(d), true
}

// Round rounds half away from zero to two fraction digits
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Format renders an amount as "$1234.50"; negative amounts as "-$12.00"
func Format(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(Places)
	}
	return "$" + d.StringFixed(Places)
}

// FromFloat converts a JSON number from the external API into an amount
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// NonNegative floors d at zero
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
