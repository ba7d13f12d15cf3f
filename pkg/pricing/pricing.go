// Package pricing holds the money arithmetic shared by the resolver, the cart
// and order placement. All amounts are exact decimals rounded half-up to cents.
package pricing

import "github.com/shopspring/decimal"

const Places = 2

var (
	hundred = decimal.NewFromInt(100)

	MinPercentage = decimal.Zero
	MaxPercentage = hundred
)

// ApplyDiscount returns round(base * (1 - pct/100), 2).
// Round is half away from zero, which is half-up for non-negative prices.
func ApplyDiscount(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(hundred.Sub(pct)).Div(hundred).Round(Places)
}

// ValidPercentage reports whether pct lies in [0,100].
func ValidPercentage(pct decimal.Decimal) bool {
	return !pct.LessThan(MinPercentage) && !pct.GreaterThan(MaxPercentage)
}

// Round rounds an amount to cents.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// LineTotal is quantity * unit, rounded to cents.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(quantity))))
}
