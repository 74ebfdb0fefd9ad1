package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// NotANumber is what FormatUSD prints for Inf and NaN.
const NotANumber = "n/a"

// FormatUSD renders an amount as $X.XX, with a leading minus for negatives.
func FormatUSD(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NotANumber
	}
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
