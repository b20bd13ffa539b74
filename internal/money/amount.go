package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var thousandsStripper = strings.NewReplacer(",", "", "，", "")

// ParseAmount parses a human-entered currency amount: thousands separators
// (half- or full-width commas) are stripped, the remainder is trimmed and
// parsed as a decimal number. ok is false when the value is not numeric.
func ParseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(thousandsStripper.Replace(s))
	if cleaned == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// Diff returns bill - system, computed in decimal arithmetic so that cent
// amounts subtract exactly (13.5 - 10 = 3.5, not 3.4999...).
func Diff(bill, system float64) float64 {
	f, _ := decimal.NewFromFloat(bill).Sub(decimal.NewFromFloat(system)).Float64()
	return f
}
