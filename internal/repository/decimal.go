package repository

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decimal columns are stored as fixed-precision strings so that money and
// quantities survive persistence round-trips without floating-point drift:
// two fraction digits for prices, three for quantities.

func moneyString(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func quantityString(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

func parseNumeric(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid stored decimal %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}
