package export

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseRate extracts the dollar amount from a tariff string such as
// "$0.50" or "$2 per entry". Tariffs with no leading amount, such as
// "Free", report false.
func parseRate(rate string) (decimal.Decimal, bool) {
	fields := strings.Fields(strings.TrimSpace(rate))
	if len(fields) == 0 {
		return decimal.Decimal{}, false
	}
	amount := strings.TrimPrefix(fields[0], "$")
	if amount == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
