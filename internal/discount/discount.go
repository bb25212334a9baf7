// Package discount implements the layered percentage discount cascade shared
// by every trade flow. Each step applies to the running balance left by the
// previous step, never to the original base, and each step amount is truncated
// to a whole currency unit toward zero before it is subtracted. The same input
// therefore always yields the same recorded amounts.
package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gudangku/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ApplyCascade applies percentages in order against base and returns the total
// discount together with the per-step breakdown. Percentages outside [0, 100]
// are rejected; an empty list yields a zero total.
func ApplyCascade(base decimal.Decimal, percentages []decimal.Decimal) (decimal.Decimal, []domain.DiscountStep, error) {
	total := decimal.Zero
	balance := base
	steps := make([]domain.DiscountStep, 0, len(percentages))
	for i, pct := range percentages {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return decimal.Zero, nil, fmt.Errorf("discount step %d: percentage %s out of range", i+1, pct)
		}
		amount := balance.Mul(pct).Div(hundred).Truncate(0)
		balance = balance.Sub(amount)
		total = total.Add(amount)
		steps = append(steps, domain.DiscountStep{
			Sequence:       i + 1,
			Percentage:     pct,
			RecordedAmount: amount,
		})
	}
	return total, steps, nil
}
