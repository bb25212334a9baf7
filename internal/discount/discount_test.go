package discount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func pcts(values ...int64) []decimal.Decimal {
	result := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		result = append(result, decimal.NewFromInt(v))
	}
	return result
}

func TestCascadeAppliesToRunningBalance(t *testing.T) {
	total, steps, err := ApplyCascade(decimal.NewFromInt(100000), pcts(10, 5))
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if !steps[0].RecordedAmount.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("step 1: expected 10000, got %s", steps[0].RecordedAmount)
	}
	if !steps[1].RecordedAmount.Equal(decimal.NewFromInt(4500)) {
		t.Fatalf("step 2: expected 4500 (5%% of the remaining 90000), got %s", steps[1].RecordedAmount)
	}
	if !total.Equal(decimal.NewFromInt(14500)) {
		t.Fatalf("expected total 14500, got %s", total)
	}
	if steps[0].Sequence != 1 || steps[1].Sequence != 2 {
		t.Fatalf("expected sequences 1,2, got %d,%d", steps[0].Sequence, steps[1].Sequence)
	}
}

func TestCascadeTruncatesEachStep(t *testing.T) {
	total, steps, err := ApplyCascade(decimal.NewFromInt(999), pcts(10, 5))
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	// 99.9 truncates to 99; 5% of the remaining 900 is exactly 45.
	if !steps[0].RecordedAmount.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("step 1: expected 99, got %s", steps[0].RecordedAmount)
	}
	if !steps[1].RecordedAmount.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("step 2: expected 45, got %s", steps[1].RecordedAmount)
	}
	if !total.Equal(decimal.NewFromInt(144)) {
		t.Fatalf("expected total 144, got %s", total)
	}
}

func TestCascadeIsDeterministic(t *testing.T) {
	base := decimal.NewFromInt(123457)
	first, firstSteps, err := ApplyCascade(base, pcts(7, 3, 11))
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}
	second, secondSteps, err := ApplyCascade(base, pcts(7, 3, 11))
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	if !first.Equal(second) {
		t.Fatalf("same input produced different totals: %s vs %s", first, second)
	}
	for i := range firstSteps {
		if !firstSteps[i].RecordedAmount.Equal(secondSteps[i].RecordedAmount) {
			t.Fatalf("step %d differs: %s vs %s", i+1, firstSteps[i].RecordedAmount, secondSteps[i].RecordedAmount)
		}
	}
}

func TestCascadeFullDiscount(t *testing.T) {
	total, _, err := ApplyCascade(decimal.NewFromInt(5000), pcts(100, 50))
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}
	// The first step removes everything; the second applies to a zero balance.
	if !total.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected total 5000, got %s", total)
	}
}

func TestCascadeEmptyPercentages(t *testing.T) {
	total, steps, err := ApplyCascade(decimal.NewFromInt(8000), nil)
	if err != nil {
		t.Fatalf("cascade failed: %v", err)
	}
	if !total.IsZero() || len(steps) != 0 {
		t.Fatalf("expected zero total and no steps, got %s and %d steps", total, len(steps))
	}
}

func TestCascadeRejectsOutOfRangePercentage(t *testing.T) {
	if _, _, err := ApplyCascade(decimal.NewFromInt(1000), pcts(10, 101)); err == nil {
		t.Fatalf("expected error for percentage above 100")
	}
	if _, _, err := ApplyCascade(decimal.NewFromInt(1000), pcts(-1)); err == nil {
		t.Fatalf("expected error for negative percentage")
	}
}
