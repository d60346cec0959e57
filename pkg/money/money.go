package money

import (
	"github.com/shopspring/decimal"
)

// StoragePlaces is the precision used for persisted and displayed amounts.
// Intermediate computations stay unrounded so sub-cent remainders survive
// until the final rounding step.
const StoragePlaces = 2

// Zero returns a zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// FromCents converts an integer cent amount into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -StoragePlaces)
}

// Cents converts an amount into whole cents using banker's rounding.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(1, StoragePlaces)).RoundBank(0).IntPart()
}

// Round rounds an amount to storage precision using banker's rounding.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(StoragePlaces)
}

// TruncateCents drops any sub-cent fraction without rounding.
func TruncateCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(StoragePlaces)
}

// Percent returns the rounded percentage of an amount, e.g. Percent(10, 25)
// is 2.50.
func Percent(amount, percent decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(percent).Div(decimal.NewFromInt(100)))
}

// Cent is the smallest representable storage unit.
func Cent() decimal.Decimal {
	return decimal.New(1, -StoragePlaces)
}

// Sum adds the provided amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Clamp limits an amount to the inclusive [low, high] range.
func Clamp(amount, low, high decimal.Decimal) decimal.Decimal {
	if amount.LessThan(low) {
		return low
	}
	if amount.GreaterThan(high) {
		return high
	}
	return amount
}
