package types

import (
	"github.com/shopspring/decimal"
)

// PriceAdjustment is a single labeled delta applied on top of a base price.
// Negative amounts are discounts, positive amounts are surcharges.
type PriceAdjustment struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceAdjustmentStack accumulates ordered adjustments over a base price and
// keeps the breakdown available for display. The stack never clamps: callers
// decide whether a negative final price is valid in their context.
type PriceAdjustmentStack struct {
	base        decimal.Decimal
	adjustments []PriceAdjustment
}

// NewPriceAdjustmentStack builds a stack over the given base price.
func NewPriceAdjustmentStack(base decimal.Decimal) *PriceAdjustmentStack {
	return &PriceAdjustmentStack{base: base}
}

// Add appends an adjustment to the stack.
func (s *PriceAdjustmentStack) Add(adjustment PriceAdjustment) {
	s.adjustments = append(s.adjustments, adjustment)
}

// Base returns the base price the stack was built over.
func (s *PriceAdjustmentStack) Base() decimal.Decimal {
	return s.base
}

// Adjustments returns the ordered breakdown.
func (s *PriceAdjustmentStack) Adjustments() []PriceAdjustment {
	return s.adjustments
}

// TotalAdjustment sums every adjustment, unclamped.
func (s *PriceAdjustmentStack) TotalAdjustment() decimal.Decimal {
	total := decimal.Zero
	for _, adj := range s.adjustments {
		total = total.Add(adj.Amount)
	}
	return total
}

// FinalPrice returns base plus the total adjustment.
func (s *PriceAdjustmentStack) FinalPrice() decimal.Decimal {
	return s.base.Add(s.TotalAdjustment())
}
