package discounts

import (
	"sort"

	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Bucket is one discountable target in an allocation pass. ID orders the
// buckets deterministically so repeated runs split leftover cents the same
// way; Cap is the most the bucket can absorb; Eligible buckets participate
// in the split, ineligible ones always receive zero.
type Bucket struct {
	ID       string
	Cap      decimal.Decimal
	Eligible bool
}

// Allocation maps bucket IDs to the discount share assigned to each.
type Allocation map[string]decimal.Decimal

// Total sums every share in the allocation.
func (a Allocation) Total() decimal.Decimal {
	return money.Sum(values(a)...)
}

func values(a Allocation) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(a))
	for _, v := range a {
		out = append(out, v)
	}
	return out
}

// ApplyPercentage assigns pct percent of each eligible bucket's cap as that
// bucket's share, rounded per bucket. Ineligible buckets receive zero.
func ApplyPercentage(buckets []Bucket, pct decimal.Decimal) Allocation {
	out := make(Allocation, len(buckets))
	for _, b := range buckets {
		if !b.Eligible {
			out[b.ID] = money.Zero()
			continue
		}
		out[b.ID] = money.Percent(b.Cap, pct)
	}
	return out
}

// ApplyEvenSplit distributes a fixed amount evenly across the eligible
// buckets, capping each bucket at its own cap and redistributing the
// overflow across the remaining uncapped buckets until the amount is
// exhausted or every bucket is saturated. Shares are truncated to whole
// cents and the leftover pennies are handed out one at a time in ascending
// bucket-ID order, so the pieces always reassemble to the amount actually
// spent.
func ApplyEvenSplit(buckets []Bucket, amount decimal.Decimal) Allocation {
	out := make(Allocation, len(buckets))
	for _, b := range buckets {
		out[b.ID] = money.Zero()
	}
	if !amount.IsPositive() {
		return out
	}

	open := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Eligible && b.Cap.IsPositive() {
			open = append(open, b)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })

	remaining := amount
	for len(open) > 0 && remaining.IsPositive() {
		share := remaining.Div(decimal.NewFromInt(int64(len(open))))

		capped := false
		next := open[:0]
		for _, b := range open {
			room := b.Cap.Sub(out[b.ID])
			if room.LessThanOrEqual(share) {
				// Saturate and let the overflow ride into the next pass.
				remaining = remaining.Sub(room)
				out[b.ID] = b.Cap
				capped = true
				continue
			}
			next = append(next, b)
		}
		open = next

		if capped {
			continue
		}

		// Nobody capped: hand out the truncated even share, then walk the
		// leftover cents across the buckets in ID order.
		floor := money.TruncateCents(share)
		for _, b := range open {
			out[b.ID] = out[b.ID].Add(floor)
			remaining = remaining.Sub(floor)
		}
		leftover := money.TruncateCents(remaining)
		cent := money.Cent()
		for i := 0; leftover.IsPositive() && i < len(open); i++ {
			b := open[i]
			if b.Cap.Sub(out[b.ID]).GreaterThanOrEqual(cent) {
				out[b.ID] = out[b.ID].Add(cent)
				remaining = remaining.Sub(cent)
				leftover = leftover.Sub(cent)
			}
		}
		break
	}
	return out
}
