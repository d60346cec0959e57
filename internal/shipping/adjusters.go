// Package shipping holds the extension point through which collaborators
// adjust an order's shipping price during reconciliation, e.g. carrier
// promotions or warehouse surcharges.
package shipping

import (
	"context"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/types"
)

// Adjuster inspects an order and pushes named adjustments onto the
// shipping price stack. Adjusters must not mutate the order.
type Adjuster func(ctx context.Context, order *models.Order, stack *types.PriceAdjustmentStack)

// AdjusterRegistry runs registered shipping adjusters in registration
// order. The zero value is usable.
type AdjusterRegistry struct {
	adjusters []Adjuster
}

// NewAdjusterRegistry builds a registry over the given adjusters.
func NewAdjusterRegistry(adjusters ...Adjuster) *AdjusterRegistry {
	return &AdjusterRegistry{adjusters: adjusters}
}

// Register appends an adjuster. Not safe for concurrent use with Apply;
// registration happens at wiring time.
func (r *AdjusterRegistry) Register(a Adjuster) {
	if a == nil {
		return
	}
	r.adjusters = append(r.adjusters, a)
}

// Apply runs every adjuster against the order and stack, in order.
func (r *AdjusterRegistry) Apply(ctx context.Context, order *models.Order, stack *types.PriceAdjustmentStack) {
	if r == nil {
		return
	}
	for _, adjust := range r.adjusters {
		adjust(ctx, order, stack)
	}
}
