package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Hook adjusts a resolved unit price before it is returned, e.g. sale
// pricing layered on top of tiers. Hooks run in registration order, each
// seeing the previous hook's output.
type Hook func(ctx context.Context, product *models.Product, qty int, asOf time.Time, price decimal.Decimal) decimal.Decimal

// Resolution is the outcome of a quantity-adjusted price lookup. Tier is
// nil when the price came from the product's base price or its parent.
type Resolution struct {
	Tier       *models.PriceTier
	FinalPrice decimal.Decimal
}

// Resolver resolves unit prices from quantity-tiered price tables.
type Resolver interface {
	Resolve(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (decimal.Decimal, error)
	QuantityAdjustment(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (*Resolution, error)
}

type resolver struct {
	repo  ProductRepository
	hooks []Hook
}

// NewResolver builds a price resolver backed by the provided catalog
// repository. Hooks are fixed at construction.
func NewResolver(repo ProductRepository, hooks ...Hook) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &resolver{repo: repo, hooks: hooks}, nil
}

func (r *resolver) Resolve(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (decimal.Decimal, error) {
	product, err := r.repo.GetPricingDetail(ctx, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load product %s: %w", productID, err)
	}
	return ResolveUnitPrice(product, qty, asOf)
}

func (r *resolver) QuantityAdjustment(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (*Resolution, error) {
	product, err := r.repo.GetPricingDetail(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	tier := BestTier(product.Tiers, qty, asOf)
	price, err := ResolveUnitPrice(product, qty, asOf)
	if err != nil {
		return nil, err
	}
	for _, hook := range r.hooks {
		price = hook(ctx, product, qty, asOf, price)
	}
	return &Resolution{Tier: tier, FinalPrice: money.Round(price)}, nil
}

// BestTier selects the tier a purchase of qty units activates at asOf:
// the highest MinQty not exceeding qty among non-expired tiers, with a
// dated (limited-time) tier beating a permanent one at the same MinQty.
// Returns nil when no tier applies.
func BestTier(tiers []models.PriceTier, qty int, asOf time.Time) *models.PriceTier {
	var best *models.PriceTier
	for i := range tiers {
		t := &tiers[i]
		if t.MinQty > qty || !t.ActiveAt(asOf) {
			continue
		}
		switch {
		case best == nil:
			best = t
		case t.MinQty > best.MinQty:
			best = t
		case t.MinQty == best.MinQty && t.ExpiresAt != nil && best.ExpiresAt == nil:
			best = t
		}
	}
	return best
}

// ResolveUnitPrice computes the unit price for qty units of the product at
// asOf. A variant with no tiers of its own inherits its parent's resolved
// price plus the price deltas of its selected options.
func ResolveUnitPrice(product *models.Product, qty int, asOf time.Time) (decimal.Decimal, error) {
	if tier := BestTier(product.Tiers, qty, asOf); tier != nil {
		return tier.Price, nil
	}

	if product.Parent != nil {
		parentPrice, err := ResolveUnitPrice(product.Parent, qty, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		return parentPrice.Add(product.OptionDelta()), nil
	}

	if product.BasePrice.IsPositive() {
		return product.BasePrice.Add(product.OptionDelta()), nil
	}

	return decimal.Zero, pkgerrors.New(
		pkgerrors.CodeUnpriceable,
		fmt.Sprintf("no applicable price for product %s at quantity %d", product.SKU, qty),
	)
}
