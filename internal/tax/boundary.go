package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// boundaryProcessor resolves the buyer's taxing jurisdictions from dated
// ZIP-range boundary records. ZIP+4 boundaries are tried first, then plain
// 5-digit ranges; every overlapping jurisdiction (state, county, city,
// district) contributes its own rate.
type boundaryProcessor struct {
	rates RateRepository
	now   func() time.Time
}

// NewBoundaryProcessor builds the jurisdiction-boundary processor.
func NewBoundaryProcessor(deps Deps) (Processor, error) {
	if deps.Rates == nil {
		return nil, fmt.Errorf("rate repository required")
	}
	return &boundaryProcessor{rates: deps.Rates, now: time.Now}, nil
}

func (p *boundaryProcessor) Name() string { return ProcessorBoundary }

func (p *boundaryProcessor) jurisdictionsFor(ctx context.Context, order *models.Order) ([]models.TaxJurisdiction, error) {
	if order.ShippingAddress == nil {
		return nil, nil
	}
	zip := order.ShippingAddress.Zip()
	if zip == "" {
		return nil, nil
	}
	return p.rates.FindJurisdictions(ctx, zip, order.ShippingAddress.Plus4(), p.now())
}

func (p *boundaryProcessor) ProcessOrder(ctx context.Context, order *models.Order) (decimal.Decimal, Breakdown, error) {
	jurisdictions, err := p.jurisdictionsFor(ctx, order)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("resolve jurisdictions: %w", err)
	}

	breakdown := make(Breakdown)
	if len(jurisdictions) == 0 {
		// Outside every known boundary: zero tax, never an error.
		return decimal.Zero, breakdown, nil
	}

	taxable := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		if !item.Taxable {
			continue
		}
		taxable = taxable.Add(item.SubTotal())
	}

	for _, j := range jurisdictions {
		amount := money.Percent(taxable, j.Percent)
		if amount.IsZero() {
			continue
		}
		breakdown[j.Code] = breakdown[j.Code].Add(amount)
	}
	return breakdown.Total(), breakdown, nil
}

// ByPrice has no destination to resolve jurisdictions from, so it reports
// zero tax; catalog display callers use ProcessOrder-backed quotes instead.
func (p *boundaryProcessor) ByPrice(ctx context.Context, taxClass string, price decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (p *boundaryProcessor) ByOrderItem(ctx context.Context, item *models.OrderItem) (decimal.Decimal, error) {
	if !item.Taxable || item.Order == nil {
		return decimal.Zero, nil
	}
	jurisdictions, err := p.jurisdictionsFor(ctx, item.Order)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, j := range jurisdictions {
		total = total.Add(money.Percent(item.SubTotal(), j.Percent))
	}
	return total, nil
}
