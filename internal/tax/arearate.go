package tax

import (
	"context"
	"fmt"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// areaRateProcessor looks rates up by (tax class, buyer administrative
// area) with a country-level fallback row when no area-specific rate
// exists.
type areaRateProcessor struct {
	rates           RateRepository
	defaultTaxClass string
	defaultCountry  string
}

// NewAreaRateProcessor builds the area-rate-table processor.
func NewAreaRateProcessor(deps Deps) (Processor, error) {
	if deps.Rates == nil {
		return nil, fmt.Errorf("rate repository required")
	}
	return &areaRateProcessor{
		rates:           deps.Rates,
		defaultTaxClass: deps.Config.DefaultTaxClass,
		defaultCountry:  deps.Config.Country,
	}, nil
}

func (p *areaRateProcessor) Name() string { return ProcessorAreaRate }

func (p *areaRateProcessor) destination(order *models.Order) (country, area string) {
	if order.ShippingAddress == nil {
		return p.defaultCountry, ""
	}
	return order.ShippingAddress.NormalizedCountry(), order.ShippingAddress.NormalizedState()
}

func (p *areaRateProcessor) rateFor(ctx context.Context, taxClass, country, area string) (decimal.Decimal, error) {
	if taxClass == "" {
		taxClass = p.defaultTaxClass
	}
	rate, err := p.rates.FindAreaRate(ctx, taxClass, country, area)
	if err != nil {
		return decimal.Zero, err
	}
	if rate == nil {
		// No rate on file for this destination means no tax, not a failure.
		return decimal.Zero, nil
	}
	return rate.Percent, nil
}

func (p *areaRateProcessor) ProcessOrder(ctx context.Context, order *models.Order) (decimal.Decimal, Breakdown, error) {
	country, area := p.destination(order)
	breakdown := make(Breakdown)

	for i := range order.Items {
		item := &order.Items[i]
		if !item.Taxable {
			continue
		}
		pct, err := p.rateFor(ctx, item.TaxClass, country, area)
		if err != nil {
			return decimal.Zero, nil, fmt.Errorf("area rate for class %q: %w", item.TaxClass, err)
		}
		if pct.IsZero() {
			continue
		}
		key := item.TaxClass
		if key == "" {
			key = p.defaultTaxClass
		}
		breakdown[key] = breakdown[key].Add(money.Percent(item.SubTotal(), pct))
	}
	return breakdown.Total(), breakdown, nil
}

func (p *areaRateProcessor) ByPrice(ctx context.Context, taxClass string, price decimal.Decimal) (decimal.Decimal, error) {
	pct, err := p.rateFor(ctx, taxClass, p.defaultCountry, "")
	if err != nil {
		return decimal.Zero, err
	}
	return money.Percent(price, pct), nil
}

func (p *areaRateProcessor) ByOrderItem(ctx context.Context, item *models.OrderItem) (decimal.Decimal, error) {
	if !item.Taxable {
		return decimal.Zero, nil
	}
	country, area := p.defaultCountry, ""
	if item.Order != nil {
		country, area = p.destination(item.Order)
	}
	pct, err := p.rateFor(ctx, item.TaxClass, country, area)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Percent(item.SubTotal(), pct), nil
}
