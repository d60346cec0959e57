package tax

import (
	"context"
	"fmt"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// flatProcessor applies one global percentage to every taxable line and,
// when configured, to shipping.
type flatProcessor struct {
	rate        decimal.Decimal
	taxShipping bool
}

// NewFlatProcessor builds the flat-percentage processor from configuration.
func NewFlatProcessor(deps Deps) (Processor, error) {
	rate := deps.Config.FlatRate()
	if rate.IsNegative() {
		return nil, fmt.Errorf("flat tax rate must not be negative, got %s", rate)
	}
	return &flatProcessor{rate: rate, taxShipping: deps.Config.TaxShipping}, nil
}

func (p *flatProcessor) Name() string { return ProcessorFlat }

func (p *flatProcessor) ProcessOrder(ctx context.Context, order *models.Order) (decimal.Decimal, Breakdown, error) {
	breakdown := make(Breakdown)
	if p.rate.IsZero() {
		return decimal.Zero, breakdown, nil
	}

	itemTax := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		if !item.Taxable {
			continue
		}
		itemTax = itemTax.Add(money.Percent(item.SubTotal(), p.rate))
	}
	if itemTax.IsPositive() {
		breakdown[ProcessorFlat] = itemTax
	}

	if p.taxShipping {
		shippingBase := order.ShippingCost.Sub(order.ShippingDiscount)
		if shippingTax := money.Percent(shippingBase, p.rate); shippingTax.IsPositive() {
			breakdown["shipping"] = shippingTax
		}
	}
	return breakdown.Total(), breakdown, nil
}

func (p *flatProcessor) ByPrice(ctx context.Context, taxClass string, price decimal.Decimal) (decimal.Decimal, error) {
	return money.Percent(price, p.rate), nil
}

func (p *flatProcessor) ByOrderItem(ctx context.Context, item *models.OrderItem) (decimal.Decimal, error) {
	if !item.Taxable {
		return decimal.Zero, nil
	}
	return money.Percent(item.SubTotal(), p.rate), nil
}
