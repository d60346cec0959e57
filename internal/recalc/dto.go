package recalc

import (
	"github.com/dmcarrell/storefront-backend/internal/tax"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Options controls a single recalculation run.
type Options struct {
	// Force recalculates even when the order is frozen by partial payment.
	Force bool
	// Persist writes the recomputed lines, totals and tax details; false
	// computes a preview without touching the database.
	Persist bool
}

// Result carries the outcome of a reconciliation run.
type Result struct {
	Order *models.Order

	// LineDiscounts maps order item IDs to the discount applied to each
	// line, sale adjustments included.
	LineDiscounts map[uuid.UUID]decimal.Decimal

	TaxBreakdown        tax.Breakdown
	ShippingAdjustments []types.PriceAdjustment

	// Frozen is true when the order was partially paid and the run was a
	// no-op; every other field reflects the stored state unchanged.
	Frozen bool

	// RoundingViolation is set when the allocated discount pieces failed
	// to reassemble to the expected total. The run still completes.
	RoundingViolation bool
}

// OrderItemView is the API projection of one recalculated line.
type OrderItemView struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineItemPrice decimal.Decimal `json:"line_item_price"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	SubTotal      decimal.Decimal `json:"sub_total"`
}

// OrderView is the API projection of reconciled order totals.
type OrderView struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      int64           `json:"order_number"`
	Status           string          `json:"status"`
	Currency         string          `json:"currency"`
	DiscountCode     *string         `json:"discount_code,omitempty"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	SubTotal         decimal.Decimal `json:"sub_total"`
	FullSubTotal     decimal.Decimal `json:"full_sub_total"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	ShippingDiscount decimal.Decimal `json:"shipping_discount"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	Balance          decimal.Decimal `json:"balance"`
	Items            []OrderItemView `json:"items"`
}

// ResultView is the API projection of a reconciliation run.
type ResultView struct {
	Order               OrderView                  `json:"order"`
	LineDiscounts       map[string]decimal.Decimal `json:"line_discounts"`
	TaxBreakdown        tax.Breakdown              `json:"tax_breakdown"`
	ShippingAdjustments []types.PriceAdjustment    `json:"shipping_adjustments"`
	Frozen              bool                       `json:"frozen"`
	RoundingViolation   bool                       `json:"rounding_violation"`
}

// NewResultView flattens a Result for API consumers.
func NewResultView(res *Result) ResultView {
	view := ResultView{
		LineDiscounts:       map[string]decimal.Decimal{},
		TaxBreakdown:        res.TaxBreakdown,
		ShippingAdjustments: res.ShippingAdjustments,
		Frozen:              res.Frozen,
		RoundingViolation:   res.RoundingViolation,
	}

	for id, amount := range res.LineDiscounts {
		view.LineDiscounts[id.String()] = amount
	}

	order := res.Order
	view.Order = OrderView{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Status:           string(order.Status),
		Currency:         string(order.Currency),
		DiscountCode:     order.DiscountCode,
		DiscountAmount:   order.DiscountAmount,
		SubTotal:         order.SubTotal,
		FullSubTotal:     order.FullSubTotal,
		ShippingCost:     order.ShippingCost,
		ShippingDiscount: order.ShippingDiscount,
		Tax:              order.Tax,
		Total:            order.Total,
		AmountPaid:       order.AmountPaid,
		Balance:          order.Balance(),
		Items:            make([]OrderItemView, 0, len(order.Items)),
	}

	for i := range order.Items {
		item := &order.Items[i]
		view.Order.Items = append(view.Order.Items, OrderItemView{
			ID:            item.ID,
			ProductID:     item.ProductID,
			SKU:           item.SKU,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			LineItemPrice: item.LineItemPrice,
			Discount:      item.Discount,
			Tax:           item.Tax,
			SubTotal:      item.SubTotal(),
		})
	}

	return view
}
