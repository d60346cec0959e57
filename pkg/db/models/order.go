package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmcarrell/storefront-backend/pkg/enums"
	"github.com/dmcarrell/storefront-backend/pkg/types"
)

// Order is the aggregate root the reconciliation engine rewrites. After
// every successful recalculation the invariant holds:
// Total == SubTotal + (ShippingCost - ShippingDiscount) + Tax.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   int64             `gorm:"column:order_number;not null"`
	CustomerEmail string            `gorm:"column:customer_email;not null"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Currency      enums.Currency    `gorm:"column:currency;not null;default:'USD'"`

	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	DiscountCode   *string         `gorm:"column:discount_code"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`

	// SubTotal is the sum of line sub-totals (after line discounts);
	// FullSubTotal sums the pre-discount line prices.
	SubTotal     decimal.Decimal `gorm:"column:sub_total;type:numeric(12,2);not null;default:0"`
	FullSubTotal decimal.Decimal `gorm:"column:full_sub_total;type:numeric(12,2);not null;default:0"`

	ShippingCost     decimal.Decimal `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	ShippingDiscount decimal.Decimal `gorm:"column:shipping_discount;type:numeric(12,2);not null;default:0"`
	// ShippingIsCheapest snapshots whether the carrier option the buyer
	// picked was the cheapest offered; the free_cheap discount mode keys
	// off it.
	ShippingIsCheapest bool `gorm:"column:shipping_is_cheapest;not null;default:false"`

	Tax   decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`
	Total decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null;default:0"`

	AmountPaid decimal.Decimal `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`

	Items      []OrderItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TaxDetails []OrderTaxDetail `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPartiallyPaid reports whether any payment has been captured. Once true,
// totals are frozen and recalculation becomes a no-op unless forced.
func (o *Order) IsPartiallyPaid() bool {
	return o.AmountPaid.IsPositive()
}

// Balance is the amount still owed against the reconciled total.
func (o *Order) Balance() decimal.Decimal {
	return o.Total.Sub(o.AmountPaid)
}

// TotalQuantity sums the quantities across every line item.
func (o *Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
