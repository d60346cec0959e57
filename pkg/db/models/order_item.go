package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots one purchasable line within an order. Pricing fields
// are mutated only by the reconciliation engine.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	SKU       string    `gorm:"column:sku;not null"`
	Name      string    `gorm:"column:name;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`

	// UnitPrice is the tier-resolved per-unit price including detail deltas;
	// LineItemPrice = UnitPrice * Quantity before any discount.
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineItemPrice decimal.Decimal `gorm:"column:line_item_price;type:numeric(12,2);not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Tax           decimal.Decimal `gorm:"column:tax;type:numeric(12,2);not null;default:0"`

	// DetailDelta is the per-unit surcharge from custom fields, engraving
	// and similar line details supplied at cart time.
	DetailDelta decimal.Decimal `gorm:"column:detail_delta;type:numeric(12,2);not null;default:0"`

	Taxable   bool   `gorm:"column:taxable;not null;default:true"`
	Shippable bool   `gorm:"column:shippable;not null;default:true"`
	TaxClass  string `gorm:"column:tax_class;not null;default:'Default'"`

	Order *Order `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SubTotal is the line price after its discount.
func (i *OrderItem) SubTotal() decimal.Decimal {
	return i.LineItemPrice.Sub(i.Discount)
}
