package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/dmcarrell/storefront-backend/pkg/db/types"
	"github.com/dmcarrell/storefront-backend/pkg/enums"
)

// Discount is a named, read-only pricing policy looked up by code. Exactly
// one of Amount and Percentage is set.
type Discount struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code        string    `gorm:"column:code;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`
	Active      bool      `gorm:"column:active;not null;default:false"`

	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`

	// AllowedUses of zero means unlimited.
	AllowedUses int `gorm:"column:allowed_uses;not null;default:0"`
	NumUses     int `gorm:"column:num_uses;not null;default:0"`

	MinOrder   decimal.Decimal  `gorm:"column:min_order;type:numeric(12,2);not null;default:0"`
	Amount     *decimal.Decimal `gorm:"column:amount;type:numeric(12,2)"`
	Percentage *decimal.Decimal `gorm:"column:percentage;type:numeric(5,2)"`

	ShippingMode enums.ShippingDiscountMode `gorm:"column:shipping_mode;not null;default:'none'"`

	// ValidProductIDs restricts the discount to a product subset; empty
	// means every product qualifies.
	ValidProductIDs dbtypes.UUIDArray `gorm:"column:valid_product_ids;type:uuid[]"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// NullDiscount is the zero-effect policy substituted whenever no valid code
// applies, so callers never branch on discount presence.
func NullDiscount() *Discount {
	return &Discount{
		Code:         "",
		Active:       true,
		ShippingMode: enums.ShippingDiscountNone,
	}
}

// IsNull reports whether the discount has no effect.
func (d *Discount) IsNull() bool {
	return d.Amount == nil && d.Percentage == nil
}

// Valid reports whether the discount can apply to an order of the given
// sub-total at the given time.
func (d *Discount) Valid(asOf time.Time, orderSubTotal decimal.Decimal) bool {
	if !d.Active {
		return false
	}
	if d.StartDate != nil && asOf.Before(*d.StartDate) {
		return false
	}
	if d.EndDate != nil && asOf.After(*d.EndDate) {
		return false
	}
	if d.AllowedUses > 0 && d.NumUses >= d.AllowedUses {
		return false
	}
	if d.MinOrder.IsPositive() && orderSubTotal.LessThan(d.MinOrder) {
		return false
	}
	return true
}

// AppliesTo reports whether the discount covers the given product.
func (d *Discount) AppliesTo(productID uuid.UUID) bool {
	if len(d.ValidProductIDs) == 0 {
		return true
	}
	for _, id := range d.ValidProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}
