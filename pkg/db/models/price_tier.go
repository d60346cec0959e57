package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTier overrides a product's unit price once the purchased quantity
// reaches MinQty. A tier with ExpiresAt set is a limited-time price and
// wins ties against a permanent tier at the same quantity.
type PriceTier struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	MinQty    int             `gorm:"column:min_qty;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	ExpiresAt *time.Time      `gorm:"column:expires_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the tier is usable at the given time.
func (t *PriceTier) ActiveAt(asOf time.Time) bool {
	return t.ExpiresAt == nil || asOf.Before(*t.ExpiresAt)
}
