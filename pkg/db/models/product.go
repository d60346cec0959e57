package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog product or variant. Variants reference their parent
// through ParentID and inherit its price tiers when they have none of their
// own, plus the price deltas of their selected options.
type Product struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentID *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	SKU      string     `gorm:"column:sku;not null;uniqueIndex"`
	Name     string     `gorm:"column:name;not null"`

	BasePrice decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null"`

	Taxable   bool   `gorm:"column:taxable;not null;default:true"`
	Shippable bool   `gorm:"column:shippable;not null;default:true"`
	TaxClass  string `gorm:"column:tax_class;not null;default:'Default'"`
	Active    bool   `gorm:"column:active;not null;default:true"`

	Parent  *Product        `gorm:"foreignKey:ParentID"`
	Tiers   []PriceTier     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Options []ProductOption `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OptionDelta sums the price deltas of the variant's selected options.
func (p *Product) OptionDelta() decimal.Decimal {
	total := decimal.Zero
	for _, opt := range p.Options {
		total = total.Add(opt.PriceDelta)
	}
	return total
}

// ProductOption is one selected option on a variant, carrying its price
// delta relative to the parent product.
type ProductOption struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	Value      string          `gorm:"column:value;not null"`
	PriceDelta decimal.Decimal `gorm:"column:price_delta;type:numeric(12,2);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
