package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is one row of the area-rate table: a percentage keyed by tax
// class and buyer administrative area. Rows with an empty Area are the
// country-level fallback.
type TaxRate struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TaxClass string          `gorm:"column:tax_class;not null"`
	Country  string          `gorm:"column:country;not null"`
	Area     string          `gorm:"column:area;not null;default:''"`
	Percent  decimal.Decimal `gorm:"column:percent;type:numeric(8,5);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
