package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderTaxDetail is one jurisdiction/class row of the most recent tax
// computation. The set is a snapshot: every recalculation deletes all rows
// for the order and inserts fresh ones.
type OrderTaxDetail struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	Jurisdiction string          `gorm:"column:jurisdiction;not null"`
	TaxClass     string          `gorm:"column:tax_class;not null;default:'Default'"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(8,5);not null;default:0"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	// Method records which tax processor produced the row.
	Method string `gorm:"column:method;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
