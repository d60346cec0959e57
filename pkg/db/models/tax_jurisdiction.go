package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmcarrell/storefront-backend/pkg/enums"
)

// TaxJurisdiction is a taxing authority with its own rate. Overlapping
// jurisdictions (state + county + city + district) each contribute to an
// order's tax independently.
type TaxJurisdiction struct {
	ID      uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Code    string                 `gorm:"column:code;not null;uniqueIndex"`
	Name    string                 `gorm:"column:name;not null"`
	Kind    enums.JurisdictionKind `gorm:"column:kind;not null"`
	Percent decimal.Decimal        `gorm:"column:percent;type:numeric(8,5);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// JurisdictionBoundary maps a dated ZIP range (optionally narrowed by a
// ZIP+4 range) onto a jurisdiction. Lookups only consider records whose
// validity window contains the evaluation date.
type JurisdictionBoundary struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	JurisdictionID uuid.UUID `gorm:"column:jurisdiction_id;type:uuid;not null;index"`

	ZipLow  int `gorm:"column:zip_low;not null"`
	ZipHigh int `gorm:"column:zip_high;not null"`

	Plus4Low  *string `gorm:"column:plus4_low"`
	Plus4High *string `gorm:"column:plus4_high"`

	EffectiveFrom time.Time  `gorm:"column:effective_from;not null"`
	ExpiresAt     *time.Time `gorm:"column:expires_at"`

	Jurisdiction *TaxJurisdiction `gorm:"foreignKey:JurisdictionID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ContainsDate reports whether the boundary is valid at the given time.
func (b *JurisdictionBoundary) ContainsDate(asOf time.Time) bool {
	if asOf.Before(b.EffectiveFrom) {
		return false
	}
	return b.ExpiresAt == nil || asOf.Before(*b.ExpiresAt)
}
