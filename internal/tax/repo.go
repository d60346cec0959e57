package tax

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dmcarrell/storefront-backend/internal/repo"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository loads tax rates and jurisdiction boundaries from Postgres.
type Repository struct {
	repo.Base
}

// NewRepository constructs a tax repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) RateRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// FindAreaRate returns the rate row for (taxClass, country, area),
// preferring the area-specific row and falling back to the country-level
// row with an empty area. Nil with no error when neither exists.
func (r *Repository) FindAreaRate(ctx context.Context, taxClass, country, area string) (*models.TaxRate, error) {
	var rate models.TaxRate
	err := r.DB(ctx).
		Where("tax_class = ? AND country = ? AND area IN (?, '')", taxClass, country, area).
		Order("area DESC"). // non-empty area sorts after '', so pick it first
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// FindJurisdictions resolves the jurisdictions whose boundaries contain the
// given ZIP at asOf. When plus4 is supplied, ZIP+4 boundaries are tried
// first; plain five-digit ranges are the fallback.
func (r *Repository) FindJurisdictions(ctx context.Context, zip, plus4 string, asOf time.Time) ([]models.TaxJurisdiction, error) {
	zipNum, err := strconv.Atoi(zip)
	if err != nil {
		return nil, nil
	}

	if plus4 != "" {
		boundaries, err := r.findBoundaries(ctx, zipNum, &plus4, asOf)
		if err != nil {
			return nil, err
		}
		if len(boundaries) > 0 {
			return distinctJurisdictions(boundaries), nil
		}
	}

	boundaries, err := r.findBoundaries(ctx, zipNum, nil, asOf)
	if err != nil {
		return nil, err
	}
	return distinctJurisdictions(boundaries), nil
}

func (r *Repository) findBoundaries(ctx context.Context, zip int, plus4 *string, asOf time.Time) ([]models.JurisdictionBoundary, error) {
	query := r.DB(ctx).
		Preload("Jurisdiction").
		Where("zip_low <= ? AND zip_high >= ?", zip, zip).
		Where("effective_from <= ?", asOf).
		Where("expires_at IS NULL OR expires_at > ?", asOf)

	if plus4 != nil {
		query = query.Where("plus4_low IS NOT NULL AND plus4_low <= ? AND plus4_high >= ?", *plus4, *plus4)
	} else {
		query = query.Where("plus4_low IS NULL")
	}

	var boundaries []models.JurisdictionBoundary
	if err := query.Find(&boundaries).Error; err != nil {
		return nil, err
	}
	return boundaries, nil
}

func distinctJurisdictions(boundaries []models.JurisdictionBoundary) []models.TaxJurisdiction {
	seen := make(map[uuid.UUID]struct{}, len(boundaries))
	out := make([]models.TaxJurisdiction, 0, len(boundaries))
	for _, b := range boundaries {
		if b.Jurisdiction == nil {
			continue
		}
		if _, ok := seen[b.JurisdictionID]; ok {
			continue
		}
		seen[b.JurisdictionID] = struct{}{}
		out = append(out, *b.Jurisdiction)
	}
	return out
}
