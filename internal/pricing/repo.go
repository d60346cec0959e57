package pricing

import (
	"context"

	"github.com/dmcarrell/storefront-backend/internal/repo"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository exposes the catalog reads the resolver needs.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	GetPricingDetail(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Repository loads pricing-relevant catalog data from Postgres.
type Repository struct {
	repo.Base
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// GetPricingDetail loads a product with the associations price resolution
// walks: its own tiers and options, plus the parent and the parent's tiers
// for variants that inherit tiering.
func (r *Repository) GetPricingDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).
		Preload("Tiers").
		Preload("Options").
		Preload("Parent").
		Preload("Parent.Tiers").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}
