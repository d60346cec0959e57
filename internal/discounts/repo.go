package discounts

import (
	"context"
	"strings"

	"github.com/dmcarrell/storefront-backend/internal/repo"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// DiscountRepository exposes the persistence surface the service needs.
type DiscountRepository interface {
	WithTx(tx *gorm.DB) DiscountRepository
	FindByCode(ctx context.Context, code string) (*models.Discount, error)
	RecordUse(ctx context.Context, code string) error
}

// Repository loads discount policies from Postgres.
type Repository struct {
	repo.Base
}

// NewRepository constructs a discount repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) DiscountRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// FindByCode loads the discount with the given code. Codes are matched
// case-insensitively.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.DB(ctx).
		Where("LOWER(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// RecordUse bumps the usage counter for the given code. Recalculation never
// calls this; it belongs to checkout, which owns use accounting.
func (r *Repository) RecordUse(ctx context.Context, code string) error {
	return r.DB(ctx).
		Model(&models.Discount{}).
		Where("LOWER(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		UpdateColumn("num_uses", gorm.Expr("num_uses + 1")).Error
}
