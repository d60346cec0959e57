package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service resolves discount codes into applicable policies.
type Service interface {
	// ResolveCode returns the discount for the given code if it is valid for
	// an order of the given sub-total at asOf, and the zero-effect null
	// discount otherwise. It never fails the caller over a bad code.
	ResolveCode(ctx context.Context, code string, asOf time.Time, orderSubTotal decimal.Decimal) (*models.Discount, error)
}

type service struct {
	repo DiscountRepository
	log  *logger.Logger
}

// NewService builds a discount service backed by the provided repository.
func NewService(repo DiscountRepository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, log: log}, nil
}

func (s *service) ResolveCode(ctx context.Context, code string, asOf time.Time, orderSubTotal decimal.Decimal) (*models.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.NullDiscount(), nil
	}
	ctx = s.log.WithDiscountCode(ctx, code)

	discount, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Debug(ctx, "discount code not found, substituting null discount")
			return models.NullDiscount(), nil
		}
		return nil, fmt.Errorf("load discount %q: %w", code, err)
	}

	if !discount.Valid(asOf, orderSubTotal) {
		s.log.Debug(ctx, "discount code not currently valid, substituting null discount")
		return models.NullDiscount(), nil
	}
	return discount, nil
}
