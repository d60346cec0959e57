package recalc

import (
	"context"

	"github.com/dmcarrell/storefront-backend/internal/repo"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository exposes the order persistence surface the recalculator
// needs.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	SaveItems(ctx context.Context, items []models.OrderItem) error
	ReplaceTaxDetails(ctx context.Context, orderID uuid.UUID, details []models.OrderTaxDetail) error
}

// Repository persists orders and their reconciliation artifacts.
type Repository struct {
	repo.Base
}

// NewRepository constructs an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: repo.NewBase(tx)}
}

// Get loads an order with its items, without locking. Used for previews.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetForUpdate loads an order with its row locked for the duration of the
// surrounding transaction, then loads its items.
func (r *Repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.DB(ctx)
	// sqlite has no row locks; the in-memory test databases run without.
	if r.DB(ctx).Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := query.First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.DB(ctx).
		Where("order_id = ?", id).
		Order("created_at ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveOrder writes the order's recomputed totals.
func (r *Repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).
		Omit("Items", "TaxDetails").
		Save(order).Error
}

// SaveItems writes the recomputed line items.
func (r *Repository) SaveItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		item := &items[i]
		if err := r.DB(ctx).Omit("Order").Save(item).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReplaceTaxDetails deletes every existing tax detail row for the order
// and inserts the fresh breakdown. No historical trail is kept.
func (r *Repository) ReplaceTaxDetails(ctx context.Context, orderID uuid.UUID, details []models.OrderTaxDetail) error {
	if err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderTaxDetail{}).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&details).Error
}
