package recalc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dmcarrell/storefront-backend/internal/discounts"
	"github.com/dmcarrell/storefront-backend/internal/pricing"
	"github.com/dmcarrell/storefront-backend/internal/shipping"
	"github.com/dmcarrell/storefront-backend/internal/tax"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	"github.com/dmcarrell/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/dmcarrell/storefront-backend/pkg/metrics"
	"github.com/dmcarrell/storefront-backend/pkg/money"
	"github.com/dmcarrell/storefront-backend/pkg/types"
)

// Adjustment keys pushed onto the shipping price stack.
const (
	shippingDiscountKey = "discount"
)

// Metric outcome labels.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeFrozen  = "frozen"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service recomputes an order's line items, discounts, shipping, tax and
// totals as one unit of work.
type Service interface {
	Recalculate(ctx context.Context, orderID uuid.UUID, opts Options) (*Result, error)
}

type service struct {
	repo      OrderRepository
	discounts discounts.Service
	resolver  pricing.Resolver
	taxProc   tax.Processor
	adjusters *shipping.AdjusterRegistry
	tx        txRunner
	lock      *OrderLocker
	log       *logger.Logger
	metrics   *metrics.RecalcMetrics

	// cartQuantityTiering keys every line's tier off the order's total
	// quantity instead of the line's own quantity.
	cartQuantityTiering bool
	now                 func() time.Time
}

// Config assembles the collaborators a recalculation service needs. Lock,
// Adjusters and Metrics are optional.
type Config struct {
	Repo                OrderRepository
	Discounts           discounts.Service
	Resolver            pricing.Resolver
	TaxProcessor        tax.Processor
	Adjusters           *shipping.AdjusterRegistry
	Tx                  txRunner
	Lock                *OrderLocker
	Log                 *logger.Logger
	Metrics             *metrics.RecalcMetrics
	CartQuantityTiering bool
}

// NewService builds the order total recalculator.
func NewService(cfg Config) (Service, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if cfg.Discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	if cfg.TaxProcessor == nil {
		return nil, fmt.Errorf("tax processor required")
	}
	if cfg.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cfg.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:                cfg.Repo,
		discounts:           cfg.Discounts,
		resolver:            cfg.Resolver,
		taxProc:             cfg.TaxProcessor,
		adjusters:           cfg.Adjusters,
		tx:                  cfg.Tx,
		lock:                cfg.Lock,
		log:                 cfg.Log,
		metrics:             cfg.Metrics,
		cartQuantityTiering: cfg.CartQuantityTiering,
		now:                 time.Now,
	}, nil
}

func (s *service) Recalculate(ctx context.Context, orderID uuid.UUID, opts Options) (*Result, error) {
	ctx = s.log.WithOrderID(ctx, orderID.String())
	ctx = s.log.WithTaxProcessor(ctx, s.taxProc.Name())
	started := s.now()

	result, err := s.recalculate(ctx, orderID, opts)

	switch {
	case err != nil:
		s.metrics.ObserveDuration(outcomeFailure, s.now().Sub(started))
		s.metrics.IncFailure(s.taxProc.Name())
	case result.Frozen:
		s.metrics.ObserveDuration(outcomeFrozen, s.now().Sub(started))
	default:
		s.metrics.ObserveDuration(outcomeSuccess, s.now().Sub(started))
		s.metrics.IncSuccess(s.taxProc.Name())
	}
	return result, err
}

func (s *service) recalculate(ctx context.Context, orderID uuid.UUID, opts Options) (*Result, error) {
	if !opts.Persist {
		order, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return nil, s.notFound(orderID, err)
		}
		if order.IsPartiallyPaid() && !opts.Force {
			return &Result{Order: order, Frozen: true}, nil
		}
		return s.compute(ctx, order)
	}

	if s.lock != nil {
		lease, ok, err := s.lock.Acquire(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already being recalculated")
		}
		defer func() {
			if err := lease.Release(ctx); err != nil {
				s.log.Error(ctx, "failed to release order lock", err)
			}
		}()
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return s.notFound(orderID, err)
		}
		if order.IsPartiallyPaid() && !opts.Force {
			result = &Result{Order: order, Frozen: true}
			return nil
		}

		result, err = s.compute(ctx, order)
		if err != nil {
			return err
		}

		if err := repo.SaveItems(ctx, order.Items); err != nil {
			return fmt.Errorf("save line items: %w", err)
		}
		if err := repo.ReplaceTaxDetails(ctx, order.ID, taxDetails(order, result.TaxBreakdown, s.taxProc.Name())); err != nil {
			return fmt.Errorf("replace tax details: %w", err)
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("save order totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) notFound(orderID uuid.UUID, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	return fmt.Errorf("load order %s: %w", orderID, err)
}

// linePricing is the per-line outcome of tier resolution: the full price
// the customer sees and the sale reduction hooks layered on top of it.
type linePricing struct {
	unitPrice    decimal.Decimal
	saleDiscount decimal.Decimal
}

func (s *service) compute(ctx context.Context, order *models.Order) (*Result, error) {
	asOf := s.now()

	pricingByLine, err := s.resolveLinePrices(ctx, order, asOf)
	if err != nil {
		return nil, err
	}

	// Pre-discount full prices are now current; the discount's minimum
	// order check runs against them so validity does not depend on the
	// previous run's allocations.
	fullSubTotal := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		lp := pricingByLine[item.ID]
		item.UnitPrice = lp.unitPrice
		item.LineItemPrice = money.Round(lp.unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		fullSubTotal = fullSubTotal.Add(item.LineItemPrice)
	}

	code := ""
	if order.DiscountCode != nil {
		code = *order.DiscountCode
	}
	discount, err := s.discounts.ResolveCode(ctx, code, asOf, fullSubTotal)
	if err != nil {
		return nil, err
	}

	allocation, shippingAlloc, violation := s.allocate(order, discount, pricingByLine)
	if violation {
		s.log.Warn(ctx, "discount allocation failed to reassemble to the expected total")
		s.metrics.IncRoundingViolation()
	}

	lineDiscounts := make(map[uuid.UUID]decimal.Decimal, len(order.Items))
	itemSubTotal := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		lp := pricingByLine[item.ID]
		item.Discount = money.Round(allocation[item.ID.String()].Add(lp.saleDiscount))
		lineDiscounts[item.ID] = item.Discount
		itemSubTotal = itemSubTotal.Add(item.SubTotal())
	}

	stack := s.shippingStack(ctx, order, discount, shippingAlloc)
	shippingDiscount := money.Clamp(stack.TotalAdjustment().Neg(), decimal.Zero, order.ShippingCost)

	order.SubTotal = money.Round(itemSubTotal)
	order.FullSubTotal = money.Round(fullSubTotal)
	order.ShippingDiscount = money.Round(shippingDiscount)

	totalTax, breakdown, err := s.taxProc.ProcessOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("process tax: %w", err)
	}
	var lineTaxErr error
	for i := range order.Items {
		item := &order.Items[i]
		// Destination-aware processors resolve the buyer address through
		// the back-pointer, which loading leaves nil.
		item.Order = order
		lineTax, err := s.taxProc.ByOrderItem(ctx, item)
		if err != nil {
			lineTaxErr = multierr.Append(lineTaxErr, fmt.Errorf("line %s: %w", item.ID, err))
			continue
		}
		item.Tax = money.Round(lineTax)
	}
	if lineTaxErr != nil {
		return nil, fmt.Errorf("per-line tax: %w", lineTaxErr)
	}

	order.Tax = money.Round(totalTax)
	order.DiscountAmount = money.Round(sumLineDiscounts(order).Add(order.ShippingDiscount))
	order.Total = money.Round(order.SubTotal.
		Add(order.ShippingCost.Sub(order.ShippingDiscount)).
		Add(order.Tax))

	return &Result{
		Order:               order,
		LineDiscounts:       lineDiscounts,
		TaxBreakdown:        breakdown,
		ShippingAdjustments: stack.Adjustments(),
		RoundingViolation:   violation,
	}, nil
}

// resolveLinePrices re-resolves every line's unit price from the tier
// tables. The stored unit price stays the full tiered price; sale pricing
// from resolver hooks lands in the line's discount instead, so the
// customer-visible breakdown keeps showing the undiscounted price.
func (s *service) resolveLinePrices(ctx context.Context, order *models.Order, asOf time.Time) (map[uuid.UUID]linePricing, error) {
	tierQty := func(item *models.OrderItem) int {
		if s.cartQuantityTiering {
			return order.TotalQuantity()
		}
		return item.Quantity
	}

	out := make(map[uuid.UUID]linePricing, len(order.Items))
	var resolveErr error
	for i := range order.Items {
		item := &order.Items[i]
		qty := tierQty(item)

		fullUnit, err := s.resolver.Resolve(ctx, item.ProductID, qty, asOf)
		if err != nil {
			resolveErr = multierr.Append(resolveErr, fmt.Errorf("line %s (%s): %w", item.ID, item.SKU, err))
			continue
		}
		adjusted, err := s.resolver.QuantityAdjustment(ctx, item.ProductID, qty, asOf)
		if err != nil {
			resolveErr = multierr.Append(resolveErr, fmt.Errorf("line %s (%s): %w", item.ID, item.SKU, err))
			continue
		}

		unit := money.Round(fullUnit.Add(item.DetailDelta))
		saleUnit := money.Round(adjusted.FinalPrice.Add(item.DetailDelta))
		saleDelta := unit.Sub(saleUnit)
		if saleDelta.IsNegative() {
			// Hooks raised the price; surcharges belong on the unit price,
			// not as a negative discount.
			unit = saleUnit
			saleDelta = decimal.Zero
		}

		out[item.ID] = linePricing{
			unitPrice:    unit,
			saleDiscount: money.Round(saleDelta.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		}
	}
	if resolveErr != nil {
		return nil, resolveErr
	}
	return out, nil
}

// allocate distributes the discount across eligible lines and, for fixed
// amounts with the discount shipping mode, the shipping bucket. The
// returned flag reports a rounding reassembly violation.
func (s *service) allocate(order *models.Order, discount *models.Discount, pricingByLine map[uuid.UUID]linePricing) (discounts.Allocation, decimal.Decimal, bool) {
	shippingBucket := "shipping:" + order.ID.String()

	buckets := make([]discounts.Bucket, 0, len(order.Items)+1)
	for i := range order.Items {
		item := &order.Items[i]
		cap := item.LineItemPrice.Sub(pricingByLine[item.ID].saleDiscount)
		buckets = append(buckets, discounts.Bucket{
			ID:       item.ID.String(),
			Cap:      cap,
			Eligible: discount.AppliesTo(item.ProductID),
		})
	}

	switch {
	case discount.Percentage != nil:
		allocation := discounts.ApplyPercentage(buckets, *discount.Percentage)
		shippingAlloc := decimal.Zero
		if discount.ShippingMode == enums.ShippingDiscountApply {
			shippingAlloc = money.Percent(order.ShippingCost, *discount.Percentage)
		}
		return allocation, shippingAlloc, false

	case discount.Amount != nil:
		includeShipping := discount.ShippingMode == enums.ShippingDiscountApply
		if includeShipping {
			buckets = append(buckets, discounts.Bucket{
				ID:       shippingBucket,
				Cap:      order.ShippingCost,
				Eligible: true,
			})
		}
		allocation := discounts.ApplyEvenSplit(buckets, *discount.Amount)

		capacity := decimal.Zero
		for _, b := range buckets {
			if b.Eligible {
				capacity = capacity.Add(b.Cap)
			}
		}
		expected := money.TruncateCents(money.Min(*discount.Amount, capacity))
		violation := !allocation.Total().Equal(expected)

		shippingAlloc := allocation[shippingBucket]
		delete(allocation, shippingBucket)
		return allocation, shippingAlloc, violation
	}

	return make(discounts.Allocation), decimal.Zero, false
}

// shippingStack builds the labeled shipping adjustment stack: the discount
// policy's contribution first, then every registered external adjuster.
func (s *service) shippingStack(ctx context.Context, order *models.Order, discount *models.Discount, shippingAlloc decimal.Decimal) *types.PriceAdjustmentStack {
	stack := types.NewPriceAdjustmentStack(order.ShippingCost)

	switch discount.ShippingMode {
	case enums.ShippingDiscountFree:
		stack.Add(types.PriceAdjustment{
			Key:    shippingDiscountKey,
			Label:  "Free shipping",
			Amount: order.ShippingCost.Neg(),
		})
	case enums.ShippingDiscountFreeCheap:
		if order.ShippingIsCheapest {
			stack.Add(types.PriceAdjustment{
				Key:    shippingDiscountKey,
				Label:  "Free shipping on the cheapest carrier",
				Amount: order.ShippingCost.Neg(),
			})
		}
	case enums.ShippingDiscountApply:
		if shippingAlloc.IsPositive() {
			stack.Add(types.PriceAdjustment{
				Key:    shippingDiscountKey,
				Label:  "Shipping discount",
				Amount: shippingAlloc.Neg(),
			})
		}
	}

	s.adjusters.Apply(ctx, order, stack)
	return stack
}

func sumLineDiscounts(order *models.Order) decimal.Decimal {
	total := decimal.Zero
	for i := range order.Items {
		total = total.Add(order.Items[i].Discount)
	}
	return total
}

func taxDetails(order *models.Order, breakdown tax.Breakdown, method string) []models.OrderTaxDetail {
	details := make([]models.OrderTaxDetail, 0, len(breakdown))
	for _, key := range breakdown.Keys() {
		amount := breakdown[key]
		if amount.IsZero() {
			continue
		}
		details = append(details, models.OrderTaxDetail{
			ID:           uuid.New(),
			OrderID:      order.ID,
			Jurisdiction: key,
			Amount:       money.Round(amount),
			Method:       method,
		})
	}
	return details
}
