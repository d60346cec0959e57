package recalc

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmcarrell/storefront-backend/internal/pricing"
	"github.com/dmcarrell/storefront-backend/internal/shipping"
	"github.com/dmcarrell/storefront-backend/internal/tax"
	"github.com/dmcarrell/storefront-backend/pkg/config"
	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	dbtypes "github.com/dmcarrell/storefront-backend/pkg/db/types"
	"github.com/dmcarrell/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/dmcarrell/storefront-backend/pkg/types"
)

func amt(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type stubOrderRepo struct {
	order *models.Order

	savedOrder      bool
	savedItems      bool
	replacedDetails bool
	details         []models.OrderTaxDetail
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) OrderRepository { return s }

func (s *stubOrderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.Get(ctx, id)
}

func (s *stubOrderRepo) SaveOrder(ctx context.Context, order *models.Order) error {
	s.savedOrder = true
	return nil
}

func (s *stubOrderRepo) SaveItems(ctx context.Context, items []models.OrderItem) error {
	s.savedItems = true
	return nil
}

func (s *stubOrderRepo) ReplaceTaxDetails(ctx context.Context, orderID uuid.UUID, details []models.OrderTaxDetail) error {
	s.replacedDetails = true
	s.details = details
	return nil
}

type stubDiscounts struct {
	discount *models.Discount
}

func (s *stubDiscounts) ResolveCode(ctx context.Context, code string, asOf time.Time, subTotal decimal.Decimal) (*models.Discount, error) {
	if s.discount == nil || code == "" {
		return models.NullDiscount(), nil
	}
	return s.discount, nil
}

type stubResolver struct {
	prices     map[uuid.UUID]decimal.Decimal
	salePrices map[uuid.UUID]decimal.Decimal
	gotQty     []int
}

func (s *stubResolver) Resolve(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (decimal.Decimal, error) {
	price, ok := s.prices[productID]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnpriceable, "no price")
	}
	return price, nil
}

func (s *stubResolver) QuantityAdjustment(ctx context.Context, productID uuid.UUID, qty int, asOf time.Time) (*pricing.Resolution, error) {
	s.gotQty = append(s.gotQty, qty)
	if sale, ok := s.salePrices[productID]; ok {
		return &pricing.Resolution{FinalPrice: sale}, nil
	}
	price, err := s.Resolve(ctx, productID, qty, asOf)
	if err != nil {
		return nil, err
	}
	return &pricing.Resolution{FinalPrice: price}, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLog() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})
}

func flatTax(t *testing.T, pct string) tax.Processor {
	t.Helper()
	proc, err := tax.NewFlatProcessor(tax.Deps{Config: config.TaxConfig{FlatRatePercent: pct}})
	require.NoError(t, err)
	return proc
}

type fixture struct {
	repo     *stubOrderRepo
	resolver *stubResolver
	svc      Service
}

func newFixture(t *testing.T, order *models.Order, cfg func(*Config)) *fixture {
	t.Helper()

	resolver := &stubResolver{prices: map[uuid.UUID]decimal.Decimal{}}
	for _, item := range order.Items {
		resolver.prices[item.ProductID] = item.UnitPrice
	}
	repo := &stubOrderRepo{order: order}

	serviceCfg := Config{
		Repo:         repo,
		Discounts:    &stubDiscounts{},
		Resolver:     resolver,
		TaxProcessor: flatTax(t, "0"),
		Adjusters:    shipping.NewAdjusterRegistry(),
		Tx:           stubTx{},
		Log:          testLog(),
	}
	if cfg != nil {
		cfg(&serviceCfg)
	}
	if sr, ok := serviceCfg.Resolver.(*stubResolver); ok {
		resolver = sr
	}

	svc, err := NewService(serviceCfg)
	require.NoError(t, err)
	return &fixture{repo: repo, resolver: resolver, svc: svc}
}

func lineItem(price string, qty int) models.OrderItem {
	p := amt(price)
	return models.OrderItem{
		ID:            uuid.New(),
		ProductID:     uuid.New(),
		SKU:           "SKU-" + uuid.NewString()[:8],
		Name:          "item",
		Quantity:      qty,
		UnitPrice:     p,
		LineItemPrice: p.Mul(decimal.NewFromInt(int64(qty))),
		Taxable:       true,
		Shippable:     true,
		TaxClass:      "Default",
	}
}

func baseOrder(items ...models.OrderItem) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   1001,
		CustomerEmail: "buyer@example.com",
		Status:        enums.OrderStatusPending,
		Currency:      enums.CurrencyUSD,
		Items:         items,
	}
}

func TestRecalculate_TotalsReconcile(t *testing.T) {
	order := baseOrder(lineItem("19.50", 1))
	order.ShippingCost = amt("10.00")

	f := newFixture(t, order, func(c *Config) {
		c.TaxProcessor = flatTax(t, "10")
	})

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)
	require.False(t, res.Frozen)

	assert.True(t, res.Order.SubTotal.Equal(amt("19.50")), "sub total %s", res.Order.SubTotal)
	assert.True(t, res.Order.Tax.Equal(amt("1.95")), "tax %s", res.Order.Tax)
	assert.True(t, res.Order.Total.Equal(amt("31.45")), "total %s", res.Order.Total)

	// Invariant: total == subTotal + (shippingCost - shippingDiscount) + tax.
	rebuilt := res.Order.SubTotal.
		Add(res.Order.ShippingCost.Sub(res.Order.ShippingDiscount)).
		Add(res.Order.Tax)
	assert.True(t, res.Order.Total.Equal(rebuilt))

	assert.True(t, f.repo.savedOrder)
	assert.True(t, f.repo.savedItems)
	assert.True(t, f.repo.replacedDetails)
	require.Len(t, f.repo.details, 1)
	assert.True(t, f.repo.details[0].Amount.Equal(amt("1.95")))
	assert.Equal(t, "flat", f.repo.details[0].Method)
}

func TestRecalculate_Idempotent(t *testing.T) {
	order := baseOrder(lineItem("12.34", 3))
	order.ShippingCost = amt("4.99")

	f := newFixture(t, order, func(c *Config) {
		c.TaxProcessor = flatTax(t, "8.25")
	})

	first, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)
	second, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	assert.True(t, first.Order.Total.Equal(second.Order.Total))
	assert.True(t, first.Order.SubTotal.Equal(second.Order.SubTotal))
	assert.True(t, first.Order.Tax.Equal(second.Order.Tax))
	assert.True(t, first.Order.DiscountAmount.Equal(second.Order.DiscountAmount))
}

func TestRecalculate_FrozenAfterPartialPayment(t *testing.T) {
	order := baseOrder(lineItem("10.00", 1))
	order.Total = amt("10.00")
	order.SubTotal = amt("10.00")
	order.AmountPaid = amt("2.00")

	f := newFixture(t, order, nil)

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)
	assert.True(t, res.Frozen)
	assert.False(t, f.repo.savedOrder, "frozen order must not be rewritten")
	assert.True(t, res.Order.Total.Equal(amt("10.00")))
}

func TestRecalculate_ForceBypassesFreeze(t *testing.T) {
	order := baseOrder(lineItem("10.00", 1))
	order.AmountPaid = amt("2.00")

	f := newFixture(t, order, nil)

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true, Force: true})
	require.NoError(t, err)
	assert.False(t, res.Frozen)
	assert.True(t, f.repo.savedOrder)
	assert.True(t, res.Order.Total.Equal(amt("10.00")))
}

func TestRecalculate_PreviewDoesNotWrite(t *testing.T) {
	order := baseOrder(lineItem("10.00", 2))

	f := newFixture(t, order, nil)

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: false})
	require.NoError(t, err)
	assert.True(t, res.Order.Total.Equal(amt("20.00")))
	assert.False(t, f.repo.savedOrder)
	assert.False(t, f.repo.savedItems)
	assert.False(t, f.repo.replacedDetails)
}

func TestRecalculate_FixedDiscountWithFreeShipping(t *testing.T) {
	order := baseOrder(lineItem("11.00", 1))
	order.ShippingCost = amt("6.00")
	code := "NEARLYFREE"
	order.DiscountCode = &code

	ten := amt("10.00")
	discount := &models.Discount{
		Code:         code,
		Active:       true,
		Amount:       &ten,
		ShippingMode: enums.ShippingDiscountFree,
	}

	f := newFixture(t, order, func(c *Config) {
		c.Discounts = &stubDiscounts{discount: discount}
	})

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	assert.True(t, res.Order.SubTotal.Equal(amt("1.00")), "sub total %s", res.Order.SubTotal)
	assert.True(t, res.Order.ShippingDiscount.Equal(amt("6.00")))
	assert.True(t, res.Order.DiscountAmount.Equal(amt("16.00")), "discount %s", res.Order.DiscountAmount)
	assert.True(t, res.Order.Total.Equal(amt("1.00")), "total %s", res.Order.Total)
	assert.False(t, res.RoundingViolation)
}

func TestRecalculate_PercentageDiscountAcrossLines(t *testing.T) {
	first := lineItem("10.00", 1)
	second := lineItem("10.00", 1)
	order := baseOrder(first, second)
	code := "TENOFF"
	order.DiscountCode = &code

	ten := amt("10")
	discount := &models.Discount{Code: code, Active: true, Percentage: &ten}

	f := newFixture(t, order, func(c *Config) {
		c.Discounts = &stubDiscounts{discount: discount}
	})

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	assert.True(t, res.LineDiscounts[first.ID].Equal(amt("1.00")))
	assert.True(t, res.LineDiscounts[second.ID].Equal(amt("1.00")))
	assert.True(t, res.Order.SubTotal.Equal(amt("18.00")))
	assert.True(t, res.Order.DiscountAmount.Equal(amt("2.00")))
}

func TestRecalculate_ValidProductRestrictionHonored(t *testing.T) {
	covered := lineItem("10.00", 1)
	excluded := lineItem("10.00", 1)
	order := baseOrder(covered, excluded)
	code := "ONLYONE"
	order.DiscountCode = &code

	four := amt("4.00")
	discount := &models.Discount{
		Code:            code,
		Active:          true,
		Amount:          &four,
		ValidProductIDs: dbtypes.UUIDArray{covered.ProductID},
	}

	f := newFixture(t, order, func(c *Config) {
		c.Discounts = &stubDiscounts{discount: discount}
	})

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	assert.True(t, res.LineDiscounts[covered.ID].Equal(amt("4.00")))
	assert.True(t, res.LineDiscounts[excluded.ID].IsZero())
}

func TestRecalculate_FreeCheapRequiresCheapestCarrier(t *testing.T) {
	code := "FREIGHT"
	one := amt("1.00")
	discount := &models.Discount{
		Code:         code,
		Active:       true,
		Amount:       &one,
		ShippingMode: enums.ShippingDiscountFreeCheap,
	}

	run := func(t *testing.T, cheapest bool) *Result {
		order := baseOrder(lineItem("10.00", 1))
		order.ShippingCost = amt("6.00")
		order.ShippingIsCheapest = cheapest
		order.DiscountCode = &code

		f := newFixture(t, order, func(c *Config) {
			c.Discounts = &stubDiscounts{discount: discount}
		})
		res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
		require.NoError(t, err)
		return res
	}

	withCheapest := run(t, true)
	assert.True(t, withCheapest.Order.ShippingDiscount.Equal(amt("6.00")))

	withoutCheapest := run(t, false)
	assert.True(t, withoutCheapest.Order.ShippingDiscount.IsZero())
}

func TestRecalculate_SalePricingLandsInLineDiscount(t *testing.T) {
	item := lineItem("20.00", 2)
	order := baseOrder(item)

	f := newFixture(t, order, nil)
	f.resolver.salePrices = map[uuid.UUID]decimal.Decimal{item.ProductID: amt("17.50")}

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	got := res.Order.Items[0]
	assert.True(t, got.UnitPrice.Equal(amt("20.00")), "unit price stays full")
	assert.True(t, got.LineItemPrice.Equal(amt("40.00")))
	assert.True(t, got.Discount.Equal(amt("5.00")), "sale delta lands in discount, got %s", got.Discount)
	assert.True(t, res.Order.SubTotal.Equal(amt("35.00")))
}

func TestRecalculate_CartQuantityTiering(t *testing.T) {
	first := lineItem("5.00", 3)
	second := lineItem("5.00", 4)
	order := baseOrder(first, second)

	f := newFixture(t, order, func(c *Config) {
		c.CartQuantityTiering = true
	})

	_, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	for _, qty := range f.resolver.gotQty {
		assert.Equal(t, 7, qty, "tier quantity should be the cart total")
	}
}

func TestRecalculate_ShippingAdjustersRun(t *testing.T) {
	order := baseOrder(lineItem("10.00", 1))
	order.ShippingCost = amt("8.00")

	f := newFixture(t, order, func(c *Config) {
		adj := shipping.NewAdjusterRegistry()
		adj.Register(func(ctx context.Context, o *models.Order, stack *types.PriceAdjustmentStack) {
			stack.Add(types.PriceAdjustment{
				Key:    "carrier-promo",
				Label:  "Carrier promo",
				Amount: amt("-2.00"),
			})
		})
		c.Adjusters = adj
	})

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	assert.True(t, res.Order.ShippingDiscount.Equal(amt("2.00")))
	assert.True(t, res.Order.Total.Equal(amt("16.00")))
	require.Len(t, res.ShippingAdjustments, 1)
	assert.Equal(t, "carrier-promo", res.ShippingAdjustments[0].Key)
}

func TestRecalculate_UnpriceableLineFails(t *testing.T) {
	order := baseOrder(lineItem("10.00", 1))

	f := newFixture(t, order, nil)
	f.resolver.prices = map[uuid.UUID]decimal.Decimal{}

	_, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.Error(t, err)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnpriceable, coded.Code())
	assert.False(t, f.repo.savedOrder)
}

func TestRecalculate_UnknownOrder(t *testing.T) {
	f := newFixture(t, baseOrder(lineItem("1.00", 1)), nil)
	f.repo.order = nil

	_, err := f.svc.Recalculate(context.Background(), uuid.New(), Options{Persist: true})
	require.Error(t, err)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

type stubRateRepo struct {
	rates map[string]decimal.Decimal
}

func (s *stubRateRepo) WithTx(tx *gorm.DB) tax.RateRepository { return s }

func (s *stubRateRepo) FindAreaRate(_ context.Context, taxClass, country, area string) (*models.TaxRate, error) {
	pct, ok := s.rates[taxClass+"/"+country+"/"+area]
	if !ok {
		return nil, nil
	}
	return &models.TaxRate{TaxClass: taxClass, Country: country, Area: area, Percent: pct}, nil
}

func (s *stubRateRepo) FindJurisdictions(context.Context, string, string, time.Time) ([]models.TaxJurisdiction, error) {
	return nil, nil
}

func TestRecalculate_AreaRateLineTaxUsesDestination(t *testing.T) {
	order := baseOrder(lineItem("100.00", 1))
	order.ShippingAddress = &types.Address{Country: "US", State: "CA"}

	rates := &stubRateRepo{rates: map[string]decimal.Decimal{
		"Default/US/CA": amt("9.5"),
		"Default/US/":   amt("2"),
	}}
	proc, err := tax.NewAreaRateProcessor(tax.Deps{
		Config: config.TaxConfig{DefaultTaxClass: "Default", Country: "US"},
		Rates:  rates,
	})
	require.NoError(t, err)

	f := newFixture(t, order, func(c *Config) { c.TaxProcessor = proc })

	res, err := f.svc.Recalculate(context.Background(), order.ID, Options{Persist: true})
	require.NoError(t, err)

	require.True(t, res.Order.Tax.Equal(amt("9.50")), "order tax %s", res.Order.Tax)
	assert.True(t, res.Order.Items[0].Tax.Equal(amt("9.50")),
		"line tax %s must use the destination rate, not the country fallback", res.Order.Items[0].Tax)

	lineTaxTotal := decimal.Zero
	for _, item := range res.Order.Items {
		lineTaxTotal = lineTaxTotal.Add(item.Tax)
	}
	assert.True(t, lineTaxTotal.Equal(res.TaxBreakdown.Total()),
		"line taxes %s diverge from the breakdown %s", lineTaxTotal, res.TaxBreakdown.Total())
}

func TestAllocate_FlagsSubCentRoundingViolation(t *testing.T) {
	order := baseOrder(lineItem("10.00", 1), lineItem("10.00", 1))
	f := newFixture(t, order, nil)
	svc := f.svc.(*service)

	pricingByLine := map[uuid.UUID]linePricing{}
	for i := range order.Items {
		item := &order.Items[i]
		pricingByLine[item.ID] = linePricing{unitPrice: item.UnitPrice}
	}
	// A sale discount leaving a sub-cent cap on the first line: the split
	// saturates it, and the half cent can never be handed back out.
	first := order.Items[0].ID
	lp := pricingByLine[first]
	lp.saleDiscount = amt("9.995")
	pricingByLine[first] = lp

	one := amt("1.00")
	discount := &models.Discount{Code: "SPLIT", Active: true, Amount: &one}

	alloc, _, violation := svc.allocate(order, discount, pricingByLine)
	assert.True(t, violation, "sub-cent cap must trip the reassembly check")
	assert.True(t, alloc.Total().Equal(amt("0.995")), "allocated %s", alloc.Total())
}
