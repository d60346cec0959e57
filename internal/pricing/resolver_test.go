package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/dmcarrell/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmcarrell/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubProductRepo struct {
	product *models.Product
	err     error
}

func (s *stubProductRepo) WithTx(tx *gorm.DB) ProductRepository { return s }

func (s *stubProductRepo) GetPricingDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func price(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func tier(minQty int, p string, expires *time.Time) models.PriceTier {
	return models.PriceTier{ID: uuid.New(), MinQty: minQty, Price: price(p), ExpiresAt: expires}
}

func TestBestTier_FloorMatch(t *testing.T) {
	now := time.Now()
	tiers := []models.PriceTier{
		tier(1, "20.00", nil),
		tier(10, "18.00", nil),
		tier(50, "15.00", nil),
	}

	cases := []struct {
		qty  int
		want string
	}{
		{1, "20.00"},
		{9, "20.00"},
		{10, "18.00"},
		{49, "18.00"},
		{50, "15.00"},
		{5000, "15.00"},
	}
	for _, tc := range cases {
		got := BestTier(tiers, tc.qty, now)
		require.NotNil(t, got, "qty %d", tc.qty)
		assert.True(t, got.Price.Equal(price(tc.want)), "qty %d got %s", tc.qty, got.Price)
	}
}

func TestBestTier_SingleTierServesAllQuantities(t *testing.T) {
	tiers := []models.PriceTier{tier(1, "20.00", nil)}

	for _, qty := range []int{1, 2, 17, 100} {
		got := BestTier(tiers, qty, time.Now())
		require.NotNil(t, got, "qty %d", qty)
		assert.True(t, got.Price.Equal(price("20.00")))
	}
}

func TestBestTier_DatedTierWinsTie(t *testing.T) {
	now := time.Now()
	expires := now.Add(24 * time.Hour)
	tiers := []models.PriceTier{
		tier(10, "18.00", nil),
		tier(10, "16.50", &expires),
	}

	got := BestTier(tiers, 12, now)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(price("16.50")))
	assert.NotNil(t, got.ExpiresAt)
}

func TestBestTier_IgnoresExpiredTiers(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	tiers := []models.PriceTier{
		tier(1, "20.00", nil),
		tier(10, "5.00", &past),
	}

	got := BestTier(tiers, 50, now)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(price("20.00")))
}

func TestBestTier_NoMatchBelowMinimum(t *testing.T) {
	tiers := []models.PriceTier{tier(10, "18.00", nil)}
	assert.Nil(t, BestTier(tiers, 9, time.Now()))
}

func TestResolveUnitPrice_VariantInheritsParentTiersPlusOptions(t *testing.T) {
	now := time.Now()
	parent := &models.Product{
		ID:        uuid.New(),
		SKU:       "SHIRT",
		BasePrice: price("25.00"),
		Tiers: []models.PriceTier{
			tier(1, "25.00", nil),
			tier(12, "22.00", nil),
		},
	}
	variant := &models.Product{
		ID:     uuid.New(),
		SKU:    "SHIRT-XL",
		Parent: parent,
		Options: []models.ProductOption{
			{Name: "size", Value: "XL", PriceDelta: price("2.00")},
		},
	}

	got, err := ResolveUnitPrice(variant, 12, now)
	require.NoError(t, err)
	assert.True(t, got.Equal(price("24.00")), "got %s", got)
}

func TestResolveUnitPrice_OwnTiersBeatParent(t *testing.T) {
	parent := &models.Product{SKU: "P", BasePrice: price("25.00")}
	variant := &models.Product{
		SKU:    "P-V",
		Parent: parent,
		Tiers:  []models.PriceTier{tier(1, "30.00", nil)},
	}

	got, err := ResolveUnitPrice(variant, 1, time.Now())
	require.NoError(t, err)
	assert.True(t, got.Equal(price("30.00")))
}

func TestResolveUnitPrice_BasePriceFallback(t *testing.T) {
	product := &models.Product{SKU: "PLAIN", BasePrice: price("9.99")}

	got, err := ResolveUnitPrice(product, 3, time.Now())
	require.NoError(t, err)
	assert.True(t, got.Equal(price("9.99")))
}

func TestResolveUnitPrice_Unpriceable(t *testing.T) {
	product := &models.Product{SKU: "ORPHAN"}

	_, err := ResolveUnitPrice(product, 1, time.Now())
	require.Error(t, err)

	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnpriceable, coded.Code())
}

func TestQuantityAdjustment_HooksRunInOrder(t *testing.T) {
	product := &models.Product{
		ID:        uuid.New(),
		SKU:       "HOOKED",
		BasePrice: price("10.00"),
		Tiers:     []models.PriceTier{tier(1, "10.00", nil)},
	}

	halfOff := func(ctx context.Context, p *models.Product, qty int, asOf time.Time, in decimal.Decimal) decimal.Decimal {
		return in.Div(decimal.NewFromInt(2))
	}
	plusOne := func(ctx context.Context, p *models.Product, qty int, asOf time.Time, in decimal.Decimal) decimal.Decimal {
		return in.Add(price("1.00"))
	}

	res, err := NewResolver(&stubProductRepo{product: product}, halfOff, plusOne)
	require.NoError(t, err)

	got, err := res.QuantityAdjustment(context.Background(), product.ID, 1, time.Now())
	require.NoError(t, err)
	require.NotNil(t, got.Tier)
	assert.True(t, got.FinalPrice.Equal(price("6.00")), "got %s", got.FinalPrice)
}

func TestQuantityAdjustment_NoHooksReturnsTierPrice(t *testing.T) {
	product := &models.Product{
		ID:        uuid.New(),
		SKU:       "TIERED",
		BasePrice: price("20.00"),
		Tiers: []models.PriceTier{
			tier(1, "20.00", nil),
			tier(10, "17.50", nil),
		},
	}

	res, err := NewResolver(&stubProductRepo{product: product})
	require.NoError(t, err)

	got, err := res.QuantityAdjustment(context.Background(), product.ID, 10, time.Now())
	require.NoError(t, err)
	require.NotNil(t, got.Tier)
	assert.Equal(t, 10, got.Tier.MinQty)
	assert.True(t, got.FinalPrice.Equal(price("17.50")))
}
