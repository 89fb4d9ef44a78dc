package repository

import (
	"context"
	"errors"
	"testing"

	"fueldelivery/internal/model"
	"fueldelivery/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPricingRepository_SeedKeepsExistingRow(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPricingRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	first := model.DefaultPricingConfig()
	require.NoError(t, repo.Seed(ctx, &first))

	second := model.DefaultPricingConfig()
	second.FuelPricePerLiter = decimal.RequireFromString("9.99")
	require.NoError(t, repo.Seed(ctx, &second))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PricingConfigID, got.ID)
	assert.Equal(t, "1.50", got.FuelPricePerLiter.StringFixed(2))

	var rows int64
	require.NoError(t, db.Model(&model.PricingConfig{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestPricingRepository_NewRowTakesSingletonID(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPricingRepository(db)
	ctx := context.Background()

	cfg := &model.PricingConfig{FuelPricePerLiter: decimal.RequireFromString("1.60")}
	require.NoError(t, repo.Save(ctx, cfg))
	assert.Equal(t, model.PricingConfigID, cfg.ID)

	dup := &model.PricingConfig{FuelPricePerLiter: decimal.RequireFromString("1.70")}
	assert.Error(t, db.Create(dup).Error)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.60", got.FuelPricePerLiter.StringFixed(2))
}
