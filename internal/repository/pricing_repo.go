package repository

import (
	"context"

	"fueldelivery/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PricingRepository stores the single pricing configuration row.
type PricingRepository interface {
	// Get returns gorm.ErrRecordNotFound when no configuration was saved yet.
	Get(ctx context.Context) (*model.PricingConfig, error)
	Save(ctx context.Context, cfg *model.PricingConfig) error
	// Seed inserts cfg unless the pricing row already exists.
	Seed(ctx context.Context, cfg *model.PricingConfig) error
}

type pricingRepository struct {
	db *gorm.DB
}

func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

func (r *pricingRepository) Get(ctx context.Context) (*model.PricingConfig, error) {
	var cfg model.PricingConfig
	if err := GetDB(ctx, r.db).First(&cfg, "id = ?", model.PricingConfigID).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *pricingRepository) Save(ctx context.Context, cfg *model.PricingConfig) error {
	return GetDB(ctx, r.db).Save(cfg).Error
}

func (r *pricingRepository) Seed(ctx context.Context, cfg *model.PricingConfig) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(cfg).Error
}
