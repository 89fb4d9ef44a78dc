package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingConfigID is the primary key of the one pricing row. Every insert uses it, so
// concurrent seeding cannot leave a second row behind.
var PricingConfigID = uuid.MustParse("5e6b1c1e-7a3d-4f0e-9b1a-000000000001")

// PricingConfig is the single process-wide price table. It is read at booking
// creation time and copied onto the booking; bookings never reference it afterwards.
type PricingConfig struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	FuelPricePerLiter decimal.Decimal     `gorm:"type:numeric;not null" json:"fuel_price_per_liter"` // used when no rack price is set
	RackPrice         decimal.NullDecimal `gorm:"type:numeric" json:"rack_price"`                    // daily base rate, nullable
	FederalCarbonTax  decimal.Decimal     `gorm:"type:numeric;not null" json:"federal_carbon_tax"`   // per liter
	QuebecCarbonTax   decimal.Decimal     `gorm:"type:numeric;not null" json:"quebec_carbon_tax"`    // per liter
	GSTRate           decimal.Decimal     `gorm:"column:gst_rate;type:numeric;not null" json:"gst_rate"`
	QSTRate           decimal.Decimal     `gorm:"column:qst_rate;type:numeric;not null" json:"qst_rate"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (p *PricingConfig) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = PricingConfigID
	}
	return nil
}

// DefaultPricingConfig is seeded the first time pricing is read and no row exists.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		ID:                PricingConfigID,
		FuelPricePerLiter: decimal.RequireFromString("1.50"),
		RackPrice:         decimal.NewNullDecimal(decimal.RequireFromString("1.50")),
		FederalCarbonTax:  decimal.RequireFromString("0.14"),
		QuebecCarbonTax:   decimal.RequireFromString("0.05"),
		GSTRate:           decimal.RequireFromString("0.05"),
		QSTRate:           decimal.RequireFromString("0.09975"),
	}
}
