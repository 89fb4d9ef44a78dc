package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelTank is a customer-owned storage tank that can be selected for refueling.
type FuelTank struct {
	ID         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string              `gorm:"type:varchar(255);not null" json:"name"`
	Identifier string              `gorm:"type:varchar(100)" json:"identifier"`
	Capacity   decimal.NullDecimal `gorm:"type:numeric" json:"capacity"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (t *FuelTank) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Equipment is a customer-owned vehicle or machine that can be selected for refueling.
type Equipment struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Name         string              `gorm:"type:varchar(255);not null" json:"name"`
	UnitNumber   string              `gorm:"type:varchar(100)" json:"unit_number"`
	LicensePlate string              `gorm:"type:varchar(50)" json:"license_plate"`
	Capacity     decimal.NullDecimal `gorm:"type:numeric" json:"capacity"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (e *Equipment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// DeliverySite is a saved delivery address.
type DeliverySite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Address   string    `gorm:"type:text;not null" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *DeliverySite) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
