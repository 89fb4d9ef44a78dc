package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Role constants
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is both the login identity and, for role=customer, the Customer that bookings are priced for.
type User struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Email         string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password      string          `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Role          string          `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	PriceModifier decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"price_modifier"` // +/- per liter on top of rack price
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsAdmin reports whether the user may act on other customers' records.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
