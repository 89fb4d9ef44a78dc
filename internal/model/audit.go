package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateBooking       = "CREATE_BOOKING"
	ActionUpdateBookingStatus = "UPDATE_BOOKING_STATUS"
	ActionUpdatePricing       = "UPDATE_PRICING"
	ActionUpdatePriceModifier = "UPDATE_PRICE_MODIFIER"
	ActionRecordDelivery      = "RECORD_DELIVERY"
	ActionAddInvoiceImage     = "ADD_INVOICE_IMAGE"
	ActionRemoveInvoiceImage  = "REMOVE_INVOICE_IMAGE"
	ActionCreateDeliveryLog   = "CREATE_DELIVERY_LOG"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:text" json:"details"`                       // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
