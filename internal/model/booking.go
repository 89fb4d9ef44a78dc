package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FuelType enum constants
const (
	FuelDiesel   = "diesel"
	FuelGasoline = "gasoline"
)

// BookingStatus is the delivery workflow state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusInTransit BookingStatus = "in_transit"
	StatusDelivered BookingStatus = "delivered"
	StatusCancelled BookingStatus = "cancelled"
)

// MaxInvoiceImages bounds the evidence images attached to one booking.
const MaxInvoiceImages = 5

// OrderItem kinds
const (
	ItemKindTank      = "tank"
	ItemKindEquipment = "equipment"
)

// OrderItem is a tank or equipment unit selected for refueling with a target quantity.
type OrderItem struct {
	Kind     string          `json:"kind"` // tank, equipment
	RefID    uuid.UUID       `json:"ref_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Truck is a vehicle the customer expects to be filled as part of the booking.
type Truck struct {
	LicensePlate   string          `json:"license_plate"`
	DriverName     string          `json:"driver_name"`
	CapacityLiters decimal.Decimal `json:"capacity_liters"`
}

// Booking is a customer's fuel delivery order. The pricing block is a frozen copy of
// the engine output at creation and is never recomputed; the invoice block is written
// only by reconciliation after delivery.
type Booking struct {
	ID                   uuid.UUID                      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID                      `gorm:"type:uuid;not null;index" json:"user_id"`
	User                 *User                          `gorm:"foreignKey:UserID" json:"-"`
	UserName             string                         `gorm:"type:varchar(255)" json:"user_name"`
	UserEmail            string                         `gorm:"type:varchar(255)" json:"user_email"`
	FuelType             string                         `gorm:"type:varchar(20);not null" json:"fuel_type"`
	FuelQuantityLiters   decimal.Decimal                `gorm:"type:numeric;not null" json:"fuel_quantity_liters"`
	DeliveryAddress      string                         `gorm:"type:text;not null" json:"delivery_address"`
	MultipleLocations    datatypes.JSONSlice[string]    `json:"multiple_locations"`
	PreferredDate        string                         `gorm:"type:varchar(20)" json:"preferred_date"`
	PreferredTime        string                         `gorm:"type:varchar(20)" json:"preferred_time"`
	SpecialInstructions  string                         `gorm:"type:text" json:"special_instructions,omitempty"`
	SelectedTankIDs      datatypes.JSONSlice[uuid.UUID] `json:"selected_tank_ids"`
	SelectedEquipmentIDs datatypes.JSONSlice[uuid.UUID] `json:"selected_equipment_ids"`
	OrderItems           datatypes.JSONSlice[OrderItem] `json:"order_items"`
	Trucks               datatypes.JSONSlice[Truck]     `json:"trucks"`
	Status               BookingStatus                  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Pricing snapshot
	RackPrice             decimal.NullDecimal `gorm:"type:numeric" json:"rack_price"`
	CustomerPriceModifier decimal.Decimal     `gorm:"type:numeric;not null" json:"customer_price_modifier"`
	FuelPricePerLiter     decimal.Decimal     `gorm:"type:numeric;not null" json:"fuel_price_per_liter"`
	FederalCarbonTax      decimal.Decimal     `gorm:"type:numeric;not null" json:"federal_carbon_tax"`
	QuebecCarbonTax       decimal.Decimal     `gorm:"type:numeric;not null" json:"quebec_carbon_tax"`
	GSTRate               decimal.Decimal     `gorm:"column:gst_rate;type:numeric;not null" json:"gst_rate"`
	QSTRate               decimal.Decimal     `gorm:"column:qst_rate;type:numeric;not null" json:"qst_rate"`
	Subtotal              decimal.Decimal     `gorm:"type:numeric;not null" json:"subtotal"`
	TotalPrice            decimal.Decimal     `gorm:"type:numeric;not null" json:"total_price"`

	// Invoice fields
	OrderedAmount   decimal.NullDecimal         `gorm:"type:numeric" json:"ordered_amount"`
	DispensedAmount decimal.NullDecimal         `gorm:"type:numeric" json:"dispensed_amount"`
	InvoiceImages   datatypes.JSONSlice[string] `json:"invoice_images"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// DeliveryLog records one truck's drop at a booking. Several logs may reference one
// booking (partial fills); they are informational and never summed into DispensedAmount.
type DeliveryLog struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"booking_id"`
	TruckLicensePlate string          `gorm:"type:varchar(50);not null" json:"truck_license_plate"`
	DriverName        string          `gorm:"type:varchar(255);not null" json:"driver_name"`
	LitersDelivered   decimal.Decimal `gorm:"type:numeric;not null" json:"liters_delivered"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	DeliveryTime      time.Time       `gorm:"not null" json:"delivery_time"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
}

func (l *DeliveryLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
