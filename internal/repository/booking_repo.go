package repository

import (
	"context"

	"fueldelivery/internal/model"
	"fueldelivery/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingFilter narrows List. Zero values mean "any".
type BookingFilter struct {
	UserID *uuid.UUID
	Status model.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// FindByIDForUpdate row-locks the booking for the rest of the surrounding transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	List(ctx context.Context, filter BookingFilter, page, limit int) ([]model.Booking, int64, error)
	// ListAll returns every match oldest first, for reports.
	ListAll(ctx context.Context, filter BookingFilter) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
	UpdateDelivery(ctx context.Context, id uuid.UUID, ordered, dispensed decimal.NullDecimal) error
	UpdateInvoiceImages(ctx context.Context, booking *model.Booking) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return GetDB(ctx, r.db).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := GetDB(ctx, r.db).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := ForUpdate(GetDB(ctx, r.db)).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) scoped(db *gorm.DB, filter BookingFilter) *gorm.DB {
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	return db
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter, page, limit int) ([]model.Booking, int64, error) {
	var bookings []model.Booking
	var total int64

	db := GetDB(ctx, r.db)
	if err := r.scoped(db.Model(&model.Booking{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := r.scoped(db, filter).Order("created_at desc").Scopes(pagination.New(page, limit).Scope).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *bookingRepository) ListAll(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := r.scoped(GetDB(ctx, r.db), filter).Order("created_at asc").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"status": status})
}

// UpdateDelivery writes only the invoice quantities; the pricing snapshot columns are never part of an update.
func (r *bookingRepository) UpdateDelivery(ctx context.Context, id uuid.UUID, ordered, dispensed decimal.NullDecimal) error {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"ordered_amount":   ordered,
		"dispensed_amount": dispensed,
	})
}

func (r *bookingRepository) UpdateInvoiceImages(ctx context.Context, booking *model.Booking) error {
	return r.updateColumns(ctx, booking.ID, map[string]interface{}{"invoice_images": booking.InvoiceImages})
}

func (r *bookingRepository) updateColumns(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.Booking{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
