package repository

import (
	"context"

	"fueldelivery/internal/model"
	"fueldelivery/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryLogRepository interface {
	Create(ctx context.Context, entry *model.DeliveryLog) error
	List(ctx context.Context, bookingID *uuid.UUID, page, limit int) ([]model.DeliveryLog, int64, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.DeliveryLog, error)
}

type deliveryLogRepository struct {
	db *gorm.DB
}

func NewDeliveryLogRepository(db *gorm.DB) DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

func (r *deliveryLogRepository) Create(ctx context.Context, entry *model.DeliveryLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *deliveryLogRepository) List(ctx context.Context, bookingID *uuid.UUID, page, limit int) ([]model.DeliveryLog, int64, error) {
	var logs []model.DeliveryLog
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.DeliveryLog{})
	if bookingID != nil {
		query = query.Where("booking_id = ?", *bookingID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	fetchQuery := db
	if bookingID != nil {
		fetchQuery = fetchQuery.Where("booking_id = ?", *bookingID)
	}
	if err := fetchQuery.Order("delivery_time desc").Scopes(pagination.New(page, limit).Scope).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *deliveryLogRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.DeliveryLog, error) {
	var logs []model.DeliveryLog
	if err := GetDB(ctx, r.db).Where("booking_id = ?", bookingID).Order("delivery_time asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
