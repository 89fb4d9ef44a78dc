package repository

import (
	"context"
	"fmt"

	"fueldelivery/internal/model"

	"gorm.io/gorm"
)

// StatusCount is one row of the bookings-per-status aggregate.
type StatusCount struct {
	Status model.BookingStatus
	Count  int64
}

type StatisticsRepository interface {
	CountBookingsByStatus(ctx context.Context) ([]StatusCount, error)
	CountUsersByRole(ctx context.Context, role string) (int64, error)
	// BookingsWithStatus loads only the quantity and total columns needed for revenue figures.
	BookingsWithStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountBookingsByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := GetDB(ctx, r.db).Model(&model.Booking{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Amounts are summed by the caller with decimal arithmetic; SQL SUM over numeric differs between dialects.
func (r *statisticsRepository) BookingsWithStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := GetDB(ctx, r.db).
		Select("id", "fuel_quantity_liters", "ordered_amount", "dispensed_amount", "total_price").
		Where("status = ?", status).
		Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s bookings: %w", status, err)
	}
	return bookings, nil
}
