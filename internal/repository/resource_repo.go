package repository

import (
	"context"

	"fueldelivery/internal/model"
	"fueldelivery/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedRepository stores records that belong to one customer: fuel tanks, equipment and delivery sites.
type OwnedRepository[T any] interface {
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	FindOwned(ctx context.Context, id, userID uuid.UUID) (*T, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]T, error)
	List(ctx context.Context, page, limit int) ([]T, int64, error)
	// CountOwned counts how many of ids belong to userID.
	CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type ownedRepository[T any] struct {
	db *gorm.DB
}

func NewFuelTankRepository(db *gorm.DB) OwnedRepository[model.FuelTank] {
	return &ownedRepository[model.FuelTank]{db: db}
}

func NewEquipmentRepository(db *gorm.DB) OwnedRepository[model.Equipment] {
	return &ownedRepository[model.Equipment]{db: db}
}

func NewDeliverySiteRepository(db *gorm.DB) OwnedRepository[model.DeliverySite] {
	return &ownedRepository[model.DeliverySite]{db: db}
}

func (r *ownedRepository[T]) Create(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *ownedRepository[T]) Update(ctx context.Context, item *T) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *ownedRepository[T]) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ownedRepository[T]) FindOwned(ctx context.Context, id, userID uuid.UUID) (*T, error) {
	item := new(T)
	if err := GetDB(ctx, r.db).Where("id = ? AND user_id = ?", id, userID).First(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ownedRepository[T]) ListByUser(ctx context.Context, userID uuid.UUID) ([]T, error) {
	var items []T
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ownedRepository[T]) List(ctx context.Context, page, limit int) ([]T, int64, error) {
	var items []T
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at desc").Scopes(pagination.New(page, limit).Scope).Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *ownedRepository[T]) CountOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	if err := GetDB(ctx, r.db).Model(new(T)).Where("user_id = ? AND id IN ?", userID, ids).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
