package service

import (
	"context"
	"fmt"
	"strings"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// ResourceRequest fills a customer-owned record from a create or update payload.
type ResourceRequest[T any] interface {
	Apply(owner uuid.UUID, item *T) error
}

type FuelTankRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	Identifier string `json:"identifier" binding:"max=100"`
	Capacity   string `json:"capacity"`
}

func (r FuelTankRequest) Apply(owner uuid.UUID, t *model.FuelTank) error {
	capacity, err := parseCapacity(r.Capacity)
	if err != nil {
		return err
	}
	t.UserID = owner
	t.Name = strings.TrimSpace(r.Name)
	t.Identifier = strings.TrimSpace(r.Identifier)
	t.Capacity = capacity
	return requireName(t.Name)
}

type EquipmentRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	UnitNumber   string `json:"unit_number" binding:"max=100"`
	LicensePlate string `json:"license_plate" binding:"max=50"`
	Capacity     string `json:"capacity"`
}

func (r EquipmentRequest) Apply(owner uuid.UUID, e *model.Equipment) error {
	capacity, err := parseCapacity(r.Capacity)
	if err != nil {
		return err
	}
	e.UserID = owner
	e.Name = strings.TrimSpace(r.Name)
	e.UnitNumber = strings.TrimSpace(r.UnitNumber)
	e.LicensePlate = strings.ToUpper(strings.TrimSpace(r.LicensePlate))
	e.Capacity = capacity
	return requireName(e.Name)
}

type DeliverySiteRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address" binding:"required"`
}

func (r DeliverySiteRequest) Apply(owner uuid.UUID, s *model.DeliverySite) error {
	s.UserID = owner
	s.Name = strings.TrimSpace(r.Name)
	s.Address = strings.TrimSpace(r.Address)
	if s.Address == "" {
		return apperror.Validation("address", "is required")
	}
	return requireName(s.Name)
}

// --- Interface ---

// ResourceService manages records a customer owns. Customers only ever see their own;
// ListAll is the admin view across customers.
type ResourceService[T any, R ResourceRequest[T]] interface {
	Create(ctx context.Context, actor Actor, req R) (*T, error)
	ListMine(ctx context.Context, actor Actor) ([]T, error)
	ListAll(ctx context.Context, actor Actor, page, limit int) ([]T, int64, error)
	Update(ctx context.Context, actor Actor, id string, req R) (*T, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type resourceService[T any, R ResourceRequest[T]] struct {
	name string
	repo repository.OwnedRepository[T]
}

func NewFuelTankService(repo repository.OwnedRepository[model.FuelTank]) ResourceService[model.FuelTank, FuelTankRequest] {
	return &resourceService[model.FuelTank, FuelTankRequest]{name: "fuel tank", repo: repo}
}

func NewEquipmentService(repo repository.OwnedRepository[model.Equipment]) ResourceService[model.Equipment, EquipmentRequest] {
	return &resourceService[model.Equipment, EquipmentRequest]{name: "equipment", repo: repo}
}

func NewDeliverySiteService(repo repository.OwnedRepository[model.DeliverySite]) ResourceService[model.DeliverySite, DeliverySiteRequest] {
	return &resourceService[model.DeliverySite, DeliverySiteRequest]{name: "delivery site", repo: repo}
}

// --- Implementation ---

func (s *resourceService[T, R]) Create(ctx context.Context, actor Actor, req R) (*T, error) {
	item := new(T)
	if err := req.Apply(actor.UserID, item); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.name, err)
	}
	return item, nil
}

func (s *resourceService[T, R]) ListMine(ctx context.Context, actor Actor) ([]T, error) {
	items, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *resourceService[T, R]) ListAll(ctx context.Context, actor Actor, page, limit int) ([]T, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("%w: listing every %s is restricted to administrators", apperror.ErrForbidden, s.name)
	}
	page, limit = normalizePage(page, limit)
	items, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", s.name, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, total, nil
}

func (s *resourceService[T, R]) Update(ctx context.Context, actor Actor, id string, req R) (*T, error) {
	itemID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindOwned(ctx, itemID, actor.UserID)
	if err != nil {
		return nil, notFound(err, s.name)
	}
	if err := req.Apply(actor.UserID, item); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", s.name, err)
	}
	return item, nil
}

func (s *resourceService[T, R]) Delete(ctx context.Context, actor Actor, id string) error {
	itemID, err := parseID("id", id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, itemID, actor.UserID); err != nil {
		return notFound(err, s.name)
	}
	return nil
}

// --- Helpers ---

func requireName(name string) error {
	if name == "" {
		return apperror.Validation("name", "is required")
	}
	return nil
}

func parseCapacity(raw string) (nd decimal.NullDecimal, err error) {
	nd, err = parseDecimal("capacity", strings.TrimSpace(raw))
	if err != nil {
		return nd, err
	}
	if nd.Valid && !nd.Decimal.IsPositive() {
		return nd, apperror.Validation("capacity", "must be greater than zero")
	}
	return nd, nil
}
