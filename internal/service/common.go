package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"
	"fueldelivery/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking event types published to dashboard clients.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventDeliveryRecorded     = "booking.delivery_recorded"
	EventInvoiceImagesChanged = "booking.invoice_images_changed"
	EventDeliveryLogged       = "booking.delivery_logged"
	EventPricingUpdated       = "pricing.updated"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Actor is the authenticated caller on whose behalf a service method runs.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// EventPublisher pushes notifications to live dashboards. *websocket.Hub implements it.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// notFound converts gorm.ErrRecordNotFound into apperror.ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperror.ErrNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation(field, "must be a valid UUID")
	}
	return id, nil
}

// parseDecimal parses an optional decimal string field; an empty string yields an invalid NullDecimal.
func parseDecimal(field, raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, apperror.Validation(field, "must be a decimal number")
	}
	return decimal.NewNullDecimal(d), nil
}

// parseOptionalDecimal returns nil when raw is nil, meaning "leave unchanged".
func parseOptionalDecimal(field string, raw *string) (*decimal.NullDecimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseDecimal(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details interface{}) error {
	var uid *uuid.UUID
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		uid = &id
	}

	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func nullString(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.New(page, limit)
	return p.Page, p.Limit
}
