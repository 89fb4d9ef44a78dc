package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateDeliveryLogRequest struct {
	BookingID         string `json:"booking_id" binding:"required"`
	TruckLicensePlate string `json:"truck_license_plate" binding:"required,max=50"`
	DriverName        string `json:"driver_name" binding:"required,max=255"`
	LitersDelivered   string `json:"liters_delivered" binding:"required"`
	Notes             string `json:"notes"`
	DeliveryTime      string `json:"delivery_time"` // RFC3339, defaults to now
}

type DeliveryLogResponse struct {
	ID                string `json:"id"`
	BookingID         string `json:"booking_id"`
	TruckLicensePlate string `json:"truck_license_plate"`
	DriverName        string `json:"driver_name"`
	LitersDelivered   string `json:"liters_delivered"`
	Notes             string `json:"notes,omitempty"`
	DeliveryTime      string `json:"delivery_time"`
	CreatedAt         string `json:"created_at"`
}

// --- Interface ---

type DeliveryLogService interface {
	CreateLog(ctx context.Context, actor Actor, req CreateDeliveryLogRequest) (DeliveryLogResponse, error)
	ListLogs(ctx context.Context, actor Actor, bookingID string, page, limit int) ([]DeliveryLogResponse, int64, error)
	ListByBooking(ctx context.Context, actor Actor, bookingID string) ([]DeliveryLogResponse, error)
}

type deliveryLogService struct {
	logRepo     repository.DeliveryLogRepository
	bookingRepo repository.BookingRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewDeliveryLogService(
	logRepo repository.DeliveryLogRepository,
	bookingRepo repository.BookingRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) DeliveryLogService {
	return &deliveryLogService{
		logRepo:     logRepo,
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNoop(events),
	}
}

// --- Implementation ---

// CreateLog records one truck drop. Logs are informational and never change the booking's invoice amounts.
func (s *deliveryLogService) CreateLog(ctx context.Context, actor Actor, req CreateDeliveryLogRequest) (DeliveryLogResponse, error) {
	if !actor.IsAdmin() {
		return DeliveryLogResponse{}, fmt.Errorf("%w: only administrators can log deliveries", apperror.ErrForbidden)
	}
	bookingID, err := parseID("booking_id", req.BookingID)
	if err != nil {
		return DeliveryLogResponse{}, err
	}
	liters, err := parseDecimal("liters_delivered", strings.TrimSpace(req.LitersDelivered))
	if err != nil {
		return DeliveryLogResponse{}, err
	}
	if !liters.Valid {
		return DeliveryLogResponse{}, apperror.Validation("liters_delivered", "is required")
	}
	if liters.Decimal.IsNegative() {
		return DeliveryLogResponse{}, apperror.Validationf("liters_delivered",
			fmt.Errorf("%w: must not be negative", apperror.ErrInvalidQuantity))
	}
	deliveredAt := time.Now().UTC()
	if req.DeliveryTime != "" {
		if deliveredAt, err = time.Parse(time.RFC3339, req.DeliveryTime); err != nil {
			return DeliveryLogResponse{}, apperror.Validation("delivery_time", "must be an RFC3339 timestamp")
		}
	}

	entry := &model.DeliveryLog{
		BookingID:         bookingID,
		TruckLicensePlate: strings.ToUpper(strings.TrimSpace(req.TruckLicensePlate)),
		DriverName:        strings.TrimSpace(req.DriverName),
		LitersDelivered:   liters.Decimal,
		Notes:             strings.TrimSpace(req.Notes),
		DeliveryTime:      deliveredAt,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := s.bookingRepo.FindByID(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		if err := s.logRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to create delivery log: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateDeliveryLog, entry.ID.String(), b.UserName, map[string]string{
			"booking_id":       b.ID.String(),
			"truck":            entry.TruckLicensePlate,
			"liters_delivered": entry.LitersDelivered.String(),
		})
	})
	if err != nil {
		return DeliveryLogResponse{}, err
	}

	res := toDeliveryLogResponse(entry)
	s.events.Publish(EventDeliveryLogged, res)
	return res, nil
}

func (s *deliveryLogService) ListLogs(ctx context.Context, actor Actor, bookingID string, page, limit int) ([]DeliveryLogResponse, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("%w: only administrators can list all delivery logs", apperror.ErrForbidden)
	}
	page, limit = normalizePage(page, limit)

	var filter *uuid.UUID
	if bookingID != "" {
		id, err := parseID("booking_id", bookingID)
		if err != nil {
			return nil, 0, err
		}
		filter = &id
	}

	logs, total, err := s.logRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	return mapDeliveryLogs(logs), total, nil
}

// ListByBooking returns the booking's logs oldest first. Customers may read their own bookings only.
func (s *deliveryLogService) ListByBooking(ctx context.Context, actor Actor, bookingID string) ([]DeliveryLogResponse, error) {
	b, err := loadVisibleBooking(ctx, s.bookingRepo, actor, bookingID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	return mapDeliveryLogs(logs), nil
}

// --- Mapping ---

func mapDeliveryLogs(logs []model.DeliveryLog) []DeliveryLogResponse {
	res := make([]DeliveryLogResponse, 0, len(logs))
	for i := range logs {
		res = append(res, toDeliveryLogResponse(&logs[i]))
	}
	return res
}

func toDeliveryLogResponse(l *model.DeliveryLog) DeliveryLogResponse {
	return DeliveryLogResponse{
		ID:                l.ID.String(),
		BookingID:         l.BookingID.String(),
		TruckLicensePlate: l.TruckLicensePlate,
		DriverName:        l.DriverName,
		LitersDelivered:   l.LitersDelivered.StringFixed(2),
		Notes:             l.Notes,
		DeliveryTime:      l.DeliveryTime.Format(timeLayout),
		CreatedAt:         l.CreatedAt.Format(timeLayout),
	}
}
