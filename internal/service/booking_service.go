package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"
	"fueldelivery/internal/report"
	"fueldelivery/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type BookingFilter struct {
	Status string
	UserID string // admin only
	Page   int
	Limit  int
}

type BookingResponse struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"user_id"`
	UserName             string              `json:"user_name"`
	UserEmail            string              `json:"user_email"`
	FuelType             string              `json:"fuel_type"`
	FuelQuantityLiters   string              `json:"fuel_quantity_liters"`
	DeliveryAddress      string              `json:"delivery_address"`
	MultipleLocations    []string            `json:"multiple_locations"`
	PreferredDate        string              `json:"preferred_date"`
	PreferredTime        string              `json:"preferred_time"`
	SpecialInstructions  string              `json:"special_instructions"`
	SelectedTankIDs      []uuid.UUID         `json:"selected_tank_ids"`
	SelectedEquipmentIDs []uuid.UUID         `json:"selected_equipment_ids"`
	OrderItems           []model.OrderItem   `json:"order_items"`
	Trucks               []model.Truck       `json:"trucks"`
	Status               model.BookingStatus `json:"status"`

	RackPrice             *string `json:"rack_price"`
	CustomerPriceModifier string  `json:"customer_price_modifier"`
	FuelPricePerLiter     string  `json:"fuel_price_per_liter"`
	FederalCarbonTax      string  `json:"federal_carbon_tax"`
	QuebecCarbonTax       string  `json:"quebec_carbon_tax"`
	GSTRate               string  `json:"gst_rate"`
	QSTRate               string  `json:"qst_rate"`
	Subtotal              string  `json:"subtotal"`
	TotalPrice            string  `json:"total_price"`

	OrderedAmount   *string  `json:"ordered_amount"`
	DispensedAmount *string  `json:"dispensed_amount"`
	InvoiceImages   []string `json:"invoice_images"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// --- Interface ---

type BookingService interface {
	CreateBooking(ctx context.Context, actor Actor, req booking.CreateRequest) (BookingResponse, error)
	ListBookings(ctx context.Context, actor Actor, filter BookingFilter) ([]BookingResponse, int64, error)
	ExportBookings(ctx context.Context, actor Actor, filter BookingFilter) (ExportedFile, error)
	GetBooking(ctx context.Context, actor Actor, id string) (BookingResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateBookingStatusRequest) (BookingResponse, error)
}

type bookingService struct {
	bookingRepo   repository.BookingRepository
	userRepo      repository.UserRepository
	tankRepo      repository.OwnedRepository[model.FuelTank]
	equipmentRepo repository.OwnedRepository[model.Equipment]
	auditRepo     repository.AuditRepository
	pricing       PricingService
	txManager     repository.TransactionManager
	events        EventPublisher
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	tankRepo repository.OwnedRepository[model.FuelTank],
	equipmentRepo repository.OwnedRepository[model.Equipment],
	auditRepo repository.AuditRepository,
	pricingService PricingService,
	txManager repository.TransactionManager,
	events EventPublisher,
) BookingService {
	return &bookingService{
		bookingRepo:   bookingRepo,
		userRepo:      userRepo,
		tankRepo:      tankRepo,
		equipmentRepo: equipmentRepo,
		auditRepo:     auditRepo,
		pricing:       pricingService,
		txManager:     txManager,
		events:        publisherOrNoop(events),
	}
}

// --- Implementation ---

// CreateBooking prices the request with the caller's current modifier and the pricing in
// effect right now. Nothing is stored when validation or pricing fails.
func (s *bookingService) CreateBooking(ctx context.Context, actor Actor, req booking.CreateRequest) (BookingResponse, error) {
	customer, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return BookingResponse{}, notFound(err, "customer")
	}
	if customer.Role != model.RoleCustomer {
		return BookingResponse{}, fmt.Errorf("%w: only customers can book deliveries", apperror.ErrForbidden)
	}

	if err := s.checkOwnership(ctx, customer.ID, req); err != nil {
		return BookingResponse{}, err
	}

	cfg, err := s.pricing.Current(ctx)
	if err != nil {
		return BookingResponse{}, err
	}

	b, err := booking.New(req, customer, cfg)
	if err != nil {
		return BookingResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.bookingRepo.Create(txCtx, b); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateBooking, b.ID.String(), customer.Name, map[string]string{
			"fuel_type":   b.FuelType,
			"quantity":    b.FuelQuantityLiters.String(),
			"total_price": pricing.RoundMoney(b.TotalPrice).StringFixed(pricing.MoneyPlaces),
		})
	})
	if err != nil {
		return BookingResponse{}, err
	}

	res := toBookingResponse(b)
	s.events.Publish(EventBookingCreated, res)
	return res, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor Actor, filter BookingFilter) ([]BookingResponse, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	repoFilter, err := scopeFilter(actor, filter)
	if err != nil {
		return nil, 0, err
	}

	bookings, total, err := s.bookingRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	res := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		res = append(res, toBookingResponse(&bookings[i]))
	}
	return res, total, nil
}

// ExportBookings renders every booking matching filter as an XLSX workbook.
func (s *bookingService) ExportBookings(ctx context.Context, actor Actor, filter BookingFilter) (ExportedFile, error) {
	if !actor.IsAdmin() {
		return ExportedFile{}, fmt.Errorf("%w: booking reports are restricted to administrators", apperror.ErrForbidden)
	}
	repoFilter, err := scopeFilter(actor, filter)
	if err != nil {
		return ExportedFile{}, err
	}

	bookings, err := s.bookingRepo.ListAll(ctx, repoFilter)
	if err != nil {
		return ExportedFile{}, fmt.Errorf("failed to load bookings: %w", err)
	}
	content, err := report.BookingsWorkbook(bookings)
	if err != nil {
		return ExportedFile{}, fmt.Errorf("failed to build booking report: %w", err)
	}

	return ExportedFile{
		Filename:    "bookings-" + time.Now().UTC().Format("20060102") + ".xlsx",
		ContentType: report.XLSXContentType,
		Content:     content,
	}, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, id string) (BookingResponse, error) {
	b, err := loadVisibleBooking(ctx, s.bookingRepo, actor, id)
	if err != nil {
		return BookingResponse{}, err
	}
	return toBookingResponse(b), nil
}

// UpdateStatus accepts any known status. Moves outside the nominal workflow are logged, not refused.
func (s *bookingService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateBookingStatusRequest) (BookingResponse, error) {
	if !actor.IsAdmin() {
		return BookingResponse{}, fmt.Errorf("%w: only administrators can change booking status", apperror.ErrForbidden)
	}
	bookingID, err := parseID("id", id)
	if err != nil {
		return BookingResponse{}, err
	}
	status, err := booking.ParseStatus(req.Status)
	if err != nil {
		return BookingResponse{}, err
	}

	var b *model.Booking
	var previous model.BookingStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			return notFound(err, "booking")
		}
		previous = found.Status
		if err := booking.UpdateStatus(found, status); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateStatus(txCtx, found.ID, found.Status); err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}
		b = found

		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateBookingStatus, found.ID.String(), found.UserName, map[string]string{
			"from": string(previous),
			"to":   string(status),
		})
	})
	if err != nil {
		return BookingResponse{}, err
	}

	if previous != status && !booking.CanTransition(previous, status) {
		log.Printf("booking %s: out-of-sequence status change %s -> %s by %s", b.ID, previous, status, actor.UserID)
	}

	res := toBookingResponse(b)
	s.events.Publish(EventBookingStatusChanged, res)
	return res, nil
}

// --- Helpers ---

// scopeFilter converts filter for the repository. Customers only ever see their own bookings.
func scopeFilter(actor Actor, filter BookingFilter) (repository.BookingFilter, error) {
	var repoFilter repository.BookingFilter
	if filter.Status != "" {
		st, err := booking.ParseStatus(filter.Status)
		if err != nil {
			return repoFilter, err
		}
		repoFilter.Status = st
	}

	switch {
	case !actor.IsAdmin():
		uid := actor.UserID
		repoFilter.UserID = &uid
	case filter.UserID != "":
		uid, err := parseID("user_id", filter.UserID)
		if err != nil {
			return repoFilter, err
		}
		repoFilter.UserID = &uid
	}
	return repoFilter, nil
}

// checkOwnership rejects tank, equipment and order item references the customer does not own.
func (s *bookingService) checkOwnership(ctx context.Context, userID uuid.UUID, req booking.CreateRequest) error {
	tanks := append([]uuid.UUID{}, req.SelectedTankIDs...)
	equipment := append([]uuid.UUID{}, req.SelectedEquipmentIDs...)
	for _, it := range req.OrderItems {
		switch it.Kind {
		case model.ItemKindTank:
			tanks = append(tanks, it.RefID)
		case model.ItemKindEquipment:
			equipment = append(equipment, it.RefID)
		}
	}

	tanks, equipment = unique(tanks), unique(equipment)
	if n, err := s.tankRepo.CountOwned(ctx, userID, tanks); err != nil {
		return fmt.Errorf("failed to check tanks: %w", err)
	} else if n != int64(len(tanks)) {
		return apperror.Validation("selected_tank_ids", "one or more tanks do not exist or belong to another customer")
	}
	if n, err := s.equipmentRepo.CountOwned(ctx, userID, equipment); err != nil {
		return fmt.Errorf("failed to check equipment: %w", err)
	} else if n != int64(len(equipment)) {
		return apperror.Validation("selected_equipment_ids", "one or more equipment units do not exist or belong to another customer")
	}
	return nil
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// loadVisibleBooking returns ErrNotFound both for missing bookings and for other customers' bookings.
func loadVisibleBooking(ctx context.Context, repo repository.BookingRepository, actor Actor, id string) (*model.Booking, error) {
	bookingID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	b, err := repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "booking")
	}
	if !actor.IsAdmin() && b.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: booking", apperror.ErrNotFound)
	}
	return b, nil
}

func toBookingResponse(b *model.Booking) BookingResponse {
	images := []string(b.InvoiceImages)
	if images == nil {
		images = []string{}
	}
	return BookingResponse{
		ID:                    b.ID.String(),
		UserID:                b.UserID.String(),
		UserName:              b.UserName,
		UserEmail:             b.UserEmail,
		FuelType:              b.FuelType,
		FuelQuantityLiters:    b.FuelQuantityLiters.String(),
		DeliveryAddress:       b.DeliveryAddress,
		MultipleLocations:     b.MultipleLocations,
		PreferredDate:         b.PreferredDate,
		PreferredTime:         b.PreferredTime,
		SpecialInstructions:   b.SpecialInstructions,
		SelectedTankIDs:       b.SelectedTankIDs,
		SelectedEquipmentIDs:  b.SelectedEquipmentIDs,
		OrderItems:            b.OrderItems,
		Trucks:                b.Trucks,
		Status:                b.Status,
		RackPrice:             nullString(b.RackPrice, 4),
		CustomerPriceModifier: b.CustomerPriceModifier.StringFixed(4),
		FuelPricePerLiter:     b.FuelPricePerLiter.StringFixed(4),
		FederalCarbonTax:      b.FederalCarbonTax.StringFixed(4),
		QuebecCarbonTax:       b.QuebecCarbonTax.StringFixed(4),
		GSTRate:               b.GSTRate.StringFixed(5),
		QSTRate:               b.QSTRate.StringFixed(5),
		Subtotal:              b.Subtotal.StringFixed(pricing.MoneyPlaces),
		TotalPrice:            b.TotalPrice.StringFixed(pricing.MoneyPlaces),
		OrderedAmount:         nullString(b.OrderedAmount, 2),
		DispensedAmount:       nullString(b.DispensedAmount, 2),
		InvoiceImages:         images,
		CreatedAt:             b.CreatedAt.Format(timeLayout),
		UpdatedAt:             b.UpdatedAt.Format(timeLayout),
	}
}
