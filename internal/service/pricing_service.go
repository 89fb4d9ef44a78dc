package service

import (
	"context"
	"errors"
	"fmt"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"
	"fueldelivery/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// UpdatePricingRequest is a partial update: nil fields keep their current value.
// ClearRackPrice removes the rack price so bookings fall back to fuel_price_per_liter.
type UpdatePricingRequest struct {
	FuelPricePerLiter *string `json:"fuel_price_per_liter"`
	RackPrice         *string `json:"rack_price"`
	ClearRackPrice    bool    `json:"clear_rack_price"`
	FederalCarbonTax  *string `json:"federal_carbon_tax"`
	QuebecCarbonTax   *string `json:"quebec_carbon_tax"`
	GSTRate           *string `json:"gst_rate"`
	QSTRate           *string `json:"qst_rate"`
}

type PricingResponse struct {
	ID                string  `json:"id"`
	FuelPricePerLiter string  `json:"fuel_price_per_liter"`
	RackPrice         *string `json:"rack_price"`
	FederalCarbonTax  string  `json:"federal_carbon_tax"`
	QuebecCarbonTax   string  `json:"quebec_carbon_tax"`
	GSTRate           string  `json:"gst_rate"`
	QSTRate           string  `json:"qst_rate"`
	UpdatedAt         string  `json:"updated_at"`
}

type QuoteRequest struct {
	Quantity string `json:"quantity" binding:"required"`
}

// --- Interface ---

type PricingService interface {
	// Current returns the stored configuration, seeding the defaults on first use.
	Current(ctx context.Context) (*model.PricingConfig, error)
	GetPricing(ctx context.Context) (PricingResponse, error)
	UpdatePricing(ctx context.Context, actor Actor, req UpdatePricingRequest) (PricingResponse, error)
	// Quote prices a quantity for the calling customer without creating anything.
	Quote(ctx context.Context, actor Actor, req QuoteRequest) (pricing.Breakdown, error)
}

type pricingService struct {
	pricingRepo repository.PricingRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewPricingService(
	pricingRepo repository.PricingRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) PricingService {
	return &pricingService{
		pricingRepo: pricingRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      publisherOrNoop(events),
	}
}

// --- Implementation ---

func (s *pricingService) Current(ctx context.Context) (*model.PricingConfig, error) {
	cfg, err := s.pricingRepo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}

	seeded := model.DefaultPricingConfig()
	if err := s.pricingRepo.Seed(ctx, &seeded); err != nil {
		return nil, fmt.Errorf("failed to seed default pricing: %w", err)
	}
	// Whoever won the insert, the stored row is the one to use.
	cfg, err = s.pricingRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing: %w", err)
	}
	return cfg, nil
}

func (s *pricingService) GetPricing(ctx context.Context) (PricingResponse, error) {
	cfg, err := s.Current(ctx)
	if err != nil {
		return PricingResponse{}, err
	}
	return toPricingResponse(cfg), nil
}

func (s *pricingService) UpdatePricing(ctx context.Context, actor Actor, req UpdatePricingRequest) (PricingResponse, error) {
	if !actor.IsAdmin() {
		return PricingResponse{}, fmt.Errorf("%w: only administrators can change pricing", apperror.ErrForbidden)
	}

	cfg, err := s.Current(ctx)
	if err != nil {
		return PricingResponse{}, err
	}
	updated := *cfg

	fields := []struct {
		name string
		raw  *string
		dst  *decimal.Decimal
	}{
		{"fuel_price_per_liter", req.FuelPricePerLiter, &updated.FuelPricePerLiter},
		{"federal_carbon_tax", req.FederalCarbonTax, &updated.FederalCarbonTax},
		{"quebec_carbon_tax", req.QuebecCarbonTax, &updated.QuebecCarbonTax},
		{"gst_rate", req.GSTRate, &updated.GSTRate},
		{"qst_rate", req.QSTRate, &updated.QSTRate},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		v, err := nonNegative(f.name, *f.raw)
		if err != nil {
			return PricingResponse{}, err
		}
		*f.dst = v
	}

	switch {
	case req.ClearRackPrice:
		updated.RackPrice = decimal.NullDecimal{}
	case req.RackPrice != nil:
		v, err := nonNegative("rack_price", *req.RackPrice)
		if err != nil {
			return PricingResponse{}, err
		}
		updated.RackPrice = decimal.NewNullDecimal(v)
	}

	for _, rate := range []struct {
		name string
		v    decimal.Decimal
	}{{"gst_rate", updated.GSTRate}, {"qst_rate", updated.QSTRate}} {
		if rate.v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return PricingResponse{}, apperror.Validation(rate.name, "must be a fraction below 1 (e.g. 0.05 for 5%)")
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pricingRepo.Save(txCtx, &updated); err != nil {
			return fmt.Errorf("failed to save pricing: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdatePricing, updated.ID.String(), "pricing", map[string]interface{}{
			"before": toPricingResponse(cfg),
			"after":  toPricingResponse(&updated),
		})
	})
	if err != nil {
		return PricingResponse{}, err
	}

	res := toPricingResponse(&updated)
	s.events.Publish(EventPricingUpdated, res)
	return res, nil
}

func (s *pricingService) Quote(ctx context.Context, actor Actor, req QuoteRequest) (pricing.Breakdown, error) {
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return pricing.Breakdown{}, apperror.Validation("quantity", "must be a decimal number")
	}

	modifier := decimal.Zero
	if !actor.IsAdmin() {
		user, err := s.userRepo.GetByID(ctx, actor.UserID)
		if err != nil {
			return pricing.Breakdown{}, notFound(err, "customer")
		}
		modifier = user.PriceModifier
	}

	cfg, err := s.Current(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	bd, err := pricing.Compute(pricing.FromConfig(cfg, modifier, qty))
	if err != nil {
		return pricing.Breakdown{}, apperror.Validationf("quantity", err)
	}
	return bd.Rounded(), nil
}

// --- Helpers ---

func nonNegative(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation(field, "must be a decimal number")
	}
	if v.IsNegative() {
		return decimal.Zero, apperror.Validationf(field, fmt.Errorf("%w: must not be negative", apperror.ErrInvalidPrice))
	}
	return v, nil
}

func toPricingResponse(cfg *model.PricingConfig) PricingResponse {
	return PricingResponse{
		ID:                cfg.ID.String(),
		FuelPricePerLiter: cfg.FuelPricePerLiter.StringFixed(4),
		RackPrice:         nullString(cfg.RackPrice, 4),
		FederalCarbonTax:  cfg.FederalCarbonTax.StringFixed(4),
		QuebecCarbonTax:   cfg.QuebecCarbonTax.StringFixed(4),
		GSTRate:           cfg.GSTRate.StringFixed(5),
		QSTRate:           cfg.QSTRate.StringFixed(5),
		UpdatedAt:         cfg.UpdatedAt.Format(timeLayout),
	}
}
