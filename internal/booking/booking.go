// Package booking holds the rules for turning a customer's request into a priced
// booking and for everything that may change on it afterwards: status, delivered
// quantities and invoice images. Functions here work on in-memory values only;
// persistence is the caller's job.
package booking

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// CreateRequest is what a customer submits to book a delivery.
type CreateRequest struct {
	FuelType             string              `json:"fuel_type" validate:"required,oneof=diesel gasoline"`
	FuelQuantityLiters   decimal.NullDecimal `json:"fuel_quantity_liters" swaggertype:"number"`
	DeliveryAddress      string              `json:"delivery_address" validate:"required,max=1000"`
	MultipleLocations    []string            `json:"multiple_locations" validate:"omitempty,dive,required"`
	PreferredDate        string              `json:"preferred_date" validate:"required,datetime=2006-01-02"`
	PreferredTime        string              `json:"preferred_time" validate:"required"`
	SpecialInstructions  string              `json:"special_instructions" validate:"max=2000"`
	SelectedTankIDs      []uuid.UUID         `json:"selected_tank_ids"`
	SelectedEquipmentIDs []uuid.UUID         `json:"selected_equipment_ids"`
	OrderItems           []model.OrderItem   `json:"order_items"`
	Trucks               []model.Truck       `json:"trucks"`
}

func (r *CreateRequest) normalize() {
	r.FuelType = strings.ToLower(strings.TrimSpace(r.FuelType))
	r.DeliveryAddress = strings.TrimSpace(r.DeliveryAddress)
	r.PreferredDate = strings.TrimSpace(r.PreferredDate)
	r.PreferredTime = strings.TrimSpace(r.PreferredTime)
	r.SpecialInstructions = strings.TrimSpace(r.SpecialInstructions)

	locations := r.MultipleLocations[:0:0]
	for _, loc := range r.MultipleLocations {
		if loc = strings.TrimSpace(loc); loc != "" {
			locations = append(locations, loc)
		}
	}
	r.MultipleLocations = locations
}

// Quantity resolves the liters to be priced: the sum of the order items when the
// request is line-itemized, the direct quantity otherwise.
func (r *CreateRequest) Quantity() (decimal.Decimal, error) {
	if len(r.OrderItems) == 0 && !r.FuelQuantityLiters.Valid &&
		len(r.SelectedTankIDs) == 0 && len(r.SelectedEquipmentIDs) == 0 {
		return decimal.Zero, apperror.Validation("fuel_quantity_liters", "a quantity, tanks, equipment or order items are required")
	}

	var qty decimal.Decimal
	if len(r.OrderItems) > 0 {
		var items OrderItems
		for i, it := range r.OrderItems {
			if err := items.Add(it); err != nil {
				var ve *apperror.ValidationError
				if errors.As(err, &ve) {
					return decimal.Zero, &apperror.ValidationError{
						Field:   fmt.Sprintf("order_items[%d].%s", i, ve.Field),
						Message: ve.Message,
						Err:     ve.Err,
					}
				}
				return decimal.Zero, err
			}
		}
		qty = items.Total()
	} else {
		if !r.FuelQuantityLiters.Valid {
			return decimal.Zero, apperror.Validation("fuel_quantity_liters", "quantity is required when no order items are given")
		}
		qty = r.FuelQuantityLiters.Decimal
	}

	if !qty.IsPositive() {
		return decimal.Zero, apperror.Validationf("fuel_quantity_liters",
			fmt.Errorf("%w: must be greater than zero, got %s", apperror.ErrInvalidQuantity, qty))
	}
	return qty, nil
}

// New validates req and prices it once for customer against cfg. The returned booking
// is pending and carries a frozen copy of the breakdown; neither cfg nor customer is
// referenced afterwards. Every failure is a *apperror.ValidationError.
func New(req CreateRequest, customer *model.User, cfg *model.PricingConfig) (*model.Booking, error) {
	if customer == nil {
		return nil, apperror.Validation("user_id", "customer is required")
	}
	if cfg == nil {
		return nil, apperror.Validation("pricing", "pricing configuration is required")
	}

	req.normalize()
	if err := validate.Struct(req); err != nil {
		return nil, translate(err)
	}

	qty, err := req.Quantity()
	if err != nil {
		return nil, err
	}

	bd, err := pricing.Compute(pricing.FromConfig(cfg, customer.PriceModifier, qty))
	if err != nil {
		field := "pricing"
		if errors.Is(err, apperror.ErrInvalidQuantity) {
			field = "fuel_quantity_liters"
		}
		return nil, apperror.Validationf(field, err)
	}

	b := &model.Booking{
		UserID:               customer.ID,
		UserName:             customer.Name,
		UserEmail:            customer.Email,
		FuelType:             req.FuelType,
		FuelQuantityLiters:   qty,
		DeliveryAddress:      req.DeliveryAddress,
		MultipleLocations:    req.MultipleLocations,
		PreferredDate:        req.PreferredDate,
		PreferredTime:        req.PreferredTime,
		SpecialInstructions:  req.SpecialInstructions,
		SelectedTankIDs:      req.SelectedTankIDs,
		SelectedEquipmentIDs: req.SelectedEquipmentIDs,
		OrderItems:           req.OrderItems,
		Trucks:               req.Trucks,
		Status:               model.StatusPending,
		InvoiceImages:        []string{},
	}
	applySnapshot(b, bd)
	return b, nil
}

func applySnapshot(b *model.Booking, bd pricing.Breakdown) {
	b.RackPrice = bd.RackPrice
	b.CustomerPriceModifier = bd.PriceModifier
	b.FuelPricePerLiter = bd.FuelPricePerLiter
	b.FederalCarbonTax = bd.FederalCarbonTax
	b.QuebecCarbonTax = bd.QuebecCarbonTax
	b.GSTRate = bd.GSTRate
	b.QSTRate = bd.QSTRate
	b.Subtotal = bd.Subtotal
	b.TotalPrice = bd.Total
}

// Snapshot rebuilds the breakdown frozen on b at creation.
func Snapshot(b *model.Booking) (pricing.Breakdown, error) {
	return frozen(b).WithQuantity(b.FuelQuantityLiters)
}

func frozen(b *model.Booking) pricing.Breakdown {
	return pricing.Breakdown{
		RackPrice:         b.RackPrice,
		PriceModifier:     b.CustomerPriceModifier,
		FuelPricePerLiter: b.FuelPricePerLiter,
		FederalCarbonTax:  b.FederalCarbonTax,
		QuebecCarbonTax:   b.QuebecCarbonTax,
		GSTRate:           b.GSTRate,
		QSTRate:           b.QSTRate,
	}
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validationf("", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperror.Validation(field, "is required")
	case "oneof":
		return apperror.Validation(field, fmt.Sprintf("must be one of: %s", fe.Param()))
	case "datetime":
		return apperror.Validation(field, fmt.Sprintf("must be a date formatted as %s", fe.Param()))
	case "max":
		return apperror.Validation(field, fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return apperror.Validation(field, fmt.Sprintf("failed %q check", fe.Tag()))
	}
}
