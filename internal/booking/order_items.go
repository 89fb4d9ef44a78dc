package booking

import (
	"fmt"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItems is the editable list of tanks and equipment a customer wants filled.
// A (kind, ref) pair appears at most once.
type OrderItems []model.OrderItem

func validateItem(it model.OrderItem) error {
	if it.Kind != model.ItemKindTank && it.Kind != model.ItemKindEquipment {
		return apperror.Validation("kind", fmt.Sprintf("must be one of: %s %s", model.ItemKindTank, model.ItemKindEquipment))
	}
	if it.RefID == uuid.Nil {
		return apperror.Validation("ref_id", "is required")
	}
	if !it.Quantity.IsPositive() {
		return apperror.Validationf("quantity",
			fmt.Errorf("%w: must be greater than zero, got %s", apperror.ErrInvalidQuantity, it.Quantity))
	}
	return nil
}

func (l OrderItems) index(kind string, ref uuid.UUID) int {
	for i, it := range l {
		if it.Kind == kind && it.RefID == ref {
			return i
		}
	}
	return -1
}

// Add appends it. Adding a tank or equipment unit that is already listed is rejected.
func (l *OrderItems) Add(it model.OrderItem) error {
	if err := validateItem(it); err != nil {
		return err
	}
	if l.index(it.Kind, it.RefID) >= 0 {
		return apperror.Validation("ref_id", fmt.Sprintf("%s %s is already listed", it.Kind, it.RefID))
	}
	*l = append(*l, it)
	return nil
}

// Update replaces the quantity of a listed item.
func (l OrderItems) Update(kind string, ref uuid.UUID, qty decimal.Decimal) error {
	i := l.index(kind, ref)
	if i < 0 {
		return fmt.Errorf("%w: %s %s is not in the order", apperror.ErrNotFound, kind, ref)
	}
	candidate := l[i]
	candidate.Quantity = qty
	if err := validateItem(candidate); err != nil {
		return err
	}
	l[i] = candidate
	return nil
}

// Remove drops a listed item and reports whether it was present.
func (l *OrderItems) Remove(kind string, ref uuid.UUID) bool {
	i := l.index(kind, ref)
	if i < 0 {
		return false
	}
	*l = append((*l)[:i], (*l)[i+1:]...)
	return true
}

// Total is the sum of the item quantities.
func (l OrderItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l {
		total = total.Add(it.Quantity)
	}
	return total
}
