package booking

import (
	"fmt"
	"strings"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"

	"github.com/shopspring/decimal"
)

// QuantitySource names the booking field that governs invoice amounts.
type QuantitySource string

const (
	SourceDispensed QuantitySource = "dispensed_amount"
	SourceOrdered   QuantitySource = "ordered_amount"
	SourceBooked    QuantitySource = "fuel_quantity_liters"
)

// Reconciliation is the invoice view of a booking: the frozen unit prices and rates
// applied to the governing quantity. QuotedTotal is the total stored at creation.
type Reconciliation struct {
	BookingID       string            `json:"booking_id"`
	QuantitySource  QuantitySource    `json:"quantity_source"`
	OrderedAmount   *decimal.Decimal  `json:"ordered_amount"`
	DispensedAmount *decimal.Decimal  `json:"dispensed_amount"`
	Breakdown       pricing.Breakdown `json:"breakdown"`
	QuotedTotal     decimal.Decimal   `json:"quoted_total"`
	Difference      decimal.Decimal   `json:"difference"`
	InvoiceImages   []string          `json:"invoice_images"`
}

// RecordDelivery stores the ordered and dispensed liters. Either may be absent; neither
// may be negative. The pricing snapshot and the stored total are left untouched.
func RecordDelivery(b *model.Booking, ordered, dispensed decimal.NullDecimal) error {
	if ordered.Valid && ordered.Decimal.IsNegative() {
		return apperror.Validationf("ordered_amount",
			fmt.Errorf("%w: must not be negative, got %s", apperror.ErrInvalidQuantity, ordered.Decimal))
	}
	if dispensed.Valid && dispensed.Decimal.IsNegative() {
		return apperror.Validationf("dispensed_amount",
			fmt.Errorf("%w: must not be negative, got %s", apperror.ErrInvalidQuantity, dispensed.Decimal))
	}
	b.OrderedAmount = ordered
	b.DispensedAmount = dispensed
	return nil
}

// GoverningQuantity is dispensed_amount if set, else ordered_amount if set, else the booked quantity.
func GoverningQuantity(b *model.Booking) (decimal.Decimal, QuantitySource) {
	switch {
	case b.DispensedAmount.Valid:
		return b.DispensedAmount.Decimal, SourceDispensed
	case b.OrderedAmount.Valid:
		return b.OrderedAmount.Decimal, SourceOrdered
	default:
		return b.FuelQuantityLiters, SourceBooked
	}
}

// Recompute prices the governing quantity with the booking's frozen unit prices and rates.
func Recompute(b *model.Booking) (Reconciliation, error) {
	qty, src := GoverningQuantity(b)
	bd, err := frozen(b).WithQuantity(qty)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("recompute booking %s: %w", b.ID, err)
	}

	r := Reconciliation{
		BookingID:      b.ID.String(),
		QuantitySource: src,
		Breakdown:      bd,
		QuotedTotal:    b.TotalPrice,
		Difference:     bd.Total.Sub(b.TotalPrice),
		InvoiceImages:  append([]string{}, b.InvoiceImages...),
	}
	if b.OrderedAmount.Valid {
		v := b.OrderedAmount.Decimal
		r.OrderedAmount = &v
	}
	if b.DispensedAmount.Valid {
		v := b.DispensedAmount.Decimal
		r.DispensedAmount = &v
	}
	return r, nil
}

// RecomputedTotal is the total for the governing quantity at full precision.
func RecomputedTotal(b *model.Booking) (decimal.Decimal, error) {
	r, err := Recompute(b)
	if err != nil {
		return decimal.Zero, err
	}
	return r.Breakdown.Total, nil
}

// AddInvoiceImage appends ref unless the booking already holds MaxInvoiceImages images.
// Adding a ref that is already attached is a no-op.
func AddInvoiceImage(b *model.Booking, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return apperror.Validation("image", "image reference is required")
	}
	for _, existing := range b.InvoiceImages {
		if existing == ref {
			return nil
		}
	}
	if len(b.InvoiceImages) >= model.MaxInvoiceImages {
		return fmt.Errorf("%w: booking %s already has %d invoice images", apperror.ErrCapacityExceeded, b.ID, model.MaxInvoiceImages)
	}
	b.InvoiceImages = append(b.InvoiceImages, ref)
	return nil
}

// RemoveInvoiceImage removes ref and reports whether it was attached. Removing an absent ref is a no-op.
func RemoveInvoiceImage(b *model.Booking, ref string) bool {
	for i, existing := range b.InvoiceImages {
		if existing == ref {
			images := make([]string, 0, len(b.InvoiceImages)-1)
			images = append(images, b.InvoiceImages[:i]...)
			images = append(images, b.InvoiceImages[i+1:]...)
			b.InvoiceImages = images
			return true
		}
	}
	return false
}
