package booking

import (
	"fmt"
	"strings"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"
)

// Statuses lists every booking status in workflow order.
var Statuses = []model.BookingStatus{
	model.StatusPending,
	model.StatusConfirmed,
	model.StatusInTransit,
	model.StatusDelivered,
	model.StatusCancelled,
}

// nominal is the intended workflow. It is advisory: UpdateStatus accepts any known status.
var nominal = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusInTransit, model.StatusCancelled},
	model.StatusInTransit: {model.StatusDelivered, model.StatusCancelled},
}

// ParseStatus accepts a status name, case-insensitively.
func ParseStatus(s string) (model.BookingStatus, error) {
	want := model.BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == want {
			return st, nil
		}
	}
	return "", apperror.Validation("status", fmt.Sprintf("unknown status %q", s))
}

// CanTransition reports whether from -> to follows the nominal workflow
// (pending, confirmed, in_transit, delivered; cancelled from anything not delivered).
func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range nominal[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves b to status. Sequencing is not enforced and pricing is never touched.
func UpdateStatus(b *model.Booking, status model.BookingStatus) error {
	st, err := ParseStatus(string(status))
	if err != nil {
		return err
	}
	b.Status = st
	return nil
}
