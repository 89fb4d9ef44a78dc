package service

import (
	"bytes"
	"strings"
	"testing"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"
	"fueldelivery/internal/report"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func bookingRequest(liters string) booking.CreateRequest {
	return booking.CreateRequest{
		FuelType:           "diesel",
		FuelQuantityLiters: decimal.NewNullDecimal(dec(liters)),
		DeliveryAddress:    "123 Rue Principale, Montreal",
		PreferredDate:      "2026-11-02",
		PreferredTime:      "08:00",
	}
}

func TestCreateBooking_PersistsQuote(t *testing.T) {
	f := newFixture(t)

	res := f.createBooking(t, "1000")
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, "1650.00", res.Subtotal)
	assert.Equal(t, "1905.32", res.TotalPrice)
	assert.Nil(t, res.RackPrice)
	assert.Equal(t, []string{}, res.InvoiceImages)

	stored, err := f.bookingRepo.FindByID(f.ctx, uuid.MustParse(res.ID))
	require.NoError(t, err)
	assert.Equal(t, "1905.316875", stored.TotalPrice.String())
	assert.Equal(t, "Alice Tremblay", stored.UserName)

	logs, total, err := f.audit.GetAuditLogs(f.ctx, f.admin, AuditFilter{Action: model.ActionCreateBooking})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, res.ID, logs[0].EntityID)
	assert.Equal(t, "Alice Tremblay", logs[0].UserName)

	f.events.AssertCalled(t, "Publish", EventBookingCreated, mock.Anything)
}

func TestCreateBooking_LaterPricingChangesDoNotReprice(t *testing.T) {
	f := newFixture(t)
	res := f.createBooking(t, "1000")

	rack := "2.00"
	gst := "0.10"
	_, err := f.pricing.UpdatePricing(f.ctx, f.admin, UpdatePricingRequest{RackPrice: &rack, GSTRate: &gst})
	require.NoError(t, err)

	got, err := f.bookings.GetBooking(f.ctx, f.customer, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "1905.32", got.TotalPrice)
	assert.Equal(t, "1.5000", got.FuelPricePerLiter)

	second := f.createBooking(t, "1000")
	assert.Equal(t, "1.9500", second.FuelPricePerLiter)
	assert.Equal(t, "-0.0500", second.CustomerPriceModifier)
}

func TestCreateBooking_RejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest("0")
	_, err := f.bookings.CreateBooking(f.ctx, f.customer, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, total, err := f.bookings.ListBookings(f.ctx, f.admin, BookingFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateBooking_AdminCannotBook(t *testing.T) {
	f := newFixture(t)
	_, err := f.bookings.CreateBooking(f.ctx, f.admin, bookingRequest("100"))
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestCreateBooking_ChecksTankOwnership(t *testing.T) {
	f := newFixture(t)

	mine, err := f.tanks.Create(f.ctx, f.customer, FuelTankRequest{Name: "Yard tank", Capacity: "5000"})
	require.NoError(t, err)
	theirs, err := f.tanks.Create(f.ctx, f.other, FuelTankRequest{Name: "Bob's tank"})
	require.NoError(t, err)

	req := bookingRequest("500")
	req.SelectedTankIDs = []uuid.UUID{mine.ID}
	res, err := f.bookings.CreateBooking(f.ctx, f.customer, req)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mine.ID}, res.SelectedTankIDs)

	req.SelectedTankIDs = []uuid.UUID{mine.ID, theirs.ID}
	_, err = f.bookings.CreateBooking(f.ctx, f.customer, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	req = bookingRequest("500")
	req.OrderItems = []model.OrderItem{{Kind: model.ItemKindEquipment, RefID: uuid.New(), Quantity: dec("50")}}
	_, err = f.bookings.CreateBooking(f.ctx, f.customer, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestListBookings_ScopedToCustomer(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, "100")
	f.createBooking(t, "200")
	_, err := f.bookings.CreateBooking(f.ctx, f.other, bookingRequest("300"))
	require.NoError(t, err)

	mine, total, err := f.bookings.ListBookings(f.ctx, f.customer, BookingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, b := range mine {
		assert.Equal(t, f.customer.UserID.String(), b.UserID)
	}

	// A customer cannot widen the filter to someone else.
	_, total, err = f.bookings.ListBookings(f.ctx, f.customer, BookingFilter{UserID: f.other.UserID.String()})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = f.bookings.ListBookings(f.ctx, f.admin, BookingFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, total, err = f.bookings.ListBookings(f.ctx, f.admin, BookingFilter{UserID: f.other.UserID.String(), Status: "pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, _, err = f.bookings.ListBookings(f.ctx, f.admin, BookingFilter{Status: "shipped"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetBooking_HidesOtherCustomers(t *testing.T) {
	f := newFixture(t)
	res := f.createBooking(t, "100")

	_, err := f.bookings.GetBooking(f.ctx, f.other, res.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.bookings.GetBooking(f.ctx, f.admin, res.ID)
	assert.NoError(t, err)

	_, err = f.bookings.GetBooking(f.ctx, f.admin, "not-a-uuid")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUpdateStatus_AnyKnownStatus(t *testing.T) {
	f := newFixture(t)
	res := f.createBooking(t, "1000")

	for _, st := range []string{"delivered", "pending", "CANCELLED"} {
		got, err := f.bookings.UpdateStatus(f.ctx, f.admin, res.ID, UpdateBookingStatusRequest{Status: st})
		require.NoError(t, err)
		assert.Equal(t, "1905.32", got.TotalPrice)
	}

	got, err := f.bookings.GetBooking(f.ctx, f.customer, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.bookings.UpdateStatus(f.ctx, f.admin, res.ID, UpdateBookingStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.bookings.UpdateStatus(f.ctx, f.customer, res.ID, UpdateBookingStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.bookings.UpdateStatus(f.ctx, f.admin, uuid.NewString(), UpdateBookingStatusRequest{Status: "confirmed"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	f.events.AssertNumberOfCalls(t, "Publish", 4)
}

func TestExportBookings(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, "1000")
	b := f.createBooking(t, "500")
	_, err := f.bookings.UpdateStatus(f.ctx, f.admin, b.ID, UpdateBookingStatusRequest{Status: "delivered"})
	require.NoError(t, err)

	_, err = f.bookings.ExportBookings(f.ctx, f.customer, BookingFilter{})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.bookings.ExportBookings(f.ctx, f.admin, BookingFilter{Status: "shipped"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	out, err := f.bookings.ExportBookings(f.ctx, f.admin, BookingFilter{Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, report.XLSXContentType, out.ContentType)
	assert.True(t, strings.HasSuffix(out.Filename, ".xlsx"))

	wb, err := excelize.OpenReader(bytes.NewReader(out.Content))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(report.BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, b.ID, rows[1][0])
}
