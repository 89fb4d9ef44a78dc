package service

import (
	"testing"

	"fueldelivery/internal/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeliveryLogs(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "1000")

	first, err := f.logs.CreateLog(f.ctx, f.admin, CreateDeliveryLogRequest{
		BookingID:         b.ID,
		TruckLicensePlate: "qc-123",
		DriverName:        "Marc",
		LitersDelivered:   "450",
		DeliveryTime:      "2026-11-02T09:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "QC-123", first.TruckLicensePlate)
	assert.Equal(t, "450.00", first.LitersDelivered)

	_, err = f.logs.CreateLog(f.ctx, f.admin, CreateDeliveryLogRequest{
		BookingID:         b.ID,
		TruckLicensePlate: "QC-456",
		DriverName:        "Julie",
		LitersDelivered:   "350",
		DeliveryTime:      "2026-11-02T11:00:00Z",
	})
	require.NoError(t, err)

	logs, err := f.logs.ListByBooking(f.ctx, f.customer, b.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, first.ID, logs[0].ID)

	_, err = f.logs.ListByBooking(f.ctx, f.other, b.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	all, total, err := f.logs.ListLogs(f.ctx, f.admin, "", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 1)
	assert.Equal(t, "QC-456", all[0].TruckLicensePlate)

	// Logs are informational; the invoice still uses the booked quantity.
	inv, err := f.invoices.GetInvoice(f.ctx, f.admin, b.ID)
	require.NoError(t, err)
	assert.Nil(t, inv.DispensedAmount)

	f.events.AssertCalled(t, "Publish", EventDeliveryLogged, mock.Anything)
}

func TestDeliveryLogs_Rejections(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "1000")
	valid := CreateDeliveryLogRequest{BookingID: b.ID, TruckLicensePlate: "QC-1", DriverName: "Marc", LitersDelivered: "10"}

	_, err := f.logs.CreateLog(f.ctx, f.customer, valid)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	req := valid
	req.LitersDelivered = "-3"
	_, err = f.logs.CreateLog(f.ctx, f.admin, req)
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	req = valid
	req.BookingID = uuid.NewString()
	_, err = f.logs.CreateLog(f.ctx, f.admin, req)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	req = valid
	req.DeliveryTime = "yesterday"
	_, err = f.logs.CreateLog(f.ctx, f.admin, req)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, _, err = f.logs.ListLogs(f.ctx, f.customer, "", 1, 10)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
