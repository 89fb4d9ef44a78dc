package report

import (
	"bytes"
	"testing"
	"time"

	"fueldelivery/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snapshot(status model.BookingStatus) model.Booking {
	return model.Booking{
		ID:                 uuid.New(),
		UserName:           "Alice Tremblay",
		UserEmail:          "alice@example.com",
		FuelType:           model.FuelDiesel,
		Status:             status,
		PreferredDate:      "2026-11-02",
		FuelQuantityLiters: dec("1000"),
		FuelPricePerLiter:  dec("1.50"),
		FederalCarbonTax:   dec("0.10"),
		QuebecCarbonTax:    dec("0.05"),
		GSTRate:            dec("0.05"),
		QSTRate:            dec("0.09975"),
		Subtotal:           dec("1650"),
		TotalPrice:         dec("1905.316875"),
		CreatedAt:          time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestBookingsWorkbook(t *testing.T) {
	pending := snapshot(model.StatusPending)
	delivered := snapshot(model.StatusDelivered)
	delivered.DispensedAmount = decimal.NewNullDecimal(dec("800"))
	delivered.InvoiceImages = []string{"a.png"}

	content, err := BookingsWorkbook([]model.Booking{pending, delivered})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Booking ID", rows[0][0])
	assert.Equal(t, pending.ID.String(), rows[1][0])
	assert.Equal(t, "pending", rows[1][4])
	assert.Equal(t, "1905.32", rows[1][13])
	assert.Equal(t, "1905.32", rows[1][14])

	assert.Equal(t, "delivered", rows[2][4])
	assert.Equal(t, "800", rows[2][8])
	assert.Equal(t, "1524.25", rows[2][14])
	assert.Equal(t, "-381.06", rows[2][15])
	assert.Equal(t, "1", rows[2][16])

	assert.Equal(t, "Total", rows[3][12])
	assert.Equal(t, "3810.63", rows[3][13])
	assert.Equal(t, "3429.57", rows[3][14])
}

func TestBookingsWorkbook_Empty(t *testing.T) {
	content, err := BookingsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Total", rows[1][12])
}
