// Package report builds spreadsheet exports for the admin dashboard.
package report

import (
	"fmt"

	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	BookingsSheet   = "Bookings"
)

var bookingHeaders = []interface{}{
	"Booking ID", "Customer", "Email", "Fuel type", "Status", "Preferred date",
	"Booked (L)", "Ordered (L)", "Dispensed (L)", "Invoiced (L)",
	"Fuel price/L", "GST rate", "QST rate", "Quoted total", "Invoice total", "Difference",
	"Images", "Created at",
}

// BookingsWorkbook writes one row per booking and a totals row. Money columns hold the
// quoted total next to the total recomputed from the governing quantity.
func BookingsWorkbook(bookings []model.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", BookingsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(BookingsSheet, "A1", &bookingHeaders); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(BookingsSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	quoted, invoiced := decimal.Zero, decimal.Zero
	for i := range bookings {
		b := &bookings[i]
		qty, _ := booking.GoverningQuantity(b)
		total, err := booking.RecomputedTotal(b)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		quoted = quoted.Add(b.TotalPrice)
		invoiced = invoiced.Add(total)

		row := []interface{}{
			b.ID.String(), b.UserName, b.UserEmail, b.FuelType, string(b.Status), b.PreferredDate,
			num(b.FuelQuantityLiters), nullNum(b.OrderedAmount), nullNum(b.DispensedAmount), num(qty),
			num(b.FuelPricePerLiter), num(b.GSTRate), num(b.QSTRate),
			money(b.TotalPrice), money(total), money(total.Sub(b.TotalPrice)),
			len(b.InvoiceImages), b.CreatedAt.UTC().Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(BookingsSheet, cell(1, i+2), &row); err != nil {
			return nil, err
		}
	}

	totalsRow := len(bookings) + 2
	totals := []interface{}{"Total", money(quoted), money(invoiced), money(invoiced.Sub(quoted))}
	if err := f.SetSheetRow(BookingsSheet, cell(13, totalsRow), &totals); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(BookingsSheet, totalsRow, totalsRow, bold); err != nil {
		return nil, err
	}
	if err := f.SetPanes(BookingsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func nullNum(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}

func money(d decimal.Decimal) float64 {
	return pricing.RoundMoney(d).InexactFloat64()
}
