// Package invoice builds the printable invoice for a booking and hands it to a PDF renderer.
package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"
	"fueldelivery/internal/pricing"

	"github.com/shopspring/decimal"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var tmpl = template.Must(template.New("invoice.html").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(pricing.MoneyPlaces) },
	"rate":  func(d decimal.Decimal) string { return d.Mul(decimal.NewFromInt(100)).StringFixed(3) + "%" },
	"qty":   func(d decimal.Decimal) string { return d.StringFixed(2) },
}).ParseFS(templateFS, "templates/invoice.html"))

// Line is one printable invoice line.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Document is everything printed on an invoice. Amounts are rounded to cents.
type Document struct {
	Number          string
	IssuedAt        time.Time
	CustomerName    string
	CustomerEmail   string
	DeliveryAddress string
	Locations       []string
	FuelType        string
	Status          model.BookingStatus
	PreferredDate   string

	QuantitySource  booking.QuantitySource
	Quantity        decimal.Decimal
	Lines           []Line
	Subtotal        decimal.Decimal
	GSTRate         decimal.Decimal
	GSTAmount       decimal.Decimal
	QSTRate         decimal.Decimal
	QSTAmount       decimal.Decimal
	QSTOnGSTAmount  decimal.Decimal // QST charged on the GST; Subtotal+GST+QST+QSTOnGST = Total
	Total           decimal.Decimal
	QuotedQuantity  decimal.Decimal
	QuotedTotal     decimal.Decimal
	OrderedAmount   *decimal.Decimal
	DispensedAmount *decimal.Decimal

	Deliveries []model.DeliveryLog
	Images     []string
}

var lineDescriptions = map[string]string{
	pricing.LineFuel:             "Fuel",
	pricing.LineFederalCarbonTax: "Federal carbon tax",
	pricing.LineQuebecCarbonTax:  "Quebec carbon tax",
}

// BuildDocument prices b's governing quantity with its frozen rates and collects the printable fields.
func BuildDocument(b *model.Booking, deliveries []model.DeliveryLog, issuedAt time.Time) (Document, error) {
	rec, err := booking.Recompute(b)
	if err != nil {
		return Document{}, err
	}
	bd := rec.Breakdown.Rounded()
	quoted, err := booking.Snapshot(b)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		Number:          "INV-" + shortID(b.ID.String()),
		IssuedAt:        issuedAt,
		CustomerName:    b.UserName,
		CustomerEmail:   b.UserEmail,
		DeliveryAddress: b.DeliveryAddress,
		Locations:       b.MultipleLocations,
		FuelType:        b.FuelType,
		Status:          b.Status,
		PreferredDate:   b.PreferredDate,
		QuantitySource:  rec.QuantitySource,
		Quantity:        bd.Quantity,
		Subtotal:        bd.Subtotal,
		GSTRate:         bd.GSTRate,
		GSTAmount:       bd.GSTAmount,
		QSTRate:         bd.QSTRate,
		QSTAmount:       bd.QSTAmount,
		QSTOnGSTAmount:  bd.Total.Sub(bd.Subtotal).Sub(bd.GSTAmount).Sub(bd.QSTAmount),
		Total:           bd.Total,
		QuotedQuantity:  quoted.Quantity,
		QuotedTotal:     pricing.RoundMoney(rec.QuotedTotal),
		OrderedAmount:   rec.OrderedAmount,
		DispensedAmount: rec.DispensedAmount,
		Deliveries:      deliveries,
		Images:          rec.InvoiceImages,
	}
	for _, li := range bd.LineItems {
		doc.Lines = append(doc.Lines, Line{
			Description: lineDescriptions[li.Code],
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Amount:      li.Amount,
		})
	}
	return doc, nil
}

// RenderHTML writes doc as a standalone HTML page.
func RenderHTML(w io.Writer, doc Document) error {
	if err := tmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("render invoice template: %w", err)
	}
	return nil
}

// HTML is RenderHTML into a byte slice.
func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
