package invoice

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fueldelivery/internal/booking"
	"fueldelivery/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveredBooking(t *testing.T) *model.Booking {
	t.Helper()
	cfg := &model.PricingConfig{
		FuelPricePerLiter: decimal.RequireFromString("1.50"),
		FederalCarbonTax:  decimal.RequireFromString("0.10"),
		QuebecCarbonTax:   decimal.RequireFromString("0.05"),
		GSTRate:           decimal.RequireFromString("0.05"),
		QSTRate:           decimal.RequireFromString("0.09975"),
	}
	customer := &model.User{ID: uuid.New(), Name: "Ferme <Gagnon>", Email: "gagnon@example.com"}
	b, err := booking.New(booking.CreateRequest{
		FuelType:           model.FuelDiesel,
		FuelQuantityLiters: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		DeliveryAddress:    "42 Chemin du Lac",
		PreferredDate:      "2026-11-02",
		PreferredTime:      "09:00",
	}, customer, cfg)
	require.NoError(t, err)
	b.ID = uuid.MustParse("6f1c2a9e-0000-4000-8000-000000000001")
	require.NoError(t, booking.UpdateStatus(b, model.StatusDelivered))
	require.NoError(t, booking.RecordDelivery(b,
		decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		decimal.NewNullDecimal(decimal.NewFromInt(800))))
	return b
}

func TestBuildDocument_UsesGoverningQuantity(t *testing.T) {
	b := deliveredBooking(t)
	issued := time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)

	doc, err := BuildDocument(b, nil, issued)
	require.NoError(t, err)
	assert.Equal(t, "INV-6f1c2a9e", doc.Number)
	assert.Equal(t, booking.SourceDispensed, doc.QuantitySource)
	assert.Equal(t, "1320.00", doc.Subtotal.StringFixed(2))
	assert.Equal(t, "1524.25", doc.Total.StringFixed(2))
	assert.Equal(t, "1905.32", doc.QuotedTotal.StringFixed(2))
	assert.Equal(t, "1000.00", doc.QuotedQuantity.StringFixed(2))
	assert.Equal(t, "131.67", doc.QSTAmount.StringFixed(2))
	assert.Equal(t, "6.58", doc.QSTOnGSTAmount.StringFixed(2))
	require.Len(t, doc.Lines, 3)
	assert.Equal(t, "Fuel", doc.Lines[0].Description)
	assert.Equal(t, "1200.00", doc.Lines[0].Amount.StringFixed(2))
}

func TestRenderHTML_EscapesAndFormats(t *testing.T) {
	b := deliveredBooking(t)
	logs := []model.DeliveryLog{{
		TruckLicensePlate: "QC-123",
		DriverName:        "Luc",
		LitersDelivered:   decimal.NewFromInt(800),
		DeliveryTime:      time.Date(2026, 11, 2, 9, 30, 0, 0, time.UTC),
	}}
	doc, err := BuildDocument(b, logs, time.Now())
	require.NoError(t, err)

	html, err := HTML(doc)
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, "Ferme &lt;Gagnon&gt;")
	assert.Contains(t, out, "1524.25")
	assert.Contains(t, out, "9.975%")
	assert.Contains(t, out, "QC-123")
	assert.Contains(t, out, "Dispensed: 800.00 L")
}

func TestBuildDocument_PrintedTaxLinesAddUp(t *testing.T) {
	for _, dispensed := range []string{"1", "333.33", "777.77", "800", "1234.56"} {
		t.Run(dispensed, func(t *testing.T) {
			b := deliveredBooking(t)
			require.NoError(t, booking.RecordDelivery(b, b.OrderedAmount, decimal.NewNullDecimal(decimal.RequireFromString(dispensed))))

			doc, err := BuildDocument(b, nil, time.Now())
			require.NoError(t, err)
			sum := doc.Subtotal.Add(doc.GSTAmount).Add(doc.QSTAmount).Add(doc.QSTOnGSTAmount)
			assert.True(t, sum.Equal(doc.Total), "%s + %s + %s + %s != %s",
				doc.Subtotal, doc.GSTAmount, doc.QSTAmount, doc.QSTOnGSTAmount, doc.Total)
			subtotal := decimal.RequireFromString(dispensed).Mul(decimal.RequireFromString("1.65"))
			assert.True(t, doc.QSTAmount.Equal(subtotal.Mul(b.QSTRate).Round(2)))
		})
	}
}

func TestRenderHTML_Layout(t *testing.T) {
	b := deliveredBooking(t)
	logs := []model.DeliveryLog{
		{TruckLicensePlate: "QC-123", DriverName: "Luc", LitersDelivered: decimal.NewFromInt(500), DeliveryTime: time.Now()},
		{TruckLicensePlate: "QC-456", DriverName: "Marie", LitersDelivered: decimal.NewFromInt(300), DeliveryTime: time.Now()},
	}
	doc, err := BuildDocument(b, logs, time.Now())
	require.NoError(t, err)
	html, err := HTML(doc)
	require.NoError(t, err)

	page, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	require.NoError(t, err)

	assert.Equal(t, "Invoice INV-6f1c2a9e", page.Find("h1").Text())

	var lines [][]string
	page.Find("table").First().Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		lines = append(lines, cells)
	})
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"Fuel", "800.00", "1.5", "1200.00"}, lines[0])
	assert.Equal(t, "Federal carbon tax", lines[1][0])
	assert.Equal(t, "Quebec carbon tax", lines[2][0])

	totals := map[string]string{}
	page.Find("table.totals tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		totals[strings.TrimSpace(cells.First().Text())] = strings.TrimSpace(cells.Last().Text())
	})
	assert.Equal(t, map[string]string{
		"Subtotal":                      "1320.00",
		"GST (5.000%)":                  "66.00",
		"QST (9.975%)":                  "131.67",
		"QST on GST (9.975%)":           "6.58",
		"Total":                         "1524.25",
		"Quoted at booking (1000.00 L)": "1905.32",
	}, totals)

	sum := decimal.Zero
	for _, label := range []string{"Subtotal", "GST (5.000%)", "QST (9.975%)", "QST on GST (9.975%)"} {
		sum = sum.Add(decimal.RequireFromString(totals[label]))
	}
	assert.Equal(t, totals["Total"], sum.StringFixed(2))

	assert.Equal(t, 2, page.Find("h2 + table tbody tr").Length())
	assert.Contains(t, page.Find("p.muted").First().Text(), "Status: delivered")
}

func TestGotenbergClient_RenderPDF(t *testing.T) {
	var gotHTML string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)

		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "index.html", part.FileName())
		data, _ := io.ReadAll(part)
		gotHTML = string(data)

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL, srv.Client())
	pdf, err := client.RenderPDF(context.Background(), []byte("<p>hello</p>"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	assert.Equal(t, "<p>hello</p>", gotHTML)
}

func TestGotenbergClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL, nil)
	_, err := client.RenderPDF(context.Background(), []byte("<p/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "chromium crashed")

	assert.Error(t, client.Ping(context.Background()))
}
