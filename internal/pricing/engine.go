// Package pricing turns a price table, a customer's modifier and a quantity into a
// priced breakdown. Everything here is pure and safe for concurrent use.
package pricing

import (
	"fmt"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"

	"github.com/shopspring/decimal"
)

// Line item codes
const (
	LineFuel             = "FUEL"
	LineFederalCarbonTax = "FEDERAL_CARBON_TAX"
	LineQuebecCarbonTax  = "QUEBEC_CARBON_TAX"
)

// MoneyPlaces is the number of decimals used when presenting amounts.
const MoneyPlaces = 2

// MaxAmount bounds any computed amount. Results beyond it are rejected as an invalid price.
var MaxAmount = decimal.New(1, 15)

var one = decimal.NewFromInt(1)

// Input is everything the engine needs for one quote.
type Input struct {
	FuelPricePerLiter decimal.Decimal     // fallback when RackPrice is not set
	RackPrice         decimal.NullDecimal // optional
	PriceModifier     decimal.Decimal     // additive, any sign; only applied on top of RackPrice
	FederalCarbonTax  decimal.Decimal
	QuebecCarbonTax   decimal.Decimal
	GSTRate           decimal.Decimal
	QSTRate           decimal.Decimal
	Quantity          decimal.Decimal
}

// LineItem is one per-liter component multiplied out over the quantity.
type LineItem struct {
	Code      string          `json:"code"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// Breakdown is the priced result. Amounts carry full precision; use Rounded for display.
type Breakdown struct {
	RackPrice            decimal.NullDecimal `json:"rack_price"`
	PriceModifier        decimal.Decimal     `json:"customer_price_modifier"`
	FuelPricePerLiter    decimal.Decimal     `json:"fuel_price_per_liter"`
	FederalCarbonTax     decimal.Decimal     `json:"federal_carbon_tax"`
	QuebecCarbonTax      decimal.Decimal     `json:"quebec_carbon_tax"`
	PerLiterTaxInclusive decimal.Decimal     `json:"per_liter_tax_inclusive"`
	GSTRate              decimal.Decimal     `json:"gst_rate"`
	QSTRate              decimal.Decimal     `json:"qst_rate"`
	Quantity             decimal.Decimal     `json:"quantity"`
	LineItems            []LineItem          `json:"line_items"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	GSTAmount            decimal.Decimal     `json:"gst_amount"`
	QSTAmount            decimal.Decimal     `json:"qst_amount"`
	Total                decimal.Decimal     `json:"total_price"`
}

// Compute prices quantity liters.
//
// The per-liter fuel price is RackPrice+PriceModifier when a rack price is set and the
// table's FuelPricePerLiter otherwise. GST and QST amounts are both taken on the
// subtotal, while the total compounds them: subtotal × (1+gst) × (1+qst).
func Compute(in Input) (Breakdown, error) {
	if !in.Quantity.IsPositive() {
		return Breakdown{}, fmt.Errorf("%w: quantity must be greater than zero, got %s", apperror.ErrInvalidQuantity, in.Quantity)
	}

	rates := []struct {
		name  string
		value decimal.Decimal
	}{
		{"federal_carbon_tax", in.FederalCarbonTax},
		{"quebec_carbon_tax", in.QuebecCarbonTax},
		{"gst_rate", in.GSTRate},
		{"qst_rate", in.QSTRate},
	}
	for _, r := range rates {
		if r.value.IsNegative() {
			return Breakdown{}, fmt.Errorf("%w: %s must not be negative, got %s", apperror.ErrInvalidPrice, r.name, r.value)
		}
	}

	fuel := in.FuelPricePerLiter
	if in.RackPrice.Valid {
		if in.RackPrice.Decimal.IsNegative() {
			return Breakdown{}, fmt.Errorf("%w: rack_price must not be negative, got %s", apperror.ErrInvalidPrice, in.RackPrice.Decimal)
		}
		fuel = in.RackPrice.Decimal.Add(in.PriceModifier)
	}
	if fuel.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: fuel price per liter is negative (%s)", apperror.ErrInvalidPrice, fuel)
	}

	b := Breakdown{
		RackPrice:         in.RackPrice,
		PriceModifier:     in.PriceModifier,
		FuelPricePerLiter: fuel,
		FederalCarbonTax:  in.FederalCarbonTax,
		QuebecCarbonTax:   in.QuebecCarbonTax,
		GSTRate:           in.GSTRate,
		QSTRate:           in.QSTRate,
	}
	return b.WithQuantity(in.Quantity)
}

// WithQuantity re-derives every amount for quantity q, keeping the breakdown's unit
// prices and rates. Zero is accepted so an empty delivery can still be invoiced.
func (b Breakdown) WithQuantity(q decimal.Decimal) (Breakdown, error) {
	if q.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: quantity must not be negative, got %s", apperror.ErrInvalidQuantity, q)
	}

	b.Quantity = q
	b.PerLiterTaxInclusive = b.FuelPricePerLiter.Add(b.FederalCarbonTax).Add(b.QuebecCarbonTax)
	b.LineItems = []LineItem{
		{Code: LineFuel, Quantity: q, UnitPrice: b.FuelPricePerLiter, Amount: q.Mul(b.FuelPricePerLiter)},
		{Code: LineFederalCarbonTax, Quantity: q, UnitPrice: b.FederalCarbonTax, Amount: q.Mul(b.FederalCarbonTax)},
		{Code: LineQuebecCarbonTax, Quantity: q, UnitPrice: b.QuebecCarbonTax, Amount: q.Mul(b.QuebecCarbonTax)},
	}
	b.Subtotal = q.Mul(b.PerLiterTaxInclusive)
	b.GSTAmount = b.Subtotal.Mul(b.GSTRate)
	b.QSTAmount = b.Subtotal.Mul(b.QSTRate)
	b.Total = b.Subtotal.Mul(one.Add(b.GSTRate)).Mul(one.Add(b.QSTRate))

	if b.Total.Abs().GreaterThan(MaxAmount) {
		return Breakdown{}, fmt.Errorf("%w: total %s exceeds the representable range", apperror.ErrInvalidPrice, b.Total.StringFixed(MoneyPlaces))
	}
	return b, nil
}

// Rounded returns a copy with monetary amounts rounded to cents. Unit prices and rates are untouched.
func (b Breakdown) Rounded() Breakdown {
	out := b
	out.LineItems = make([]LineItem, len(b.LineItems))
	for i, li := range b.LineItems {
		li.Amount = RoundMoney(li.Amount)
		out.LineItems[i] = li
	}
	out.Subtotal = RoundMoney(b.Subtotal)
	out.GSTAmount = RoundMoney(b.GSTAmount)
	out.QSTAmount = RoundMoney(b.QSTAmount)
	out.Total = RoundMoney(b.Total)
	return out
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FromConfig builds an Input from the current price table.
func FromConfig(cfg *model.PricingConfig, modifier, quantity decimal.Decimal) Input {
	return Input{
		FuelPricePerLiter: cfg.FuelPricePerLiter,
		RackPrice:         cfg.RackPrice,
		PriceModifier:     modifier,
		FederalCarbonTax:  cfg.FederalCarbonTax,
		QuebecCarbonTax:   cfg.QuebecCarbonTax,
		GSTRate:           cfg.GSTRate,
		QSTRate:           cfg.QSTRate,
		Quantity:          quantity,
	}
}
