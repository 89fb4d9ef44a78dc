package pricing

import (
	"math/rand"
	"testing"

	"fueldelivery/internal/apperror"
	"fueldelivery/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func quebecInput(qty string) Input {
	return Input{
		FuelPricePerLiter: d("1.50"),
		FederalCarbonTax:  d("0.10"),
		QuebecCarbonTax:   d("0.05"),
		GSTRate:           d("0.05"),
		QSTRate:           d("0.09975"),
		Quantity:          d(qty),
	}
}

func TestCompute_FallbackFuelPrice(t *testing.T) {
	b, err := Compute(quebecInput("1000"))
	require.NoError(t, err)

	assert.True(t, b.FuelPricePerLiter.Equal(d("1.50")))
	assert.True(t, b.PerLiterTaxInclusive.Equal(d("1.65")))
	assert.True(t, b.Subtotal.Equal(d("1650")), "subtotal = %s", b.Subtotal)
	assert.True(t, b.GSTAmount.Equal(d("82.5")))
	assert.True(t, b.QSTAmount.Equal(d("164.5875")))
	assert.True(t, b.Total.Equal(d("1905.316875")), "total = %s", b.Total)
	assert.Equal(t, "1905.32", b.Rounded().Total.StringFixed(2))
}

func TestCompute_TotalCompoundsRatherThanAdds(t *testing.T) {
	b, err := Compute(quebecInput("1000"))
	require.NoError(t, err)

	additive := b.Subtotal.Add(b.GSTAmount).Add(b.QSTAmount)
	assert.False(t, b.Total.Equal(additive))
	assert.True(t, b.Total.Sub(additive).Equal(b.GSTAmount.Mul(b.QSTRate)))
}

func TestCompute_RackPricePlusModifier(t *testing.T) {
	in := quebecInput("500")
	in.RackPrice = decimal.NewNullDecimal(d("1.20"))
	in.PriceModifier = d("-0.05")

	b, err := Compute(in)
	require.NoError(t, err)
	assert.True(t, b.FuelPricePerLiter.Equal(d("1.15")))
	assert.True(t, b.PriceModifier.Equal(d("-0.05")))
	assert.True(t, b.RackPrice.Valid)
	assert.True(t, b.Subtotal.Equal(d("650")), "subtotal = %s", b.Subtotal)
}

func TestCompute_ModifierIgnoredWithoutRackPrice(t *testing.T) {
	in := quebecInput("10")
	in.PriceModifier = d("0.30")

	b, err := Compute(in)
	require.NoError(t, err)
	assert.True(t, b.FuelPricePerLiter.Equal(d("1.50")))
}

func TestCompute_NegativeFuelPriceRejected(t *testing.T) {
	in := quebecInput("100")
	in.RackPrice = decimal.NewNullDecimal(d("1.20"))
	in.PriceModifier = d("-2.00")

	_, err := Compute(in)
	assert.ErrorIs(t, err, apperror.ErrInvalidPrice)
}

func TestCompute_ZeroFuelPriceAllowed(t *testing.T) {
	in := quebecInput("100")
	in.RackPrice = decimal.NewNullDecimal(d("1.20"))
	in.PriceModifier = d("-1.20")

	b, err := Compute(in)
	require.NoError(t, err)
	assert.True(t, b.FuelPricePerLiter.IsZero())
	assert.True(t, b.Subtotal.Equal(d("15")))
}

func TestCompute_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"zero quantity", func(in *Input) { in.Quantity = decimal.Zero }, apperror.ErrInvalidQuantity},
		{"negative quantity", func(in *Input) { in.Quantity = d("-1") }, apperror.ErrInvalidQuantity},
		{"negative gst", func(in *Input) { in.GSTRate = d("-0.05") }, apperror.ErrInvalidPrice},
		{"negative qst", func(in *Input) { in.QSTRate = d("-0.01") }, apperror.ErrInvalidPrice},
		{"negative federal tax", func(in *Input) { in.FederalCarbonTax = d("-0.10") }, apperror.ErrInvalidPrice},
		{"negative quebec tax", func(in *Input) { in.QuebecCarbonTax = d("-0.10") }, apperror.ErrInvalidPrice},
		{"negative rack price", func(in *Input) {
			in.RackPrice = decimal.NewNullDecimal(d("-1"))
			in.PriceModifier = d("5")
		}, apperror.ErrInvalidPrice},
		{"negative fallback price", func(in *Input) { in.FuelPricePerLiter = d("-0.01") }, apperror.ErrInvalidPrice},
		{"overflow", func(in *Input) { in.Quantity = d("1e15") }, apperror.ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quebecInput("1000")
			tt.mutate(&in)
			_, err := Compute(in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompute_Idempotent(t *testing.T) {
	in := quebecInput("1234.567")
	in.RackPrice = decimal.NewNullDecimal(d("1.3371"))
	in.PriceModifier = d("0.0123")

	first, err := Compute(in)
	require.NoError(t, err)
	second, err := Compute(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rnd := func(max int64, places int32) decimal.Decimal {
		return decimal.New(rng.Int63n(max), -places)
	}

	for i := 0; i < 200; i++ {
		in := Input{
			RackPrice:        decimal.NewNullDecimal(rnd(300, 2)),
			PriceModifier:    rnd(40, 2).Sub(d("0.20")),
			FederalCarbonTax: rnd(30, 2),
			QuebecCarbonTax:  rnd(30, 2),
			GSTRate:          rnd(1000, 4),
			QSTRate:          rnd(1000, 4),
			Quantity:         rnd(100000, 1).Add(d("0.1")),
		}

		b, err := Compute(in)
		fuel := in.RackPrice.Decimal.Add(in.PriceModifier)
		if fuel.IsNegative() {
			assert.ErrorIs(t, err, apperror.ErrInvalidPrice)
			continue
		}
		require.NoError(t, err)

		assert.True(t, b.FuelPricePerLiter.Equal(fuel))
		wantSubtotal := in.Quantity.Mul(fuel.Add(in.FederalCarbonTax).Add(in.QuebecCarbonTax))
		assert.True(t, b.Subtotal.Equal(wantSubtotal))
		wantTotal := wantSubtotal.Mul(one.Add(in.GSTRate)).Mul(one.Add(in.QSTRate))
		assert.True(t, b.Total.Equal(wantTotal))

		sum := decimal.Zero
		for _, li := range b.LineItems {
			sum = sum.Add(li.Amount)
		}
		assert.True(t, sum.Equal(b.Subtotal))
	}
}

func TestWithQuantity_KeepsFrozenUnitPrices(t *testing.T) {
	b, err := Compute(quebecInput("1000"))
	require.NoError(t, err)

	r, err := b.WithQuantity(d("800"))
	require.NoError(t, err)
	assert.True(t, r.FuelPricePerLiter.Equal(b.FuelPricePerLiter))
	assert.True(t, r.Subtotal.Equal(d("1320")))
	for _, li := range r.LineItems {
		assert.True(t, li.Quantity.Equal(d("800")))
	}

	zero, err := b.WithQuantity(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, zero.Total.IsZero())

	_, err = b.WithQuantity(d("-1"))
	assert.ErrorIs(t, err, apperror.ErrInvalidQuantity)
}

func TestFromConfig_DoesNotMutateConfig(t *testing.T) {
	cfg := model.DefaultPricingConfig()
	before := cfg

	b, err := Compute(FromConfig(&cfg, d("0.10"), d("100")))
	require.NoError(t, err)
	assert.True(t, b.FuelPricePerLiter.Equal(d("1.60")))
	assert.Equal(t, before, cfg)
}

func TestRounded(t *testing.T) {
	b, err := Compute(quebecInput("1.333"))
	require.NoError(t, err)

	r := b.Rounded()
	assert.Equal(t, int32(-2), r.Total.Exponent())
	assert.True(t, r.FuelPricePerLiter.Equal(b.FuelPricePerLiter))
	assert.False(t, b.Total.Equal(r.Total))
}
