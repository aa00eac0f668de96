package documents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSubtotal(t *testing.T) {
	res := Compute([]Item{
		{Name: "Fabric", Qty: 2, Price: 30},
		{Name: "Curtain", Qty: 1, Price: 40},
	}, Totals{})

	assert.InDelta(t, 100.0, res.Subtotal, 1e-9)
	assert.InDelta(t, 100.0, res.SubtotalAfterDiscount, 1e-9)
	assert.InDelta(t, 100.0, res.AmountDue, 1e-9)
	assert.Empty(t, res.DiscountLines)
}

func TestComputePercentageDiscount(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 2, Price: 100}}, Totals{
		Discounts: []Discount{{Title: "Seasonal", Value: "10%"}},
	})

	require.Len(t, res.DiscountLines, 1)
	assert.InDelta(t, 20.0, res.DiscountLines[0].Amount, 1e-9)
	assert.InDelta(t, 20.0, res.TotalDiscount, 1e-9)
	assert.InDelta(t, 180.0, res.SubtotalAfterDiscount, 1e-9)
}

func TestComputeFixedDiscount(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 1, Price: 50}}, Totals{
		Discounts: []Discount{{Title: "Voucher", Value: "12.5"}},
	})

	require.Len(t, res.DiscountLines, 1)
	assert.InDelta(t, 12.5, res.DiscountLines[0].Amount, 1e-9)
	assert.InDelta(t, 37.5, res.SubtotalAfterDiscount, 1e-9)
}

func TestComputeMalformedDiscountEmitsZeroLine(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 1, Price: 80}}, Totals{
		Discounts: []Discount{
			{Title: "Broken", Value: "abc"},
			{Title: "Empty", Value: ""},
		},
	})

	require.Len(t, res.DiscountLines, 2)
	assert.Equal(t, "Broken", res.DiscountLines[0].Title)
	assert.Zero(t, res.DiscountLines[0].Amount)
	assert.Equal(t, "Empty", res.DiscountLines[1].Title)
	assert.Zero(t, res.DiscountLines[1].Amount)
	assert.InDelta(t, 80.0, res.SubtotalAfterDiscount, 1e-9)
}

func TestComputeFullExample(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 4, Price: 25}}, Totals{
		Discounts: []Discount{{Title: "Voucher", Value: "10"}},
		ApplyVAT:  true,
		ApplyTax:  true,
		Shipping:  "5",
	})

	assert.InDelta(t, 100.0, res.Subtotal, 1e-9)
	assert.InDelta(t, 10.0, res.TotalDiscount, 1e-9)
	assert.InDelta(t, 90.0, res.SubtotalAfterDiscount, 1e-9)
	assert.InDelta(t, 12.6, res.VATAmount, 1e-9)
	assert.InDelta(t, 0.9, res.TaxAmount, 1e-9)
	assert.InDelta(t, 5.0, res.Shipping, 1e-9)
	assert.InDelta(t, 106.7, res.AmountDue, 1e-9)
}

func TestComputeTaxOnlyWhenFlagged(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 1, Price: 200}}, Totals{})

	assert.Zero(t, res.VATAmount)
	assert.Zero(t, res.TaxAmount)
	assert.InDelta(t, res.SubtotalAfterDiscount, res.AmountDue, 1e-9)
}

func TestComputeDiscountExceedsSubtotal(t *testing.T) {
	res := Compute([]Item{{Name: "Fabric", Qty: 1, Price: 50}}, Totals{
		Discounts: []Discount{{Title: "Goodwill", Value: "80"}},
	})

	assert.InDelta(t, -30.0, res.SubtotalAfterDiscount, 1e-9)
	assert.InDelta(t, -30.0, res.AmountDue, 1e-9)
}

func TestComputeEmptyItems(t *testing.T) {
	res := Compute(nil, Totals{ApplyVAT: true, Shipping: "3"})

	assert.Zero(t, res.Subtotal)
	assert.Zero(t, res.VATAmount)
	assert.InDelta(t, 3.0, res.AmountDue, 1e-9)
}

func TestParseAmountPrefixes(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"12.5", 12.5},
		{"  7.25  ", 7.25},
		{"-4", -4},
		{"12abc", 12},
		{"1.2.3", 1.2},
		{"1e2", 100},
		{"1e", 1},
		{".5", 0.5},
		{"abc", 0},
		{"", 0},
		{".", 0},
		{"-", 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, parseAmount(tc.in), 1e-9, "input %q", tc.in)
	}
}
