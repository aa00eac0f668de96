package documents

import (
	"strconv"
	"strings"
)

// Tax rates applied when the corresponding flag is set. VAT is added to
// the amount due; the 1% withholding tax is deducted by the payer and
// therefore subtracted.
const (
	VATRate            = 0.14
	WithholdingTaxRate = 0.01
)

// DiscountLine is one resolved deduction. Lines are emitted in input
// order for every configured discount, including zero amounts.
type DiscountLine struct {
	Title  string
	Amount float64
}

// Result holds the derived totals for a document. Fields retain full
// floating precision; callers format for display.
type Result struct {
	Subtotal              float64
	TotalDiscount         float64
	SubtotalAfterDiscount float64
	VATAmount             float64
	TaxAmount             float64
	Shipping              float64
	AmountDue             float64
	DiscountLines         []DiscountLine
}

// Compute derives the totals for a set of line items and a totals
// configuration. It is pure and total: malformed numeric literals
// degrade to zero rather than producing an error.
func Compute(items []Item, totals Totals) Result {
	var res Result
	for _, it := range items {
		res.Subtotal += it.Qty * it.Price
	}

	res.DiscountLines = make([]DiscountLine, 0, len(totals.Discounts))
	for _, d := range totals.Discounts {
		var amount float64
		value := d.Value
		if value == "" {
			value = "0"
		}
		if strings.Contains(value, "%") {
			pct := parseAmount(strings.Replace(value, "%", "", 1))
			amount = res.Subtotal * pct / 100
		} else {
			amount = parseAmount(value)
		}
		res.TotalDiscount += amount
		res.DiscountLines = append(res.DiscountLines, DiscountLine{Title: d.Title, Amount: amount})
	}

	// Deliberately unclamped: discounts exceeding the subtotal yield a
	// negative running total and may drive the amount due negative.
	res.SubtotalAfterDiscount = res.Subtotal - res.TotalDiscount

	if totals.ApplyVAT {
		res.VATAmount = res.SubtotalAfterDiscount * VATRate
	}
	if totals.ApplyTax {
		res.TaxAmount = res.SubtotalAfterDiscount * WithholdingTaxRate
	}
	res.Shipping = parseAmount(totals.Shipping)
	res.AmountDue = res.SubtotalAfterDiscount + res.VATAmount - res.TaxAmount + res.Shipping
	return res
}

// parseAmount reads the longest numeric prefix of s, ignoring leading
// whitespace. An unparsable literal yields 0.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := false
	for i < len(s) && isDigit(s[i]) {
		i++
		digits = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits = true
		}
	}
	if !digits {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0
	}
	return f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
