package documents

import (
	"html"
	"strconv"
	"strings"
	"time"
)

const (
	itemsSectionOpen  = "{{#each items}}"
	itemsSectionClose = "{{/each}}"
	discountsToken    = "{{{calculations.discountsHtml}}}"
	quotationTheme    = "quotation-theme"
)

// RenderHTML substitutes a document and its computed totals into the
// markup template. Three placeholder classes are resolved, each in a
// single pass: the repeated items section, the raw discount-lines block,
// and scalar tokens. Scalars are HTML-escaped; the discount block is
// inserted as literal markup. Unknown tokens are left verbatim and the
// function never fails.
func RenderHTML(tmpl string, rec Record, res Result) string {
	out := expandItems(tmpl, rec.Data.Items)
	out = strings.Replace(out, discountsToken, DiscountsMarkup(res.DiscountLines), 1)

	docType := rec.Data.Details.Type()
	// The document type heads both the page title and the header line,
	// so it is the one token replaced globally.
	out = strings.ReplaceAll(out, "{{documentType}}", html.EscapeString(string(docType)))

	theme := ""
	if docType == TypeQuotation {
		theme = quotationTheme
	}

	scalars := []struct {
		token string
		value string
	}{
		{"themeClass", theme},
		{"invoice.number", rec.Data.Details.Number()},
		{"invoice.date", FormatDate(rec.Data.Details.Date)},
		{"client.company", rec.Data.Client.Company},
		{"client.client", rec.Data.Client.Client},
		{"client.project", rec.Data.Client.Project},
		{"client.designer", rec.Data.Client.Designer},
		{"client.area", rec.Data.Client.Area},
		{"client.location", rec.Data.Client.Location},
		{"client.contactPerson", rec.Data.Client.ContactPerson},
		{"client.number", rec.Data.Client.Number},
		{"terms.paymentMethod", rec.Data.Terms.PaymentMethod},
		{"terms.termsConditions", rec.Data.Terms.TermsConditions},
		{"calculations.totalOrder", money(res.Subtotal)},
		{"calculations.totalAfterDiscount", money(res.SubtotalAfterDiscount)},
		{"calculations.vatAmount", money(res.VATAmount)},
		{"calculations.taxAmount", money(res.TaxAmount)},
		{"calculations.shipping", money(res.Shipping)},
		{"calculations.amountDue", money(res.AmountDue)},
	}
	for _, s := range scalars {
		out = strings.Replace(out, "{{"+s.token+"}}", html.EscapeString(s.value), 1)
	}
	return out
}

// expandItems replaces the items section with one rendered copy of the
// inner template per item. Without items the section collapses to
// nothing; without section markers the template passes through.
func expandItems(tmpl string, items []Item) string {
	start := strings.Index(tmpl, itemsSectionOpen)
	if start < 0 {
		return tmpl
	}
	rest := tmpl[start+len(itemsSectionOpen):]
	end := strings.Index(rest, itemsSectionClose)
	if end < 0 {
		return tmpl
	}
	inner := rest[:end]

	var rows strings.Builder
	for _, it := range items {
		rows.WriteString(renderItemRow(inner, it))
	}
	return tmpl[:start] + rows.String() + rest[end+len(itemsSectionClose):]
}

func renderItemRow(inner string, it Item) string {
	row := inner
	fields := []struct {
		token string
		value string
	}{
		{"this.code", it.Code},
		{"this.type", it.Type},
		{"this.name", it.Name},
		{"this.color", it.Color},
		{"this.qty", quantity(it.Qty)},
		{"this.price", money(it.Price)},
		{"this.total", money(it.Total())},
	}
	for _, f := range fields {
		row = strings.ReplaceAll(row, "{{"+f.token+"}}", html.EscapeString(f.value))
	}
	return row
}

// DiscountsMarkup builds the literal markup block listing each discount
// line with its negated amount.
func DiscountsMarkup(lines []DiscountLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p><span>")
		b.WriteString(html.EscapeString(l.Title))
		b.WriteString(":</span> <span>-")
		b.WriteString(money(l.Amount))
		b.WriteString("</span></p>")
	}
	return b.String()
}

// FormatDate renders an ISO-like date string as DD-MM-YYYY. Strings
// that do not parse as dates pass through unchanged.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02-01-2006")
		}
	}
	return s
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
