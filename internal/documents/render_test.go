package documents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const miniTemplate = `<title>{{documentType}}</title>
<div class="invoice-container {{themeClass}}">
<p>{{documentType}} No: {{invoice.number}}</p>
<p>Date: {{invoice.date}}</p>
<p>Client: {{client.client}}</p>
<tbody>
{{#each items}}<tr><td>{{this.name}}</td><td>{{this.qty}}</td><td>{{this.price}}</td><td>{{this.total}}</td></tr>
{{/each}}</tbody>
<p>Total order: {{calculations.totalOrder}}</p>
{{{calculations.discountsHtml}}}
<p>Amount due: {{calculations.amountDue}}</p>
</div>`

func sampleRecord() Record {
	return Record{
		Data: Data{
			Details: Details{
				DocumentType: TypeInvoice,
				NumberPart1:  "A12",
				NumberPart2:  "03",
				NumberPart3:  "2024",
				Date:         "2024-03-05",
			},
			Client: Client{Client: "Laila"},
			Items: []Item{
				{Name: "Fabric", Qty: 2, Price: 30},
			},
		},
	}
}

func TestRenderHTMLScalars(t *testing.T) {
	rec := sampleRecord()
	res := Compute(rec.Data.Items, rec.Data.Totals)
	out := RenderHTML(miniTemplate, rec, res)

	assert.Contains(t, out, "Invoice No: A12-03-2024")
	assert.Contains(t, out, "Date: 05-03-2024")
	assert.Contains(t, out, "Client: Laila")
	assert.Contains(t, out, "Total order: 60.00")
	assert.Contains(t, out, "Amount due: 60.00")
	assert.NotContains(t, out, "{{invoice.number}}")
}

func TestRenderHTMLDocumentTypeGlobal(t *testing.T) {
	rec := sampleRecord()
	out := RenderHTML(miniTemplate, rec, Result{})

	assert.Equal(t, 2, strings.Count(out, "Invoice"))
	assert.NotContains(t, out, "{{documentType}}")
}

func TestRenderHTMLQuotationTheme(t *testing.T) {
	rec := sampleRecord()
	rec.Data.Details.DocumentType = TypeQuotation
	out := RenderHTML(miniTemplate, rec, Result{})

	assert.Contains(t, out, `class="invoice-container quotation-theme"`)
	assert.Contains(t, out, "Quotation No:")
}

func TestRenderHTMLDefaultsToInvoice(t *testing.T) {
	rec := sampleRecord()
	rec.Data.Details.DocumentType = ""
	out := RenderHTML(miniTemplate, rec, Result{})

	assert.Contains(t, out, "Invoice No:")
	assert.Contains(t, out, `class="invoice-container "`)
}

func TestRenderHTMLItemRows(t *testing.T) {
	rec := sampleRecord()
	rec.Data.Items = []Item{
		{Name: "Fabric", Qty: 2, Price: 30},
		{Name: "Curtain", Qty: 1.5, Price: 40},
	}
	res := Compute(rec.Data.Items, rec.Data.Totals)
	out := RenderHTML(miniTemplate, rec, res)

	assert.Contains(t, out, "<td>Fabric</td><td>2</td><td>30.00</td><td>60.00</td>")
	assert.Contains(t, out, "<td>Curtain</td><td>1.5</td><td>40.00</td><td>60.00</td>")
	assert.NotContains(t, out, "{{#each items}}")
	assert.NotContains(t, out, "{{/each}}")
}

func TestRenderHTMLNoItems(t *testing.T) {
	rec := sampleRecord()
	rec.Data.Items = nil
	out := RenderHTML(miniTemplate, rec, Result{})

	assert.NotContains(t, out, "<tr>")
	assert.Contains(t, out, "<tbody>\n</tbody>")
}

func TestRenderHTMLDiscountBlock(t *testing.T) {
	rec := sampleRecord()
	res := Result{DiscountLines: []DiscountLine{
		{Title: "Seasonal", Amount: 20},
		{Title: "Voucher", Amount: 5.5},
	}}
	out := RenderHTML(miniTemplate, rec, res)

	assert.Contains(t, out, "<p><span>Seasonal:</span> <span>-20.00</span></p>")
	assert.Contains(t, out, "<p><span>Voucher:</span> <span>-5.50</span></p>")
	assert.NotContains(t, out, "{{{calculations.discountsHtml}}}")
}

func TestRenderHTMLEscapesValues(t *testing.T) {
	rec := sampleRecord()
	rec.Data.Client.Client = `<script>alert("x")</script>`
	out := RenderHTML(miniTemplate, rec, Result{})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestRenderHTMLUnknownTokenVerbatim(t *testing.T) {
	out := RenderHTML("<p>{{not.a.token}}</p>", sampleRecord(), Result{})
	assert.Equal(t, "<p>{{not.a.token}}</p>", out)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "05-03-2024", FormatDate("2024-03-05"))
	assert.Equal(t, "31-12-2023", FormatDate("2023-12-31T10:30:00Z"))
	assert.Equal(t, "not-a-date", FormatDate("not-a-date"))
	assert.Equal(t, "", FormatDate(""))
}

func TestDetailsNumber(t *testing.T) {
	d := Details{NumberPart1: "A", NumberPart2: "", NumberPart3: "03"}
	assert.Equal(t, "A-03", d.Number())

	d = Details{}
	assert.Equal(t, "", d.Number())

	d = Details{NumberPart1: "INV", NumberPart2: "07", NumberPart3: "2025"}
	assert.Equal(t, "INV-07-2025", d.Number())
}

func TestDiscountsMarkupEscapesTitle(t *testing.T) {
	markup := DiscountsMarkup([]DiscountLine{{Title: "<b>Bold</b>", Amount: 1}})
	require.NotContains(t, markup, "<b>")
	assert.Contains(t, markup, "&lt;b&gt;Bold&lt;/b&gt;")
}
