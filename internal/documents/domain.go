package documents

import (
	"strings"
	"time"
)

// DocumentType distinguishes invoices from quotations.
type DocumentType string

const (
	TypeInvoice   DocumentType = "Invoice"
	TypeQuotation DocumentType = "Quotation"
)

// Details carries the document header fields.
type Details struct {
	DocumentType DocumentType `json:"documentType"`
	NumberPart1  string       `json:"numberPart1"`
	NumberPart2  string       `json:"numberPart2"`
	NumberPart3  string       `json:"numberPart3"`
	Date         string       `json:"date"`
}

// Number joins the up-to-three number parts with "-", dropping empty parts.
func (d Details) Number() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.NumberPart1, d.NumberPart2, d.NumberPart3} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// Type returns the document type, defaulting to Invoice.
func (d Details) Type() DocumentType {
	if d.DocumentType == TypeQuotation {
		return TypeQuotation
	}
	return TypeInvoice
}

// Client carries the recipient block of a document.
type Client struct {
	Company       string `json:"company"`
	Client        string `json:"client"`
	Project       string `json:"project"`
	Designer      string `json:"designer"`
	Area          string `json:"area"`
	Location      string `json:"location"`
	ContactPerson string `json:"contactPerson"`
	Number        string `json:"number"`
}

// Item is a single document line.
type Item struct {
	Code  string  `json:"code"`
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

// Total returns the derived line total.
func (i Item) Total() float64 {
	return i.Qty * i.Price
}

// Discount is one named deduction. Value is a dual-mode literal: a "%"
// suffix makes it a percentage of the subtotal, otherwise it is an
// absolute amount.
type Discount struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Totals configures the calculation for a document.
type Totals struct {
	Discounts []Discount `json:"discounts"`
	ApplyVAT  bool       `json:"applyVat"`
	ApplyTax  bool       `json:"applyTax"`
	Shipping  string     `json:"shipping"`
}

// Terms carries the payment method and conditions blocks.
type Terms struct {
	PaymentMethod   string `json:"paymentMethod"`
	TermsConditions string `json:"termsConditions"`
}

// Data is the structured body of a saved document.
type Data struct {
	Details Details `json:"invoiceDetails"`
	Client  Client  `json:"client"`
	Items   []Item  `json:"items"`
	Totals  Totals  `json:"totals"`
	Terms   Terms   `json:"terms"`
}

// Record is the persisted aggregate. Records are created whole, replaced
// whole on edit, and removed by explicit delete.
type Record struct {
	ID        string
	Name      string
	OwnerID   string
	Data      Data
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName composes the stored document name from the number and
// client fields.
func DisplayName(d Data) string {
	return d.Details.Number() + " - " + d.Client.Client
}
