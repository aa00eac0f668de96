package documents

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
	"github.com/invoiceflow/invoiceflow/internal/view"
)

// PDFRenderer converts rendered document markup into a PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Enqueuer schedules background PDF exports.
type Enqueuer interface {
	EnqueueExportPDF(ctx context.Context, documentID string) error
}

// ExportStore persists and retrieves generated PDFs.
type ExportStore interface {
	SaveExport(ctx context.Context, documentID string, pdf []byte) error
	LatestExport(ctx context.Context, documentID string) ([]byte, time.Time, error)
}

// Handler manages document endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	exports   ExportStore
	pdf       PDFRenderer
	enqueuer  Enqueuer
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, exports ExportStore, pdf PDFRenderer, enqueuer Enqueuer, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		exports:   exports,
		pdf:       pdf,
		enqueuer:  enqueuer,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showBuilder)
	r.Get("/history", h.showHistory)
	r.Post("/documents", h.createDocument)
	r.Post("/documents/preview", h.previewDocument)
	r.Get("/documents/{id}", h.showDocument)
	r.Get("/documents/{id}/edit", h.showBuilderForDocument)
	r.Post("/documents/{id}", h.updateDocument)
	r.Post("/documents/{id}/delete", h.deleteDocument)
	r.Get("/documents/{id}/pdf", h.downloadPDF)
	r.Post("/documents/{id}/export", h.enqueueExport)
	r.Get("/documents/{id}/export", h.downloadExport)
	r.Post("/api/calculations", h.calculate)
}

type formErrors map[string]string

type documentForm struct {
	NumberPart1 string         `validate:"required"`
	ClientName  string         `validate:"required"`
	Items       []itemForm     `validate:"dive"`
	Discounts   []discountForm `validate:"dive"`
}

type itemForm struct {
	Name  string  `validate:"required"`
	Qty   float64 `validate:"min=1"`
	Price float64 `validate:"min=0"`
}

type discountForm struct {
	Title string `validate:"required"`
	Value string `validate:"required"`
}

// showBuilder shows the builder page with an empty document.
func (h *Handler) showBuilder(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/builder.html", map[string]any{
		"Document": Data{Items: []Item{{}}, Totals: Totals{Discounts: []Discount{}}},
		"Errors":   formErrors{},
	}, http.StatusOK)
}

// showBuilderForDocument loads an existing document into the builder.
func (h *Handler) showBuilderForDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("load document for edit", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/history", "error", "Document not found")
		return
	}

	h.render(w, r, "pages/builder.html", map[string]any{
		"DocumentID": rec.ID,
		"Document":   rec.Data,
		"Errors":     formErrors{},
	}, http.StatusOK)
}

// showHistory shows saved documents grouped by year and month.
func (h *Handler) showHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list documents", slog.Any("error", err))
		h.render(w, r, "pages/history.html", map[string]any{
			"Errors":  formErrors{"general": "Could not load documents"},
			"History": History{},
			"Count":   0,
		}, http.StatusInternalServerError)
		return
	}

	h.render(w, r, "pages/history.html", map[string]any{
		"Errors":  formErrors{},
		"History": Categorize(records),
		"Count":   len(records),
	}, http.StatusOK)
}

// showDocument renders a saved document read-only.
func (h *Handler) showDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get document", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/history", "error", "Document not found")
		return
	}

	markup, _ := h.service.Render(*rec)
	h.render(w, r, "pages/document.html", map[string]any{
		"Record": rec,
		"Markup": template.HTML(markup),
	}, http.StatusOK)
}

// createDocument saves a new document from the builder form.
func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	data := parseDocumentForm(r)
	if errs := h.validateForm(data); len(errs) > 0 {
		h.render(w, r, "pages/builder.html", map[string]any{
			"Document": data,
			"Errors":   errs,
		}, http.StatusBadRequest)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	ownerID := ""
	if sess != nil {
		ownerID = sess.ID
	}

	rec, err := h.service.Save(r.Context(), ownerID, data)
	if err != nil {
		h.logger.Error("save document", slog.Any("error", err))
		h.render(w, r, "pages/builder.html", map[string]any{
			"Document": data,
			"Errors":   formErrors{"general": "Could not save document"},
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/documents/"+rec.ID, "success", "Document saved")
}

// updateDocument overwrites an existing document with the submitted form.
func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	data := parseDocumentForm(r)
	if errs := h.validateForm(data); len(errs) > 0 {
		h.render(w, r, "pages/builder.html", map[string]any{
			"DocumentID": id,
			"Document":   data,
			"Errors":     errs,
		}, http.StatusBadRequest)
		return
	}

	if _, err := h.service.Update(r.Context(), id, data); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.redirectWithFlash(w, r, "/history", "error", "Document not found")
			return
		}
		h.logger.Error("update document", slog.Any("error", err), slog.String("id", id))
		h.render(w, r, "pages/builder.html", map[string]any{
			"DocumentID": id,
			"Document":   data,
			"Errors":     formErrors{"general": "Could not update document"},
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/documents/"+id, "success", "Document updated")
}

// deleteDocument removes a document.
func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete document", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/history", "error", "Could not delete document")
		return
	}
	h.redirectWithFlash(w, r, "/history", "success", "Document deleted")
}

// previewDocument renders unsaved form data as document markup.
func (h *Handler) previewDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	markup, _ := h.service.Preview(parseDocumentForm(r))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}

var pdfRenderGroup singleflight.Group

// renderPDF converts the document to PDF, collapsing concurrent requests for
// the same document into a single Gotenberg conversion.
func (h *Handler) renderPDF(ctx context.Context, rec *Record) ([]byte, error) {
	resultChan := pdfRenderGroup.DoChan(rec.ID, func() (interface{}, error) {
		markup, _ := h.service.Render(*rec)
		return h.pdf.RenderHTML(ctx, markup)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		pdf, _ := res.Val.([]byte)
		return pdf, res.Err
	}
}

// downloadPDF converts the rendered document to PDF synchronously.
func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/history", "error", "Document not found")
		return
	}

	pdf, err := h.renderPDF(r.Context(), rec)
	if err != nil {
		h.logger.Error("render pdf", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/documents/"+id, "error", "PDF generation failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdfFilename(rec.Name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// enqueueExport schedules a background PDF export for the document.
func (h *Handler) enqueueExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.redirectWithFlash(w, r, "/history", "error", "Document not found")
		return
	}
	if err := h.enqueuer.EnqueueExportPDF(r.Context(), id); err != nil {
		h.logger.Error("enqueue export", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/documents/"+id, "error", "Could not schedule export")
		return
	}
	h.redirectWithFlash(w, r, "/documents/"+id, "success", "Export scheduled")
}

// downloadExport serves the most recent stored PDF export.
func (h *Handler) downloadExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectWithFlash(w, r, "/history", "error", "Document not found")
		return
	}

	pdf, _, err := h.exports.LatestExport(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.redirectWithFlash(w, r, "/documents/"+id, "error", "No export available yet")
			return
		}
		h.logger.Error("load export", slog.Any("error", err), slog.String("id", id))
		h.redirectWithFlash(w, r, "/documents/"+id, "error", "Could not load export")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdfFilename(rec.Name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// pdfFilename builds an attachment filename from the record name, dropping
// characters that would break the quoted Content-Disposition value.
func pdfFilename(name string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r == '/' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		clean = "document"
	}
	return clean + ".pdf"
}

type calculationRequest struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

type calculationResponse struct {
	TotalOrder         string         `json:"totalOrder"`
	TotalDiscount      string         `json:"totalDiscount"`
	TotalAfterDiscount string         `json:"totalAfterDiscount"`
	VATAmount          string         `json:"vatAmount"`
	TaxAmount          string         `json:"taxAmount"`
	Shipping           string         `json:"shipping"`
	AmountDue          string         `json:"amountDue"`
	Discounts          []discountLine `json:"discounts"`
}

type discountLine struct {
	Title  string `json:"title"`
	Amount string `json:"amount"`
}

// calculate returns the derived totals for the posted items and totals
// configuration, formatted for display.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	res := Compute(req.Items, req.Totals)
	resp := calculationResponse{
		TotalOrder:         money(res.Subtotal),
		TotalDiscount:      money(res.TotalDiscount),
		TotalAfterDiscount: money(res.SubtotalAfterDiscount),
		VATAmount:          money(res.VATAmount),
		TaxAmount:          money(res.TaxAmount),
		Shipping:           money(res.Shipping),
		AmountDue:          money(res.AmountDue),
		Discounts:          make([]discountLine, 0, len(res.DiscountLines)),
	}
	for _, l := range res.DiscountLines {
		resp.Discounts = append(resp.Discounts, discountLine{Title: l.Title, Amount: money(l.Amount)})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) validateForm(data Data) formErrors {
	form := documentForm{
		NumberPart1: data.Details.NumberPart1,
		ClientName:  data.Client.Client,
	}
	for _, it := range data.Items {
		form.Items = append(form.Items, itemForm{Name: it.Name, Qty: it.Qty, Price: it.Price})
	}
	for _, d := range data.Totals.Discounts {
		form.Discounts = append(form.Discounts, discountForm{Title: d.Title, Value: d.Value})
	}

	errs := formErrors{}
	err := h.validator.Struct(form)
	if err == nil {
		return errs
	}
	for _, fieldErr := range err.(validator.ValidationErrors) {
		key := strings.TrimPrefix(fieldErr.StructNamespace(), "documentForm.")
		errs[key] = validationMessage(fieldErr)
	}
	return errs
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.StructField() {
	case "NumberPart1":
		return "Document number is required"
	case "ClientName":
		return "Client name is required"
	case "Name":
		return "Item name is required"
	case "Qty":
		return "Quantity must be at least 1"
	case "Price":
		return "Price cannot be negative"
	case "Title":
		return "Discount title is required"
	case "Value":
		return "Discount value is required"
	}
	return "Invalid value"
}

// parseDocumentForm maps the builder form into a document body. Item and
// discount fields arrive as parallel arrays, one entry per row.
func parseDocumentForm(r *http.Request) Data {
	var data Data
	data.Details = Details{
		DocumentType: DocumentType(r.PostFormValue("document_type")),
		NumberPart1:  r.PostFormValue("number_part1"),
		NumberPart2:  r.PostFormValue("number_part2"),
		NumberPart3:  r.PostFormValue("number_part3"),
		Date:         r.PostFormValue("date"),
	}
	data.Client = Client{
		Company:       r.PostFormValue("client_company"),
		Client:        r.PostFormValue("client_name"),
		Project:       r.PostFormValue("client_project"),
		Designer:      r.PostFormValue("client_designer"),
		Area:          r.PostFormValue("client_area"),
		Location:      r.PostFormValue("client_location"),
		ContactPerson: r.PostFormValue("client_contact_person"),
		Number:        r.PostFormValue("client_number"),
	}

	codes := r.PostForm["item_code"]
	types := r.PostForm["item_type"]
	names := r.PostForm["item_name"]
	colors := r.PostForm["item_color"]
	qtys := r.PostForm["item_qty"]
	prices := r.PostForm["item_price"]
	for i := range names {
		qty, _ := strconv.ParseFloat(formValueAt(qtys, i), 64)
		price, _ := strconv.ParseFloat(formValueAt(prices, i), 64)
		data.Items = append(data.Items, Item{
			Code:  formValueAt(codes, i),
			Type:  formValueAt(types, i),
			Name:  names[i],
			Color: formValueAt(colors, i),
			Qty:   qty,
			Price: price,
		})
	}

	titles := r.PostForm["discount_title"]
	values := r.PostForm["discount_value"]
	for i := range titles {
		data.Totals.Discounts = append(data.Totals.Discounts, Discount{
			Title: titles[i],
			Value: formValueAt(values, i),
		})
	}

	data.Totals.ApplyVAT = r.PostFormValue("apply_vat") == "on"
	data.Totals.ApplyTax = r.PostFormValue("apply_tax") == "on"
	data.Totals.Shipping = r.PostFormValue("shipping")

	data.Terms = Terms{
		PaymentMethod:   r.PostFormValue("payment_method"),
		TermsConditions: r.PostFormValue("terms_conditions"),
	}
	return data
}

func formValueAt(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "InvoiceFlow",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
