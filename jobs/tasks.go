package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/singleflight"

	"github.com/invoiceflow/invoiceflow/internal/documents"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeExportPDF is the task type for background document exports.
	TaskTypeExportPDF = "document:export_pdf"
)

// ExportPDFPayload identifies the document to export.
type ExportPDFPayload struct {
	DocumentID string `json:"documentId"`
}

// NewExportPDFTask constructs an Asynq task.
func NewExportPDFTask(payload ExportPDFPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExportPDF, data), nil
}

// ExportHandler processes TaskTypeExportPDF tasks: it loads the document,
// renders its markup, converts it to PDF and stores the result.
type ExportHandler struct {
	logger  *slog.Logger
	service *documents.Service
	exports documents.ExportStore
	pdf     documents.PDFRenderer
	renders singleflight.Group
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(logger *slog.Logger, service *documents.Service, exports documents.ExportStore, pdf documents.PDFRenderer) *ExportHandler {
	return &ExportHandler{logger: logger, service: service, exports: exports, pdf: pdf}
}

// HandleExportPDFTask runs one export.
func (h *ExportHandler) HandleExportPDFTask(ctx context.Context, t *asynq.Task) error {
	var payload ExportPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	rec, err := h.service.Get(ctx, payload.DocumentID)
	if err != nil {
		h.logger.Warn("export pdf: load document", slog.Any("error", err), slog.String("document_id", payload.DocumentID))
		return asynq.SkipRetry
	}

	// duplicate export tasks for the same document share one conversion
	result, err, _ := h.renders.Do(rec.ID, func() (interface{}, error) {
		markup, _ := h.service.Render(*rec)
		return h.pdf.RenderHTML(ctx, markup)
	})
	if err != nil {
		return err
	}
	pdf, _ := result.([]byte)

	if err := h.exports.SaveExport(ctx, rec.ID, pdf); err != nil {
		return err
	}
	h.logger.Info("export pdf: stored", slog.String("document_id", rec.ID), slog.Int("bytes", len(pdf)))
	return nil
}
