package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/export"
	"github.com/tomhaynes/invoice-intake/internal/extraction"
	"github.com/tomhaynes/invoice-intake/internal/models"
	"github.com/tomhaynes/invoice-intake/internal/service"
	"github.com/tomhaynes/invoice-intake/internal/storage"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoices  *service.InvoiceService
	intake    *storage.Intake
	extractor *extraction.Service
	exporter  *export.Service
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	invoices *service.InvoiceService,
	intake *storage.Intake,
	extractor *extraction.Service,
	exporter *export.Service,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		invoices:  invoices,
		intake:    intake,
		extractor: extractor,
		exporter:  exporter,
		logger:    logger,
	}
}

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondError(c *gin.Context, err error) {
	if models.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
}

// HealthCheck reports service liveness
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// UploadInvoice accepts a base64-encoded source document and stores it
func (h *Handlers) UploadInvoice(c *gin.Context) {
	var input models.UploadInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.intake.Upload(input)
	if err != nil {
		h.logger.Warn("Upload rejected", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ExtractInvoice runs extraction on a stored document. A failed extraction
// is a normal outcome: the response carries a null proposal and the caller
// falls back to manual entry.
func (h *Handlers) ExtractInvoice(c *gin.Context) {
	var input struct {
		FilePath string `json:"file_path"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.FilePath == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file_path is required"})
		return
	}

	proposal, err := h.extractor.ProcessExtraction(c.Request.Context(), input.FilePath)
	if err != nil {
		h.logger.Error("Extraction failed", zap.String("file_path", input.FilePath), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"proposal": proposal}})
}

// CreateInvoice persists a confirmed invoice proposal
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var input models.CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	invoice, err := h.invoices.Create(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: invoice})
}

// ListInvoices returns hydrated invoices with optional status / vendor_id
// filters and limit / offset pagination
func (h *Handlers) ListInvoices(c *gin.Context) {
	query, ok := h.parseListQuery(c)
	if !ok {
		return
	}

	invoices, err := h.invoices.List(query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// ExportInvoices streams an XLSX workbook of all matching invoices
func (h *Handlers) ExportInvoices(c *gin.Context) {
	query, ok := h.parseListQuery(c)
	if !ok {
		return
	}

	workbook, err := h.exporter.ExportInvoicesXLSX(query.Status, query.VendorID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "invoices_" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		workbook)
}

// GetInvoice returns one hydrated invoice
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if invoice == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// UpdateInvoice applies a merge-patch to an invoice
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var patch models.UpdateInvoiceInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	invoice, err := h.invoices.Update(id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	if invoice == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: invoice})
}

// DeleteInvoice removes an invoice and its line items
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.invoices.Delete(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListVendors returns all vendors ordered by name
func (h *Handlers) ListVendors(c *gin.Context) {
	vendors, err := h.invoices.ListVendors()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: vendors})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid invoice id"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) parseListQuery(c *gin.Context) (models.ListInvoicesQuery, bool) {
	var query models.ListInvoicesQuery

	if raw := c.Query("status"); raw != "" {
		status := models.InvoiceStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid status: " + raw})
			return query, false
		}
		query.Status = &status
	}
	if raw := c.Query("vendor_id"); raw != "" {
		vendorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || vendorID <= 0 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid vendor_id: " + raw})
			return query, false
		}
		query.VendorID = &vendorID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid limit: " + raw})
			return query, false
		}
		query.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid offset: " + raw})
			return query, false
		}
		query.Offset = offset
	}

	return query, true
}
