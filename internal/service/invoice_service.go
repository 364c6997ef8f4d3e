// Package service implements the invoice intake and bookkeeping operations
// on top of the repositories: transactional creation with vendor resolution,
// hydrated reads, merge-patch updates and cascading deletion.
package service

import (
	"database/sql"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"github.com/tomhaynes/invoice-intake/internal/repository"
	"github.com/tomhaynes/invoice-intake/pkg/database"
	"github.com/tomhaynes/invoice-intake/pkg/utils"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// InvoiceService owns the invoice lifecycle
type InvoiceService struct {
	db        *database.DB
	vendors   *repository.VendorRepository
	invoices  *repository.InvoiceRepository
	lineItems *repository.LineItemRepository
	logger    *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	db *database.DB,
	vendors *repository.VendorRepository,
	invoices *repository.InvoiceRepository,
	lineItems *repository.LineItemRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		db:        db,
		vendors:   vendors,
		invoices:  invoices,
		lineItems: lineItems,
		logger:    logger,
	}
}

// Create persists a proposed invoice as one atomic unit: vendor resolution,
// the invoice row, and all line item rows. Any failure rolls back every
// effect. Validation runs before the transaction starts, so a rejected input
// writes nothing at all.
func (s *InvoiceService) Create(input models.CreateInvoiceInput) (*models.InvoiceWithDetails, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = models.StatusPending
	}

	var vendor *models.Vendor
	var invoice models.Invoice
	var items []models.LineItem

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		var err error

		vendor, err = s.vendors.FindOrCreate(tx, input.Vendor)
		if err != nil {
			return err
		}

		invoice = models.Invoice{
			InvoiceNumber:    input.InvoiceNumber,
			VendorID:         vendor.ID,
			InvoiceDate:      input.InvoiceDate,
			DueDate:          input.DueDate,
			TotalAmount:      input.TotalAmount,
			Status:           input.Status,
			FilePath:         input.FilePath,
			OriginalFilename: input.OriginalFilename,
		}
		if err := s.invoices.Create(tx, &invoice); err != nil {
			return err
		}

		items, err = s.lineItems.CreateBatch(tx, invoice.ID, input.LineItems)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created invoice",
		zap.Int64("invoice_id", invoice.ID),
		zap.Int64("vendor_id", vendor.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("line_items", len(items)))

	return &models.InvoiceWithDetails{
		Invoice:   invoice,
		Vendor:    *vendor,
		LineItems: items,
	}, nil
}

// List returns hydrated invoices matching the filters. Filters combine with
// AND; no match is an empty list, never an error.
func (s *InvoiceService) List(query models.ListInvoicesQuery) ([]models.InvoiceWithDetails, error) {
	if query.Limit == 0 {
		query.Limit = defaultListLimit
	}
	if query.Limit < 0 || query.Limit > maxListLimit {
		return nil, models.NewValidationError("limit must be between 1 and %d", maxListLimit)
	}
	if query.Offset < 0 {
		return nil, models.NewValidationError("offset must not be negative")
	}
	if query.Status != nil && !query.Status.Valid() {
		return nil, models.NewValidationError("invalid status: %s", *query.Status)
	}

	invoices, err := s.invoices.List(query)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return []models.InvoiceWithDetails{}, nil
	}

	invoiceIDs := make([]int64, len(invoices))
	for i, inv := range invoices {
		invoiceIDs[i] = inv.ID
	}
	itemsByInvoice, err := s.lineItems.ListByInvoiceIDs(invoiceIDs)
	if err != nil {
		return nil, err
	}

	vendorCache := map[int64]*models.Vendor{}
	hydrated := make([]models.InvoiceWithDetails, 0, len(invoices))
	for _, inv := range invoices {
		vendor, ok := vendorCache[inv.VendorID]
		if !ok {
			vendor, err = s.vendors.GetByID(inv.VendorID)
			if err != nil {
				return nil, err
			}
			vendorCache[inv.VendorID] = vendor
		}

		items := itemsByInvoice[inv.ID]
		if items == nil {
			items = []models.LineItem{}
		}

		hydrated = append(hydrated, models.InvoiceWithDetails{
			Invoice:   inv,
			Vendor:    *vendor,
			LineItems: items,
		})
	}
	return hydrated, nil
}

// GetByID returns one hydrated invoice, or nil when the id does not exist
func (s *InvoiceService) GetByID(id int64) (*models.InvoiceWithDetails, error) {
	invoice, err := s.invoices.GetByID(id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, nil
	}
	return s.hydrate(invoice)
}

// Update applies a merge-patch to an invoice and returns the hydrated
// result, or nil when the id does not exist. Line items are untouched;
// updated_at is refreshed even when no business field changed.
func (s *InvoiceService) Update(id int64, patch models.UpdateInvoiceInput) (*models.InvoiceWithDetails, error) {
	if err := validateUpdateInput(patch); err != nil {
		return nil, err
	}

	existing, err := s.invoices.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if err := s.invoices.Update(id, patch); err != nil {
		return nil, err
	}

	s.logger.Info("Updated invoice", zap.Int64("invoice_id", id))

	updated, err := s.invoices.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.hydrate(updated)
}

// Delete removes an invoice and all its line items. The vendor and every
// other invoice stay untouched. A missing id reports success=false with a
// null deleted id, not an error.
func (s *InvoiceService) Delete(id int64) (models.DeleteResult, error) {
	deleted, err := s.invoices.Delete(id)
	if err != nil {
		return models.DeleteResult{}, err
	}
	if !deleted {
		return models.DeleteResult{Success: false, DeletedID: nil}, nil
	}

	s.logger.Info("Deleted invoice", zap.Int64("invoice_id", id))
	return models.DeleteResult{Success: true, DeletedID: &id}, nil
}

// ListVendors returns all vendors ordered by name ascending
func (s *InvoiceService) ListVendors() ([]models.Vendor, error) {
	return s.vendors.List()
}

func (s *InvoiceService) hydrate(invoice *models.Invoice) (*models.InvoiceWithDetails, error) {
	vendor, err := s.vendors.GetByID(invoice.VendorID)
	if err != nil {
		return nil, err
	}

	items, err := s.lineItems.ListByInvoiceID(invoice.ID)
	if err != nil {
		return nil, err
	}

	return &models.InvoiceWithDetails{
		Invoice:   *invoice,
		Vendor:    *vendor,
		LineItems: items,
	}, nil
}

// validateCreateInput rejects a proposed invoice before anything is
// written. The empty line item list is checked first: vendor resolution must
// not even be attempted for an invoice that can never be created.
func validateCreateInput(input models.CreateInvoiceInput) error {
	if len(input.LineItems) == 0 {
		return models.NewValidationError("at least one line item is required")
	}
	for i, item := range input.LineItems {
		if item.Description == "" {
			return models.NewValidationError("line item %d: description is required", i+1)
		}
		if item.Quantity <= 0 {
			return models.NewValidationError("line item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice <= 0 {
			return models.NewValidationError("line item %d: unit price must be positive", i+1)
		}
		if item.TotalPrice <= 0 {
			return models.NewValidationError("line item %d: total price must be positive", i+1)
		}
	}

	if input.InvoiceNumber == "" {
		return models.NewValidationError("invoice number is required")
	}
	if input.Vendor.Name == "" {
		return models.NewValidationError("vendor name is required")
	}
	if input.Vendor.Email != nil {
		if err := utils.ValidateEmail(*input.Vendor.Email); err != nil {
			return models.NewValidationError("vendor email: %v", err)
		}
	}
	if input.InvoiceDate.IsZero() {
		return models.NewValidationError("invoice date is required")
	}
	if input.TotalAmount <= 0 {
		return models.NewValidationError("total amount must be positive")
	}
	if input.Status != "" && !input.Status.Valid() {
		return models.NewValidationError("invalid status: %s", input.Status)
	}
	return nil
}

func validateUpdateInput(patch models.UpdateInvoiceInput) error {
	if patch.InvoiceNumber != nil && *patch.InvoiceNumber == "" {
		return models.NewValidationError("invoice number must not be empty")
	}
	if patch.TotalAmount != nil && *patch.TotalAmount <= 0 {
		return models.NewValidationError("total amount must be positive")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return models.NewValidationError("invalid status: %s", *patch.Status)
	}
	return nil
}
