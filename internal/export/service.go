// Package export produces XLSX workbooks of invoice records for download
// into bookkeeping tools.
package export

import (
	"fmt"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"github.com/tomhaynes/invoice-intake/internal/service"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Invoices"

var headers = []string{
	"ID",
	"Invoice Number",
	"Vendor",
	"Status",
	"Invoice Date",
	"Due Date",
	"Total Amount",
	"Line Items",
	"Original Filename",
	"Created At",
}

// Service renders invoices into an XLSX workbook
type Service struct {
	invoices *service.InvoiceService
	logger   *zap.Logger
}

// NewService creates a new export service
func NewService(invoices *service.InvoiceService, logger *zap.Logger) *Service {
	return &Service{
		invoices: invoices,
		logger:   logger,
	}
}

// ExportInvoicesXLSX returns a workbook with one row per invoice matching
// the given filters. Pagination is handled internally; the export always
// covers every match.
func (s *Service) ExportInvoicesXLSX(status *models.InvoiceStatus, vendorID *int64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	total := 0
	query := models.ListInvoicesQuery{
		Status:   status,
		VendorID: vendorID,
		Limit:    100,
	}

	for {
		page, err := s.invoices.List(query)
		if err != nil {
			return nil, fmt.Errorf("failed to list invoices: %w", err)
		}

		for _, inv := range page {
			if err := s.writeRow(f, row, inv); err != nil {
				return nil, err
			}
			row++
		}
		total += len(page)

		if len(page) < query.Limit {
			break
		}
		query.Offset += query.Limit
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Exported invoices", zap.Int("count", total))
	return buf.Bytes(), nil
}

func (s *Service) writeRow(f *excelize.File, row int, inv models.InvoiceWithDetails) error {
	dueDate := ""
	if inv.DueDate != nil {
		dueDate = inv.DueDate.Format("2006-01-02")
	}
	originalFilename := ""
	if inv.OriginalFilename != nil {
		originalFilename = *inv.OriginalFilename
	}

	values := []interface{}{
		inv.ID,
		inv.InvoiceNumber,
		inv.Vendor.Name,
		string(inv.Status),
		inv.InvoiceDate.Format("2006-01-02"),
		dueDate,
		inv.TotalAmount,
		len(inv.LineItems),
		originalFilename,
		inv.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	return nil
}
