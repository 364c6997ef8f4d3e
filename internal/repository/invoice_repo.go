package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"go.uber.org/zap"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `id, invoice_number, vendor_id, invoice_date, due_date,
	total_amount, status, file_path, original_filename, created_at, updated_at`

func scanInvoice(row interface{ Scan(...interface{}) error }) (*models.Invoice, error) {
	var inv models.Invoice
	var dueDate sql.NullTime
	var totalAmount string
	var status string
	var filePath, originalFilename sql.NullString

	err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.VendorID,
		&inv.InvoiceDate,
		&dueDate,
		&totalAmount,
		&status,
		&filePath,
		&originalFilename,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if filePath.Valid {
		inv.FilePath = &filePath.String
	}
	if originalFilename.Valid {
		inv.OriginalFilename = &originalFilename.String
	}
	inv.Status = models.InvoiceStatus(status)

	inv.TotalAmount, err = parseNumeric(totalAmount)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invoice row. The total amount is stored as a
// two-fraction-digit decimal string.
func (r *InvoiceRepository) Create(tx *sql.Tx, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			invoice_number, vendor_id, invoice_date, due_date, total_amount,
			status, file_path, original_filename, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	args := []interface{}{
		invoice.InvoiceNumber,
		invoice.VendorID,
		invoice.InvoiceDate,
		invoice.DueDate,
		moneyString(invoice.TotalAmount),
		string(invoice.Status),
		invoice.FilePath,
		invoice.OriginalFilename,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	invoice.ID = id
	return nil
}

// GetByID retrieves an invoice by id, or nil when it does not exist
func (r *InvoiceRepository) GetByID(id int64) (*models.Invoice, error) {
	row := r.db.QueryRow("SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id)

	invoice, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// List returns invoices matching the query filters, ordered by id so that
// pagination stays deterministic.
func (r *InvoiceRepository) List(query models.ListInvoicesQuery) ([]models.Invoice, error) {
	var conditions []string
	var args []interface{}

	if query.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*query.Status))
	}
	if query.VendorID != nil {
		conditions = append(conditions, "vendor_id = ?")
		args = append(args, *query.VendorID)
	}

	sqlQuery := "SELECT " + invoiceColumns + " FROM invoices"
	if len(conditions) > 0 {
		sqlQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	sqlQuery += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, query.Limit, query.Offset)

	rows, err := r.db.Query(sqlQuery, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, rows.Err()
}

// Update applies a merge-patch to an invoice: only present fields overwrite,
// and updated_at is always refreshed. A nil due_date with DueDateSet clears
// the stored value.
func (r *InvoiceRepository) Update(id int64, patch models.UpdateInvoiceInput) error {
	setClauses := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if patch.InvoiceNumber != nil {
		setClauses = append(setClauses, "invoice_number = ?")
		args = append(args, *patch.InvoiceNumber)
	}
	if patch.InvoiceDate != nil {
		setClauses = append(setClauses, "invoice_date = ?")
		args = append(args, *patch.InvoiceDate)
	}
	if patch.DueDateSet {
		setClauses = append(setClauses, "due_date = ?")
		args = append(args, patch.DueDate)
	}
	if patch.TotalAmount != nil {
		setClauses = append(setClauses, "total_amount = ?")
		args = append(args, moneyString(*patch.TotalAmount))
	}
	if patch.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*patch.Status))
	}

	args = append(args, id)
	query := "UPDATE invoices SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"

	if _, err := r.db.Exec(query, args...); err != nil {
		r.logger.Error("Failed to update invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// Delete removes an invoice row. Line items go with it through the foreign
// key cascade. Returns false when the id does not exist.
func (r *InvoiceRepository) Delete(id int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM invoices WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete invoice", zap.Int64("invoice_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete invoice: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of invoice rows
func (r *InvoiceRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return n, nil
}
