package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"go.uber.org/zap"
)

// LineItemRepository handles line item database operations
type LineItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *sql.DB, logger *zap.Logger) *LineItemRepository {
	return &LineItemRepository{
		db:     db,
		logger: logger,
	}
}

const lineItemColumns = "id, invoice_id, description, quantity, unit_price, total_price, created_at"

func scanLineItem(row interface{ Scan(...interface{}) error }) (*models.LineItem, error) {
	var item models.LineItem
	var quantity, unitPrice, totalPrice string

	err := row.Scan(
		&item.ID,
		&item.InvoiceID,
		&item.Description,
		&quantity,
		&unitPrice,
		&totalPrice,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.Quantity, err = parseNumeric(quantity); err != nil {
		return nil, err
	}
	if item.UnitPrice, err = parseNumeric(unitPrice); err != nil {
		return nil, err
	}
	if item.TotalPrice, err = parseNumeric(totalPrice); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateBatch inserts all line items for a freshly created invoice. Quantity
// is stored with three fraction digits, prices with two.
func (r *LineItemRepository) CreateBatch(tx *sql.Tx, invoiceID int64, items []models.CreateLineItemInput) ([]models.LineItem, error) {
	query := `
		INSERT INTO line_items (invoice_id, description, quantity, unit_price, total_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	created := make([]models.LineItem, 0, len(items))
	now := time.Now().UTC()

	for _, input := range items {
		var result sql.Result
		var err error

		args := []interface{}{
			invoiceID,
			input.Description,
			quantityString(input.Quantity),
			moneyString(input.UnitPrice),
			moneyString(input.TotalPrice),
			now,
		}

		if tx != nil {
			result, err = tx.Exec(query, args...)
		} else {
			result, err = r.db.Exec(query, args...)
		}
		if err != nil {
			r.logger.Error("Failed to create line item", zap.Int64("invoice_id", invoiceID), zap.Error(err))
			return nil, fmt.Errorf("failed to create line item: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get last insert id: %w", err)
		}

		created = append(created, models.LineItem{
			ID:          id,
			InvoiceID:   invoiceID,
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			TotalPrice:  input.TotalPrice,
			CreatedAt:   now,
		})
	}

	return created, nil
}

// ListByInvoiceID returns all line items of one invoice. The result is an
// empty slice, never nil, when the invoice has none.
func (r *LineItemRepository) ListByInvoiceID(invoiceID int64) ([]models.LineItem, error) {
	rows, err := r.db.Query(
		"SELECT "+lineItemColumns+" FROM line_items WHERE invoice_id = ? ORDER BY id ASC",
		invoiceID,
	)
	if err != nil {
		r.logger.Error("Failed to list line items", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	items := []models.LineItem{}
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListByInvoiceIDs fetches line items for many invoices in one query and
// groups them by invoice id. Used for list hydration.
func (r *LineItemRepository) ListByInvoiceIDs(invoiceIDs []int64) (map[int64][]models.LineItem, error) {
	grouped := make(map[int64][]models.LineItem, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return grouped, nil
	}

	placeholders := make([]string, len(invoiceIDs))
	args := make([]interface{}, len(invoiceIDs))
	for i, id := range invoiceIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := "SELECT " + lineItemColumns + " FROM line_items WHERE invoice_id IN (" +
		strings.Join(placeholders, ", ") + ") ORDER BY id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list line items by invoice ids", zap.Error(err))
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		grouped[item.InvoiceID] = append(grouped[item.InvoiceID], *item)
	}
	return grouped, rows.Err()
}

// CountByInvoiceID returns the number of line items on one invoice
func (r *LineItemRepository) CountByInvoiceID(invoiceID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM line_items WHERE invoice_id = ?", invoiceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count line items: %w", err)
	}
	return n, nil
}
