package models

import (
	"encoding/json"
	"time"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "pending"
	StatusProcessed InvoiceStatus = "processed"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
)

// Valid reports whether s is one of the known statuses
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Vendor is the billing counterparty on an invoice. Vendors are created
// lazily during intake and never mutated or deleted afterwards.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Invoice is a normalized invoice record referencing exactly one vendor
type Invoice struct {
	ID               int64         `json:"id"`
	InvoiceNumber    string        `json:"invoice_number"`
	VendorID         int64         `json:"vendor_id"`
	InvoiceDate      time.Time     `json:"invoice_date"`
	DueDate          *time.Time    `json:"due_date"`
	TotalAmount      float64       `json:"total_amount"`
	Status           InvoiceStatus `json:"status"`
	FilePath         *string       `json:"file_path"`
	OriginalFilename *string       `json:"original_filename"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// LineItem is one billable entry on an invoice. Line items are created in
// bulk with their invoice and removed only by invoice deletion.
// TotalPrice is caller-supplied and deliberately not validated against
// Quantity * UnitPrice.
type LineItem struct {
	ID          int64     `json:"id"`
	InvoiceID   int64     `json:"invoice_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// InvoiceWithDetails is an invoice hydrated with its vendor and line items
type InvoiceWithDetails struct {
	Invoice
	Vendor    Vendor     `json:"vendor"`
	LineItems []LineItem `json:"line_items"`
}

// CreateVendorInput is the proposed vendor identity on an incoming invoice
type CreateVendorInput struct {
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// CreateLineItemInput is one line item on an incoming invoice
type CreateLineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// CreateInvoiceInput is a proposed invoice ready for persistence, either
// produced by the extraction adapter or supplied directly by a caller
type CreateInvoiceInput struct {
	InvoiceNumber    string                `json:"invoice_number"`
	Vendor           CreateVendorInput     `json:"vendor"`
	InvoiceDate      time.Time             `json:"invoice_date"`
	DueDate          *time.Time            `json:"due_date,omitempty"`
	TotalAmount      float64               `json:"total_amount"`
	Status           InvoiceStatus         `json:"status,omitempty"`
	FilePath         *string               `json:"file_path,omitempty"`
	OriginalFilename *string               `json:"original_filename,omitempty"`
	LineItems        []CreateLineItemInput `json:"line_items"`
}

// UpdateInvoiceInput is a merge-patch for an invoice: only present fields
// overwrite. DueDateSet distinguishes an omitted due_date from an explicit
// null, which clears the stored value.
type UpdateInvoiceInput struct {
	InvoiceNumber *string        `json:"invoice_number"`
	InvoiceDate   *time.Time     `json:"invoice_date"`
	DueDate       *time.Time     `json:"due_date"`
	DueDateSet    bool           `json:"-"`
	TotalAmount   *float64       `json:"total_amount"`
	Status        *InvoiceStatus `json:"status"`
}

// UnmarshalJSON records whether the due_date key was present at all, so a
// null can be told apart from an omission.
func (u *UpdateInvoiceInput) UnmarshalJSON(data []byte) error {
	type alias UpdateInvoiceInput
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*u = UpdateInvoiceInput(a)
	_, u.DueDateSet = keys["due_date"]
	return nil
}

// ListInvoicesQuery filters and paginates the invoice list. Filters combine
// with AND when both are given.
type ListInvoicesQuery struct {
	Status   *InvoiceStatus
	VendorID *int64
	Limit    int
	Offset   int
}

// UploadInvoiceInput is an uploaded source document, transport-encoded
type UploadInvoiceInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileData    string `json:"file_data"` // base64
}

// UploadResult is the stored location of an accepted upload
type UploadResult struct {
	FilePath string `json:"file_path"`
	Success  bool   `json:"success"`
}

// DeleteResult reports the outcome of an invoice deletion
type DeleteResult struct {
	Success   bool   `json:"success"`
	DeletedID *int64 `json:"deleted_id"`
}
