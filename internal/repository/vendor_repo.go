package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"go.uber.org/zap"
)

// VendorRepository handles vendor database operations
type VendorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVendorRepository creates a new vendor repository
func NewVendorRepository(db *sql.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

const vendorColumns = "id, name, address, email, phone, created_at"

func scanVendor(row interface{ Scan(...interface{}) error }) (*models.Vendor, error) {
	var v models.Vendor
	var address, email, phone sql.NullString

	if err := row.Scan(&v.ID, &v.Name, &address, &email, &phone, &v.CreatedAt); err != nil {
		return nil, err
	}

	if address.Valid {
		v.Address = &address.String
	}
	if email.Valid {
		v.Email = &email.String
	}
	if phone.Valid {
		v.Phone = &phone.String
	}
	return &v, nil
}

// FindOrCreate resolves a proposed vendor identity to a canonical vendor
// row. A vendor matches when its name equals the proposed name, or, if an
// email is proposed, its email equals the proposed email. Ties break to the
// lowest id. On a match the stored fields win and the proposed ones are
// discarded; otherwise a new vendor is created.
//
// This is read-then-write: concurrent identical requests can create
// duplicate vendors. Accepted limitation for now.
func (r *VendorRepository) FindOrCreate(tx *sql.Tx, input models.CreateVendorInput) (*models.Vendor, error) {
	existing, err := r.findByNameOrEmail(tx, input.Name, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	vendor := &models.Vendor{
		Name:      input.Name,
		Address:   input.Address,
		Email:     input.Email,
		Phone:     input.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.create(tx, vendor); err != nil {
		return nil, err
	}

	r.logger.Info("Created vendor",
		zap.Int64("vendor_id", vendor.ID),
		zap.String("name", vendor.Name))
	return vendor, nil
}

func (r *VendorRepository) findByNameOrEmail(tx *sql.Tx, name string, email *string) (*models.Vendor, error) {
	query := "SELECT " + vendorColumns + " FROM vendors WHERE name = ?"
	args := []interface{}{name}

	if email != nil {
		query += " OR email = ?"
		args = append(args, *email)
	}

	// Lowest id wins so resolution is deterministic when several rows match.
	query += " ORDER BY id ASC LIMIT 1"

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRow(query, args...)
	} else {
		row = r.db.QueryRow(query, args...)
	}

	vendor, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up vendor", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to look up vendor: %w", err)
	}
	return vendor, nil
}

func (r *VendorRepository) create(tx *sql.Tx, vendor *models.Vendor) error {
	query := `
		INSERT INTO vendors (name, address, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, vendor.Name, vendor.Address, vendor.Email, vendor.Phone, vendor.CreatedAt)
	} else {
		result, err = r.db.Exec(query, vendor.Name, vendor.Address, vendor.Email, vendor.Phone, vendor.CreatedAt)
	}
	if err != nil {
		r.logger.Error("Failed to create vendor", zap.Error(err))
		return fmt.Errorf("failed to create vendor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	vendor.ID = id
	return nil
}

// GetByID retrieves a vendor by id, or nil when it does not exist
func (r *VendorRepository) GetByID(id int64) (*models.Vendor, error) {
	row := r.db.QueryRow("SELECT "+vendorColumns+" FROM vendors WHERE id = ?", id)

	vendor, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get vendor", zap.Int64("vendor_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return vendor, nil
}

// List returns all vendors ordered by name ascending
func (r *VendorRepository) List() ([]models.Vendor, error) {
	rows, err := r.db.Query("SELECT " + vendorColumns + " FROM vendors ORDER BY name ASC")
	if err != nil {
		r.logger.Error("Failed to list vendors", zap.Error(err))
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, *vendor)
	}
	return vendors, rows.Err()
}

// Count returns the number of vendor rows
func (r *VendorRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM vendors").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vendors: %w", err)
	}
	return n, nil
}
