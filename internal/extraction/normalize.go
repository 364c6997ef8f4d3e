package extraction

import (
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tomhaynes/invoice-intake/internal/models"
	"github.com/tomhaynes/invoice-intake/pkg/utils"
	"go.uber.org/zap"
)

// candidateSchema is the structural contract a candidate payload must meet
// before any field-level normalization happens. A payload that fails it is
// absence, not an error. Positivity of amounts and the non-empty line item
// list are enforced here, so one bad line item rejects the whole payload.
const candidateSchema = `{
	"type": "object",
	"required": ["invoice_number", "vendor_name", "invoice_date", "total_amount", "line_items"],
	"properties": {
		"invoice_number": {"type": "string", "minLength": 1},
		"vendor_name": {"type": "string", "minLength": 1},
		"vendor_address": {"type": ["string", "null"]},
		"vendor_email": {"type": ["string", "null"]},
		"vendor_phone": {"type": ["string", "null"]},
		"invoice_date": {"type": "string", "minLength": 1},
		"due_date": {"type": ["string", "null"]},
		"total_amount": {"type": "number", "exclusiveMinimum": 0},
		"status": {"type": ["string", "null"]},
		"line_items": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["description", "quantity", "unit_price", "total_price"],
				"properties": {
					"description": {"type": "string", "minLength": 1},
					"quantity": {"type": "number", "exclusiveMinimum": 0},
					"unit_price": {"type": "number", "exclusiveMinimum": 0},
					"total_price": {"type": "number", "exclusiveMinimum": 0}
				}
			}
		}
	}
}`

var compiledCandidateSchema = jsonschema.MustCompileString("candidate.schema.json", candidateSchema)

// candidateDateLayouts are the formats accepted for extracted dates
var candidateDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

type candidateLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type candidatePayload struct {
	InvoiceNumber string              `json:"invoice_number"`
	VendorName    string              `json:"vendor_name"`
	VendorAddress *string             `json:"vendor_address"`
	VendorEmail   *string             `json:"vendor_email"`
	VendorPhone   *string             `json:"vendor_phone"`
	InvoiceDate   string              `json:"invoice_date"`
	DueDate       *string             `json:"due_date"`
	TotalAmount   float64             `json:"total_amount"`
	LineItems     []candidateLineItem `json:"line_items"`
}

// Normalizer validates candidate payloads and maps them into invoice
// proposals
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize turns a raw candidate payload into a proposed invoice, or nil
// when the payload is unusable. The asymmetry between dates is deliberate:
// an unparsable invoice_date rejects the payload, an unparsable due_date is
// silently dropped. The status is always forced to pending no matter what
// the payload hints.
func (n *Normalizer) Normalize(raw json.RawMessage, filePath string) *models.CreateInvoiceInput {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		n.logger.Info("Candidate payload is not well-formed JSON", zap.Error(err))
		return nil
	}

	if err := compiledCandidateSchema.Validate(generic); err != nil {
		n.logger.Info("Candidate payload failed schema validation", zap.Error(err))
		return nil
	}

	var candidate candidatePayload
	if err := json.Unmarshal(raw, &candidate); err != nil {
		n.logger.Info("Candidate payload failed decoding", zap.Error(err))
		return nil
	}

	invoiceDate, ok := parseCandidateDate(candidate.InvoiceDate)
	if !ok {
		n.logger.Info("Candidate invoice_date is unparsable",
			zap.String("invoice_date", candidate.InvoiceDate))
		return nil
	}

	var dueDate *time.Time
	if candidate.DueDate != nil {
		if parsed, ok := parseCandidateDate(*candidate.DueDate); ok {
			dueDate = &parsed
		} else {
			n.logger.Debug("Dropping unparsable due_date",
				zap.String("due_date", *candidate.DueDate))
		}
	}

	// An implausible email is dropped rather than rejecting the payload,
	// same policy as due_date: it is optional data.
	email := candidate.VendorEmail
	if email != nil && !utils.IsValidEmail(*email) {
		n.logger.Debug("Dropping invalid vendor email", zap.String("email", *email))
		email = nil
	}

	lineItems := make([]models.CreateLineItemInput, 0, len(candidate.LineItems))
	for _, item := range candidate.LineItems {
		lineItems = append(lineItems, models.CreateLineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}

	originalFilename := path.Base(filePath)

	return &models.CreateInvoiceInput{
		InvoiceNumber: candidate.InvoiceNumber,
		Vendor: models.CreateVendorInput{
			Name:    candidate.VendorName,
			Address: candidate.VendorAddress,
			Email:   email,
			Phone:   candidate.VendorPhone,
		},
		InvoiceDate:      invoiceDate,
		DueDate:          dueDate,
		TotalAmount:      candidate.TotalAmount,
		Status:           models.StatusPending,
		FilePath:         &filePath,
		OriginalFilename: &originalFilename,
		LineItems:        lineItems,
	}
}

func parseCandidateDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range candidateDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
