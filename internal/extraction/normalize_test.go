package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/models"
)

func validCandidate() map[string]interface{} {
	return map[string]interface{}{
		"invoice_number": "INV-001",
		"vendor_name":    "Acme Corp",
		"vendor_email":   "billing@acme.com",
		"invoice_date":   "2025-01-15",
		"due_date":       "2025-02-15",
		"total_amount":   250.5,
		"line_items": []map[string]interface{}{
			{"description": "Widgets", "quantity": 2, "unit_price": 100, "total_price": 200},
			{"description": "Shipping", "quantity": 1, "unit_price": 50.5, "total_price": 50.5},
		},
	}
}

func rawCandidate(t *testing.T, candidate map[string]interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(candidate)
	require.NoError(t, err)
	return raw
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(zap.NewNop())

	t.Run("maps a complete candidate into a proposal", func(t *testing.T) {
		proposal := n.Normalize(rawCandidate(t, validCandidate()), "uploads/invoices/123_scan.pdf")
		require.NotNil(t, proposal)

		assert.Equal(t, "INV-001", proposal.InvoiceNumber)
		assert.Equal(t, "Acme Corp", proposal.Vendor.Name)
		require.NotNil(t, proposal.Vendor.Email)
		assert.Equal(t, "billing@acme.com", *proposal.Vendor.Email)
		assert.True(t, proposal.InvoiceDate.Equal(time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)))
		require.NotNil(t, proposal.DueDate)
		assert.True(t, proposal.DueDate.Equal(time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, 250.5, proposal.TotalAmount)
		require.Len(t, proposal.LineItems, 2)
		assert.Equal(t, 50.5, proposal.LineItems[1].UnitPrice)

		require.NotNil(t, proposal.FilePath)
		assert.Equal(t, "uploads/invoices/123_scan.pdf", *proposal.FilePath)
		require.NotNil(t, proposal.OriginalFilename)
		assert.Equal(t, "123_scan.pdf", *proposal.OriginalFilename)
	})

	t.Run("status is always pending regardless of the payload hint", func(t *testing.T) {
		candidate := validCandidate()
		candidate["status"] = "paid"

		proposal := n.Normalize(rawCandidate(t, candidate), "scan.pdf")
		require.NotNil(t, proposal)
		assert.Equal(t, models.StatusPending, proposal.Status)
	})

	t.Run("unparsable due_date is dropped, not fatal", func(t *testing.T) {
		candidate := validCandidate()
		candidate["due_date"] = "sometime next month"

		proposal := n.Normalize(rawCandidate(t, candidate), "scan.pdf")
		require.NotNil(t, proposal)
		assert.Nil(t, proposal.DueDate)
	})

	t.Run("unparsable invoice_date rejects the payload", func(t *testing.T) {
		candidate := validCandidate()
		candidate["invoice_date"] = "mid January"

		assert.Nil(t, n.Normalize(rawCandidate(t, candidate), "scan.pdf"))
	})

	t.Run("invalid vendor email is dropped", func(t *testing.T) {
		candidate := validCandidate()
		candidate["vendor_email"] = "not-an-email"

		proposal := n.Normalize(rawCandidate(t, candidate), "scan.pdf")
		require.NotNil(t, proposal)
		assert.Nil(t, proposal.Vendor.Email)
	})

	t.Run("accepts several date formats", func(t *testing.T) {
		for _, value := range []string{
			"2025-01-15",
			"2025-01-15T10:30:00Z",
			"2025-01-15 10:30:00",
			"2025/01/15",
			"01/15/2025",
		} {
			candidate := validCandidate()
			candidate["invoice_date"] = value
			assert.NotNil(t, n.Normalize(rawCandidate(t, candidate), "scan.pdf"), "format %s", value)
		}
	})

	t.Run("one bad line item rejects the whole payload", func(t *testing.T) {
		cases := map[string]map[string]interface{}{
			"zero quantity":     {"description": "Widgets", "quantity": 0, "unit_price": 100, "total_price": 200},
			"negative price":    {"description": "Widgets", "quantity": 2, "unit_price": -1, "total_price": 200},
			"empty description": {"description": "", "quantity": 2, "unit_price": 100, "total_price": 200},
			"missing field":     {"description": "Widgets", "quantity": 2, "unit_price": 100},
		}
		for name, bad := range cases {
			t.Run(name, func(t *testing.T) {
				candidate := validCandidate()
				candidate["line_items"] = []map[string]interface{}{
					{"description": "Good", "quantity": 1, "unit_price": 10, "total_price": 10},
					bad,
				}
				assert.Nil(t, n.Normalize(rawCandidate(t, candidate), "scan.pdf"))
			})
		}
	})

	t.Run("rejects structurally broken payloads", func(t *testing.T) {
		cases := map[string]func(map[string]interface{}){
			"empty line items":      func(c map[string]interface{}) { c["line_items"] = []interface{}{} },
			"missing vendor name":   func(c map[string]interface{}) { delete(c, "vendor_name") },
			"missing invoice date":  func(c map[string]interface{}) { delete(c, "invoice_date") },
			"zero total amount":     func(c map[string]interface{}) { c["total_amount"] = 0 },
			"total amount as text":  func(c map[string]interface{}) { c["total_amount"] = "250.50" },
			"empty invoice number":  func(c map[string]interface{}) { c["invoice_number"] = "" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				candidate := validCandidate()
				mutate(candidate)
				assert.Nil(t, n.Normalize(rawCandidate(t, candidate), "scan.pdf"))
			})
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		assert.Nil(t, n.Normalize(json.RawMessage(`{"invoice_number":`), "scan.pdf"))
	})
}

type stubReader struct {
	payload json.RawMessage
	err     error
	gotPath string
}

func (r *stubReader) Extract(_ context.Context, filePath string) (json.RawMessage, error) {
	r.gotPath = filePath
	return r.payload, r.err
}

type prefixResolver struct{ prefix string }

func (p prefixResolver) Resolve(relPath string) string { return p.prefix + relPath }

func TestService_ProcessExtraction(t *testing.T) {
	t.Run("returns a proposal for a usable document", func(t *testing.T) {
		raw, err := json.Marshal(validCandidate())
		require.NoError(t, err)

		reader := &stubReader{payload: raw}
		svc := NewService(reader, prefixResolver{prefix: "/data/"}, zap.NewNop())

		proposal, err := svc.ProcessExtraction(context.Background(), "uploads/invoices/scan.pdf")
		require.NoError(t, err)
		require.NotNil(t, proposal)
		assert.Equal(t, "INV-001", proposal.InvoiceNumber)
		assert.Equal(t, "/data/uploads/invoices/scan.pdf", reader.gotPath)

		// The stored proposal keeps the storage key, not the resolved path.
		require.NotNil(t, proposal.FilePath)
		assert.Equal(t, "uploads/invoices/scan.pdf", *proposal.FilePath)
	})

	t.Run("no candidate is absence, not an error", func(t *testing.T) {
		svc := NewService(&stubReader{payload: nil}, prefixResolver{}, zap.NewNop())

		proposal, err := svc.ProcessExtraction(context.Background(), "scan.pdf")
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})

	t.Run("rejected candidate is absence, not an error", func(t *testing.T) {
		svc := NewService(&stubReader{payload: json.RawMessage(`{"nonsense": true}`)},
			prefixResolver{}, zap.NewNop())

		proposal, err := svc.ProcessExtraction(context.Background(), "scan.pdf")
		require.NoError(t, err)
		assert.Nil(t, proposal)
	})

	t.Run("reader failure surfaces as an error", func(t *testing.T) {
		svc := NewService(&stubReader{err: errors.New("api unreachable")},
			prefixResolver{}, zap.NewNop())

		proposal, err := svc.ProcessExtraction(context.Background(), "scan.pdf")
		require.Error(t, err)
		assert.Nil(t, proposal)
	})
}
