package extraction

import (
	"context"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"go.uber.org/zap"
)

// FileResolver maps a storage key to a readable local path
type FileResolver interface {
	Resolve(relPath string) string
}

// Service drives one extraction: reader invocation, then validation and
// normalization of the candidate payload.
type Service struct {
	reader     DocumentReader
	files      FileResolver
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewService creates a new extraction service
func NewService(reader DocumentReader, files FileResolver, logger *zap.Logger) *Service {
	return &Service{
		reader:     reader,
		files:      files,
		normalizer: NewNormalizer(logger),
		logger:     logger,
	}
}

// ProcessExtraction extracts a proposed invoice from a stored document.
// Returns (nil, nil) when the document yields no usable data; the caller
// should ask the user to retry or enter the invoice manually. An error means
// the capability itself failed (network, credentials), not the document.
func (s *Service) ProcessExtraction(ctx context.Context, filePath string) (*models.CreateInvoiceInput, error) {
	candidate, err := s.reader.Extract(ctx, s.files.Resolve(filePath))
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		s.logger.Info("Extraction produced no candidate", zap.String("file_path", filePath))
		return nil, nil
	}

	proposal := s.normalizer.Normalize(candidate, filePath)
	if proposal == nil {
		s.logger.Info("Candidate payload rejected", zap.String("file_path", filePath))
		return nil, nil
	}

	s.logger.Info("Extraction produced proposal",
		zap.String("file_path", filePath),
		zap.String("invoice_number", proposal.InvoiceNumber),
		zap.String("vendor", proposal.Vendor.Name),
		zap.Float64("total_amount", proposal.TotalAmount),
		zap.Int("line_items", len(proposal.LineItems)))

	return proposal, nil
}
