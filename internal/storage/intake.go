package storage

import (
	"encoding/base64"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tomhaynes/invoice-intake/internal/models"
	"go.uber.org/zap"
)

// MaxUploadSize is the upper bound on a decoded upload, 10 MiB
const MaxUploadSize = 10 * 1024 * 1024

// allowedContentTypes maps accepted content types to the extension the
// stored file gets. The extension always comes from the content type, never
// from the original filename, so a spoofed filename cannot change the type.
var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Intake validates uploaded invoice documents and stores them in the
// content store under a timestamp-prefixed key.
type Intake struct {
	store   FileStorage
	baseDir string
	logger  *zap.Logger
}

// NewIntake creates a new upload intake over the given content store.
// Returned file paths are relative to baseDir.
func NewIntake(store FileStorage, baseDir string, logger *zap.Logger) *Intake {
	return &Intake{
		store:   store,
		baseDir: baseDir,
		logger:  logger,
	}
}

// Upload validates and stores one uploaded document, returning its storage
// key. No partial write survives a validation failure: all checks run before
// the file is touched.
func (s *Intake) Upload(input models.UploadInvoiceInput) (*models.UploadResult, error) {
	contentType := strings.ToLower(input.ContentType)
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, models.NewValidationError(
			"unsupported file type: %s (allowed: pdf, jpeg, png, gif)", input.ContentType)
	}

	content, err := base64.StdEncoding.DecodeString(input.FileData)
	if err != nil {
		return nil, models.NewValidationError("file data is not valid base64: %v", err)
	}

	if len(content) > MaxUploadSize {
		return nil, models.NewValidationError(
			"file size exceeds 10MB limit: %dMB", len(content)/1024/1024)
	}

	key := fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), SanitizeFilename(input.Filename), ext)
	relPath := path.Join("uploads", "invoices", key)

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(relPath))
	if err := s.store.SaveFile(fullPath, content); err != nil {
		return nil, err
	}

	s.logger.Info("Stored uploaded invoice",
		zap.String("file_path", relPath),
		zap.String("content_type", contentType),
		zap.Int("size", len(content)))

	return &models.UploadResult{
		FilePath: relPath,
		Success:  true,
	}, nil
}

// Resolve turns a storage key returned by Upload back into an absolute path
func (s *Intake) Resolve(relPath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(relPath))
}

// SanitizeFilename strips the extension, replaces every character outside
// [A-Za-z0-9_-] with underscores and truncates to 100 characters.
func SanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
