package storage

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tomhaynes/invoice-intake/internal/models"
)

func newTestIntake(t *testing.T) (*Intake, string) {
	t.Helper()
	baseDir := t.TempDir()
	store := NewLocalFileStorage(baseDir, zap.NewNop())
	return NewIntake(store, baseDir, zap.NewNop()), baseDir
}

func uploadInput(filename, contentType string, content []byte) models.UploadInvoiceInput {
	return models.UploadInvoiceInput{
		Filename:    filename,
		ContentType: contentType,
		FileData:    base64.StdEncoding.EncodeToString(content),
	}
}

func TestIntake_Upload(t *testing.T) {
	t.Run("stores content byte-identically", func(t *testing.T) {
		intake, _ := newTestIntake(t)
		content := []byte("%PDF-1.4 fake invoice body")

		result, err := intake.Upload(uploadInput("invoice.pdf", "application/pdf", content))
		require.NoError(t, err)
		assert.True(t, result.Success)

		stored, err := intake.store.ReadFile(intake.Resolve(result.FilePath))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(content, stored))
	})

	t.Run("key is timestamped, sanitized and typed by content type", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		result, err := intake.Upload(uploadInput("My Invoice #1.pdf", "application/pdf", []byte("x")))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(result.FilePath, "uploads/invoices/"))
		key := strings.TrimPrefix(result.FilePath, "uploads/invoices/")
		assert.Regexp(t, regexp.MustCompile(`^\d+_My_Invoice__1\.pdf$`), key)
	})

	t.Run("extension follows content type, not the filename", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		result, err := intake.Upload(uploadInput("evil.exe", "image/png", []byte("x")))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(result.FilePath, ".png"))
		assert.NotContains(t, result.FilePath, ".exe")
	})

	t.Run("content type check is case-insensitive", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		result, err := intake.Upload(uploadInput("scan.jpg", "IMAGE/JPEG", []byte("x")))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(result.FilePath, ".jpg"))
	})

	t.Run("rejects unsupported content types", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		_, err := intake.Upload(uploadInput("doc.docx",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("x")))
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		_, err := intake.Upload(models.UploadInvoiceInput{
			Filename:    "invoice.pdf",
			ContentType: "application/pdf",
			FileData:    "!!! not base64 !!!",
		})
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		_, err := intake.Upload(uploadInput("big.pdf", "application/pdf",
			make([]byte, MaxUploadSize+1)))
		require.Error(t, err)
		assert.True(t, models.IsValidationError(err))
	})

	t.Run("accepts an upload exactly at the size limit", func(t *testing.T) {
		intake, _ := newTestIntake(t)

		_, err := intake.Upload(uploadInput("big.pdf", "application/pdf",
			make([]byte, MaxUploadSize)))
		require.NoError(t, err)
	})
}

func TestSanitizeFilename(t *testing.T) {
	t.Run("strips extension and replaces unsafe characters", func(t *testing.T) {
		assert.Equal(t, "My_Invoice__1", SanitizeFilename("My Invoice #1.pdf"))
	})

	t.Run("drops directory components", func(t *testing.T) {
		assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	})

	t.Run("keeps safe names as-is", func(t *testing.T) {
		assert.Equal(t, "invoice_2025-01", SanitizeFilename("invoice_2025-01.pdf"))
	})

	t.Run("truncates to 100 characters", func(t *testing.T) {
		long := strings.Repeat("a", 150) + ".pdf"
		assert.Len(t, SanitizeFilename(long), 100)
	})
}

func TestLocalFileStorage_ValidatePath(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalFileStorage(baseDir, zap.NewNop())

	t.Run("accepts paths inside the base", func(t *testing.T) {
		assert.NoError(t, store.ValidatePath(filepath.Join(baseDir, "uploads", "a.pdf")))
	})

	t.Run("rejects traversal out of the base", func(t *testing.T) {
		assert.Error(t, store.ValidatePath(filepath.Join(baseDir, "..", "escape.pdf")))
	})

	t.Run("rejects sibling directories sharing the base prefix", func(t *testing.T) {
		assert.Error(t, store.ValidatePath(baseDir+"_evil/a.pdf"))
	})
}

func TestLocalFileStorage_SaveAndRead(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalFileStorage(baseDir, zap.NewNop())

	path := filepath.Join(baseDir, "nested", "deep", "file.bin")
	content := []byte{0x00, 0x01, 0xFF, 0xFE}

	require.NoError(t, store.SaveFile(path, content))

	got, err := store.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	t.Run("refuses to write outside the base", func(t *testing.T) {
		err := store.SaveFile(filepath.Join(baseDir, "..", "out.bin"), content)
		assert.Error(t, err)
	})
}
