package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStorage is the content store for uploaded source documents
type FileStorage interface {
	// SaveFile durably writes content to the specified full path, creating
	// parent directories as needed. A read of the same path immediately
	// after returns byte-identical content.
	SaveFile(fullPath string, content []byte) error

	// ReadFile returns the stored content at fullPath
	ReadFile(fullPath string) ([]byte, error)

	// ValidatePath checks path security (no traversal, within base)
	ValidatePath(fullPath string) error
}

// LocalFileStorage implements FileStorage for the local filesystem
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// SaveFile writes content to the specified full path
func (s *LocalFileStorage) SaveFile(fullPath string, content []byte) error {
	if err := s.ValidatePath(fullPath); err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return nil
}

// ReadFile returns the stored content at fullPath
func (s *LocalFileStorage) ReadFile(fullPath string) ([]byte, error) {
	if err := s.ValidatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	// Path must start with base + separator or equal base; a plain prefix
	// check would let "/base_evil" through.
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
