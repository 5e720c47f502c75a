package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docchat-service/internal/logger"
	"docchat-service/models"

	"github.com/google/uuid"
)

// UploadFile is one file of an upload request.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// DocumentCatalog records uploads outside the filesystem.
type DocumentCatalog interface {
	RecordUpload(ctx context.Context, record models.DocumentRecord) error
}

// DocumentStorage keeps uploaded files under <baseDir>/<tenant>/.
// Uploads accumulate; a file with an existing name replaces the old one.
type DocumentStorage struct {
	baseDir     string
	tempDir     string
	maxFileSize int64
	catalog     DocumentCatalog
}

// NewDocumentStorage creates a document storage rooted at baseDir.
// catalog may be nil.
func NewDocumentStorage(baseDir string, maxFileSize int64, catalog DocumentCatalog) (*DocumentStorage, error) {
	tempDir := filepath.Join(baseDir, ".incoming")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, &models.StorageError{Op: "mkdir", Path: tempDir, Err: err}
	}

	return &DocumentStorage{
		baseDir:     baseDir,
		tempDir:     tempDir,
		maxFileSize: maxFileSize,
		catalog:     catalog,
	}, nil
}

// Dir returns the tenant's document directory.
func (s *DocumentStorage) Dir(tenantID string) string {
	return filepath.Join(s.baseDir, tenantID)
}

// BaseDir returns the root holding every tenant directory.
func (s *DocumentStorage) BaseDir() string {
	return s.baseDir
}

// Save validates and stores files for a tenant. Every name is checked
// before anything is written.
func (s *DocumentStorage) Save(ctx context.Context, tenantID string, files []UploadFile) ([]models.DocumentRecord, error) {
	if err := models.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", models.ErrInvalidInput)
	}

	names := make([]string, len(files))
	for i, f := range files {
		name, err := sanitizeFilename(f.Name)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}

	tenantDir := s.Dir(tenantID)
	if err := os.MkdirAll(tenantDir, 0755); err != nil {
		return nil, &models.StorageError{Op: "mkdir", Path: tenantDir, Err: err}
	}

	records := make([]models.DocumentRecord, 0, len(files))
	for i, f := range files {
		record, err := s.store(tenantDir, names[i], f.Reader)
		if err != nil {
			return records, err
		}
		record.TenantID = tenantID
		records = append(records, *record)

		logger.Info("Document stored", "tenant_id", tenantID, "filename", record.Filename, "size", record.Size)

		if s.catalog != nil {
			if err := s.catalog.RecordUpload(ctx, *record); err != nil {
				return records, &models.StorageError{Op: "catalog", Path: record.Filename, Err: err}
			}
		}
	}

	return records, nil
}

// store streams r into a temp file and renames it into place.
func (s *DocumentStorage) store(tenantDir, name string, r io.Reader) (*models.DocumentRecord, error) {
	tempPath := filepath.Join(s.tempDir, uuid.NewString()+".tmp")
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return nil, &models.StorageError{Op: "create", Path: tempPath, Err: err}
	}
	defer os.Remove(tempPath)

	hasher := sha256.New()
	limit := s.maxFileSize
	if limit <= 0 {
		limit = 1<<63 - 1
	}
	size, err := io.Copy(io.MultiWriter(tempFile, hasher), io.LimitReader(r, limit+1))
	closeErr := tempFile.Close()
	if err != nil {
		return nil, &models.StorageError{Op: "write", Path: name, Err: err}
	}
	if closeErr != nil {
		return nil, &models.StorageError{Op: "close", Path: name, Err: closeErr}
	}
	if size > limit {
		return nil, fmt.Errorf("%w: %s exceeds the %d byte limit", models.ErrInvalidInput, name, s.maxFileSize)
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrInvalidInput, name)
	}

	finalPath := filepath.Join(tenantDir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, &models.StorageError{Op: "rename", Path: finalPath, Err: err}
	}

	return &models.DocumentRecord{
		Filename:   name,
		SHA256:     hex.EncodeToString(hasher.Sum(nil)),
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// sanitizeFilename strips directories and rejects names the loader would skip.
func sanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", models.ErrInvalidInput, name)
	}
	if !SupportedExtension(base) {
		return "", fmt.Errorf("%w: unsupported file type %q", models.ErrInvalidInput, filepath.Ext(base))
	}
	return base, nil
}
