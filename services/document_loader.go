package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"docchat-service/internal/logger"
	"docchat-service/models"

	"github.com/ledongthuc/pdf"
)

var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// SupportedExtension reports whether the loader can read the named file.
func SupportedExtension(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// DocumentLoader turns a tenant's stored files into chunks.
type DocumentLoader struct {
	baseDir string
}

// NewDocumentLoader creates a loader reading from <baseDir>/<tenant>.
func NewDocumentLoader(baseDir string) *DocumentLoader {
	return &DocumentLoader{baseDir: baseDir}
}

// Load reads every supported file of the tenant in name order. PDFs
// produce one chunk per non-blank page; text files produce one chunk.
func (l *DocumentLoader) Load(ctx context.Context, tenantID string) ([]models.Chunk, error) {
	if err := models.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	dir := filepath.Join(l.baseDir, tenantID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no documents for tenant %s", models.ErrNotFound, tenantID)
		}
		return nil, &models.StorageError{Op: "readdir", Path: dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !SupportedExtension(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var chunks []models.Chunk
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, &models.StorageError{Op: "load", Path: dir, Err: err}
		}

		path := filepath.Join(dir, name)
		var pages []string
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			pages, err = readPDFPages(path)
		default:
			pages, err = readTextFile(path)
		}
		if err != nil {
			return nil, &models.StorageError{Op: "parse", Path: path, Err: err}
		}

		for i, text := range pages {
			text = cleanText(text)
			if text == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ID:     fmt.Sprintf("%s:%d", name, i+1),
				Text:   text,
				Source: name,
				Page:   i + 1,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no documents staged for tenant %s", models.ErrNotFound, tenantID)
	}

	logger.Debug("Documents loaded", "tenant_id", tenantID, "files", len(names), "chunks", len(chunks))
	return chunks, nil
}

// readPDFPages returns the plain text of each page, blank strings included
// so that indexes stay aligned with page numbers.
func readPDFPages(path string) (pages []string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract page text", "path", path, "page", i, "error", err)
			continue
		}
		pages[i-1] = text
	}

	return pages, nil
}

func readTextFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []string{string(content)}, nil
}

func cleanText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
