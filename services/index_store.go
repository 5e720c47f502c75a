package services

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"docchat-service/internal/logger"
	"docchat-service/models"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // SQLite driver
)

const indexFileName = "index.db"

// IndexStore persists one vector index per tenant.
type IndexStore interface {
	Exists(tenantID string) (bool, error)
	Build(ctx context.Context, tenantID string, records []models.IndexRecord) error
	Search(ctx context.Context, tenantID string, query []float32, k int) ([]models.ScoredChunk, error)
	Close() error
}

// SQLiteIndexStore keeps each tenant's records in <root>/<tenant>/index.db.
// Opened indexes are held in memory and searched by brute-force cosine
// similarity.
type SQLiteIndexStore struct {
	root       string
	stagingDir string
	read       func(ctx context.Context, dbPath string) ([]models.IndexRecord, error)

	// mu guards loaded only; disk reads happen outside it, one per tenant.
	mu      sync.Mutex
	loaded  map[string][]models.IndexRecord
	opening singleflight.Group
}

// NewSQLiteIndexStore creates the index root if needed.
func NewSQLiteIndexStore(root string) (*SQLiteIndexStore, error) {
	stagingDir := filepath.Join(root, ".staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, &models.StorageError{Op: "mkdir", Path: stagingDir, Err: err}
	}

	return &SQLiteIndexStore{
		root:       root,
		stagingDir: stagingDir,
		read:       readIndex,
		loaded:     make(map[string][]models.IndexRecord),
	}, nil
}

func (s *SQLiteIndexStore) tenantDir(tenantID string) string {
	return filepath.Join(s.root, tenantID)
}

// Exists reports whether the tenant's index directory is present.
func (s *SQLiteIndexStore) Exists(tenantID string) (bool, error) {
	info, err := os.Stat(s.tenantDir(tenantID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &models.StorageError{Op: "stat", Path: s.tenantDir(tenantID), Err: err}
	}
	return info.IsDir(), nil
}

// Build writes records into a staging database and renames the staging
// directory into place. Nothing is visible at the tenant path unless every
// record was written.
func (s *SQLiteIndexStore) Build(ctx context.Context, tenantID string, records []models.IndexRecord) error {
	staging := filepath.Join(s.stagingDir, tenantID+"-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return &models.StorageError{Op: "mkdir", Path: staging, Err: err}
	}
	published := false
	defer func() {
		if !published {
			os.RemoveAll(staging)
		}
	}()

	dbPath := filepath.Join(staging, indexFileName)
	if err := writeIndex(ctx, dbPath, records); err != nil {
		return &models.StorageError{Op: "write index", Path: dbPath, Err: err}
	}

	target := s.tenantDir(tenantID)
	if err := os.Rename(staging, target); err != nil {
		return &models.StorageError{Op: "publish index", Path: target, Err: err}
	}
	published = true

	s.mu.Lock()
	delete(s.loaded, tenantID)
	s.mu.Unlock()

	logger.Info("Index published", "tenant_id", tenantID, "records", len(records))
	return nil
}

// Search returns up to k records ordered by decreasing cosine similarity.
func (s *SQLiteIndexStore) Search(ctx context.Context, tenantID string, query []float32, k int) ([]models.ScoredChunk, error) {
	records, err := s.open(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredChunk, len(records))
	for i, record := range records {
		scored[i] = models.ScoredChunk{
			Chunk: record.Chunk,
			Score: cosineSimilarity(query, record.Vector),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of records in a tenant's index.
func (s *SQLiteIndexStore) Count(ctx context.Context, tenantID string) (int, error) {
	records, err := s.open(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// open returns the cached records for a tenant, reading them from disk on
// first use. Concurrent first opens of one tenant share a single read.
func (s *SQLiteIndexStore) open(ctx context.Context, tenantID string) ([]models.IndexRecord, error) {
	if records, ok := s.cached(tenantID); ok {
		return records, nil
	}

	v, err, _ := s.opening.Do(tenantID, func() (interface{}, error) {
		if records, ok := s.cached(tenantID); ok {
			return records, nil
		}

		dbPath := filepath.Join(s.tenantDir(tenantID), indexFileName)
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: no index for tenant %s", models.ErrNotFound, tenantID)
			}
			return nil, &models.StorageError{Op: "stat", Path: dbPath, Err: err}
		}

		records, err := s.read(ctx, dbPath)
		if err != nil {
			return nil, &models.StorageError{Op: "read index", Path: dbPath, Err: err}
		}

		s.mu.Lock()
		s.loaded[tenantID] = records
		s.mu.Unlock()

		logger.Debug("Index opened", "tenant_id", tenantID, "records", len(records))
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.IndexRecord), nil
}

func (s *SQLiteIndexStore) cached(tenantID string) ([]models.IndexRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.loaded[tenantID]
	return records, ok
}

// Close drops every cached index.
func (s *SQLiteIndexStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = make(map[string][]models.IndexRecord)
	return nil
}

const indexSchema = `
	CREATE TABLE IF NOT EXISTS chunks (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		source TEXT NOT NULL,
		page INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	)
`

func writeIndex(ctx context.Context, dbPath string, records []models.IndexRecord) (err error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing database: %w", closeErr)
		}
	}()

	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (seq, id, source, page, content, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		if _, err := stmt.ExecContext(ctx, i, record.Chunk.ID, record.Chunk.Source, record.Chunk.Page,
			record.Chunk.Text, float32SliceToBytes(record.Vector)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", record.Chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func readIndex(ctx context.Context, dbPath string) ([]models.IndexRecord, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT id, source, page, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var records []models.IndexRecord
	for rows.Next() {
		var record models.IndexRecord
		var embedding []byte
		if err := rows.Scan(&record.Chunk.ID, &record.Chunk.Source, &record.Chunk.Page, &record.Chunk.Text, &embedding); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		record.Vector = bytesToFloat32Slice(embedding)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
