package models

import "time"

// Chunk is one retrievable unit of document text.
type Chunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`         // file name inside the tenant directory
	Page   int    `json:"page,omitempty"` // 1-based
}

// IndexRecord pairs a chunk with its embedding.
type IndexRecord struct {
	Chunk  Chunk
	Vector []float32
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// DocumentRecord describes a stored upload.
type DocumentRecord struct {
	TenantID   string    `bson:"tenant_id" json:"tenant_id"`
	Filename   string    `bson:"filename" json:"filename"`
	SHA256     string    `bson:"sha256" json:"sha256"`
	Size       int64     `bson:"size" json:"size"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

// LoadResult summarizes a load of a tenant's documents.
type LoadResult struct {
	TenantID   string `json:"tenant_id"`
	Chunks     int    `json:"chunks"`
	IndexBuilt bool   `json:"index_built"` // false when an existing index was reused
}
