package services

import (
	"context"
	"fmt"
	"time"

	"docchat-service/internal/ai"
	"docchat-service/internal/logger"
	"docchat-service/internal/telemetry"
	"docchat-service/models"
)

// IndexBuilder embeds chunks and publishes a tenant's index once.
type IndexBuilder struct {
	embedder ai.Embedder
	store    IndexStore
	metrics  *telemetry.Metrics
}

// NewIndexBuilder creates an index builder. metrics may be nil.
func NewIndexBuilder(embedder ai.Embedder, store IndexStore, metrics *telemetry.Metrics) *IndexBuilder {
	return &IndexBuilder{embedder: embedder, store: store, metrics: metrics}
}

// EnsureIndex builds the tenant's index unless one already exists. It
// reports whether a build happened. An existing index is reused as is,
// whatever the chunks. Callers serialise calls per tenant.
func (b *IndexBuilder) EnsureIndex(ctx context.Context, tenantID string, chunks []models.Chunk) (bool, error) {
	exists, err := b.store.Exists(tenantID)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Debug("Index exists, skipping build", "tenant_id", tenantID)
		b.metrics.RecordIndexBuild(ctx, tenantID, false, 0)
		return false, nil
	}
	if len(chunks) == 0 {
		return false, fmt.Errorf("%w: nothing to index for tenant %s", models.ErrNotFound, tenantID)
	}

	start := time.Now()
	records := make([]models.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		vector, err := b.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return false, fmt.Errorf("embedding chunk %s: %w", chunk.ID, err)
		}
		records[i] = models.IndexRecord{Chunk: chunk, Vector: vector}
	}

	if err := b.store.Build(ctx, tenantID, records); err != nil {
		return false, err
	}

	duration := time.Since(start)
	b.metrics.RecordIndexBuild(ctx, tenantID, true, duration.Seconds())
	logger.Info("Index built", "tenant_id", tenantID, "chunks", len(chunks), "duration", duration)
	return true, nil
}
