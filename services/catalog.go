package services

import (
	"context"
	"fmt"

	"docchat-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCatalog records uploads in a MongoDB collection, one document per
// tenant and file name.
type MongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(collection *mongo.Collection) *MongoCatalog {
	return &MongoCatalog{collection: collection}
}

// RecordUpload upserts the record, replacing any earlier upload of the same file.
func (c *MongoCatalog) RecordUpload(ctx context.Context, record models.DocumentRecord) error {
	filter := bson.M{"tenant_id": record.TenantID, "filename": record.Filename}
	_, err := c.collection.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}
