package middleware

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// AuditCollection stores one document per audited write.
const AuditCollection = "auditoria"

// MongoAuditRecorder inserts audit entries into the auditoria collection.
type MongoAuditRecorder struct {
	coll *mongo.Collection
}

func NewMongoAuditRecorder(database *mongo.Database) *MongoAuditRecorder {
	return &MongoAuditRecorder{coll: database.Collection(AuditCollection)}
}

func (r *MongoAuditRecorder) RecordAccess(ctx context.Context, entry AuditEntry) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
