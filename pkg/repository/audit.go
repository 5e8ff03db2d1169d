package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AuditLog is one append-only trail entry for a checkout or payment event.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entity_id"`
	Data      bson.M    `bson:"data" json:"data"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AuditRecorder appends audit entries in the background so the calling
// request never waits on the trail.
type AuditRecorder struct {
	mongo  *MongoRepository
	logger *zap.Logger
}

func NewAuditRecorder(mongo *MongoRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{mongo: mongo, logger: logger}
}

func (r *AuditRecorder) Record(_ context.Context, action, entityID string, data map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		entry := &AuditLog{
			ID:        uuid.NewString(),
			Action:    action,
			EntityID:  entityID,
			Data:      bson.M(data),
			CreatedAt: time.Now().UTC(),
		}
		if _, err := r.mongo.Collection(CollectionAuditLogs).InsertOne(ctx, entry); err != nil {
			r.logger.Warn("failed to write audit log",
				zap.String("action", action),
				zap.String("entity_id", entityID),
				zap.Error(err))
		}
	}()
}

func (r *AuditRecorder) ByEntity(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	collection := r.mongo.Collection(CollectionAuditLogs)

	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
