package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/grocery-backend/models"
)

// MongoSessionRepository keeps one document per (user, deviceId) in
// "device_sessions".
type MongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{collection: db.Collection("device_sessions")}
}

func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "deviceId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user", Value: 1}, {Key: "isActive", Value: 1}},
		},
	})
	return err
}

func (r *MongoSessionRepository) Upsert(ctx context.Context, userID, deviceID, token string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user": userID, "deviceId": deviceID},
		bson.M{
			"$set": bson.M{
				"token":      token,
				"lastActive": at,
				"isActive":   true,
				"updatedAt":  at,
			},
			"$setOnInsert": bson.M{"createdAt": at},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) IsActive(ctx context.Context, userID, deviceID, token string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		bson.M{"user": userID, "deviceId": deviceID, "token": token, "isActive": true},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

func (r *MongoSessionRepository) Touch(ctx context.Context, userID, deviceID, token string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user": userID, "deviceId": deviceID, "token": token, "isActive": true},
		bson.M{"$set": bson.M{"lastActive": at}},
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) Deactivate(ctx context.Context, userID, deviceID string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"user": userID, "deviceId": deviceID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("deactivate session: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoSessionRepository) ListActive(ctx context.Context, userID string) ([]models.DeviceSession, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"user": userID, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "lastActive", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.DeviceSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}
