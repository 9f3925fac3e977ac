package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/grocery-backend/models"
)

// MongoCartRepository keeps one cart per user in "carts".
type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

func (r *MongoCartRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoCartRepository) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, bson.M{"user": userID}).Decode(&cart); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	return &cart, nil
}

// GetOrCreate returns the user's cart, inserting an empty one on first use.
func (r *MongoCartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	now := time.Now().UTC()

	var cart models.Cart
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user": userID},
		bson.M{"$setOnInsert": bson.M{
			"user":      userID,
			"items":     []models.CartLine{},
			"createdAt": now,
			"updatedAt": now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	return &cart, nil
}

// Save overwrites the cart's lines.
func (r *MongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	if cart.Items == nil {
		cart.Items = []models.CartLine{}
	}
	cart.UpdatedAt = time.Now().UTC()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"user": cart.User},
		bson.M{"$set": bson.M{"items": cart.Items, "updatedAt": cart.UpdatedAt}},
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear empties the cart, keeping the document.
func (r *MongoCartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"items": []models.CartLine{}, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
