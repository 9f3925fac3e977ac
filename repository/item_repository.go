package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yashrajoria/grocery-backend/models"
)

// MongoItemRepository reads the catalog from "items" and owns the stock
// counters.
type MongoItemRepository struct {
	collection *mongo.Collection
}

func NewMongoItemRepository(db *mongo.Database) *MongoItemRepository {
	return &MongoItemRepository{collection: db.Collection("items")}
}

func (r *MongoItemRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	})
	return err
}

func buildItemQuery(f ItemFilter) bson.M {
	query := bson.M{}
	if f.Category != "" {
		query["category"] = f.Category
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		query["price"] = price
	}
	return query
}

func (r *MongoItemRepository) Find(ctx context.Context, f ItemFilter) ([]models.Item, error) {
	opts := options.Find()
	if f.SortField != "" {
		dir := 1
		if f.SortDesc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: f.SortField, Value: dir}})
	}

	cursor, err := r.collection.Find(ctx, buildItemQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.Item{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

func (r *MongoItemRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &item, nil
}

func (r *MongoItemRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Item, error) {
	found := make(map[primitive.ObjectID]*models.Item, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var item models.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		found[item.ID] = &item
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return found, nil
}

func (r *MongoItemRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*models.Item, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	var item models.Item
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "stockQuantity": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stockQuantity": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInsufficientStock
		}
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	return &item, nil
}

func (r *MongoItemRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"stockQuantity": qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
