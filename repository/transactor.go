package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTransactor wraps fn in a multi-document transaction. Requires a
// replica set or sharded cluster.
type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

func (t *MongoTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (t *MongoTransactor) Transactional() bool { return true }

// DirectTransactor runs fn as is, for standalone servers.
type DirectTransactor struct{}

func (DirectTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (DirectTransactor) Transactional() bool { return false }
