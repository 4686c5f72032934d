// Package mongodb implements the durable stores on MongoDB collections.
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
)

type ClientStore struct {
	collection *mongo.Collection
}

func NewClientStore(database *mongo.Database) *ClientStore {
	return &ClientStore{
		collection: database.Collection("oauth_clients"),
	}
}

func (s *ClientStore) BySlug(ctx context.Context, slug string) (*entity.Client, error) {
	result := s.collection.FindOne(ctx, bson.D{{Key: "slug", Value: slug}})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var client entity.Client
	if err := result.Decode(&client); err != nil {
		return nil, err
	}

	return &client, nil
}

var _ storage.ClientStore = (*ClientStore)(nil)
