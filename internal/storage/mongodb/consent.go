package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
)

type ConsentStore struct {
	collection *mongo.Collection
}

func NewConsentStore(database *mongo.Database) *ConsentStore {
	return &ConsentStore{
		collection: database.Collection("oauth_consents"),
	}
}

func (s *ConsentStore) Create(ctx context.Context, consent *entity.Consent) error {
	_, err := s.collection.InsertOne(ctx, consent)
	return err
}

func (s *ConsentStore) Consent(ctx context.Context, id string) (*entity.Consent, error) {
	return s.getWithFilter(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *ConsentStore) ByClientAndUser(ctx context.Context, clientID, userID string) (*entity.Consent, error) {
	return s.getWithFilter(ctx, bson.D{
		{Key: "client_id", Value: clientID},
		{Key: "user_id", Value: userID},
	})
}

func (s *ConsentStore) getWithFilter(ctx context.Context, filter any) (*entity.Consent, error) {
	result := s.collection.FindOne(ctx, filter)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var consent entity.Consent
	if err := result.Decode(&consent); err != nil {
		return nil, err
	}

	return &consent, nil
}

var _ storage.ConsentStore = (*ConsentStore)(nil)
