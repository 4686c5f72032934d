package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/raphaelvls/go-authserver/internal/entity"
	"github.com/raphaelvls/go-authserver/internal/storage"
	"github.com/raphaelvls/go-authserver/internal/timeutil"
)

type TokenStore struct {
	collection *mongo.Collection
}

func NewTokenStore(database *mongo.Database) *TokenStore {
	return &TokenStore{
		collection: database.Collection("oauth_tokens"),
	}
}

func (s *TokenStore) Create(ctx context.Context, token *entity.Token) error {
	_, err := s.collection.InsertOne(ctx, token)
	return err
}

func (s *TokenStore) ByAccessDigest(ctx context.Context, digest string) (*entity.Token, error) {
	return s.getWithFilter(ctx, bson.D{{Key: "access_token_digest", Value: digest}})
}

func (s *TokenStore) ByRefreshDigest(ctx context.Context, digest string) (*entity.Token, error) {
	return s.getWithFilter(ctx, bson.D{{Key: "refresh_token_digest", Value: digest}})
}

// Rotate swaps both digests in a single document update, so the old refresh
// digest stops matching the moment the new pair is visible.
func (s *TokenStore) Rotate(ctx context.Context, id, accessDigest, refreshDigest string) error {
	result, err := s.collection.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "access_token_digest", Value: accessDigest},
			{Key: "refresh_token_digest", Value: refreshDigest},
			{Key: "updated_at", Value: timeutil.Now()},
		}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *TokenStore) getWithFilter(ctx context.Context, filter any) (*entity.Token, error) {
	result := s.collection.FindOne(ctx, filter)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var token entity.Token
	if err := result.Decode(&token); err != nil {
		return nil, err
	}

	return &token, nil
}

var _ storage.TokenStore = (*TokenStore)(nil)
