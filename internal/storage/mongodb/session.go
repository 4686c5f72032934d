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

type SessionStore struct {
	collection *mongo.Collection
}

func NewSessionStore(database *mongo.Database) *SessionStore {
	return &SessionStore{
		collection: database.Collection("oauth_sessions"),
	}
}

func (s *SessionStore) Create(ctx context.Context, session *entity.Session) error {
	_, err := s.collection.InsertOne(ctx, session)
	return err
}

func (s *SessionStore) Session(ctx context.Context, id string) (*entity.Session, error) {
	result := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var session entity.Session
	if err := result.Decode(&session); err != nil {
		return nil, err
	}

	return &session, nil
}

// BindUser relies on a filtered single-document update for its
// compare-and-set semantics: the write only matches while user_id is unset,
// so concurrent binds of the same session cannot both succeed.
func (s *SessionStore) BindUser(ctx context.Context, id, userID string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: bson.D{{Key: "$exists", Value: false}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "user_id", Value: userID},
		{Key: "updated_at", Value: timeutil.Now()},
	}}}

	result, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// No match: either the session is gone or a user is already bound.
	if _, err := s.Session(ctx, id); err != nil {
		return err
	}
	return storage.ErrUserAlreadyBound
}

func (s *SessionStore) Update(ctx context.Context, id string, patch entity.SessionPatch) error {
	fields := bson.D{{Key: "updated_at", Value: timeutil.Now()}}
	if patch.ConsentGrantedAt != nil {
		fields = append(fields, bson.E{Key: "consent_granted_at", Value: patch.ConsentGrantedAt})
	}
	if patch.Scopes != nil {
		fields = append(fields, bson.E{Key: "scopes", Value: patch.Scopes})
	}

	result, err := s.collection.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: fields}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}

	return nil
}

var _ storage.SessionStore = (*SessionStore)(nil)
