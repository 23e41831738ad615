package mongostore

import (
	"context"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type refreshTokenDocument struct {
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// RefreshTokens implements accounts.RefreshTokens on a mongo collection.
// The TTL monitor only runs periodically, so reads also filter on age.
type RefreshTokens struct {
	collection *mongo.Collection
	ttl        time.Duration
	now        func() time.Time
}

var _ accounts.RefreshTokens = (*RefreshTokens)(nil)

// NewRefreshTokens creates a RefreshTokens store. Call EnsureIndexes with the
// same ttl to get server side expiry.
func NewRefreshTokens(db *mongo.Database, ttl time.Duration) *RefreshTokens {
	if ttl <= 0 {
		ttl = accounts.RefreshTokenTTL
	}
	return &RefreshTokens{
		collection: db.Collection(RefreshTokensCollection),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *RefreshTokens) Save(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := s.collection.InsertOne(ctx, &refreshTokenDocument{
		Token:     token,
		UserID:    userID.String(),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save refresh token")
	}
	return nil
}

func (s *RefreshTokens) FindByToken(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	filter := bson.M{
		"token":      token,
		"created_at": bson.M{"$gt": s.now().UTC().Add(-s.ttl)},
	}

	var doc refreshTokenDocument
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapNotFound(err, accounts.ErrTokenNotFound)
	}

	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stored refresh token has an invalid user id")
	}

	return &accounts.RefreshToken{
		Token:     doc.Token,
		UserID:    userID,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *RefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}

func (s *RefreshTokens) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID.String()}); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh tokens")
	}
	return nil
}
