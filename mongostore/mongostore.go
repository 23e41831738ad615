// Package mongostore implements the account stores on MongoDB. Refresh
// tokens rely on a TTL index on created_at for expiry.
package mongostore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	RefreshTokensCollection = "refreshtokens"
)

// Connect opens a client and pings the primary
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to connect to mongo")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to ping mongo")
	}

	return client, nil
}

// EnsureIndexes creates the lookup indexes and the refresh token TTL index.
// The email index is not unique, uniqueness is checked by the services.
func EnsureIndexes(ctx context.Context, db *mongo.Database, refreshTTL time.Duration) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create users email index")
	}

	_, err = db.Collection(RefreshTokensCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(refreshTTL.Seconds())),
		},
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh token indexes")
	}

	return nil
}
