package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	Role         string    `bson:"role"`
	Status       string    `bson:"status"`
	KYCVerified  bool      `bson:"kycStatus"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// Users implements accounts.Users on a mongo collection
type Users struct {
	collection *mongo.Collection
}

var _ accounts.Users = (*Users)(nil)

// NewUsers creates a Users store
func NewUsers(db *mongo.Database) *Users {
	return &Users{collection: db.Collection(UsersCollection)}
}

func (s *Users) GetByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Users) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Users) List(ctx context.Context) ([]*accounts.User, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode users")
	}

	users := make([]*accounts.User, 0, len(docs))
	for i := range docs {
		users = append(users, toUser(&docs[i]))
	}
	return users, nil
}

func (s *Users) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	accounts.PrepareUserDefaults(user)

	if _, err := s.collection.InsertOne(ctx, fromUser(user)); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}
	return user, nil
}

func (s *Users) Update(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": user.ID.String()}, fromUser(user))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}
	if res.MatchedCount == 0 {
		return nil, accounts.ErrUserNotFound
	}
	return user, nil
}

func (s *Users) UpdateStatus(ctx context.Context, id uuid.UUID, status accounts.UserStatus) (*accounts.User, error) {
	update := bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update, opts).Decode(&doc)
	if err != nil {
		return nil, mapNotFound(err, accounts.ErrUserNotFound)
	}
	return toUser(&doc), nil
}

func (s *Users) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	if res.DeletedCount == 0 {
		return accounts.ErrUserNotFound
	}
	return nil
}

func (s *Users) findOne(ctx context.Context, filter bson.M) (*accounts.User, error) {
	var doc userDocument
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapNotFound(err, accounts.ErrUserNotFound)
	}
	return toUser(&doc), nil
}

func mapNotFound(err error, notFound error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "mongo query failed")
}

func toUser(d *userDocument) *accounts.User {
	id, _ := uuid.Parse(d.ID)
	return &accounts.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         accounts.UserRole(d.Role),
		Status:       accounts.UserStatus(d.Status),
		KYCVerified:  d.KYCVerified,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func fromUser(u *accounts.User) *userDocument {
	return &userDocument{
		ID:           u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Status:       string(u.Status),
		KYCVerified:  u.KYCVerified,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
