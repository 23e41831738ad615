package accounts

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Logger is the logging surface used across the module.
// glog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Users is the credential store. Implementations return ErrUserNotFound
// when a lookup misses.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RefreshTokens persists issued refresh tokens. Expiry is enforced by the
// implementation, FindByToken never resolves a token older than its TTL.
type RefreshTokens interface {
	Save(ctx context.Context, userID uuid.UUID, token string) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// Notifier delivers a single message. There is no retry.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithName("accounts"),
		glog.WithLevel(glog.Info),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	).GetLogger("accounts")
}
