// Package redisstore keeps refresh tokens in Redis with key expiry.
package redisstore

import (
	"context"
	"strconv"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "accounts:"

// RefreshTokens implements accounts.RefreshTokens on Redis. Each token is a
// hash that expires after the TTL. A per user set indexes tokens for
// DeleteAllForUser.
type RefreshTokens struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

var _ accounts.RefreshTokens = (*RefreshTokens)(nil)

// Option configures RefreshTokens
type Option func(*RefreshTokens)

// WithTTL overrides accounts.RefreshTokenTTL
func WithTTL(ttl time.Duration) Option {
	return func(s *RefreshTokens) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix, default "accounts:"
func WithPrefix(prefix string) Option {
	return func(s *RefreshTokens) {
		s.prefix = prefix
	}
}

// NewRefreshTokens creates a RefreshTokens store
func NewRefreshTokens(client redis.UniversalClient, opts ...Option) *RefreshTokens {
	s := &RefreshTokens{
		client: client,
		ttl:    accounts.RefreshTokenTTL,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RefreshTokens) Save(ctx context.Context, userID uuid.UUID, token string) error {
	tokenKey := s.tokenKey(token)
	userKey := s.userKey(userID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tokenKey,
			"user_id", userID.String(),
			"created_at", strconv.FormatInt(s.now().UTC().UnixNano(), 10),
		)
		pipe.Expire(ctx, tokenKey, s.ttl)
		pipe.SAdd(ctx, userKey, token)
		pipe.Expire(ctx, userKey, s.ttl)
		return nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save refresh token")
	}
	return nil
}

func (s *RefreshTokens) FindByToken(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	values, err := s.client.HGetAll(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read refresh token")
	}
	if len(values) == 0 {
		return nil, accounts.ErrTokenNotFound
	}

	userID, err := uuid.Parse(values["user_id"])
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stored refresh token has an invalid user id")
	}

	nanos, err := strconv.ParseInt(values["created_at"], 10, 64)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "stored refresh token has an invalid timestamp")
	}

	return &accounts.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: time.Unix(0, nanos).UTC(),
	}, nil
}

func (s *RefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	tokenKey := s.tokenKey(token)

	owner, err := s.client.HGet(ctx, tokenKey, "user_id").Result()
	if err != nil && err != redis.Nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read refresh token")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tokenKey)
		if owner != "" {
			pipe.SRem(ctx, s.prefix+"user:"+owner, token)
		}
		return nil
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}

func (s *RefreshTokens) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	userKey := s.userKey(userID)

	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list refresh tokens")
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, s.tokenKey(token))
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh tokens")
	}
	return nil
}

func (s *RefreshTokens) tokenKey(token string) string {
	return s.prefix + "refresh:" + token
}

func (s *RefreshTokens) userKey(userID uuid.UUID) string {
	return s.prefix + "user:" + userID.String()
}
