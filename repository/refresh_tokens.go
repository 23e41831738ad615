package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens implements accounts.RefreshTokens on bun. SQL databases have
// no native row expiry, so reads ignore rows older than the TTL and
// DeleteExpired removes them.
type RefreshTokens struct {
	db  *bun.DB
	ttl time.Duration
	now func() time.Time
}

var _ accounts.RefreshTokens = (*RefreshTokens)(nil)

// RefreshTokensOption configures RefreshTokens
type RefreshTokensOption func(*RefreshTokens)

// WithTokenTTL overrides accounts.RefreshTokenTTL
func WithTokenTTL(ttl time.Duration) RefreshTokensOption {
	return func(r *RefreshTokens) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithTokenClock sets the time source
func WithTokenClock(now func() time.Time) RefreshTokensOption {
	return func(r *RefreshTokens) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRefreshTokens creates a RefreshTokens repository
func NewRefreshTokens(db *bun.DB, opts ...RefreshTokensOption) *RefreshTokens {
	r := &RefreshTokens{
		db:  db,
		ttl: accounts.RefreshTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *RefreshTokens) Save(ctx context.Context, userID uuid.UUID, token string) error {
	return r.SaveTx(ctx, r.db, userID, token)
}

func (r *RefreshTokens) SaveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error {
	record := &accounts.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: r.now().UTC(),
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save refresh token")
	}
	return nil
}

func (r *RefreshTokens) FindByToken(ctx context.Context, token string) (*accounts.RefreshToken, error) {
	record := &accounts.RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("token = ?", token).
		Where("created_at > ?", r.cutoff()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err, accounts.ErrTokenNotFound)
	}
	return record, nil
}

func (r *RefreshTokens) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*accounts.RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}

func (r *RefreshTokens) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.DeleteAllForUserTx(ctx, r.db, userID)
}

func (r *RefreshTokens) DeleteAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*accounts.RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh tokens")
	}
	return nil
}

// DeleteExpired removes rows older than the TTL
func (r *RefreshTokens) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*accounts.RefreshToken)(nil)).
		Where("created_at <= ?", r.cutoff()).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired refresh tokens")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (r *RefreshTokens) cutoff() time.Time {
	return r.now().UTC().Add(-r.ttl)
}
