// Package memstore keeps users and refresh tokens in process memory. It is
// meant for development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
)

// Users implements accounts.Users on a map
type Users struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*accounts.User
}

var _ accounts.Users = (*Users)(nil)

// NewUsers creates an empty store
func NewUsers() *Users {
	return &Users{users: make(map[uuid.UUID]*accounts.User)}
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*accounts.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, accounts.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*accounts.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, accounts.ErrUserNotFound
}

func (s *Users) List(_ context.Context) ([]*accounts.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*accounts.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Users) Create(_ context.Context, user *accounts.User) (*accounts.User, error) {
	accounts.PrepareUserDefaults(user)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = clone(user)
	return clone(user), nil
}

func (s *Users) Update(_ context.Context, user *accounts.User) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, accounts.ErrUserNotFound
	}
	s.users[user.ID] = clone(user)
	return clone(user), nil
}

func (s *Users) UpdateStatus(_ context.Context, id uuid.UUID, status accounts.UserStatus) (*accounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, accounts.ErrUserNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

func (s *Users) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return accounts.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func clone(u *accounts.User) *accounts.User {
	c := *u
	return &c
}

// RefreshTokens implements accounts.RefreshTokens on a map. Expired records
// are ignored on read and dropped by DeleteExpired.
type RefreshTokens struct {
	mu     sync.RWMutex
	tokens map[string]accounts.RefreshToken
	ttl    time.Duration
	now    func() time.Time
}

var _ accounts.RefreshTokens = (*RefreshTokens)(nil)

// RefreshTokensOption configures RefreshTokens
type RefreshTokensOption func(*RefreshTokens)

// WithTTL overrides accounts.RefreshTokenTTL
func WithTTL(ttl time.Duration) RefreshTokensOption {
	return func(s *RefreshTokens) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) RefreshTokensOption {
	return func(s *RefreshTokens) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRefreshTokens creates an empty store
func NewRefreshTokens(opts ...RefreshTokensOption) *RefreshTokens {
	s := &RefreshTokens{
		tokens: make(map[string]accounts.RefreshToken),
		ttl:    accounts.RefreshTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RefreshTokens) Save(_ context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = accounts.RefreshToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	return nil
}

func (s *RefreshTokens) FindByToken(_ context.Context, token string) (*accounts.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[token]
	if !ok || !s.now().Before(rec.ExpiresAt(s.ttl)) {
		return nil, accounts.ErrTokenNotFound
	}
	return &rec, nil
}

func (s *RefreshTokens) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
	return nil
}

func (s *RefreshTokens) DeleteAllForUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, rec := range s.tokens {
		if rec.UserID == userID {
			delete(s.tokens, token)
		}
	}
	return nil
}

// DeleteExpired drops expired records and returns how many were removed
func (s *RefreshTokens) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for token, rec := range s.tokens {
		if !now.Before(rec.ExpiresAt(s.ttl)) {
			delete(s.tokens, token)
			n++
		}
	}
	return n, nil
}

// Len returns the number of records, expired ones included
func (s *RefreshTokens) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
