package repository

import (
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager groups the bun repositories sharing one database handle
type Manager struct {
	db            *bun.DB
	users         *Users
	refreshTokens *RefreshTokens
}

// NewManager creates the repositories for db
func NewManager(db *bun.DB, opts ...RefreshTokensOption) *Manager {
	return &Manager{
		db:            db,
		users:         NewUsers(db),
		refreshTokens: NewRefreshTokens(db, opts...),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) Users() *Users {
	return m.users
}

func (m *Manager) RefreshTokens() *RefreshTokens {
	return m.refreshTokens
}
