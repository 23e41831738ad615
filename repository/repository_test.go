package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func testLogger() glog.Logger {
	return glog.NewLogger(
		glog.WithName("repository.test"),
		glog.WithLevel(glog.Error),
		glog.WithAddSource(false),
	).GetLogger("persistence")
}

func openDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.Open(context.Background(), repository.Config{
		Driver: repository.DriverSQLite,
		DSN:    dsn,
	}, testLogger())
	require.NoError(t, err)

	return db
}

func setupManager(t *testing.T, opts ...repository.RefreshTokensOption) (*repository.Manager, func()) {
	t.Helper()

	db := openDB(t)
	m := repository.NewManager(db, opts...)
	m.MustValidate()

	return m, func() {
		_ = db.Close()
	}
}

func newUser(email string) *accounts.User {
	return &accounts.User{
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		Active:       true,
	}
}

func TestUsersCreateAndGet(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	created, err := m.Users().Create(ctx, newUser("a@x.com"))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, accounts.RoleUser, created.Role)
	assert.Equal(t, accounts.StatusActive, created.Status)

	byID, err := m.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
	assert.True(t, byID.Active)
	assert.False(t, byID.KYCVerified)

	byEmail, err := m.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = m.Users().GetByEmail(ctx, "A@X.COM")
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)

	_, err = m.Users().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)
}

func TestUsersDuplicateEmailIsNotRejectedByStore(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	_, err := m.Users().Create(ctx, newUser("dup@x.com"))
	require.NoError(t, err)
	_, err = m.Users().Create(ctx, newUser("dup@x.com"))
	require.NoError(t, err)

	all, err := m.Users().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUsersUpdateStatusAndDelete(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()

	user, err := m.Users().Create(ctx, newUser("a@x.com"))
	require.NoError(t, err)

	blocked, err := m.Users().UpdateStatus(ctx, user.ID, accounts.StatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusBlocked, blocked.Status)

	again, err := m.Users().UpdateStatus(ctx, user.ID, accounts.StatusBlocked)
	require.NoError(t, err)
	assert.Equal(t, accounts.StatusBlocked, again.Status)

	_, err = m.Users().UpdateStatus(ctx, uuid.New(), accounts.StatusBlocked)
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)

	user.Name = "Renamed"
	user.KYCVerified = true
	user.Status = accounts.StatusActive
	_, err = m.Users().Update(ctx, user)
	require.NoError(t, err)

	stored, err := m.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.True(t, stored.KYCVerified)
	assert.Equal(t, accounts.StatusActive, stored.Status)

	_, err = m.Users().Update(ctx, &accounts.User{ID: uuid.New(), Name: "ghost"})
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)

	require.NoError(t, m.Users().Delete(ctx, user.ID))
	assert.ErrorIs(t, m.Users().Delete(ctx, user.ID), accounts.ErrUserNotFound)
}

func TestTxVariantsRollBack(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	m := repository.NewManager(db)
	ctx := context.Background()

	rollback := errors.New("rollback")
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.Users().CreateTx(ctx, tx, newUser("tx@x.com"))
		require.NoError(t, err)
		require.NoError(t, m.RefreshTokens().SaveTx(ctx, tx, user.ID, "tx-token"))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	_, err = m.Users().GetByEmail(ctx, "tx@x.com")
	assert.ErrorIs(t, err, accounts.ErrUserNotFound)
	_, err = m.RefreshTokens().FindByToken(ctx, "tx-token")
	assert.ErrorIs(t, err, accounts.ErrTokenNotFound)
}

func TestOpenMigratesOnce(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "accounts.db")
	cfg := repository.Config{Driver: repository.DriverSQLite, DSN: dsn}

	first, err := repository.Open(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	m := repository.NewManager(first)
	_, err = m.Users().Create(context.Background(), newUser("keep@x.com"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := repository.Open(context.Background(), cfg, testLogger())
	require.NoError(t, err, "migrations are applied once")
	defer second.Close()

	kept, err := repository.NewManager(second).Users().GetByEmail(context.Background(), "keep@x.com")
	require.NoError(t, err)
	assert.Equal(t, "keep@x.com", kept.Email)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := repository.Open(context.Background(), repository.Config{Driver: "oracle"}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sql driver")
}

func TestRefreshTokensLifecycle(t *testing.T) {
	m, cleanup := setupManager(t)
	defer cleanup()
	ctx := context.Background()
	store := m.RefreshTokens()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, store.Save(ctx, a, "a1"))
	require.NoError(t, store.Save(ctx, a, "a2"))
	require.NoError(t, store.Save(ctx, b, "b1"))

	rec, err := store.FindByToken(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a, rec.UserID)

	require.NoError(t, store.DeleteByToken(ctx, "a1"))
	require.NoError(t, store.DeleteByToken(ctx, "a1"))
	_, err = store.FindByToken(ctx, "a1")
	assert.ErrorIs(t, err, accounts.ErrTokenNotFound)

	require.NoError(t, store.DeleteAllForUser(ctx, a))
	_, err = store.FindByToken(ctx, "a2")
	assert.ErrorIs(t, err, accounts.ErrTokenNotFound)

	_, err = store.FindByToken(ctx, "b1")
	assert.NoError(t, err)
}

func TestRefreshTokensExpire(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	m, cleanup := setupManager(t, repository.WithTokenTTL(24*time.Hour), repository.WithTokenClock(clock))
	defer cleanup()
	ctx := context.Background()
	store := m.RefreshTokens()

	require.NoError(t, store.Save(ctx, uuid.New(), "old"))
	now = now.Add(12 * time.Hour)
	require.NoError(t, store.Save(ctx, uuid.New(), "young"))

	now = now.Add(13 * time.Hour)

	_, err := store.FindByToken(ctx, "old")
	assert.ErrorIs(t, err, accounts.ErrTokenNotFound)
	_, err = store.FindByToken(ctx, "young")
	assert.NoError(t, err)

	sweeper := repository.NewSweeper(store, time.Hour, testLogger())
	assert.Equal(t, int64(1), sweeper.Sweep(ctx))
	assert.Equal(t, int64(0), sweeper.Sweep(ctx))

	_, err = store.FindByToken(ctx, "young")
	assert.NoError(t, err)
}

type countingExpirer struct {
	calls chan struct{}
}

func (c *countingExpirer) DeleteExpired(ctx context.Context) (int64, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestSweeperStartStop(t *testing.T) {
	expirer := &countingExpirer{calls: make(chan struct{}, 10)}
	sweeper := repository.NewSweeper(expirer, 10*time.Millisecond, testLogger())

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-expirer.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not run")
		}
	}

	sweeper.Stop()
	sweeper.Stop()
}
