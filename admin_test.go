package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T, notifier accounts.Notifier, queue accounts.Enqueuer) (*accounts.AdminService, *memstore.Users) {
	t.Helper()
	users := memstore.NewUsers()
	return accounts.NewAdminService(users, notifier, queue, accounts.WithAdminLogger(discardLogger())), users
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	admin, users := newAdmin(t, &MockNotifier{}, &recordingQueue{})
	user := seedUser(t, users, "a@x.com", "p1", accounts.RoleUser)

	t.Run("unknown user", func(t *testing.T) {
		_, err := admin.SetStatus(ctx, uuid.New(), accounts.StatusBlocked)
		assert.ErrorIs(t, err, accounts.ErrUserNotFound)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := admin.SetStatus(ctx, user.ID, accounts.UserStatus("SUSPENDED"))
		assert.ErrorIs(t, err, accounts.ErrInvalidStatus)
	})

	t.Run("block twice is idempotent", func(t *testing.T) {
		first, err := admin.Block(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusBlocked, first.Status)

		second, err := admin.Block(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusBlocked, second.Status)

		stored, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsBlocked())
	})

	t.Run("unblock", func(t *testing.T) {
		updated, err := admin.Unblock(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, accounts.StatusActive, updated.Status)
	})
}

func TestBlockDoesNotInvalidateIssuedTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := seedUser(t, f.users, "a@x.com", "p1", accounts.RoleUser)
	admin := accounts.NewAdminService(f.users, &MockNotifier{}, &recordingQueue{}, accounts.WithAdminLogger(discardLogger()))

	login, err := f.sessions.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)

	_, err = admin.Block(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.issuer.VerifyAccessToken(login.AccessToken)
	assert.NoError(t, err)
	_, err = f.sessions.Refresh(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

func TestCreateWithNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("queues welcome email", func(t *testing.T) {
		notifier := &MockNotifier{}
		queue := &recordingQueue{}
		admin, users := newAdmin(t, notifier, queue)

		user, err := admin.CreateWithNotification(ctx, accounts.NewUser{
			Name:     "Ada",
			Email:    "ada@x.com",
			Password: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, accounts.RoleUser, user.Role)
		assert.Equal(t, accounts.StatusActive, user.Status)
		assert.NotEqual(t, "secret", user.PasswordHash)

		stored, err := users.GetByEmail(ctx, "ada@x.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, stored.ID)

		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		assert.Equal(t, []string{"welcome-email"}, queue.names)

		notifier.On("Send", mock.Anything, mock.MatchedBy(func(msg accounts.Message) bool {
			return msg.To == "ada@x.com" && msg.Subject == "Welcome to Our Platform!" && msg.HasHTML()
		})).Return(nil).Once()

		errs := queue.Drain(ctx)
		require.Len(t, errs, 1)
		assert.NoError(t, errs[0])
		notifier.AssertExpectations(t)
	})

	t.Run("send failure is kept inside the task", func(t *testing.T) {
		notifier := &MockNotifier{}
		queue := &recordingQueue{}
		admin, _ := newAdmin(t, notifier, queue)

		notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		user, err := admin.CreateWithNotification(ctx, accounts.NewUser{
			Name: "Ada", Email: "ada@x.com", Password: "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, user)

		errs := queue.Drain(ctx)
		require.Len(t, errs, 1)
		assert.True(t, accounts.IsNotificationFailure(errs[0]))
	})

	t.Run("rejected by queue still creates", func(t *testing.T) {
		notifier := &MockNotifier{}
		queue := &recordingQueue{err: accounts.ErrQueueFull}
		admin, users := newAdmin(t, notifier, queue)

		user, err := admin.CreateWithNotification(ctx, accounts.NewUser{
			Name: "Ada", Email: "ada@x.com", Password: "secret",
		})
		require.NoError(t, err)

		_, err = users.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("existing email", func(t *testing.T) {
		notifier := &MockNotifier{}
		queue := &recordingQueue{}
		admin, users := newAdmin(t, notifier, queue)
		seedUser(t, users, "ada@x.com", "p1", accounts.RoleUser)

		user, err := admin.CreateWithNotification(ctx, accounts.NewUser{
			Name: "Ada", Email: "ada@x.com", Password: "secret",
		})
		assert.ErrorIs(t, err, accounts.ErrUserAlreadyExists)
		assert.Nil(t, user)

		all, err := users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Empty(t, queue.names)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestCreateWithNotificationThroughWorkQueue(t *testing.T) {
	ctx := context.Background()
	notifier := &MockNotifier{}
	queue := accounts.NewWorkQueue(accounts.WithWorkers(1), accounts.WithQueueLogger(discardLogger()))
	admin, _ := newAdmin(t, notifier, queue)

	notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("provider rejected")).Once()

	queue.Start(ctx)
	_, err := admin.CreateWithNotification(ctx, accounts.NewUser{
		Name: "Ada", Email: "ada@x.com", Password: "secret",
	})
	require.NoError(t, err)

	require.NoError(t, queue.Stop(ctx))
	notifier.AssertExpectations(t)
}

func TestResendKYCNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		notifier := &MockNotifier{}
		admin, _ := newAdmin(t, notifier, &recordingQueue{})

		err := admin.ResendKYCNotification(ctx, uuid.New())
		assert.ErrorIs(t, err, accounts.ErrUserNotFound)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("already verified", func(t *testing.T) {
		notifier := &MockNotifier{}
		admin, users := newAdmin(t, notifier, &recordingQueue{})
		user := seedUser(t, users, "a@x.com", "p1", accounts.RoleUser)
		user.KYCVerified = true
		_, err := users.Update(ctx, user)
		require.NoError(t, err)

		err = admin.ResendKYCNotification(ctx, user.ID)
		assert.ErrorIs(t, err, accounts.ErrAlreadyVerified)
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("pending sends once", func(t *testing.T) {
		notifier := &MockNotifier{}
		admin, users := newAdmin(t, notifier, &recordingQueue{})
		user := seedUser(t, users, "a@x.com", "p1", accounts.RoleUser)

		notifier.On("Send", mock.Anything, mock.MatchedBy(func(msg accounts.Message) bool {
			return msg.To == "a@x.com" && msg.Subject == "Complete Your KYC"
		})).Return(nil).Once()

		require.NoError(t, admin.ResendKYCNotification(ctx, user.ID))
		notifier.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("send failure is returned", func(t *testing.T) {
		notifier := &MockNotifier{}
		admin, users := newAdmin(t, notifier, &recordingQueue{})
		user := seedUser(t, users, "a@x.com", "p1", accounts.RoleUser)

		cause := errors.New("mailbox unavailable")
		notifier.On("Send", mock.Anything, mock.Anything).Return(cause).Once()

		err := admin.ResendKYCNotification(ctx, user.ID)
		require.Error(t, err)
		assert.True(t, accounts.IsNotificationFailure(err))
		assert.ErrorIs(t, err, cause)
		notifier.AssertNumberOfCalls(t, "Send", 1)
	})
}
