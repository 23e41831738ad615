package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Enqueuer accepts background tasks. *WorkQueue implements it.
type Enqueuer interface {
	Enqueue(name string, task Task) error
}

// AdminService handles status changes and account lifecycle notifications
type AdminService struct {
	users    Users
	accounts *UserService
	notifier Notifier
	queue    Enqueuer
	logger   Logger
}

// AdminOption configures an AdminService
type AdminOption func(*AdminService)

// WithAdminLogger sets the logger
func WithAdminLogger(logger Logger) AdminOption {
	return func(a *AdminService) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdminService creates an AdminService. Welcome notifications go through
// queue, KYC reminders are sent inline.
func NewAdminService(users Users, notifier Notifier, queue Enqueuer, opts ...AdminOption) *AdminService {
	a := &AdminService{
		users:    users,
		notifier: notifier,
		queue:    queue,
		logger:   defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.accounts = NewUserService(users, WithUserLogger(a.logger))
	return a
}

// SetStatus overwrites the account status. Tokens already issued to the user
// stay valid until they expire.
func (a *AdminService) SetStatus(ctx context.Context, userID uuid.UUID, status UserStatus) (*User, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	user, err := a.users.UpdateStatus(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	a.logger.Info("user status changed", "user_id", userID, "status", status, "actor_id", actorID(ctx))
	return user, nil
}

// Block sets the status to BLOCKED
func (a *AdminService) Block(ctx context.Context, userID uuid.UUID) (*User, error) {
	return a.SetStatus(ctx, userID, StatusBlocked)
}

// Unblock sets the status to ACTIVE
func (a *AdminService) Unblock(ctx context.Context, userID uuid.UUID) (*User, error) {
	return a.SetStatus(ctx, userID, StatusActive)
}

// CreateWithNotification registers the account and queues a welcome email.
// Notification problems are logged and never fail the call.
func (a *AdminService) CreateWithNotification(ctx context.Context, data NewUser) (*User, error) {
	user, err := a.accounts.Register(ctx, data)
	if err != nil {
		return nil, err
	}

	msg := WelcomeMessage(user)
	userID := user.ID

	err = a.queue.Enqueue("welcome-email", func(ctx context.Context) error {
		if err := a.notifier.Send(ctx, msg); err != nil {
			return NotificationFailure(err)
		}
		a.logger.Info("welcome email sent", "user_id", userID)
		return nil
	})
	if err != nil {
		a.logger.Error("failed to queue welcome email", "user_id", userID, "error", err)
	}

	return user, nil
}

// ResendKYCNotification sends the KYC reminder synchronously. A send failure
// is returned to the caller.
func (a *AdminService) ResendKYCNotification(ctx context.Context, userID uuid.UUID) error {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.KYCVerified {
		return ErrAlreadyVerified
	}

	if err := a.notifier.Send(ctx, KYCReminderMessage(user)); err != nil {
		a.logger.Error("failed to send KYC reminder", "user_id", userID, "error", err)
		return NotificationFailure(err)
	}

	a.logger.Info("KYC reminder sent", "user_id", userID, "actor_id", actorID(ctx))
	return nil
}

// IsQueueRejection reports whether err came from a queue refusing a task
func IsQueueRejection(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed)
}
