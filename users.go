package accounts

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserService holds the account CRUD operations
type UserService struct {
	users  Users
	logger Logger
}

// UserOption configures a UserService
type UserOption func(*UserService)

// WithUserLogger sets the logger
func WithUserLogger(logger Logger) UserOption {
	return func(s *UserService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewUserService creates a UserService
func NewUserService(users Users, opts ...UserOption) *UserService {
	s := &UserService{
		users:  users,
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register creates an account after checking the email is free. The check
// and the insert are not atomic, two concurrent registrations with the same
// email can both succeed.
func (s *UserService) Register(ctx context.Context, data NewUser) (*User, error) {
	email := NormalizeEmail(data.Email)

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, ErrUserNotFound):
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email")
	}

	role := data.Role
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := HashPassword(data.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         data.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
		KYCVerified:  data.KYC,
		Active:       true,
	}
	PrepareUserDefaults(user)

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns every user
func (s *UserService) List(ctx context.Context) ([]*User, error) {
	return s.users.List(ctx)
}

// Delete removes a user. Refresh tokens owned by the user are left to expire.
// A caller in ctx must own the account or be an admin.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := authorizeWrite(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id, "actor_id", actorID(ctx))
	return nil
}

// Update replaces the mutable attributes of a user
func (s *UserService) Update(ctx context.Context, id uuid.UUID, data UpdateUser) (*User, error) {
	patch := UserPatch{
		Name:  &data.Name,
		Email: &data.Email,
		KYC:   &data.KYC,
	}
	if data.Role != "" {
		patch.Role = &data.Role
	}
	if data.Status != "" {
		patch.Status = &data.Status
	}
	if data.Password != "" {
		patch.Password = &data.Password
	}
	return s.Edit(ctx, id, patch)
}

// Edit applies the fields set in patch. A caller in ctx must own the account
// or be an admin, and only admins may change role, status or KYC.
func (s *UserService) Edit(ctx context.Context, id uuid.UUID, patch UserPatch) (*User, error) {
	admin, err := authorizeWrite(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return user, nil
	}

	if !admin && changesPrivileged(user, patch) {
		s.logger.Warn("privileged update rejected", "user_id", id, "actor_id", actorID(ctx))
		return nil, ErrForbidden
	}

	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, ErrUserAlreadyExists
			case err != nil && !errors.Is(err, ErrUserNotFound):
				return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email")
			}
		}
		user.Email = email
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}

	if patch.Role != nil {
		if !patch.Role.IsValid() {
			return nil, ErrInvalidRole
		}
		user.Role = *patch.Role
	}

	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		user.Status = *patch.Status
	}

	if patch.KYC != nil {
		user.KYCVerified = *patch.KYC
	}

	if patch.Password != nil {
		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "actor_id", actorID(ctx))
	return updated, nil
}

// authorizeWrite reports whether the caller is an admin. Calls without claims
// in ctx come from trusted code and are treated as admin.
func authorizeWrite(ctx context.Context, target uuid.UUID) (bool, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return true, nil
	}
	if claims.IsAtLeast(RoleAdmin) {
		return true, nil
	}
	if claims.UserID() != target.String() {
		return false, ErrForbidden
	}
	return false, nil
}

func changesPrivileged(user *User, patch UserPatch) bool {
	if patch.Role != nil && *patch.Role != user.Role {
		return true
	}
	if patch.Status != nil && *patch.Status != user.Status {
		return true
	}
	return patch.KYC != nil && *patch.KYC != user.KYCVerified
}
