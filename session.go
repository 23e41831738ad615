package accounts

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// LoginResult holds the tokens minted by a successful login. The refresh
// token is meant to travel out of band, e.g. as an HTTP only cookie.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// SessionService handles login, refresh and logout
type SessionService struct {
	users  Users
	tokens RefreshTokens
	issuer *TokenIssuer
	logger Logger
}

// SessionOption configures a SessionService
type SessionOption func(*SessionService)

// WithSessionLogger sets the logger
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionService creates a SessionService
func NewSessionService(users Users, tokens RefreshTokens, issuer *TokenIssuer, opts ...SessionOption) *SessionService {
	s := &SessionService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login checks the credentials, persists a new refresh token and returns it
// together with a new access token.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info("login attempt for unknown email", "email", email)
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Info("login attempt with wrong password", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password")
	}

	refreshToken, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.Save(ctx, user.ID, refreshToken); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store refresh token")
	}

	accessToken, err := s.issuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh mints a new access token from a stored refresh token. The refresh
// token itself is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return "", ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	return s.issuer.IssueAccessToken(user.ID, user.Role)
}

// Logout deletes the stored refresh token. Unknown tokens are a no-op.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}

// LogoutAll revokes every refresh token owned by the user
func (s *SessionService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete refresh tokens")
	}
	s.logger.Info("revoked all refresh tokens", "user_id", userID)
	return nil
}
