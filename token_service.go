package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenIssuer signs access and refresh tokens with two independent secrets
// and checks refresh tokens against the refresh token store.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	store      RefreshTokens
	now        func() time.Time
	logger     Logger
}

// TokenIssuerOption configures a TokenIssuer
type TokenIssuerOption func(*TokenIssuer)

// WithIssuer sets the iss claim and requires it on verification
func WithIssuer(issuer string) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		ti.issuer = issuer
	}
}

// WithAccessTTL overrides the one hour access token lifetime
func WithAccessTTL(ttl time.Duration) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if ttl > 0 {
			ti.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the seven day refresh token lifetime
func WithRefreshTTL(ttl time.Duration) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if ttl > 0 {
			ti.refreshTTL = ttl
		}
	}
}

// WithClock sets the time source used for iat and exp
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if now != nil {
			ti.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenIssuerOption {
	return func(ti *TokenIssuer) {
		if logger != nil {
			ti.logger = logger
		}
	}
}

// NewTokenIssuer creates a TokenIssuer. Empty secrets are accepted here and
// reported as ErrInvalidToken when a token is issued or verified.
func NewTokenIssuer(accessSecret, refreshSecret string, store RefreshTokens, opts ...TokenIssuerOption) *TokenIssuer {
	ti := &TokenIssuer{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  AccessTokenTTL,
		refreshTTL: RefreshTokenTTL,
		store:      store,
		now:        time.Now,
		logger:     defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ti)
		}
	}
	return ti
}

// RefreshTTL returns the refresh token lifetime
func (ti *TokenIssuer) RefreshTTL() time.Duration {
	return ti.refreshTTL
}

// AccessTTL returns the access token lifetime
func (ti *TokenIssuer) AccessTTL() time.Duration {
	return ti.accessTTL
}

// IssueAccessToken signs a token embedding the user id and role
func (ti *TokenIssuer) IssueAccessToken(userID uuid.UUID, role UserRole) (string, error) {
	if len(ti.accessKey) == 0 {
		return "", ErrInvalidToken
	}

	now := ti.now()
	claims := &AccessClaims{
		RegisteredClaims: ti.registeredClaims(userID, now, ti.accessTTL),
		UID:              userID.String(),
		UserRole:         role,
	}
	return ti.sign(claims, ti.accessKey)
}

// IssueRefreshToken signs a token embedding only the user id
func (ti *TokenIssuer) IssueRefreshToken(userID uuid.UUID) (string, error) {
	if len(ti.refreshKey) == 0 {
		return "", ErrInvalidToken
	}

	now := ti.now()
	claims := &RefreshClaims{
		RegisteredClaims: ti.registeredClaims(userID, now, ti.refreshTTL),
		UID:              userID.String(),
	}
	return ti.sign(claims, ti.refreshKey)
}

// VerifyAccessToken checks signature and expiry of an access token
func (ti *TokenIssuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ti.parse(token, claims, ti.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry, then requires a stored
// record for the token. A valid token without a record is revoked.
func (ti *TokenIssuer) VerifyRefreshToken(ctx context.Context, token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ti.parse(token, claims, ti.refreshKey); err != nil {
		return nil, err
	}

	if ti.store == nil {
		return nil, goerrors.New("refresh token store is required", goerrors.CategoryInternal)
	}

	record, err := ti.store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrRevokedToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
	}

	if record.UserID.String() != claims.UserID() {
		ti.logger.Warn("refresh token owner mismatch", "claims_uid", claims.UserID(), "record_uid", record.UserID.String())
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (ti *TokenIssuer) registeredClaims(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    ti.issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (ti *TokenIssuer) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

func (ti *TokenIssuer) parse(token string, claims jwt.Claims, key []byte) error {
	if len(key) == 0 || token == "" {
		return ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	}
	if ti.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ti.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ti.logger.Error("unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			ti.logger.Debug("token expired")
		}
		return ErrInvalidToken
	}

	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
