package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// AccessTokenTTL is how long an access token stays valid
	AccessTokenTTL = time.Hour
	// RefreshTokenTTL is how long a refresh token stays valid and stored
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is the default role for self registered accounts
	RoleUser UserRole = "USER"
	// RoleAdmin can manage other accounts
	RoleAdmin UserRole = "ADMIN"
)

// UserStatus is the account status toggled by block and unblock
type UserStatus string

const (
	// StatusActive accounts can log in
	StatusActive UserStatus = "ACTIVE"
	// StatusBlocked accounts were blocked by an admin
	StatusBlocked UserStatus = "BLOCKED"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr" json:"-"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name         string     `bun:"name,notnull" json:"name"`
	Email        string     `bun:"email,notnull" json:"email"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Role         UserRole   `bun:"role,notnull" json:"role"`
	Status       UserStatus `bun:"status,notnull" json:"status"`
	KYCVerified  bool       `bun:"kyc_status,notnull" json:"kycStatus"`
	Active       bool       `bun:"active,notnull" json:"active"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// IsBlocked reports whether an admin blocked the account
func (u *User) IsBlocked() bool {
	return u != nil && u.Status == StatusBlocked
}

// RefreshToken is a persisted refresh token. It expires RefreshTokenTTL
// after CreatedAt.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt" json:"-"`

	Token     string    `bun:"token,pk" json:"token"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid" json:"userId"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// ExpiresAt returns the time the store stops resolving the token
func (r *RefreshToken) ExpiresAt(ttl time.Duration) time.Time {
	return r.CreatedAt.Add(ttl)
}

// NewUser holds the attributes required to register an account
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     UserRole
	KYC      bool
}

// UpdateUser replaces every mutable attribute of a user. An empty password
// keeps the current one.
type UpdateUser struct {
	Name     string
	Email    string
	Password string
	Role     UserRole
	Status   UserStatus
	KYC      bool
}

// UserPatch changes only the attributes that are set
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *UserRole
	Status   *UserStatus
	KYC      *bool
}

// IsEmpty reports whether the patch would change nothing
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil &&
		p.Role == nil && p.Status == nil && p.KYC == nil
}

// PrepareUserDefaults fills the zero values of a record before it is stored
func PrepareUserDefaults(u *User) {
	if u == nil {
		return
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
}

// NormalizeEmail trims surrounding whitespace. Case is preserved as stored.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
