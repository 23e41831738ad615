package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/goliatone/go-accounts"
)

var (
	roleRule   = validation.In(string(accounts.RoleUser), string(accounts.RoleAdmin))
	statusRule = validation.In(string(accounts.StatusActive), string(accounts.StatusBlocked))
)

// CreateUserRequest is the payload for self registration and admin creation
type CreateUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	KYCStatus bool   `json:"kycStatus"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, roleRule),
	)
}

func (r CreateUserRequest) toNewUser() accounts.NewUser {
	return accounts.NewUser{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     accounts.UserRole(r.Role),
		KYC:      r.KYCStatus,
	}
}

// UpdateUserRequest replaces a user. An empty password keeps the current one.
type UpdateUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	KYCStatus bool   `json:"kycStatus"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.Required, roleRule),
		validation.Field(&r.Status, statusRule),
	)
}

func (r UpdateUserRequest) toUpdateUser() accounts.UpdateUser {
	return accounts.UpdateUser{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     accounts.UserRole(r.Role),
		Status:   accounts.UserStatus(r.Status),
		KYC:      r.KYCStatus,
	}
}

// EditUserRequest changes only the attributes present in the body
type EditUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	Status    *string `json:"status"`
	KYCStatus *bool   `json:"kycStatus"`
}

// Validate will run validation rules
func (r EditUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Password, validation.NilOrNotEmpty),
		validation.Field(&r.Role, roleRule),
		validation.Field(&r.Status, statusRule),
	)
}

func (r EditUserRequest) toPatch() accounts.UserPatch {
	patch := accounts.UserPatch{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		KYC:      r.KYCStatus,
	}
	if r.Role != nil {
		role := accounts.UserRole(*r.Role)
		patch.Role = &role
	}
	if r.Status != nil {
		status := accounts.UserStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshTokenRequest carries the refresh token when it is not sent as a cookie
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UserIDRequest is the body of the admin status and notification routes
type UserIDRequest struct {
	UserID string `json:"userId"`
}

// Validate will run validation rules
func (r UserIDRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
	)
}
