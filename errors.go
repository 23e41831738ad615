package accounts

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeInvalidToken        = "INVALID_TOKEN"
	TextCodeRevokedToken        = "REVOKED_TOKEN"
	TextCodeAlreadyVerified     = "KYC_ALREADY_VERIFIED"
	TextCodeNotificationFailure = "NOTIFICATION_FAILURE"
	TextCodeTokenNotFound       = "REFRESH_TOKEN_NOT_FOUND"
	TextCodeForbidden           = "FORBIDDEN"
)

// ErrUserAlreadyExists is returned when registering an email that is taken
var ErrUserAlreadyExists = goerrors.New("User already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserAlreadyExists).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned when a user lookup by id or email fails
var ErrUserNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidCredentials is returned on password mismatch during login
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers bad signatures, expired tokens and missing secrets
var ErrInvalidToken = goerrors.New("Invalid or expired refresh token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrRevokedToken is returned when a well signed refresh token is not stored
var ErrRevokedToken = goerrors.New("Refresh token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeRevokedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrAlreadyVerified is returned when resending KYC to a verified user
var ErrAlreadyVerified = goerrors.New("KYC already completed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrForbidden is returned when the caller may not change the target account
// or one of the requested attributes
var ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(http.StatusForbidden)

// ErrNotificationFailure is the base error for failed notification sends
var ErrNotificationFailure = goerrors.New("Email didn't resend", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotificationFailure).
	WithCode(http.StatusInternalServerError)

// ErrTokenNotFound is returned by refresh token stores on a miss
var ErrTokenNotFound = goerrors.New("refresh token not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidStatus is returned for statuses other than ACTIVE and BLOCKED
var ErrInvalidStatus = goerrors.New("invalid user status", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned for roles other than USER and ADMIN
var ErrInvalidRole = goerrors.New("invalid user role", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// NotificationFailure returns a copy of ErrNotificationFailure with cause as
// its source. The message stays the sentinel's whatever the sender returned.
func NotificationFailure(cause error) error {
	if cause == nil {
		return nil
	}
	clone := ErrNotificationFailure.Clone()
	clone.Source = cause
	return clone
}

// HasTextCode reports whether err, or an error it wraps, carries code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsNotificationFailure checks for errors built with NotificationFailure
func IsNotificationFailure(err error) bool {
	return HasTextCode(err, TextCodeNotificationFailure)
}
