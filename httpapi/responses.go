package httpapi

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// Response is the JSON envelope every route answers with
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *fiber.Ctx, data any, message ...string) error {
	msg := "OK"
	if len(message) > 0 {
		msg = message[0]
	}
	return c.JSON(Response{Success: true, Message: msg, Data: data})
}

func fail(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Success: false, Message: message, Data: data})
}

var (
	errInvalidBody   = goerrors.New("Invalid request body", goerrors.CategoryBadInput).WithCode(goerrors.CodeBadRequest)
	errInvalidUserID = goerrors.New("Invalid user id", goerrors.CategoryBadInput).WithCode(goerrors.CodeBadRequest)
	errUnauthorized  = goerrors.New("Invalid or expired token", goerrors.CategoryAuth).WithCode(goerrors.CodeUnauthorized)
	errForbidden     = goerrors.New("Forbidden", goerrors.CategoryAuthz).WithCode(http.StatusForbidden)
)

// statusFor maps an error to a status code, the message shown to the client
// and optional details
func statusFor(err error) (int, string, any) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, "Validation failed", verrs
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message, nil
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError, "Internal server error", nil
	}

	status := richErr.Code
	if status == 0 {
		status = statusForCategory(richErr)
	}

	if status >= http.StatusInternalServerError && !accounts.IsNotificationFailure(err) {
		return status, "Internal server error", nil
	}

	return status, richErr.Message, nil
}

func statusForCategory(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// authError normalizes the errors raised by the bearer middleware
func authError(err error) error {
	if errors.Is(err, jwtware.ErrAccessDenied) {
		return errForbidden
	}
	return errUnauthorized
}
