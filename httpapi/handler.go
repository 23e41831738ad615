// Package httpapi exposes the account services over HTTP with fiber.
package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// HealthCheck reports whether a backing service is reachable
type HealthCheck func(ctx context.Context) error

// Handler serves the /api/users routes
type Handler struct {
	users    *accounts.UserService
	sessions *accounts.SessionService
	admin    *accounts.AdminService
	issuer   *accounts.TokenIssuer
	cookies  CookieConfig
	logger   accounts.Logger
	checks   map[string]HealthCheck
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger
func WithLogger(logger accounts.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCookies sets the session cookie attributes
func WithCookies(cfg CookieConfig) Option {
	return func(h *Handler) {
		h.cookies = cfg
	}
}

// WithHealthCheck adds a named check to /healthz
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func NewHandler(users *accounts.UserService, sessions *accounts.SessionService, admin *accounts.AdminService, issuer *accounts.TokenIssuer, opts ...Option) *Handler {
	h := &Handler{
		users:    users,
		sessions: sessions,
		admin:    admin,
		issuer:   issuer,
		cookies:  CookieConfig{SameSite: fiber.CookieSameSiteStrictMode},
		logger:   discardLogger{},
		checks:   map[string]HealthCheck{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Register mounts the user routes on r
func (h *Handler) Register(r fiber.Router) {
	bearer := h.Bearer()
	admin := h.Bearer(accounts.RoleAdmin)

	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)
	r.Post("/logout", h.Logout)

	r.Post("/block", admin, h.Block)
	r.Post("/unblock", admin, h.Unblock)
	r.Post("/resend-kyc-email", admin, h.ResendKYCEmail)
	r.Post("/by-admin", admin, h.CreateByAdmin)

	r.Get("/", bearer, h.List)
	r.Post("/", h.Create)
	r.Get("/:id", bearer, h.Get)
	r.Put("/:id", bearer, h.Update)
	r.Patch("/:id", bearer, h.Edit)
	r.Delete("/:id", bearer, h.Delete)
}

// Bearer authenticates the access token from the Authorization header or the
// session cookies. A role makes it the minimum role required.
func (h *Handler) Bearer(role ...accounts.UserRole) fiber.Handler {
	cfg := jwtware.Config{
		TokenValidator: h.issuer,
		TokenLookup:    "header:Authorization,cookie:" + CookieToken + ",cookie:" + CookieAccessToken,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			h.logger.Info("request rejected", "path", c.Path(), "error", err)
			return h.Error(c, authError(err))
		},
	}
	if len(role) > 0 {
		cfg.MinimumRole = role[0]
	}
	return jwtware.New(cfg)
}

// Error writes err as an envelope with the mapped status
func (h *Handler) Error(c *fiber.Ctx, err error) error {
	status, message, data := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return fail(c, status, message, data)
}

func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, users)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.Error(c, errInvalidUserID)
	}

	user, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user)
}

func (h *Handler) Create(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)
	if err := h.bind(c, payload); err != nil {
		return h.Error(c, err)
	}

	// self registration cannot grant admin or a verified KYC status
	if payload.Role == string(accounts.RoleAdmin) || payload.KYCStatus {
		return h.Error(c, accounts.ErrForbidden)
	}

	user, err := h.users.Register(c.UserContext(), payload.toNewUser())
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user, "User created successfully")
}

func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.Error(c, errInvalidUserID)
	}

	payload := new(UpdateUserRequest)
	if err := h.bind(c, payload); err != nil {
		return h.Error(c, err)
	}

	user, err := h.users.Update(c.UserContext(), id, payload.toUpdateUser())
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user, "User updated successfully")
}

func (h *Handler) Edit(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.Error(c, errInvalidUserID)
	}

	payload := new(EditUserRequest)
	if err := h.bind(c, payload); err != nil {
		return h.Error(c, err)
	}

	user, err := h.users.Edit(c.UserContext(), id, payload.toPatch())
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user, "User updated successfully")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.Error(c, errInvalidUserID)
	}

	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return h.Error(c, err)
	}
	return respond(c, nil, "User deleted successfully")
}

func (h *Handler) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := h.bind(c, payload); err != nil {
		return h.Error(c, err)
	}

	res, err := h.sessions.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return h.Error(c, err)
	}

	h.cookies.set(c, CookieRefreshToken, res.RefreshToken, h.issuer.RefreshTTL())
	h.cookies.set(c, CookieToken, res.AccessToken, h.issuer.AccessTTL())

	return respond(c, fiber.Map{"token": res.AccessToken}, "Login successful")
}

func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	token := h.refreshTokenFrom(c)
	if token == "" {
		return fail(c, fiber.StatusBadRequest, "Refresh token is required", nil)
	}

	accessToken, err := h.sessions.Refresh(c.UserContext(), token)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryAuth {
			return fail(c, fiber.StatusUnauthorized, accounts.ErrInvalidToken.Message, nil)
		}
		return h.Error(c, err)
	}

	h.cookies.set(c, CookieAccessToken, accessToken, h.issuer.AccessTTL())

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Access token refreshed successfully",
		"accessToken": accessToken,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c.UserContext(), h.refreshTokenFrom(c)); err != nil {
		return h.Error(c, err)
	}

	h.cookies.clear(c, CookieAccessToken, CookieRefreshToken, CookieToken)

	return respond(c, nil, "Logged out successfully")
}

func (h *Handler) Block(c *fiber.Ctx) error {
	return h.setStatus(c, h.admin.Block, "User blocked successfully")
}

func (h *Handler) Unblock(c *fiber.Ctx) error {
	return h.setStatus(c, h.admin.Unblock, "User unblocked successfully")
}

func (h *Handler) setStatus(c *fiber.Ctx, apply func(context.Context, uuid.UUID) (*accounts.User, error), message string) error {
	id, err := h.userIDFromBody(c)
	if err != nil {
		return h.Error(c, err)
	}

	user, err := apply(c.UserContext(), id)
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user, message)
}

func (h *Handler) ResendKYCEmail(c *fiber.Ctx) error {
	id, err := h.userIDFromBody(c)
	if err != nil {
		return h.Error(c, err)
	}

	if err := h.admin.ResendKYCNotification(c.UserContext(), id); err != nil {
		return h.Error(c, err)
	}
	return respond(c, nil, "KYC email resent successfully")
}

func (h *Handler) CreateByAdmin(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)
	if err := h.bind(c, payload); err != nil {
		return h.Error(c, err)
	}

	user, err := h.admin.CreateWithNotification(c.UserContext(), payload.toNewUser())
	if err != nil {
		return h.Error(c, err)
	}
	return respond(c, user, "User created successfully")
}

// Health runs the registered checks
func (h *Handler) Health(c *fiber.Ctx) error {
	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(c.UserContext()); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		return fail(c, fiber.StatusServiceUnavailable, "unhealthy", failed)
	}
	return respond(c, fiber.Map{"status": "ok"})
}

type validator interface {
	Validate() error
}

func (h *Handler) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		h.logger.Debug("parse payload", "path", c.Path(), "error", err)
		return errInvalidBody
	}
	if v, ok := payload.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) userIDFromBody(c *fiber.Ctx) (uuid.UUID, error) {
	payload := new(UserIDRequest)
	if err := h.bind(c, payload); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(payload.UserID)
	if err != nil {
		return uuid.Nil, errInvalidUserID
	}
	return id, nil
}

// refreshTokenFrom reads the token from the body, falling back to the cookie
func (h *Handler) refreshTokenFrom(c *fiber.Ctx) string {
	payload := new(RefreshTokenRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(payload); err != nil {
			h.logger.Debug("parse refresh token payload", "error", err)
		}
	}
	if payload.RefreshToken != "" {
		return payload.RefreshToken
	}
	return c.Cookies(CookieRefreshToken)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
