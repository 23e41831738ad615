package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	CookieRefreshToken = "refreshToken"
	CookieToken        = "token"
	CookieAccessToken  = "accessToken"
)

// CookieConfig holds the attributes shared by the session cookies
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

func (cc CookieConfig) set(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cc.Domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   cc.Secure,
		SameSite: cc.sameSite(),
	})
}

func (cc CookieConfig) clear(c *fiber.Ctx, names ...string) {
	for _, name := range names {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   cc.Domain,
			Expires:  time.Now().Add(-time.Hour * (24 * 365)),
			HTTPOnly: true,
			Secure:   cc.Secure,
			SameSite: cc.sameSite(),
		})
	}
}

func (cc CookieConfig) sameSite() string {
	switch strings.ToLower(cc.SameSite) {
	case fiber.CookieSameSiteLaxMode:
		return fiber.CookieSameSiteLaxMode
	case fiber.CookieSameSiteNoneMode:
		return fiber.CookieSameSiteNoneMode
	default:
		return fiber.CookieSameSiteStrictMode
	}
}
