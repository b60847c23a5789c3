// Package middleware resolves the session cookie and guards routes.
package middleware

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/session"
)

// BootstrapHeader carries the one-off token that may promote the first admin.
const BootstrapHeader = "X-Admin-Bootstrap-Token"

const sessionLocal = "session"

// SessionParser validates session tokens.
type SessionParser interface {
	Parse(token string) (*session.Session, error)
}

// AdminChecker reads the current stored role of a user.
type AdminChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// Auth builds the session and role guards.
type Auth struct {
	sessions       SessionParser
	admins         AdminChecker
	secure         bool
	bootstrapToken string
}

// NewAuth creates an Auth. secure marks cookies Secure; an empty
// bootstrapToken disables the bootstrap header.
func NewAuth(sessions SessionParser, admins AdminChecker, secure bool, bootstrapToken string) *Auth {
	return &Auth{
		sessions:       sessions,
		admins:         admins,
		secure:         secure,
		bootstrapToken: bootstrapToken,
	}
}

// SessionFrom returns the session resolved for this request, or nil.
func SessionFrom(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(sessionLocal).(*session.Session)
	return s
}

// SetCookie writes the session cookie.
func (a *Auth) SetCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (a *Auth) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// resolve parses the cookie once per request and caches the result in Locals.
func (a *Auth) resolve(c *fiber.Ctx) (*session.Session, bool, error) {
	if s := SessionFrom(c); s != nil {
		return s, true, nil
	}
	token := c.Cookies(session.CookieName)
	if token == "" {
		return nil, false, nil
	}
	s, err := a.sessions.Parse(token)
	if err != nil {
		return nil, true, err
	}
	c.Locals(sessionLocal, s)
	return s, true, nil
}

// DashboardGate redirects requests without a usable session cookie to "/".
// An invalid cookie is cleared on the way out.
func (a *Auth) DashboardGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, present, err := a.resolve(c)
		if !present {
			return c.Redirect("/", fiber.StatusFound)
		}
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("invalid session cookie on dashboard")
			a.ClearCookie(c)
			return c.Redirect("/", fiber.StatusFound)
		}
		return c.Next()
	}
}

// RequireSession rejects requests without a valid session with 401.
func (a *Auth) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, present, err := a.resolve(c)
		if !present {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session"})
		}
		return c.Next()
	}
}

// RequireAdmin admits a request only when both the session's role snapshot
// and the stored role are admin.
func (a *Auth) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return a.checkAdmin(c)
	}
}

// AdminOrBootstrap behaves like RequireAdmin but also admits requests that
// carry the configured bootstrap token.
func (a *Auth) AdminOrBootstrap() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.bootstrapToken != "" {
			if got := c.Get(BootstrapHeader); got != "" &&
				subtle.ConstantTimeCompare([]byte(got), []byte(a.bootstrapToken)) == 1 {
				log.Warn().
					Str("request_id", c.GetRespHeader("X-Request-ID")).
					Str("path", c.Path()).
					Msg("admin route accessed with bootstrap token")
				return c.Next()
			}
		}
		return a.checkAdmin(c)
	}
}

func (a *Auth) checkAdmin(c *fiber.Ctx) error {
	s, present, err := a.resolve(c)
	if !present || err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if !s.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	ok, err := a.admins.IsAdmin(c.UserContext(), s.UID)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("user_id", s.UID).
			Msg("failed to check stored role")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	if !ok {
		log.Info().Str("user_id", s.UID).Msg("stale admin session rejected")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}
	return c.Next()
}
