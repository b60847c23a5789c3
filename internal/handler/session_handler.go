package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/aurorallabs/referral-portal/internal/model"
	"github.com/aurorallabs/referral-portal/internal/service"
)

// SignInServiceInterface exchanges a provider ID token for a user and role snapshot.
type SignInServiceInterface interface {
	SignIn(ctx context.Context, idToken string) (*model.User, model.Role, error)
}

// SessionIssuer signs session tokens.
type SessionIssuer interface {
	Issue(uid, email string, role model.Role) (string, time.Time, error)
}

// CookieWriter sets and clears the session cookie.
type CookieWriter interface {
	SetCookie(c *fiber.Ctx, token string, expires time.Time)
	ClearCookie(c *fiber.Ctx)
}

// SessionHandler handles sign-in and sign-out.
type SessionHandler struct {
	accounts  SignInServiceInterface
	sessions  SessionIssuer
	cookies   CookieWriter
	validator *validator.Validate
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(accounts SignInServiceInterface, sessions SessionIssuer, cookies CookieWriter, v *validator.Validate) *SessionHandler {
	return &SessionHandler{accounts: accounts, sessions: sessions, cookies: cookies, validator: v}
}

// Create handles POST /api/auth/session.
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req model.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID token"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID token"})
	}

	user, role, err := h.accounts.SignIn(c.UserContext(), req.IDToken)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			logInfo(c).Err(err).Msg("id token rejected")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid ID token"})
		}
		logError(c, err).Msg("failed to sign in")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
	}

	token, expires, err := h.sessions.Issue(user.ID, user.Email, role)
	if err != nil {
		logError(c, err).Str("user_id", user.ID).Msg("failed to issue session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create session"})
	}
	h.cookies.SetCookie(c, token, expires)

	logInfo(c).Str("user_id", user.ID).Str("role", string(role)).Msg("session created")
	return c.JSON(fiber.Map{"success": true})
}

// Delete handles DELETE /api/auth/session.
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	h.cookies.ClearCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

// SignOut handles GET /api/auth/signout.
func (h *SessionHandler) SignOut(c *fiber.Ctx) error {
	h.cookies.ClearCookie(c)
	return c.Redirect("/auth", fiber.StatusFound)
}
