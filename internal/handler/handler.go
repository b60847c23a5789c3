package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/middleware"
)

// requestLog starts a log event carrying the request's identifying fields.
func requestLog(e *zerolog.Event, c *fiber.Ctx) *zerolog.Event {
	e = e.
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path())
	if s := middleware.SessionFrom(c); s != nil {
		e = e.Str("user_id", s.UID)
	}
	return e
}

func logError(c *fiber.Ctx, err error) *zerolog.Event {
	return requestLog(log.Error().Err(err), c)
}

func logInfo(c *fiber.Ctx) *zerolog.Event {
	return requestLog(log.Info(), c)
}

// currentUID returns the signed-in user's id, or "" when the route was
// mounted without a session guard.
func currentUID(c *fiber.Ctx) string {
	if s := middleware.SessionFrom(c); s != nil {
		return s.UID
	}
	return ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}
